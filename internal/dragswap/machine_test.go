/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dragswap

import (
	"errors"
	"testing"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
)

func TestCommitSwapsSourceAndTarget(t *testing.T) {
	var m Machine
	panels := layout.NewInitialGrid().Panels
	if err := m.Start("panel-0"); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Hover("panel-5")
	if !m.IsOver("panel-5") || m.IsOver("panel-0") {
		t.Fatalf("hover feedback wrong")
	}
	res := m.End(panels)
	if res.Outcome != Committed {
		t.Fatalf("want committed, got %v", res.Outcome)
	}
	p0, _ := layout.Find(res.Panels, "panel-0")
	if p0.Col != 5 {
		t.Fatalf("panel-0 not moved: %+v", p0)
	}
	if m.Active() || m.Source() != "" {
		t.Fatalf("machine not back to idle")
	}
	orig, _ := layout.Find(panels, "panel-0")
	if orig.Col != 0 {
		t.Fatalf("input mutated")
	}
}

func TestCancelCases(t *testing.T) {
	panels := layout.NewInitialGrid().Panels
	cases := map[string]func(m *Machine){
		"no hover":      func(m *Machine) {},
		"hover cleared": func(m *Machine) { m.Hover("panel-3"); m.Hover("") },
		"self":          func(m *Machine) { m.Hover("panel-1") },
	}
	for name, drive := range cases {
		t.Run(name, func(t *testing.T) {
			var m Machine
			if err := m.Start("panel-1"); err != nil {
				t.Fatalf("start: %v", err)
			}
			drive(&m)
			res := m.End(panels)
			if res.Outcome != Cancelled {
				t.Fatalf("want cancelled, got %v", res.Outcome)
			}
			for i := range panels {
				if panels[i] != res.Panels[i] {
					t.Fatalf("panels changed at %d", i)
				}
			}
		})
	}
}

func TestNoConcurrentDrags(t *testing.T) {
	var m Machine
	if err := m.Start(""); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("want ErrEmptySource, got %v", err)
	}
	if err := m.Start("panel-2"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start("panel-3"); !errors.Is(err, ErrDragInProgress) {
		t.Fatalf("want ErrDragInProgress, got %v", err)
	}
	if m.Source() != "panel-2" || m.Phase() != Dragging {
		t.Fatalf("second start clobbered state")
	}
	m.Cancel()
	if m.Phase() != Idle {
		t.Fatalf("cancel did not reset")
	}
	if err := m.Start("panel-3"); err != nil {
		t.Fatalf("start after cancel: %v", err)
	}
}

func TestIdleEventsAreIgnored(t *testing.T) {
	var m Machine
	m.Hover("panel-4")
	if m.Target() != "" {
		t.Fatalf("hover while idle recorded")
	}
	res := m.End([]domain.PanelLayout{{ID: "a"}})
	if res.Outcome != Cancelled || len(res.Panels) != 1 {
		t.Fatalf("end while idle: %+v", res)
	}
}
