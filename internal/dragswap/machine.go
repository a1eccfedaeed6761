/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dragswap maps a drag gesture onto a single panel swap.
//
// A gesture is driven by three events: Start(source), Hover(target or "") and End. End commits a swap only when
// the pointer rests on a panel other than the source; anything else cancels without touching the layout.
package dragswap

import (
	"errors"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
)

var (
	ErrDragInProgress = errors.New("drag already in progress")
	ErrEmptySource    = errors.New("drag source id is empty")
)

// Phase is the machine's resting state.
type Phase int

const (
	Idle Phase = iota
	Dragging
)

func (p Phase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// Outcome is what End reported.
type Outcome int

const (
	Cancelled Outcome = iota
	Committed
)

func (o Outcome) String() string {
	if o == Committed {
		return "committed"
	}
	return "cancelled"
}

// Result carries the outcome and the panel list to commit. On cancel Panels is a copy of the input.
type Result struct {
	Outcome Outcome
	Source  string
	Target  string
	Panels  []domain.PanelLayout
}

// Machine tracks one gesture at a time. The zero value is idle and ready.
type Machine struct {
	phase  Phase
	source string
	target string
}

// Start begins a gesture on source.
func (m *Machine) Start(source string) error {
	if m.phase == Dragging {
		return ErrDragInProgress
	}
	if source == "" {
		return ErrEmptySource
	}
	m.phase, m.source, m.target = Dragging, source, ""
	return nil
}

// Hover records the panel under the pointer; "" means no target. Ignored while idle.
func (m *Machine) Hover(target string) {
	if m.phase != Dragging {
		return
	}
	m.target = target
}

// End finishes the gesture and returns the machine to idle.
func (m *Machine) End(panels []domain.PanelLayout) Result {
	src, tgt := m.source, m.target
	active := m.phase == Dragging
	m.reset()
	if !active || tgt == "" || tgt == src {
		return Result{Outcome: Cancelled, Source: src, Target: tgt, Panels: layout.ClonePanels(panels)}
	}
	return Result{Outcome: Committed, Source: src, Target: tgt, Panels: layout.Swap(panels, src, tgt)}
}

// Cancel aborts the gesture.
func (m *Machine) Cancel() { m.reset() }

func (m *Machine) reset() { m.phase, m.source, m.target = Idle, "", "" }

func (m *Machine) Phase() Phase   { return m.phase }
func (m *Machine) Active() bool   { return m.phase == Dragging }
func (m *Machine) Source() string { return m.source }
func (m *Machine) Target() string { return m.target }

// IsOver reports whether id is the current drop target, for hover highlighting.
func (m *Machine) IsOver(id string) bool {
	return m.phase == Dragging && id != "" && id == m.target && id != m.source
}
