/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"

	"gracenote/internal/domain"
)

// ErrInvalidGrid is wrapped by every Validate failure.
var ErrInvalidGrid = errors.New("invalid panel grid")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGrid, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants of a stored grid: exact panel count, unique ids, in-bounds unique
// coordinates, known states, one settings entry per panel and at most one base.
func Validate(g domain.PanelGrid) error {
	if len(g.Panels) != MaxPanels {
		return invalid("expected %d panels, got %d", MaxPanels, len(g.Panels))
	}
	ids := make(map[string]struct{}, len(g.Panels))
	cells := make(map[[2]int]string, len(g.Panels))
	for _, p := range g.Panels {
		if p.ID == "" {
			return invalid("panel with empty id")
		}
		if _, dup := ids[p.ID]; dup {
			return invalid("duplicate panel id %q", p.ID)
		}
		ids[p.ID] = struct{}{}
		if p.Row < 0 || p.Row >= Rows || p.Col < 0 || p.Col >= Cols {
			return invalid("panel %q out of bounds at (%d,%d)", p.ID, p.Row, p.Col)
		}
		key := [2]int{p.Row, p.Col}
		if other, taken := cells[key]; taken {
			return invalid("panels %q and %q share cell (%d,%d)", other, p.ID, p.Row, p.Col)
		}
		cells[key] = p.ID
		if !p.State.Valid() {
			return invalid("panel %q has unknown state %q", p.ID, p.State)
		}
		if p.OriginalState != nil && !p.OriginalState.Valid() {
			return invalid("panel %q has unknown original state %q", p.ID, *p.OriginalState)
		}
		if r := p.MergeRange; r != nil {
			if r.StartRow > r.EndRow || r.StartCol > r.EndCol ||
				r.StartRow < 0 || r.StartCol < 0 || r.EndRow >= Rows || r.EndCol >= Cols {
				return invalid("panel %q has malformed merge range %+v", p.ID, *r)
			}
		}
	}
	if len(g.Settings) != len(ids) {
		return invalid("expected %d settings entries, got %d", len(ids), len(g.Settings))
	}
	bases := 0
	for id, s := range g.Settings {
		if _, ok := ids[id]; !ok {
			return invalid("settings for unknown panel %q", id)
		}
		if s.ID != id {
			return invalid("settings key %q holds id %q", id, s.ID)
		}
		if s.IsBase {
			bases++
		}
	}
	if bases > 1 {
		return invalid("%d base panels, at most one allowed", bases)
	}
	return nil
}
