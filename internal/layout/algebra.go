/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"sort"

	"gracenote/internal/domain"
)

// IntSet is a set of row or column indices.
type IntSet map[int]struct{}

// NewIntSet builds a set from a list of indices.
func NewIntSet(xs ...int) IntSet {
	s := make(IntSet, len(xs))
	for _, x := range xs {
		s[x] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set is empty.
func (s IntSet) Has(x int) bool {
	_, ok := s[x]
	return ok
}

// Toggle flips membership of x and reports whether x is now in the set.
func (s IntSet) Toggle(x int) bool {
	if s.Has(x) {
		delete(s, x)
		return false
	}
	s[x] = struct{}{}
	return true
}

// Sorted returns the members in ascending order.
func (s IntSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for x := range s {
		out = append(out, x)
	}
	sort.Ints(out)
	return out
}

// Clone copies the set.
func (s IntSet) Clone() IntSet {
	out := make(IntSet, len(s))
	for x := range s {
		out[x] = struct{}{}
	}
	return out
}

// Swap exchanges row, col, merge range and state of the panels idA and idB. Ids, and therefore the settings
// attached to them, stay put. Unknown ids return the input unchanged.
func Swap(panels []domain.PanelLayout, idA, idB string) []domain.PanelLayout {
	out := ClonePanels(panels)
	a, b := indexOf(out, idA), indexOf(out, idB)
	if a < 0 || b < 0 {
		return out
	}
	pa, pb := out[a], out[b]
	out[a].Row, out[a].Col, out[a].MergeRange, out[a].State = pb.Row, pb.Col, pb.MergeRange, pb.State
	out[b].Row, out[b].Col, out[b].MergeRange, out[b].State = pa.Row, pa.Col, pa.MergeRange, pa.State
	return out
}

// Merge absorbs every panel inside rng into masterID. The master becomes StateMaster carrying rng, the rest
// become hidden with their own range cleared. Panels outside rng are untouched. The rectangle itself is not
// validated; use ColumnMergeRange to build one.
func Merge(panels []domain.PanelLayout, masterID string, rng domain.MergeRange) []domain.PanelLayout {
	out := ClonePanels(panels)
	if indexOf(out, masterID) < 0 {
		return out
	}
	for i := range out {
		p := &out[i]
		if !rng.Contains(p.Row, p.Col) {
			continue
		}
		if p.ID == masterID {
			r := rng
			p.State = domain.StateMaster
			p.MergeRange = &r
			continue
		}
		p.State = domain.StateHidden
		p.MergeRange = nil
	}
	return out
}

// Unmerge resets every panel inside the master's stored range to normal. The named panel must be a master with a
// range, otherwise the input is returned unchanged.
func Unmerge(panels []domain.PanelLayout, masterID string) []domain.PanelLayout {
	out := ClonePanels(panels)
	i := indexOf(out, masterID)
	if i < 0 || out[i].State != domain.StateMaster || out[i].MergeRange == nil {
		return out
	}
	rng := *out[i].MergeRange
	for j := range out {
		p := &out[j]
		if rng.Contains(p.Row, p.Col) {
			p.State = domain.StateNormal
			p.MergeRange = nil
		}
	}
	return out
}

// ApplyVisibility hides every panel on a hidden row or column, snapshotting its state into OriginalState the
// first time, and restores panels that are no longer covered. Repeated calls with the same sets are idempotent.
func ApplyVisibility(panels []domain.PanelLayout, hiddenRows, hiddenCols IntSet) []domain.PanelLayout {
	out := ClonePanels(panels)
	for i := range out {
		p := &out[i]
		hide := hiddenRows.Has(p.Row) || hiddenCols.Has(p.Col)
		switch {
		case hide && p.OriginalState == nil:
			p.OriginalState = domain.StatePtr(p.State)
			p.State = domain.StateHidden
		case hide:
			p.State = domain.StateHidden
		case p.OriginalState != nil:
			p.State = *p.OriginalState
			p.OriginalState = nil
		}
	}
	return out
}
