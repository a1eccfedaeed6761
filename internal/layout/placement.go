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

// Placement is a panel's position on the visible grid as 1-based, end-exclusive grid lines.
type Placement struct {
	RowStart int `json:"rowStart"`
	RowEnd   int `json:"rowEnd"`
	ColStart int `json:"colStart"`
	ColEnd   int `json:"colEnd"`
}

// RowSpan is the number of visible rows covered.
func (p Placement) RowSpan() int { return p.RowEnd - p.RowStart }

// ColSpan is the number of visible columns covered.
func (p Placement) ColSpan() int { return p.ColEnd - p.ColStart }

// VisibleIndex counts the visible tracks in 0..index. For a visible track this is its 1-based grid line.
func VisibleIndex(index int, hidden IntSet) int {
	n := 0
	for i := 0; i <= index; i++ {
		if !hidden.Has(i) {
			n++
		}
	}
	return n
}

// Collapsed returns the tracks in 0..n-1 missing from visible. Tracks emptied by a hidden merge count as collapsed
// even when they were never toggled.
func Collapsed(visible []int, n int) IntSet {
	v := NewIntSet(visible...)
	out := IntSet{}
	for i := 0; i < n; i++ {
		if !v.Has(i) {
			out[i] = struct{}{}
		}
	}
	return out
}

// Place maps a panel onto visible grid lines. Masters span their merge range; other panels cover one cell.
func Place(p domain.PanelLayout, hiddenRows, hiddenCols IntSet) Placement {
	if p.State == domain.StateMaster && p.MergeRange != nil {
		r := p.MergeRange
		return Placement{
			RowStart: VisibleIndex(r.StartRow, hiddenRows),
			RowEnd:   VisibleIndex(r.EndRow, hiddenRows) + 1,
			ColStart: VisibleIndex(r.StartCol, hiddenCols),
			ColEnd:   VisibleIndex(r.EndCol, hiddenCols) + 1,
		}
	}
	rs, cs := VisibleIndex(p.Row, hiddenRows), VisibleIndex(p.Col, hiddenCols)
	return Placement{RowStart: rs, RowEnd: rs + 1, ColStart: cs, ColEnd: cs + 1}
}

// RenderablePanels returns the panels that are not hidden, in row-major order.
func RenderablePanels(g domain.PanelGrid) []domain.PanelLayout {
	out := make([]domain.PanelLayout, 0, len(g.Panels))
	for _, p := range g.Panels {
		if p.State != domain.StateHidden {
			out = append(out, clonePanel(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// VisibleColumns lists the columns holding at least one non-hidden panel.
func VisibleColumns(panels []domain.PanelLayout) []int {
	out := make([]int, 0, Cols)
	for c := 0; c < Cols; c++ {
		for _, p := range panels {
			if p.Col == c && p.State != domain.StateHidden {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// VisibleRows lists the rows holding at least one non-hidden panel.
func VisibleRows(panels []domain.PanelLayout) []int {
	out := make([]int, 0, Rows)
	for r := 0; r < Rows; r++ {
		for _, p := range panels {
			if p.Row == r && p.State != domain.StateHidden {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
