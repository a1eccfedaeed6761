/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package visibility turns row and column hide toggles into panel states.
package visibility

import (
	"sort"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
)

// Controller holds the hidden row and column sets. It is not safe for concurrent use; the workspace serialises
// access.
type Controller struct {
	hiddenRows layout.IntSet
	hiddenCols layout.IntSet
}

// New restores a controller from persisted index lists. Out-of-range indices are dropped.
func New(rows, cols []int) *Controller {
	c := &Controller{hiddenRows: layout.NewIntSet(), hiddenCols: layout.NewIntSet()}
	for _, r := range rows {
		if r >= 0 && r < layout.Rows {
			c.hiddenRows[r] = struct{}{}
		}
	}
	for _, col := range cols {
		if col >= 0 && col < layout.Cols {
			c.hiddenCols[col] = struct{}{}
		}
	}
	return c
}

// ToggleColumn flips col and recomputes panel states. An out-of-range col returns a copy of panels.
func (c *Controller) ToggleColumn(panels []domain.PanelLayout, col int) []domain.PanelLayout {
	if col < 0 || col >= layout.Cols {
		return layout.ClonePanels(panels)
	}
	c.hiddenCols.Toggle(col)
	return c.Apply(panels)
}

// ToggleRow flips row and recomputes panel states.
func (c *Controller) ToggleRow(panels []domain.PanelLayout, row int) []domain.PanelLayout {
	if row < 0 || row >= layout.Rows {
		return layout.ClonePanels(panels)
	}
	c.hiddenRows.Toggle(row)
	return c.Apply(panels)
}

// Apply re-applies the current sets without changing them.
func (c *Controller) Apply(panels []domain.PanelLayout) []domain.PanelLayout {
	return layout.ApplyVisibility(panels, c.hiddenRows, c.hiddenCols)
}

func (c *Controller) HiddenRows() []int { return c.hiddenRows.Sorted() }
func (c *Controller) HiddenCols() []int { return c.hiddenCols.Sorted() }

// Reset clears both sets.
func (c *Controller) Reset() {
	c.hiddenRows = layout.NewIntSet()
	c.hiddenCols = layout.NewIntSet()
}

// CellStatus is one panel's state inside a column.
type CellStatus struct {
	ID    string            `json:"id"`
	Row   int               `json:"row"`
	State domain.PanelState `json:"state"`
}

// ColumnStatus is the aggregate view used by column header controls.
type ColumnStatus struct {
	Col int `json:"col"`
	// Hidden is true only when every panel in the column is hidden.
	Hidden bool `json:"hidden"`
	// RestoresMerged is true when un-hiding will bring back a merged block.
	RestoresMerged bool         `json:"restoresMerged"`
	Toggled        bool         `json:"toggled"`
	Cells          []CellStatus `json:"cells"`
}

// ColumnStatus reports how col renders. A column half hidden by a row toggle is not Hidden; its cells carry the
// per-panel states instead.
func (c *Controller) ColumnStatus(panels []domain.PanelLayout, col int) ColumnStatus {
	st := ColumnStatus{Col: col, Toggled: c.hiddenCols.Has(col)}
	all := true
	for _, p := range panels {
		if p.Col != col {
			continue
		}
		st.Cells = append(st.Cells, CellStatus{ID: p.ID, Row: p.Row, State: p.State})
		if p.State != domain.StateHidden {
			all = false
		}
		if p.OriginalState != nil && *p.OriginalState == domain.StateMaster {
			st.RestoresMerged = true
		}
	}
	st.Hidden = all && len(st.Cells) > 0
	if !st.Hidden {
		st.RestoresMerged = false
	}
	sortCells(st.Cells)
	return st
}

func sortCells(cells []CellStatus) {
	sort.Slice(cells, func(i, j int) bool { return cells[i].Row < cells[j].Row })
}

// VisibleColumns lists the columns holding at least one non-hidden panel.
func VisibleColumns(panels []domain.PanelLayout) []int { return layout.VisibleColumns(panels) }
