/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"gracenote/internal/domain"
	"gracenote/internal/layout"
	"gracenote/internal/telemetry"
)

// Snapshot is an immutable copy of the workspace handed to renderers and subscribers.
type Snapshot struct {
	Grid        domain.PanelGrid `json:"panelGrid"`
	HiddenRows  []int            `json:"hiddenRows"`
	HiddenCols  []int            `json:"hiddenCols"`
	ColumnSizes []float64        `json:"columnSizes"`
	Position    domain.Position  `json:"position"`
	TextSize    int              `json:"panelTextSize"`
	BaseID      string           `json:"baseId,omitempty"`
	DragSource  string           `json:"-"`
	DragTarget  string           `json:"-"` // set only while hovering a panel other than the source
	CanUndo     bool             `json:"-"`
	CanRedo     bool             `json:"-"`
}

// Cell is one renderable panel with its settings and grid placement.
type Cell struct {
	Panel     domain.PanelLayout
	Settings  domain.PanelSettings
	Placement layout.Placement
	Width     float64 // combined width share in percent of the spanned visible columns
}

// Cells lists the renderable panels in row-major order with their placement in the compacted grid.
func (s Snapshot) Cells() []Cell {
	visible := layout.VisibleColumns(s.Grid.Panels)
	rows := layout.Collapsed(layout.VisibleRows(s.Grid.Panels), layout.Rows)
	cols := layout.Collapsed(visible, layout.Cols)
	widths := s.ColumnSizes
	if len(widths) != len(visible) {
		widths = layout.EqualWidths(len(visible))
	}
	var out []Cell
	for _, p := range layout.RenderablePanels(s.Grid) {
		pl := layout.Place(p, rows, cols)
		c := Cell{Panel: p, Settings: s.Grid.Settings[p.ID], Placement: pl}
		for i := pl.ColStart - 1; i < pl.ColEnd-1 && i < len(widths); i++ {
			c.Width += widths[i]
		}
		out = append(out, c)
	}
	return out
}

// VisibleRowCount is the number of grid tracks a renderer needs vertically.
func (s Snapshot) VisibleRowCount() int { return len(layout.VisibleRows(s.Grid.Panels)) }

// VisibleColumnCount is the number of grid tracks a renderer needs horizontally.
func (s Snapshot) VisibleColumnCount() int { return len(layout.VisibleColumns(s.Grid.Panels)) }

// Stats summarizes the layout shape for telemetry.
func (s Snapshot) Stats() telemetry.LayoutStats {
	st := telemetry.LayoutStats{HiddenRows: len(s.HiddenRows), HiddenCols: len(s.HiddenCols)}
	for _, p := range layout.RenderablePanels(s.Grid) {
		st.Visible++
		if p.MergeRange != nil {
			st.Merged++
		}
	}
	return st
}
