/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout holds the panel grid model and the pure layout algebra over it.
//
// Every function in this package is total: unknown ids and unsatisfied preconditions return the input unchanged,
// and inputs are never mutated. Callers commit the returned slices themselves.
package layout

import (
	"fmt"

	"gracenote/internal/domain"
)

// Grid dimensions.
const (
	Rows      = 2
	Cols      = 6
	MaxPanels = Rows * Cols
)

// Default colours for a fresh panel.
const (
	DefaultBackground = "#fff"
	DefaultText       = "#000"
)

// PanelID returns the stable id of the panel created at row-major index i.
func PanelID(i int) string { return fmt.Sprintf("panel-%d", i) }

// NewInitialGrid builds the canonical first-launch grid: row-major ids, all panels normal, (0,0) is the base.
func NewInitialGrid() domain.PanelGrid {
	g := domain.PanelGrid{
		Panels:   make([]domain.PanelLayout, 0, MaxPanels),
		Settings: make(map[string]domain.PanelSettings, MaxPanels),
	}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			id := PanelID(r*Cols + c)
			g.Panels = append(g.Panels, domain.PanelLayout{ID: id, Row: r, Col: c, State: domain.StateNormal})
			g.Settings[id] = domain.PanelSettings{
				ID:              id,
				IsBase:          r == 0 && c == 0,
				Category:        domain.CategoryNone,
				Version:         "",
				BackgroundColor: DefaultBackground,
				TextColor:       DefaultText,
			}
		}
	}
	return g
}

// Clone returns a deep copy of g. Snapshots handed to renderers are always clones.
func Clone(g domain.PanelGrid) domain.PanelGrid {
	out := domain.PanelGrid{Panels: ClonePanels(g.Panels)}
	if g.Settings != nil {
		out.Settings = CloneSettings(g.Settings)
	}
	return out
}

// ClonePanels deep-copies a panel list including the optional pointer fields.
func ClonePanels(panels []domain.PanelLayout) []domain.PanelLayout {
	if panels == nil {
		return nil
	}
	out := make([]domain.PanelLayout, len(panels))
	for i, p := range panels {
		out[i] = clonePanel(p)
	}
	return out
}

// CloneSettings copies the settings map.
func CloneSettings(s map[string]domain.PanelSettings) map[string]domain.PanelSettings {
	out := make(map[string]domain.PanelSettings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func clonePanel(p domain.PanelLayout) domain.PanelLayout {
	if p.OriginalState != nil {
		p.OriginalState = domain.StatePtr(*p.OriginalState)
	}
	if p.MergeRange != nil {
		r := *p.MergeRange
		p.MergeRange = &r
	}
	return p
}

func indexOf(panels []domain.PanelLayout, id string) int {
	if id == "" {
		return -1
	}
	for i := range panels {
		if panels[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the panel with the given id.
func Find(panels []domain.PanelLayout, id string) (domain.PanelLayout, bool) {
	i := indexOf(panels, id)
	if i < 0 {
		return domain.PanelLayout{}, false
	}
	return clonePanel(panels[i]), true
}

// At returns the panel currently occupying (row, col).
func At(panels []domain.PanelLayout, row, col int) (domain.PanelLayout, bool) {
	for _, p := range panels {
		if p.Row == row && p.Col == col {
			return clonePanel(p), true
		}
	}
	return domain.PanelLayout{}, false
}
