/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "gracenote/internal/domain"

// ColumnMergeRange builds the full-column rectangle for the panel id. It reports false when the panel is unknown or
// its column does not currently hold a panel on every row.
func ColumnMergeRange(panels []domain.PanelLayout, id string) (domain.MergeRange, bool) {
	i := indexOf(panels, id)
	if i < 0 {
		return domain.MergeRange{}, false
	}
	col := panels[i].Col
	rows := make(IntSet, Rows)
	for _, p := range panels {
		if p.Col == col {
			rows[p.Row] = struct{}{}
		}
	}
	if len(rows) < Rows {
		return domain.MergeRange{}, false
	}
	minRow, maxRow := Rows, -1
	for r := range rows {
		minRow = min(minRow, r)
		maxRow = max(maxRow, r)
	}
	return domain.MergeRange{StartRow: minRow, StartCol: col, EndRow: maxRow, EndCol: col}, true
}

// MergeColumn merges the whole column of id into id. Panels that are not normal are left alone, as are columns
// missing a row.
func MergeColumn(panels []domain.PanelLayout, id string) []domain.PanelLayout {
	if !CanMerge(panels, id) {
		return ClonePanels(panels)
	}
	rng, ok := ColumnMergeRange(panels, id)
	if !ok {
		return ClonePanels(panels)
	}
	return Merge(panels, id, rng)
}

// CanMerge reports whether the merge action is offered for id.
func CanMerge(panels []domain.PanelLayout, id string) bool {
	i := indexOf(panels, id)
	return i >= 0 && panels[i].State == domain.StateNormal
}

// CanUnmerge reports whether the unmerge action is offered for id.
func CanUnmerge(panels []domain.PanelLayout, id string) bool {
	i := indexOf(panels, id)
	return i >= 0 && panels[i].State == domain.StateMaster
}
