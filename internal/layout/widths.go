/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

// Column widths are percentages stored one per visible column, in visible-column order.

// EqualWidths returns n equal shares of 100. n <= 0 yields an empty slice.
func EqualWidths(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 / float64(n)
	}
	return out
}

// EqualizeWidths spreads the combined width of the selected visible columns evenly across them. sizes is indexed
// like visible. Selected columns that are not visible are ignored; when none remain, sizes is returned as a copy.
// A sizes slice that does not match visible is reset to equal widths first.
func EqualizeWidths(sizes []float64, visible, selected []int) []float64 {
	if len(sizes) != len(visible) {
		sizes = EqualWidths(len(visible))
	}
	out := append([]float64(nil), sizes...)
	sel := NewIntSet(selected...)
	var total float64
	var idx []int
	for i, c := range visible {
		if sel.Has(c) {
			total += sizes[i]
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return out
	}
	share := total / float64(len(idx))
	for _, i := range idx {
		out[i] = share
	}
	return out
}
