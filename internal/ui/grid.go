/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts the desktop front end. The Fyne implementation is compiled with -tags fyne; headless builds
// get a stub Run and still carry the grid geometry used for hit testing.
package ui

import (
	"context"
	"math"

	"gracenote/internal/corpus"
	"gracenote/internal/crash"
	"gracenote/internal/layout"
	"gracenote/internal/workspace"
)

// Options wire the UI to the rest of the application.
type Options struct {
	Workspace *workspace.Workspace
	Corpus    corpus.Repository // optional; panels stay empty without it
	StorePath string            // watched for changes made by other windows when Watch is set
	Watch     bool
	// Versions lists the versions offered for a panel category.
	Versions  func(category string) []string
	Crash     *crash.Target
}

// cellRect is a panel's rectangle inside the grid area.
type cellRect struct {
	Cell       workspace.Cell
	X, Y, W, H float32
}

// cellRects lays out the visible panels in a w by h area with gap between them.
func cellRects(s workspace.Snapshot, w, h, gap float32) []cellRect {
	cols, rows := s.VisibleColumnCount(), s.VisibleRowCount()
	if cols == 0 || rows == 0 || w <= 0 || h <= 0 {
		return nil
	}
	widths := s.ColumnSizes
	if len(widths) != cols {
		widths = layout.EqualWidths(cols)
	}
	colX := make([]float32, cols+1)
	for i, pct := range widths {
		colX[i+1] = colX[i] + w*float32(pct)/100
	}
	rowH := h / float32(rows)

	var out []cellRect
	for _, c := range s.Cells() {
		p := c.Placement
		c0, c1 := min(p.ColStart-1, cols), min(p.ColEnd-1, cols)
		r0, r1 := min(p.RowStart-1, rows), min(p.RowEnd-1, rows)
		if c1 <= c0 || r1 <= r0 {
			continue
		}
		out = append(out, cellRect{
			Cell: c,
			X:    colX[c0] + gap/2,
			Y:    float32(r0)*rowH + gap/2,
			W:    colX[c1] - colX[c0] - gap,
			H:    float32(r1-r0)*rowH - gap,
		})
	}
	return out
}

// hit returns the panel under (x, y) or "".
func hit(rects []cellRect, x, y float32) string {
	for _, r := range rects {
		if x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H {
			return r.Cell.Panel.ID
		}
	}
	return ""
}

// columnBoundary reports the visible track index whose right edge lies within tol of x, or -1.
func columnBoundary(s workspace.Snapshot, w, x, tol float32) int {
	cols := s.VisibleColumnCount()
	widths := s.ColumnSizes
	if len(widths) != cols {
		widths = layout.EqualWidths(cols)
	}
	var edge float32
	for i := 0; i < cols-1; i++ {
		edge += w * float32(widths[i]) / 100
		if float32(math.Abs(float64(x-edge))) <= tol {
			return i
		}
	}
	return -1
}

// resizeColumns moves the boundary after visible track i by dx pixels of a w wide grid. Both neighbours keep at
// least minPct percent.
func resizeColumns(sizes []float64, i int, dx, w float32, minPct float64) []float64 {
	if i < 0 || i+1 >= len(sizes) || w <= 0 {
		return sizes
	}
	out := append([]float64(nil), sizes...)
	d := float64(dx / w * 100)
	pair := out[i] + out[i+1]
	left := min(max(out[i]+d, minPct), pair-minPct)
	out[i], out[i+1] = left, pair-left
	return out
}

// chapterLines renders the verses shown in a panel for the reading position.
func chapterLines(ctx context.Context, repo corpus.Repository, s workspace.Snapshot, id string) ([]string, error) {
	st, ok := s.Grid.Settings[id]
	if !ok {
		return nil, nil
	}
	vs, err := corpus.Chapter(ctx, repo, st.Category, st.Version, s.Position.Book, s.Position.Chapter)
	return corpus.Lines(vs), err
}
