/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
	"gracenote/internal/workspace"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	focusColor  = lipgloss.Color("205")
	dragColor   = lipgloss.Color("208")
)

type border struct{ h, v, tl, tr, bl, br rune }

var (
	thin  = border{'─', '│', '┌', '┐', '└', '┘'}
	thick = border{'━', '┃', '┏', '┓', '┗', '┛'}
	dbl   = border{'═', '║', '╔', '╗', '╚', '╝'}
)

// canvas is a grid of runes where each cell remembers the style it was drawn with.
type canvas struct {
	w, h   int
	runes  [][]rune
	styles [][]int
	table  []lipgloss.Style
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, table: []lipgloss.Style{lipgloss.NewStyle()}}
	c.runes = make([][]rune, h)
	c.styles = make([][]int, h)
	for y := range c.runes {
		c.runes[y] = []rune(strings.Repeat(" ", w))
		c.styles[y] = make([]int, w)
	}
	return c
}

func (c *canvas) style(s lipgloss.Style) int {
	c.table = append(c.table, s)
	return len(c.table) - 1
}

func (c *canvas) set(x, y int, r rune, st int) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.runes[y][x] = r
		c.styles[y][x] = st
	}
}

func (c *canvas) text(x, y, maxW int, s string, st int) {
	i := 0
	for _, r := range s {
		if i >= maxW {
			return
		}
		c.set(x+i, y, r, st)
		i++
	}
}

// box draws a border and fills the inside with fill.
func (c *canvas) box(x0, y0, x1, y1 int, b border, edge, fill int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.set(x, y, ' ', fill)
		}
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, b.h, edge)
		c.set(x, y1, b.h, edge)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, b.v, edge)
		c.set(x1, y, b.v, edge)
	}
	c.set(x0, y0, b.tl, edge)
	c.set(x1, y0, b.tr, edge)
	c.set(x0, y1, b.bl, edge)
	c.set(x1, y1, b.br, edge)
}

func (c *canvas) String() string {
	var out strings.Builder
	for y := 0; y < c.h; y++ {
		start := 0
		for x := 1; x <= c.w; x++ {
			if x == c.w || c.styles[y][x] != c.styles[y][start] {
				out.WriteString(c.table[c.styles[y][start]].Render(string(c.runes[y][start:x])))
				start = x
			}
		}
		if y < c.h-1 {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func (m Model) View() string {
	var b strings.Builder
	pos := m.snap.Position
	b.WriteString(titleStyle.Render(fmt.Sprintf("Grace Note  book %d  chapter %d  verse %d", pos.Book, pos.Chapter, pos.Verse)))
	b.WriteByte('\n')
	b.WriteString(m.grid(m.width, max(m.height-4, 6)))
	b.WriteByte('\n')
	status := m.status
	if m.snap.DragSource != "" {
		target := m.snap.DragTarget
		if target == "" {
			target = "-"
		}
		status = fmt.Sprintf("dragging %s over %s  %s", m.snap.DragSource, target, status)
	}
	if len(m.snap.HiddenCols)+len(m.snap.HiddenRows) > 0 {
		status += fmt.Sprintf("  hidden cols %v rows %v", oneBased(m.snap.HiddenCols), oneBased(m.snap.HiddenRows))
	}
	b.WriteString(statusStyle.Render(strings.TrimSpace(status)))
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func oneBased(xs []int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = x + 1
	}
	return out
}

// grid draws the visible panels into a w by h canvas using the stored column widths.
func (m Model) grid(w, h int) string {
	cols, rows := m.snap.VisibleColumnCount(), m.snap.VisibleRowCount()
	if cols == 0 || rows == 0 || w < cols*4 || h < rows*3 {
		return statusStyle.Render("(no visible panels)")
	}
	widths := m.snap.ColumnSizes
	if len(widths) != cols {
		widths = layout.EqualWidths(cols)
	}
	colX := make([]int, cols+1)
	acc := 0.0
	for i, pct := range widths {
		acc += pct
		colX[i+1] = int(math.Round(acc * float64(w) / 100))
	}
	colX[cols] = w
	rowY := make([]int, rows+1)
	for i := range rowY {
		rowY[i] = i * h / rows
	}

	c := newCanvas(w, h)
	focused := m.focused()
	for _, cell := range m.snap.Cells() {
		p := cell.Placement
		c0, c1 := min(p.ColStart-1, cols), min(p.ColEnd-1, cols)
		r0, r1 := min(p.RowStart-1, rows), min(p.RowEnd-1, rows)
		if c1 <= c0 || r1 <= r0 {
			continue
		}
		x0, x1 := colX[c0], colX[c1]-1
		y0, y1 := rowY[r0], rowY[r1]-1

		body := lipgloss.NewStyle().
			Background(lipgloss.Color(cell.Settings.BackgroundColor)).
			Foreground(lipgloss.Color(cell.Settings.TextColor))
		edge := body
		b := thin
		switch id := cell.Panel.ID; {
		case id == m.snap.DragTarget:
			b, edge = dbl, body.Foreground(dragColor)
		case id == m.snap.DragSource:
			b, edge = thick, body.Foreground(dragColor)
		case id == focused:
			b, edge = thick, body.Foreground(focusColor)
		}
		fill := c.style(body)
		c.box(x0, y0, x1, y1, b, c.style(edge), fill)
		c.text(x0+1, y0+1, x1-x0-1, label(cell), fill)
	}
	return c.String()
}

func label(cell workspace.Cell) string {
	s := cell.Panel.ID
	if cat := cell.Settings.Category; cat != "" && cat != domain.CategoryNone {
		s = strings.TrimSpace(string(cat) + " " + cell.Settings.Version)
	}
	if cell.Settings.IsBase {
		s = "* " + s
	}
	if cell.Panel.State == domain.StateMaster {
		s += " (merged)"
	}
	return s
}
