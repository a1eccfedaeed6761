/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a workspace layout to PDF, PNG or SVG: one rectangle per visible panel, placed on the
// compacted grid with the stored column widths, filled with the panel colors and labelled with its content.
package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
	"gracenote/internal/workspace"
)

// Page size in points; A4 landscape by default.
const (
	DefaultWidth  = 842.0
	DefaultHeight = 595.0
	DefaultMargin = 24.0
	headerHeight  = 28.0
)

// Options shared by every renderer.
type Options struct {
	Width, Height float64 // page size in points
	Margin        float64
	Title         string
	// Content holds body lines per panel id, e.g. the verses of the current chapter.
	Content map[string][]string
	// Gutter is the gap between frames in points.
	Gutter float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	if o.Gutter <= 0 {
		o.Gutter = 4
	}
	return o
}

// Frame is one panel's rectangle on the page, in points from the top-left corner.
type Frame struct {
	Cell       workspace.Cell
	X, Y, W, H float64
	Background color.RGBA
	Text       color.RGBA
	Label      string
	Lines      []string
}

// Frames lays out the snapshot's visible panels inside the page body.
func Frames(s workspace.Snapshot, opt Options) []Frame {
	opt = opt.withDefaults()
	bodyX, bodyY := opt.Margin, opt.Margin+headerHeight
	bodyW, bodyH := opt.Width-2*opt.Margin, opt.Height-2*opt.Margin-headerHeight

	cols := s.VisibleColumnCount()
	rows := s.VisibleRowCount()
	if cols == 0 || rows == 0 {
		return nil
	}
	widths := s.ColumnSizes
	if len(widths) != cols {
		widths = layout.EqualWidths(cols)
	}
	// colX[i] is the left edge of visible track i; colX[cols] is the right edge.
	colX := make([]float64, cols+1)
	colX[0] = bodyX
	for i, w := range widths {
		colX[i+1] = colX[i] + bodyW*w/100
	}
	rowH := bodyH / float64(rows)

	var out []Frame
	for _, c := range s.Cells() {
		p := c.Placement
		c0, c1 := clamp(p.ColStart-1, 0, cols), clamp(p.ColEnd-1, 0, cols)
		r0, r1 := clamp(p.RowStart-1, 0, rows), clamp(p.RowEnd-1, 0, rows)
		if c1 <= c0 || r1 <= r0 {
			continue
		}
		g := opt.Gutter / 2
		f := Frame{
			Cell:       c,
			X:          colX[c0] + g,
			Y:          bodyY + float64(r0)*rowH + g,
			W:          colX[c1] - colX[c0] - opt.Gutter,
			H:          float64(r1-r0)*rowH - opt.Gutter,
			Background: ParseColor(c.Settings.BackgroundColor, color.RGBA{255, 255, 255, 255}),
			Text:       ParseColor(c.Settings.TextColor, color.RGBA{0, 0, 0, 255}),
			Label:      Label(c),
			Lines:      opt.Content[c.Panel.ID],
		}
		out = append(out, f)
	}
	return out
}

// Label is the frame caption: category and version, with a marker on the base panel and merged blocks.
func Label(c workspace.Cell) string {
	var b strings.Builder
	if c.Settings.IsBase {
		b.WriteString("* ")
	}
	if c.Settings.Category == "" || c.Settings.Category == domain.CategoryNone {
		b.WriteString(c.Panel.ID)
	} else {
		b.WriteString(string(c.Settings.Category))
		if c.Settings.Version != "" {
			b.WriteString(" " + c.Settings.Version)
		}
	}
	if c.Panel.State == domain.StateMaster {
		fmt.Fprintf(&b, " [%dx%d]", c.Placement.RowSpan(), c.Placement.ColSpan())
	}
	return b.String()
}

// ParseColor reads #rgb, #rrggbb or #rrggbbaa; anything else yields def.
func ParseColor(s string, def color.RGBA) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]}) + "ff"
	case 6:
		s += "ff"
	case 8:
	default:
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

func hex(c color.RGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func clamp(v, lo, hi int) int { return min(max(v, lo), hi) }

// title falls back to the reading position.
func title(s workspace.Snapshot, opt Options) string {
	if opt.Title != "" {
		return opt.Title
	}
	return fmt.Sprintf("Grace Note layout: book %d, chapter %d, verse %d", s.Position.Book, s.Position.Chapter, s.Position.Verse)
}
