/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gracenote/internal/workspace"
)

// LayoutPNG rasterizes the layout at dpi (96 when zero) and writes it to outPath.
func LayoutPNG(s workspace.Snapshot, outPath string, dpi int, opt Options) error {
	img := RenderImage(s, dpi, opt)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// RenderImage draws the layout into a new RGBA image. Text uses the 7x13 basic font.
func RenderImage(s workspace.Snapshot, dpi int, opt Options) *image.RGBA {
	opt = opt.withDefaults()
	if dpi <= 0 {
		dpi = 96
	}
	scale := float64(dpi) / 72.0
	px := func(v float64) int { return int(math.Round(v * scale)) }

	img := image.NewRGBA(image.Rect(0, 0, px(opt.Width), px(opt.Height)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	drawText(img, px(opt.Margin), px(opt.Margin)+13, title(s, opt), color.RGBA{0, 0, 0, 255}, img.Bounds())

	for _, f := range Frames(s, opt) {
		x0, y0 := px(f.X), px(f.Y)
		x1, y1 := px(f.X+f.W)-1, px(f.Y+f.H)-1
		fillRect(img, x0, y0, x1, y1, f.Background)
		strokeRect(img, x0, y0, x1, y1, color.RGBA{0, 0, 0, 255})

		clip := image.Rect(x0+1, y0+1, x1, y1)
		y := y0 + 4 + 13
		drawText(img, x0+4, y, f.Label, f.Text, clip)
		for _, line := range f.Lines {
			y += 15
			if y > y1 {
				break
			}
			drawText(img, x0+4, y, line, f.Text, clip)
		}
	}
	return img
}

// drawText draws one baseline-anchored line clipped to clip.
func drawText(img *image.RGBA, x, y int, s string, c color.RGBA, clip image.Rectangle) {
	d := &font.Drawer{
		Dst:  img.SubImage(clip).(*image.RGBA),
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
