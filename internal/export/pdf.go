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
	"image/color"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"gracenote/internal/workspace"
)

// LayoutPDF writes a one-page PDF of the layout to outPath. Built-in Helvetica keeps text vector without
// embedding fonts; text is translated to cp1252.
func LayoutPDF(s workspace.Snapshot, outPath string, opt Options) error {
	opt = opt.withDefaults()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: opt.Width, Ht: opt.Height},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(title(s, opt)), false)
	pdf.SetAuthor("Grace Note", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(opt.Margin, opt.Margin+14, tr(title(s, opt)))

	size := float64(s.TextSize) * 0.75
	if size <= 0 {
		size = 12
	}
	for _, f := range Frames(s, opt) {
		setFillColor(pdf, f.Background)
		setDrawColor(pdf, color.RGBA{0, 0, 0, 255})
		pdf.SetLineWidth(0.5)
		pdf.Rect(f.X, f.Y, f.W, f.H, "FD")

		pdf.ClipRect(f.X, f.Y, f.W, f.H, false)
		pdf.SetTextColor(int(f.Text.R), int(f.Text.G), int(f.Text.B))
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetXY(f.X+4, f.Y+4)
		pdf.CellFormat(f.W-8, 11, tr(f.Label), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", size)
		for _, line := range f.Lines {
			if pdf.GetY() > f.Y+f.H {
				break
			}
			pdf.SetX(f.X + 4)
			pdf.MultiCell(f.W-8, size*1.25, tr(line), "", "L", false)
		}
		pdf.ClipEnd()
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
