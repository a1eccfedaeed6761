/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"gracenote/internal/workspace"
)

// LayoutSVG writes the layout as an SVG document in point units.
func LayoutSVG(s workspace.Snapshot, outPath string, opt Options) error {
	b := RenderSVG(s, opt)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// RenderSVG returns the SVG markup. Each frame is a group with a clip path so long text stays inside it.
func RenderSVG(s workspace.Snapshot, opt Options) []byte {
	opt = opt.withDefaults()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0fpt" height="%.0fpt" viewBox="0 0 %.2f %.2f">`+"\n",
		opt.Width, opt.Height, opt.Width, opt.Height)
	buf.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>` + "\n")
	fmt.Fprintf(&buf, `<text x="%.2f" y="%.2f" font-family="Helvetica" font-size="14" font-weight="bold">`, opt.Margin, opt.Margin+14)
	escape(&buf, title(s, opt))
	buf.WriteString("</text>\n")

	size := float64(s.TextSize) * 0.75
	if size <= 0 {
		size = 12
	}
	for i, f := range Frames(s, opt) {
		fmt.Fprintf(&buf, `<clipPath id="c%d"><rect x="%.2f" y="%.2f" width="%.2f" height="%.2f"/></clipPath>`+"\n",
			i, f.X, f.Y, f.W, f.H)
		fmt.Fprintf(&buf, `<g id="%s" clip-path="url(#c%d)">`+"\n", f.Cell.Panel.ID, i)
		fmt.Fprintf(&buf, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="#000000" stroke-width="0.5"/>`+"\n",
			f.X, f.Y, f.W, f.H, hex(f.Background))
		fmt.Fprintf(&buf, `<text x="%.2f" y="%.2f" font-family="Helvetica" font-size="9" font-weight="bold" fill="%s">`,
			f.X+4, f.Y+13, hex(f.Text))
		escape(&buf, f.Label)
		buf.WriteString("</text>\n")
		y := f.Y + 13
		for _, line := range f.Lines {
			y += size * 1.25
			if y > f.Y+f.H {
				break
			}
			fmt.Fprintf(&buf, `<text x="%.2f" y="%.2f" font-family="Helvetica" font-size="%.1f" fill="%s">`,
				f.X+4, y, size, hex(f.Text))
			escape(&buf, line)
			buf.WriteString("</text>\n")
		}
		buf.WriteString("</g>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func escape(buf *bytes.Buffer, s string) { _ = xml.EscapeText(buf, []byte(s)) }
