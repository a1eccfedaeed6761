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
	"context"
	"encoding/xml"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gracenote/internal/domain"
	"gracenote/internal/workspace"
)

func sampleSnapshot(t *testing.T) workspace.Snapshot {
	t.Helper()
	ctx := context.Background()
	w, err := workspace.Open(ctx, nil, workspace.Options{})
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	if _, err := w.MergeColumn(ctx, "panel-2"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := w.ToggleColumn(ctx, 5); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if _, err := w.SetContent(ctx, "panel-0", domain.CategoryBible, "kjv"); err != nil {
		t.Fatalf("content: %v", err)
	}
	if _, err := w.SetColors(ctx, "panel-1", "#336699", "#fff"); err != nil {
		t.Fatalf("colors: %v", err)
	}
	return w.Snapshot()
}

func TestFramesFollowPlacement(t *testing.T) {
	s := sampleSnapshot(t)
	frames := Frames(s, Options{Gutter: 0.001})
	if len(frames) != 9 {
		t.Fatalf("expected 9 frames, got %d", len(frames))
	}
	byID := map[string]Frame{}
	for _, f := range frames {
		byID[f.Cell.Panel.ID] = f
	}
	master, single := byID["panel-2"], byID["panel-1"]
	if master.H < 2*single.H-0.01 {
		t.Fatalf("merged frame should span both rows: %v vs %v", master.H, single.H)
	}
	bodyW := DefaultWidth - 2*DefaultMargin
	if d := single.W - bodyW/5; d > 0.01 || d < -0.01 {
		t.Fatalf("five visible columns should share the width equally, got %v", single.W)
	}
	if single.Background != (color.RGBA{0x33, 0x66, 0x99, 0xff}) {
		t.Fatalf("background not parsed: %+v", single.Background)
	}
	if got := byID["panel-0"].Label; got != "* bible kjv" {
		t.Fatalf("label = %q", got)
	}
	if !strings.HasSuffix(master.Label, "[2x1]") {
		t.Fatalf("master label = %q", master.Label)
	}
}

func TestParseColor(t *testing.T) {
	def := color.RGBA{1, 2, 3, 4}
	cases := map[string]color.RGBA{
		"#fff":      {255, 255, 255, 255},
		"#000000":   {0, 0, 0, 255},
		"#11223344": {0x11, 0x22, 0x33, 0x44},
		"red":       def,
		"#zzz":      def,
	}
	for in, want := range cases {
		if got := ParseColor(in, def); got != want {
			t.Fatalf("ParseColor(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestLayoutPDF_CreatesFile(t *testing.T) {
	s := sampleSnapshot(t)
	out := filepath.Join(t.TempDir(), "exports", "layout.pdf")
	opt := Options{Content: map[string][]string{"panel-0": {"1 In the beginning God created the heaven and the earth."}}}
	if err := LayoutPDF(s, out, opt); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
}

func TestLayoutPNG_CreatesFile(t *testing.T) {
	s := sampleSnapshot(t)
	img := RenderImage(s, 72, Options{})
	if img.Bounds().Dx() != int(DefaultWidth) {
		t.Fatalf("unexpected width %d", img.Bounds().Dx())
	}
	f := Frames(s, Options{})[1]
	got := img.RGBAAt(int(f.X+f.W/2), int(f.Y+f.H-3))
	if got != f.Background {
		t.Fatalf("frame fill = %+v, want %+v", got, f.Background)
	}

	out := filepath.Join(t.TempDir(), "layout.png")
	if err := LayoutPNG(s, out, 0, Options{}); err != nil {
		t.Fatalf("export png: %v", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Fatalf("png missing: %v", err)
	}
}

func TestLayoutSVG_IsWellFormed(t *testing.T) {
	s := sampleSnapshot(t)
	b := RenderSVG(s, Options{Content: map[string][]string{"panel-0": {"a < b & c"}}})
	dec := xml.NewDecoder(bytes.NewReader(b))
	groups := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "g" {
			groups++
		}
	}
	if groups != 9 {
		t.Fatalf("expected 9 panel groups, got %d", groups)
	}
	out := filepath.Join(t.TempDir(), "layout.svg")
	if err := LayoutSVG(s, out, Options{}); err != nil {
		t.Fatalf("export svg: %v", err)
	}
}
