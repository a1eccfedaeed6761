//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"gracenote/internal/corpus"
	"gracenote/internal/crash"
	"gracenote/internal/domain"
	"gracenote/internal/dragswap"
	"gracenote/internal/export"
	applog "gracenote/internal/log"
	"gracenote/internal/storage"
	"gracenote/internal/telemetry"
	"gracenote/internal/workspace"
)

const (
	gridGap         = 4
	resizeTolerance = 6
	minColumnPct    = 5
)

// Run starts the desktop UI over an open workspace and blocks until the window closes.
func Run(ctx context.Context, opts Options) error {
	if opts.Workspace == nil {
		return errors.New("ui: no workspace")
	}
	ws := opts.Workspace
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	defer crash.Recover(opts.Crash)

	fyneApp := app.NewWithID("gracenote")
	w := fyneApp.NewWindow("Grace Note")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	grid := NewGridCanvas()

	report := func(op string, changed bool, err error) {
		switch {
		case err != nil:
			l.Warn("layout operation refused", slog.String("op", op), slog.Any("err", err))
			status.SetText(fmt.Sprintf("%s: %v", op, err))
		case !changed:
			status.SetText(op + ": nothing to do")
		default:
			telemetry.Default().Layout(op, ws.Snapshot().Stats())
			status.SetText(op)
		}
	}
	onSelected := func(id string) (string, bool) {
		if id == "" {
			status.SetText("Select a panel first")
			return "", false
		}
		return id, true
	}

	grid.OnDragStart = func(id string) {
		if err := ws.DragStart(id); err != nil {
			status.SetText(err.Error())
		}
	}
	grid.OnDragHover = ws.DragHover
	grid.OnDragEnd = func() {
		out, err := ws.DragEnd(ctx)
		report("swap", out == dragswap.Committed, err)
	}
	grid.OnResize = func(sizes []float64) {
		changed, err := ws.SetWidths(ctx, sizes)
		report("widths", changed, err)
	}

	// Content selection for the selected panel.
	versionSel := widget.NewSelect(nil, nil)
	categorySel := widget.NewSelect(categoryNames(), func(cat string) {
		versionSel.Options = versionsFor(opts, cat)
		versionSel.ClearSelected()
		versionSel.Refresh()
	})
	applyContent := widget.NewButton("Apply", func() {
		id, ok := onSelected(grid.Selected())
		if !ok {
			return
		}
		changed, err := ws.SetContent(ctx, id, domain.PanelCategory(categorySel.Selected), versionSel.Selected)
		report("content", changed, err)
	})
	bgEntry := widget.NewEntry()
	bgEntry.SetPlaceHolder("#rrggbb")
	fgEntry := widget.NewEntry()
	fgEntry.SetPlaceHolder("#rrggbb")
	applyColors := widget.NewButton("Colors", func() {
		id, ok := onSelected(grid.Selected())
		if !ok {
			return
		}
		changed, err := ws.SetColors(ctx, id, strings.TrimSpace(bgEntry.Text), strings.TrimSpace(fgEntry.Text))
		report("colors", changed, err)
	})
	grid.OnSelect = func(id string) {
		st := ws.Snapshot().Grid.Settings[id]
		categorySel.SetSelected(string(st.Category))
		versionSel.SetSelected(st.Version)
		bgEntry.SetText(st.BackgroundColor)
		fgEntry.SetText(st.TextColor)
		status.SetText("Selected " + id)
	}

	selectedOp := func(op string, fn func(context.Context, string) (bool, error)) *widget.Button {
		return widget.NewButton(op, func() {
			id, ok := onSelected(grid.Selected())
			if !ok {
				return
			}
			changed, err := fn(ctx, id)
			report(op, changed, err)
		})
	}
	trackOp := func(op string, track func(domain.PanelLayout) int, fn func(context.Context, int) (bool, error)) *widget.Button {
		return widget.NewButton(op, func() {
			id, ok := onSelected(grid.Selected())
			if !ok {
				return
			}
			p, found := findPanel(ws.Snapshot(), id)
			if !found {
				return
			}
			changed, err := fn(ctx, track(p))
			report(op, changed, err)
		})
	}
	plainOp := func(op string, fn func(context.Context) (bool, error)) *widget.Button {
		return widget.NewButton(op, func() {
			changed, err := fn(ctx)
			report(op, changed, err)
		})
	}
	showAll := widget.NewButton("Show all", func() {
		s := ws.Snapshot()
		changed := false
		for _, c := range s.HiddenCols {
			ok, err := ws.ToggleColumn(ctx, c)
			if err != nil {
				report("show all", false, err)
				return
			}
			changed = changed || ok
		}
		for _, r := range s.HiddenRows {
			ok, err := ws.ToggleRow(ctx, r)
			if err != nil {
				report("show all", false, err)
				return
			}
			changed = changed || ok
		}
		report("show all", changed, nil)
	})
	textSmaller := widget.NewButton("A-", func() { ws.SetTextSize(ctx, ws.Snapshot().TextSize-2) })
	textLarger := widget.NewButton("A+", func() { ws.SetTextSize(ctx, ws.Snapshot().TextSize+2) })

	toolbar := container.NewHBox(
		selectedOp("merge", ws.MergeColumn),
		selectedOp("unmerge", ws.Unmerge),
		selectedOp("base", ws.ToggleBase),
		trackOp("hide column", func(p domain.PanelLayout) int { return p.Col }, ws.ToggleColumn),
		trackOp("hide row", func(p domain.PanelLayout) int { return p.Row }, ws.ToggleRow),
		showAll,
		plainOp("equal widths", ws.ResetWidths),
		plainOp("undo", ws.Undo),
		plainOp("redo", ws.Redo),
		plainOp("defaults", ws.Defaults),
		textSmaller, textLarger,
	)

	// Reading position.
	bookEntry, chapterEntry, verseEntry := widget.NewEntry(), widget.NewEntry(), widget.NewEntry()
	bookEntry.SetPlaceHolder("book")
	chapterEntry.SetPlaceHolder("chapter")
	verseEntry.SetPlaceHolder("verse")
	goTo := func() {
		b, _ := strconv.Atoi(strings.TrimSpace(bookEntry.Text))
		c, _ := strconv.Atoi(strings.TrimSpace(chapterEntry.Text))
		v, _ := strconv.Atoi(strings.TrimSpace(verseEntry.Text))
		if ws.SetPosition(ctx, b, c, v) {
			status.SetText("Position changed")
		}
	}
	verseEntry.OnSubmitted = func(string) { goTo() }
	positionBar := container.NewHBox(widget.NewLabel("Position"),
		container.NewGridWrap(fyne.NewSize(72, 36), bookEntry),
		container.NewGridWrap(fyne.NewSize(72, 36), chapterEntry),
		container.NewGridWrap(fyne.NewSize(72, 36), verseEntry),
		widget.NewButton("Go", goTo))

	contentBar := container.NewHBox(widget.NewLabel("Panel"), categorySel, versionSel, applyContent,
		container.NewGridWrap(fyne.NewSize(96, 36), bgEntry),
		container.NewGridWrap(fyne.NewSize(96, 36), fgEntry), applyColors)

	// Keyword search over the base panel's version.
	var hits []domain.Verse
	searchList := widget.NewList(
		func() int { return len(hits) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			h := hits[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%d:%d:%d %s", h.Book, h.Chapter, h.Verse, h.Text))
		})
	searchList.OnSelected = func(i widget.ListItemID) {
		if i < len(hits) {
			h := hits[i]
			ws.SetPosition(ctx, h.Book, h.Chapter, h.Verse)
		}
	}
	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Search the base version…")
	searchEntry.OnSubmitted = func(text string) {
		s := ws.Snapshot()
		version := s.Grid.Settings[s.BaseID].Version
		if opts.Corpus == nil || version == "" || strings.TrimSpace(text) == "" {
			status.SetText("Search needs a base panel with a version")
			return
		}
		status.SetText("Searching…")
		go func() {
			sctx, cancel := context.WithTimeout(ctx, 20*time.Second)
			defer cancel()
			res, err := opts.Corpus.FindKeywordFromBible(sctx, corpus.KeywordQuery{
				Version:  version,
				Keywords: strings.Fields(text),
				Match:    domain.MatchAll,
				Page:     1,
			})
			fyne.Do(func() {
				if err != nil {
					l.Error("search failed", slog.Any("err", err))
					status.SetText("Search failed.")
					return
				}
				hits = res.Data
				searchList.UnselectAll()
				searchList.Refresh()
				status.SetText(fmt.Sprintf("%d hits", res.TotalCount))
			})
		}()
	}
	searchPane := container.NewBorder(searchEntry, nil, nil, nil, searchList)

	// Panel text follows the reading position and panel contents.
	var textKey string
	loadText := func(s workspace.Snapshot) {
		key := contentKey(s)
		if opts.Corpus == nil || key == textKey {
			return
		}
		textKey = key
		go func() {
			tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			lines := make(map[string][]string)
			for _, c := range s.Cells() {
				ls, err := chapterLines(tctx, opts.Corpus, s, c.Panel.ID)
				if err != nil {
					if !errors.Is(err, corpus.ErrNotFound) {
						l.Warn("panel text failed", slog.String("panel", c.Panel.ID), slog.Any("err", err))
					}
					continue
				}
				lines[c.Panel.ID] = ls
			}
			fyne.Do(func() { grid.SetLines(lines) })
		}()
	}
	render := func(s workspace.Snapshot) {
		grid.SetSnapshot(s)
		bookEntry.SetText(strconv.Itoa(s.Position.Book))
		chapterEntry.SetText(strconv.Itoa(s.Position.Chapter))
		verseEntry.SetText(strconv.Itoa(s.Position.Verse))
		loadText(s)
	}
	render(ws.Snapshot())
	cancelSub := ws.Subscribe(func(s workspace.Snapshot) { fyne.Do(func() { render(s) }) })
	defer cancelSub()

	if opts.Watch && opts.StorePath != "" {
		watcher, err := storage.Watch(opts.StorePath, 250*time.Millisecond, func() { ws.Reload(ctx) })
		if err != nil {
			l.Warn("store watch disabled", slog.Any("err", err))
		} else {
			defer watcher.Close()
		}
	}

	split := container.NewHSplit(grid, searchPane)
	split.Offset = 0.78
	top := container.NewVBox(toolbar, container.NewHBox(positionBar, widget.NewSeparator(), contentBar))
	w.SetContent(container.NewBorder(top, status, nil, nil, split))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})
	if opts.Corpus == nil {
		dialog.ShowInformation("Corpus", "No corpus is configured; panels show their labels only.", w)
	}
	w.ShowAndRun()
	return nil
}

func categoryNames() []string {
	return []string{
		string(domain.CategoryNone),
		string(domain.CategoryBible),
		string(domain.CategoryCodedBible),
		string(domain.CategoryCommentary),
		string(domain.CategoryLexicon),
	}
}

func versionsFor(opts Options, category string) []string {
	if opts.Versions == nil {
		return nil
	}
	return opts.Versions(category)
}

func findPanel(s workspace.Snapshot, id string) (domain.PanelLayout, bool) {
	for _, p := range s.Grid.Panels {
		if p.ID == id {
			return p, true
		}
	}
	return domain.PanelLayout{}, false
}

// contentKey changes whenever the text shown in the panels would.
func contentKey(s workspace.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", s.Position.Book, s.Position.Chapter)
	for _, c := range s.Cells() {
		fmt.Fprintf(&b, "|%s=%s/%s", c.Panel.ID, c.Settings.Category, c.Settings.Version)
	}
	return b.String()
}

type dragMode int

const (
	dragNone dragMode = iota
	dragPanel
	dragColumn
)

// GridCanvas draws the panel grid and turns pointer gestures into workspace operations.
type GridCanvas struct {
	widget.BaseWidget

	snap     workspace.Snapshot
	lines    map[string][]string
	selected string

	mode     dragMode
	boundary int
	preview  []float64

	OnSelect    func(id string)
	OnDragStart func(id string)
	OnDragHover func(id string)
	OnDragEnd   func()
	OnResize    func(sizes []float64)
}

func NewGridCanvas() *GridCanvas {
	g := &GridCanvas{boundary: -1}
	g.ExtendBaseWidget(g)
	return g
}

// SetSnapshot replaces the rendered layout.
func (g *GridCanvas) SetSnapshot(s workspace.Snapshot) {
	g.snap = s
	if _, ok := findPanel(s, g.selected); !ok {
		g.selected = ""
	}
	g.Refresh()
}

// SetLines replaces the panel text.
func (g *GridCanvas) SetLines(lines map[string][]string) {
	g.lines = lines
	g.Refresh()
}

// Selected returns the selected panel id or "".
func (g *GridCanvas) Selected() string { return g.selected }

func (g *GridCanvas) view() workspace.Snapshot {
	s := g.snap
	if g.mode == dragColumn && g.preview != nil {
		s.ColumnSizes = g.preview
	}
	return s
}

func (g *GridCanvas) rects() []cellRect {
	sz := g.Size()
	return cellRects(g.view(), sz.Width, sz.Height, gridGap)
}

func (g *GridCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.NRGBA{R: 0x20, G: 0x22, B: 0x26, A: 0xff})
	r := &gridRenderer{g: g, bg: bg}
	r.Refresh()
	return r
}

func (g *GridCanvas) Tapped(e *fyne.PointEvent) {
	id := hit(g.rects(), e.Position.X, e.Position.Y)
	g.selected = id
	if id != "" && g.OnSelect != nil {
		g.OnSelect(id)
	}
	g.Refresh()
}

func (g *GridCanvas) Dragged(e *fyne.DragEvent) {
	pos := e.Position
	if g.mode == dragNone {
		startX, startY := pos.X-e.Dragged.DX, pos.Y-e.Dragged.DY
		if b := columnBoundary(g.snap, g.Size().Width, startX, resizeTolerance); b >= 0 {
			g.mode, g.boundary = dragColumn, b
			g.preview = append([]float64(nil), g.snap.ColumnSizes...)
		} else if id := hit(g.rects(), startX, startY); id != "" {
			g.mode = dragPanel
			if g.OnDragStart != nil {
				g.OnDragStart(id)
			}
		} else {
			return
		}
	}
	switch g.mode {
	case dragPanel:
		if g.OnDragHover != nil {
			g.OnDragHover(hit(g.rects(), pos.X, pos.Y))
		}
	case dragColumn:
		g.preview = resizeColumns(g.preview, g.boundary, e.Dragged.DX, g.Size().Width, minColumnPct)
		g.Refresh()
	}
}

func (g *GridCanvas) DragEnd() {
	mode, sizes := g.mode, g.preview
	g.mode, g.boundary, g.preview = dragNone, -1, nil
	switch mode {
	case dragPanel:
		if g.OnDragEnd != nil {
			g.OnDragEnd()
		}
	case dragColumn:
		if g.OnResize != nil && sizes != nil {
			g.OnResize(sizes)
		}
	}
	g.Refresh()
}

// gridRenderer rebuilds one frame, label and text block per visible panel.
type gridRenderer struct {
	g       *GridCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *gridRenderer) Destroy()                     {}
func (r *gridRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *gridRenderer) MinSize() fyne.Size           { return fyne.NewSize(480, 320) }
func (r *gridRenderer) Refresh()                     { r.Layout(r.g.Size()); canvas.Refresh(r.g) }

var (
	panelFill   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	panelText   = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	strokeIdle  = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	strokeFocus = color.NRGBA{R: 0x33, G: 0x99, B: 0xff, A: 0xff}
	strokeDrag  = color.NRGBA{R: 0xff, G: 0x99, B: 0x00, A: 0xff}
	strokeDrop  = color.NRGBA{R: 0x33, G: 0xcc, B: 0x66, A: 0xff}
)

func (r *gridRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}

	s := r.g.view()
	textSize := float32(s.TextSize)
	if textSize <= 0 {
		textSize = workspace.DefaultTextSize
	}
	for _, cr := range cellRects(s, size.Width, size.Height, gridGap) {
		id := cr.Cell.Panel.ID
		fill := rgba(export.ParseColor(cr.Cell.Settings.BackgroundColor, panelFill))
		ink := rgba(export.ParseColor(cr.Cell.Settings.TextColor, panelText))

		frame := canvas.NewRectangle(fill)
		frame.StrokeWidth = 1
		frame.StrokeColor = strokeIdle
		switch id {
		case s.DragTarget:
			frame.StrokeWidth, frame.StrokeColor = 3, strokeDrop
		case s.DragSource:
			frame.StrokeWidth, frame.StrokeColor = 3, strokeDrag
		case r.g.selected:
			frame.StrokeWidth, frame.StrokeColor = 2, strokeFocus
		}
		frame.Resize(fyne.NewSize(cr.W, cr.H))
		frame.Move(fyne.NewPos(cr.X, cr.Y))
		objs = append(objs, frame)

		label := canvas.NewText(export.Label(cr.Cell), ink)
		label.TextStyle = fyne.TextStyle{Bold: true}
		label.TextSize = textSize * 0.8
		label.Move(fyne.NewPos(cr.X+6, cr.Y+4))
		objs = append(objs, label)

		lineH := textSize * 1.3
		y := cr.Y + 8 + lineH
		for _, line := range r.g.lines[id] {
			if y+lineH > cr.Y+cr.H {
				break
			}
			t := canvas.NewText(line, ink)
			t.TextSize = textSize
			t.Move(fyne.NewPos(cr.X+6, y))
			objs = append(objs, t)
			y += lineH
		}
	}
	r.objects = objs
}

func rgba(c color.RGBA) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }
