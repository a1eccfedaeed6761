/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workspace owns the live panel grid and everything that hangs off it: hidden rows and columns, column
// widths, the reading position, the drag gesture and the undo history. Every change is persisted through a
// storage.GridStore and announced to subscribers.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gracenote/internal/domain"
	"gracenote/internal/dragswap"
	"gracenote/internal/layout"
	glog "gracenote/internal/log"
	"gracenote/internal/storage"
	"gracenote/internal/undo"
	"gracenote/internal/visibility"
)

// HistoryScope is the undo scope holding layout snapshots.
const HistoryScope = "panelGrid"

// Text size bounds for the panel body font.
const (
	DefaultTextSize = 16
	MinTextSize     = 8
	MaxTextSize     = 48
)

var ErrDragActive = errors.New("workspace: drag in progress")

// Options configure Open. Zero values pick defaults.
type Options struct {
	Undo   *undo.Manager
	Logger *slog.Logger
	Now    func() time.Time
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu       sync.Mutex
	store    *storage.GridStore
	hist     *undo.Manager
	log      *slog.Logger
	now      func() time.Time
	grid     domain.PanelGrid
	vis      *visibility.Controller
	widths   []float64
	pos      domain.Position
	textSize int
	drag     dragswap.Machine

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// layoutState is the undoable part of the workspace.
type layoutState struct {
	Grid        domain.PanelGrid `json:"panelGrid"`
	HiddenRows  []int            `json:"hiddenRows"`
	HiddenCols  []int            `json:"hiddenCols"`
	ColumnSizes []float64        `json:"columnSizes"`
}

// Open loads the workspace from store. A nil store keeps everything in memory. Stored values that cannot be
// read fall back to defaults with a warning; only context cancellation is returned as an error.
func Open(ctx context.Context, store *storage.GridStore, opts Options) (*Workspace, error) {
	if opts.Undo == nil {
		opts.Undo = undo.NewManager(undo.Config{MaxPerScope: 100})
	}
	if opts.Logger == nil {
		opts.Logger = glog.WithComponent("workspace")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Workspace{
		store: store,
		hist:  opts.Undo,
		log:   opts.Logger,
		now:   opts.Now,
		subs:  map[int]func(Snapshot){},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.load(ctx)
	return w, nil
}

// load replaces the in-memory state with the stored one. Caller holds mu or has exclusive access.
func (w *Workspace) load(ctx context.Context) {
	w.grid = layout.NewInitialGrid()
	w.vis = visibility.New(nil, nil)
	w.widths = nil
	w.pos = domain.Position{Book: 1, Chapter: 1, Verse: 1}
	w.textSize = DefaultTextSize
	if w.store == nil {
		w.widths = layout.EqualWidths(len(layout.VisibleColumns(w.grid.Panels)))
		return
	}
	warn := func(key string, err error) {
		w.log.Warn("stored value ignored", slog.String("key", key), slog.Any("err", err))
	}

	if g, ok, err := w.store.LoadGrid(ctx); err != nil {
		warn(storage.KeyPanelGrid, err)
	} else if ok {
		w.grid = g
	}
	rows, _, err := w.store.LoadInts(ctx, storage.KeyHiddenRows)
	if err != nil {
		warn(storage.KeyHiddenRows, err)
	}
	cols, _, err := w.store.LoadInts(ctx, storage.KeyHiddenCols)
	if err != nil {
		warn(storage.KeyHiddenCols, err)
	}
	w.vis = visibility.New(rows, cols)
	w.grid.Panels = w.vis.Apply(w.grid.Panels)

	if sizes, ok, err := w.store.LoadFloats(ctx, storage.KeyColumnSizes); err != nil {
		warn(storage.KeyColumnSizes, err)
	} else if ok {
		w.widths = sizes
	}
	w.normalizeWidths()

	for key, dst := range map[string]*int{
		storage.KeyBook:    &w.pos.Book,
		storage.KeyChapter: &w.pos.Chapter,
		storage.KeyVerse:   &w.pos.Verse,
	} {
		if v, ok, err := w.store.LoadInt(ctx, key); err != nil {
			warn(key, err)
		} else if ok && v > 0 {
			*dst = v
		}
	}
	if v, ok, err := w.store.LoadInt(ctx, storage.KeyPanelTextSize); err != nil {
		warn(storage.KeyPanelTextSize, err)
	} else if ok {
		w.textSize = clampTextSize(v)
	}

	var h undo.History
	if ok, err := w.store.LoadJSON(ctx, storage.KeyHistory, &h); err != nil {
		warn(storage.KeyHistory, err)
	} else if ok {
		w.hist.Import(HistoryScope, h)
	}
}

// normalizeWidths resets the widths when they no longer match the visible columns.
func (w *Workspace) normalizeWidths() {
	n := len(layout.VisibleColumns(w.grid.Panels))
	if len(w.widths) != n {
		w.widths = layout.EqualWidths(n)
	}
}

func clampTextSize(v int) int { return min(max(v, MinTextSize), MaxTextSize) }

func (w *Workspace) captureLocked() []byte {
	b, _ := json.Marshal(layoutState{
		Grid:        w.grid,
		HiddenRows:  w.vis.HiddenRows(),
		HiddenCols:  w.vis.HiddenCols(),
		ColumnSizes: w.widths,
	})
	return b
}

func (w *Workspace) restoreLocked(blob []byte) error {
	var st layoutState
	if err := json.Unmarshal(blob, &st); err != nil {
		return err
	}
	if err := layout.Validate(st.Grid); err != nil {
		return err
	}
	w.grid = st.Grid
	w.vis = visibility.New(st.HiddenRows, st.HiddenCols)
	w.widths = st.ColumnSizes
	w.normalizeWidths()
	return nil
}

// Persistence is best effort: the in-memory workspace stays authoritative.
func (w *Workspace) saveWarn(key string, err error) {
	if err != nil {
		glog.WithComponent("storage").Warn("save failed", slog.String("key", key), slog.Any("err", err))
	}
}

func (w *Workspace) saveLayoutLocked(ctx context.Context) {
	if w.store == nil {
		return
	}
	hidden := func(v []int) []int {
		if v == nil {
			return []int{}
		}
		return v
	}
	w.saveWarn("layout", w.store.SaveAll(ctx, map[string]any{
		storage.KeyPanelGrid:   w.grid,
		storage.KeyHiddenRows:  hidden(w.vis.HiddenRows()),
		storage.KeyHiddenCols:  hidden(w.vis.HiddenCols()),
		storage.KeyColumnSizes: append([]float64{}, w.widths...),
		storage.KeyHistory:     w.hist.Export(HistoryScope),
	}))
}

// Subscribe registers fn for change notifications. fn runs on the mutating goroutine after the lock is released.
func (w *Workspace) Subscribe(fn func(Snapshot)) (cancel func()) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		delete(w.subs, id)
	}
}

func (w *Workspace) notify(s Snapshot) {
	w.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.subMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Snapshot returns a deep copy of the current state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	base, _ := layout.BaseID(w.grid.Settings)
	var over string
	if t := w.drag.Target(); w.drag.IsOver(t) {
		over = t
	}
	return Snapshot{
		Grid:        layout.Clone(w.grid),
		HiddenRows:  w.vis.HiddenRows(),
		HiddenCols:  w.vis.HiddenCols(),
		ColumnSizes: append([]float64(nil), w.widths...),
		Position:    w.pos,
		TextSize:    w.textSize,
		BaseID:      base,
		DragSource:  w.drag.Source(),
		DragTarget:  over,
		CanUndo:     w.hist.CanUndo(HistoryScope),
		CanRedo:     w.hist.CanRedo(HistoryScope),
	}
}

// Reload re-reads the store after another window or process changed it. An active drag is cancelled.
func (w *Workspace) Reload(ctx context.Context) {
	w.mu.Lock()
	w.drag.Cancel()
	if w.store != nil {
		if err := w.store.Refresh(); err != nil {
			w.log.Warn("refresh store", slog.Any("err", err))
		}
	}
	w.load(ctx)
	s := w.snapshotLocked()
	w.mu.Unlock()
	w.log.Debug("reloaded")
	w.notify(s)
}
