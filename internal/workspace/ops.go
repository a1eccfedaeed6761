/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"gracenote/internal/domain"
	"gracenote/internal/dragswap"
	"gracenote/internal/layout"
	"gracenote/internal/storage"
	"gracenote/internal/undo"
	"gracenote/internal/visibility"
)

// commit records the pre-change blob, persists and notifies. Caller holds mu and releases it before notify.
func (w *Workspace) commitLocked(ctx context.Context, op string, before []byte) Snapshot {
	w.hist.Push(undo.Snapshot{Scope: HistoryScope, Blob: before, TS: w.now()})
	w.saveLayoutLocked(ctx)
	w.log.Debug("layout changed", slog.String("op", op))
	return w.snapshotLocked()
}

// mutate runs fn against copies of the grid. fn returns the new panels and settings; the change is committed
// only when they differ from the current ones.
func (w *Workspace) mutate(ctx context.Context, op string, fn func(g domain.PanelGrid) domain.PanelGrid) (bool, error) {
	w.mu.Lock()
	if w.drag.Active() {
		w.mu.Unlock()
		return false, ErrDragActive
	}
	next := fn(layout.Clone(w.grid))
	if reflect.DeepEqual(next, w.grid) {
		w.mu.Unlock()
		return false, nil
	}
	before := w.captureLocked()
	w.grid = next
	w.normalizeWidths()
	s := w.commitLocked(ctx, op, before)
	w.mu.Unlock()
	w.notify(s)
	return true, nil
}

// covered reports whether any of ids is currently hidden by a row or column toggle.
func covered(panels []domain.PanelLayout, ids ...string) bool {
	for _, id := range ids {
		if p, ok := layout.Find(panels, id); ok && p.OriginalState != nil {
			return true
		}
	}
	return false
}

// columnIDs lists the panels in the column of id.
func columnIDs(panels []domain.PanelLayout, id string) []string {
	p, ok := layout.Find(panels, id)
	if !ok {
		return nil
	}
	var ids []string
	for _, q := range panels {
		if q.Col == p.Col {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// rangeIDs lists the panels inside a master's merge range.
func rangeIDs(panels []domain.PanelLayout, id string) []string {
	p, ok := layout.Find(panels, id)
	if !ok || p.MergeRange == nil {
		return nil
	}
	var ids []string
	for _, q := range panels {
		if p.MergeRange.Contains(q.Row, q.Col) {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// Swap exchanges two panels. Panels hidden by a row or column toggle are not swapped, since their saved state
// belongs to the cell they occupy.
func (w *Workspace) Swap(ctx context.Context, a, b string) (bool, error) {
	return w.mutate(ctx, "swap", func(g domain.PanelGrid) domain.PanelGrid {
		if a == b || covered(g.Panels, a, b) {
			return g
		}
		g.Panels = layout.Swap(g.Panels, a, b)
		return g
	})
}

// MergeColumn merges the whole column of id into id.
func (w *Workspace) MergeColumn(ctx context.Context, id string) (bool, error) {
	return w.mutate(ctx, "merge", func(g domain.PanelGrid) domain.PanelGrid {
		if covered(g.Panels, columnIDs(g.Panels, id)...) {
			return g
		}
		g.Panels = layout.MergeColumn(g.Panels, id)
		return g
	})
}

// Unmerge splits the master id back into single panels.
func (w *Workspace) Unmerge(ctx context.Context, id string) (bool, error) {
	return w.mutate(ctx, "unmerge", func(g domain.PanelGrid) domain.PanelGrid {
		if !layout.CanUnmerge(g.Panels, id) || covered(g.Panels, rangeIDs(g.Panels, id)...) {
			return g
		}
		g.Panels = layout.Unmerge(g.Panels, id)
		return g
	})
}

// ToggleBase makes id the base panel, or clears it when it already is.
func (w *Workspace) ToggleBase(ctx context.Context, id string) (bool, error) {
	return w.mutate(ctx, "base", func(g domain.PanelGrid) domain.PanelGrid {
		g.Settings = layout.ToggleBase(g.Settings, id)
		return g
	})
}

// SetContent assigns a category and version to a panel.
func (w *Workspace) SetContent(ctx context.Context, id string, category domain.PanelCategory, version string) (bool, error) {
	return w.mutate(ctx, "content", func(g domain.PanelGrid) domain.PanelGrid {
		g.Settings = layout.SetContent(g.Settings, id, category, version)
		return g
	})
}

// SetColors changes a panel's colors; empty values keep the current ones.
func (w *Workspace) SetColors(ctx context.Context, id, background, text string) (bool, error) {
	return w.mutate(ctx, "colors", func(g domain.PanelGrid) domain.PanelGrid {
		g.Settings = layout.SetColors(g.Settings, id, background, text)
		return g
	})
}

// toggle applies a visibility change and resets the widths when the visible column count changes.
func (w *Workspace) toggle(ctx context.Context, op string, apply func(panels []domain.PanelLayout) []domain.PanelLayout) (bool, error) {
	w.mu.Lock()
	if w.drag.Active() {
		w.mu.Unlock()
		return false, ErrDragActive
	}
	before := w.captureLocked()
	prevRows, prevCols := w.vis.HiddenRows(), w.vis.HiddenCols()
	w.grid.Panels = apply(w.grid.Panels)
	if reflect.DeepEqual(prevRows, w.vis.HiddenRows()) && reflect.DeepEqual(prevCols, w.vis.HiddenCols()) {
		w.mu.Unlock()
		return false, nil
	}
	w.normalizeWidths()
	s := w.commitLocked(ctx, op, before)
	w.mu.Unlock()
	w.notify(s)
	return true, nil
}

// ToggleColumn hides or shows a column.
func (w *Workspace) ToggleColumn(ctx context.Context, col int) (bool, error) {
	return w.toggle(ctx, "toggle-column", func(p []domain.PanelLayout) []domain.PanelLayout {
		return w.vis.ToggleColumn(p, col)
	})
}

// ToggleRow hides or shows a row.
func (w *Workspace) ToggleRow(ctx context.Context, row int) (bool, error) {
	return w.toggle(ctx, "toggle-row", func(p []domain.PanelLayout) []domain.PanelLayout {
		return w.vis.ToggleRow(p, row)
	})
}

// ColumnStatus reports how a column would react to a toggle.
func (w *Workspace) ColumnStatus(col int) visibility.ColumnStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vis.ColumnStatus(w.grid.Panels, col)
}

// EqualizeWidths spreads the combined width of the selected columns evenly across them.
func (w *Workspace) EqualizeWidths(ctx context.Context, cols []int) (bool, error) {
	return w.setWidths(ctx, "equalize", func(cur []float64, visible []int) []float64 {
		return layout.EqualizeWidths(cur, visible, cols)
	})
}

// ResetWidths gives every visible column the same width.
func (w *Workspace) ResetWidths(ctx context.Context) (bool, error) {
	return w.setWidths(ctx, "reset-widths", func(_ []float64, visible []int) []float64 {
		return layout.EqualWidths(len(visible))
	})
}

// SetWidths installs explicit widths, one per visible column. They are scaled to sum to 100.
func (w *Workspace) SetWidths(ctx context.Context, sizes []float64) (bool, error) {
	var err error
	changed, mErr := w.setWidths(ctx, "widths", func(cur []float64, visible []int) []float64 {
		var total float64
		for _, s := range sizes {
			if s <= 0 {
				err = fmt.Errorf("workspace: width %v must be positive", s)
				return cur
			}
			total += s
		}
		if len(sizes) != len(visible) {
			err = fmt.Errorf("workspace: got %d widths for %d visible columns", len(sizes), len(visible))
			return cur
		}
		out := make([]float64, len(sizes))
		for i, s := range sizes {
			out[i] = s * 100 / total
		}
		return out
	})
	if mErr != nil {
		return false, mErr
	}
	return changed, err
}

func (w *Workspace) setWidths(ctx context.Context, op string, fn func(cur []float64, visible []int) []float64) (bool, error) {
	w.mu.Lock()
	if w.drag.Active() {
		w.mu.Unlock()
		return false, ErrDragActive
	}
	visible := layout.VisibleColumns(w.grid.Panels)
	next := fn(append([]float64(nil), w.widths...), visible)
	if reflect.DeepEqual(next, w.widths) {
		w.mu.Unlock()
		return false, nil
	}
	before := w.captureLocked()
	w.widths = next
	s := w.commitLocked(ctx, op, before)
	w.mu.Unlock()
	w.notify(s)
	return true, nil
}

// Reset replaces the grid wholesale. The current hidden rows and columns are applied to the new grid.
func (w *Workspace) Reset(ctx context.Context, g domain.PanelGrid) (bool, error) {
	if err := layout.Validate(g); err != nil {
		return false, err
	}
	return w.mutate(ctx, "reset", func(domain.PanelGrid) domain.PanelGrid {
		next := layout.Clone(g)
		next.Panels = w.vis.Apply(next.Panels)
		return next
	})
}

// Defaults restores the initial grid with every row and column shown and equal widths.
func (w *Workspace) Defaults(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if w.drag.Active() {
		w.mu.Unlock()
		return false, ErrDragActive
	}
	before := w.captureLocked()
	w.vis.Reset()
	w.grid = layout.NewInitialGrid()
	w.widths = nil
	w.normalizeWidths()
	if string(before) == string(w.captureLocked()) {
		w.mu.Unlock()
		return false, nil
	}
	s := w.commitLocked(ctx, "defaults", before)
	w.mu.Unlock()
	w.notify(s)
	return true, nil
}

// Undo reverts the last layout change.
func (w *Workspace) Undo(ctx context.Context) (bool, error) {
	return w.travel(ctx, "undo", w.hist.Undo)
}

// Redo reapplies the last undone change.
func (w *Workspace) Redo(ctx context.Context) (bool, error) {
	return w.travel(ctx, "redo", w.hist.Redo)
}

func (w *Workspace) travel(ctx context.Context, op string, step func(string, []byte) (undo.Snapshot, bool)) (bool, error) {
	w.mu.Lock()
	if w.drag.Active() {
		w.mu.Unlock()
		return false, ErrDragActive
	}
	snap, ok := step(HistoryScope, w.captureLocked())
	if !ok {
		w.mu.Unlock()
		return false, nil
	}
	if err := w.restoreLocked(snap.Blob); err != nil {
		w.mu.Unlock()
		return false, fmt.Errorf("%s: %w", op, err)
	}
	w.saveLayoutLocked(ctx)
	w.log.Debug("layout changed", slog.String("op", op))
	s := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(s)
	return true, nil
}

// SetPosition moves the reading position driven by the base panel. Non-positive values keep the current ones.
func (w *Workspace) SetPosition(ctx context.Context, book, chapter, verse int) bool {
	w.mu.Lock()
	next := w.pos
	if book > 0 {
		next.Book = book
	}
	if chapter > 0 {
		next.Chapter = chapter
	}
	if verse > 0 {
		next.Verse = verse
	}
	if next == w.pos {
		w.mu.Unlock()
		return false
	}
	w.pos = next
	if w.store != nil {
		w.saveWarn("position", w.store.SaveAll(ctx, map[string]any{
			storage.KeyBook:    next.Book,
			storage.KeyChapter: next.Chapter,
			storage.KeyVerse:   next.Verse,
		}))
	}
	s := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(s)
	return true
}

// SetTextSize changes the panel body font size, clamped to the supported range.
func (w *Workspace) SetTextSize(ctx context.Context, size int) bool {
	w.mu.Lock()
	size = clampTextSize(size)
	if size == w.textSize {
		w.mu.Unlock()
		return false
	}
	w.textSize = size
	if w.store != nil {
		w.saveWarn(storage.KeyPanelTextSize, w.store.SaveInt(ctx, storage.KeyPanelTextSize, size))
	}
	s := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(s)
	return true
}

// DragStart begins a drag on a visible panel.
func (w *Workspace) DragStart(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := layout.Find(w.grid.Panels, id)
	if !ok || p.State == domain.StateHidden {
		return fmt.Errorf("workspace: panel %q is not visible", id)
	}
	return w.drag.Start(id)
}

// DragHover records the panel under the pointer. Hidden or unknown panels count as no target.
func (w *Workspace) DragHover(id string) {
	w.mu.Lock()
	if p, ok := layout.Find(w.grid.Panels, id); !ok || p.State == domain.StateHidden {
		id = ""
	}
	changed := w.drag.Active() && w.drag.Target() != id
	w.drag.Hover(id)
	s := w.snapshotLocked()
	w.mu.Unlock()
	if changed {
		w.notify(s)
	}
}

// DragEnd finishes the gesture and swaps source and target when both are set and differ.
func (w *Workspace) DragEnd(ctx context.Context) (dragswap.Outcome, error) {
	w.mu.Lock()
	if !w.drag.Active() {
		w.mu.Unlock()
		return dragswap.Cancelled, nil
	}
	if covered(w.grid.Panels, w.drag.Source(), w.drag.Target()) {
		w.drag.Cancel()
		s := w.snapshotLocked()
		w.mu.Unlock()
		w.notify(s)
		return dragswap.Cancelled, nil
	}
	before := w.captureLocked()
	res := w.drag.End(w.grid.Panels)
	if res.Outcome != dragswap.Committed {
		s := w.snapshotLocked()
		w.mu.Unlock()
		w.notify(s)
		return res.Outcome, nil
	}
	w.grid.Panels = res.Panels
	w.normalizeWidths()
	s := w.commitLocked(ctx, "drag", before)
	w.mu.Unlock()
	w.notify(s)
	return res.Outcome, nil
}

// DragCancel aborts the gesture.
func (w *Workspace) DragCancel() {
	w.mu.Lock()
	active := w.drag.Active()
	w.drag.Cancel()
	s := w.snapshotLocked()
	w.mu.Unlock()
	if active {
		w.notify(s)
	}
}
