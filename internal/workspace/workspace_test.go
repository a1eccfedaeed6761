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
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gracenote/internal/domain"
	"gracenote/internal/dragswap"
	"gracenote/internal/layout"
	"gracenote/internal/storage"
	"gracenote/internal/undo"
)

func noCoalesce() Options {
	return Options{Undo: undo.NewManager(undo.Config{MinInterval: -1})}
}

func openFileStore(t *testing.T, path string) *storage.GridStore {
	t.Helper()
	kv, err := storage.OpenFileKV(path)
	require.NoError(t, err)
	gs, err := storage.NewGridStore(kv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	return gs
}

func panel(t *testing.T, s Snapshot, id string) domain.PanelLayout {
	t.Helper()
	p, ok := layout.Find(s.Grid.Panels, id)
	require.True(t, ok, id)
	return p
}

func TestOpenInMemoryDefaults(t *testing.T) {
	w, err := Open(context.Background(), nil, noCoalesce())
	require.NoError(t, err)
	s := w.Snapshot()
	assert.Len(t, s.Grid.Panels, layout.MaxPanels)
	assert.Len(t, s.ColumnSizes, layout.Cols)
	assert.Equal(t, "panel-0", s.BaseID)
	assert.Equal(t, domain.Position{Book: 1, Chapter: 1, Verse: 1}, s.Position)
	assert.Equal(t, DefaultTextSize, s.TextSize)
	assert.False(t, s.CanUndo)
}

func TestMutationsReportChanges(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)

	changed, err := w.Swap(ctx, "panel-0", "panel-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, panel(t, w.Snapshot(), "panel-0").Col)

	changed, err = w.Swap(ctx, "panel-0", "panel-missing")
	require.NoError(t, err)
	assert.False(t, changed, "unknown id is a no-op")

	changed, err = w.MergeColumn(ctx, "panel-2")
	require.NoError(t, err)
	assert.True(t, changed)
	s := w.Snapshot()
	assert.Equal(t, domain.StateMaster, panel(t, s, "panel-2").State)
	assert.Equal(t, domain.StateHidden, panel(t, s, "panel-8").State)

	changed, err = w.MergeColumn(ctx, "panel-2")
	require.NoError(t, err)
	assert.False(t, changed, "masters cannot merge again")

	changed, err = w.Unmerge(ctx, "panel-8")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = w.Unmerge(ctx, "panel-2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StateNormal, panel(t, w.Snapshot(), "panel-8").State)
}

func TestToggleColumnResetsWidthsAndBlocksSwap(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)

	changed, err := w.ToggleColumn(ctx, 0)
	require.NoError(t, err)
	require.True(t, changed)
	s := w.Snapshot()
	assert.Equal(t, []int{0}, s.HiddenCols)
	assert.Equal(t, []float64{20, 20, 20, 20, 20}, s.ColumnSizes)
	assert.True(t, w.ColumnStatus(0).Hidden)

	changed, err = w.Swap(ctx, "panel-0", "panel-1")
	require.NoError(t, err)
	assert.False(t, changed, "hidden panels keep their cell")

	changed, err = w.ToggleColumn(ctx, 9)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = w.ToggleColumn(ctx, 0)
	require.NoError(t, err)
	s = w.Snapshot()
	assert.Empty(t, s.HiddenCols)
	assert.Equal(t, domain.StateNormal, panel(t, s, "panel-0").State)
	assert.Len(t, s.ColumnSizes, layout.Cols)
}

func TestMergedColumnSurvivesHideAndShow(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)
	_, err = w.MergeColumn(ctx, "panel-3")
	require.NoError(t, err)
	_, err = w.ToggleColumn(ctx, 3)
	require.NoError(t, err)
	assert.True(t, w.ColumnStatus(3).RestoresMerged)

	changed, err := w.Unmerge(ctx, "panel-3")
	require.NoError(t, err)
	assert.False(t, changed, "covered masters are not split")

	_, err = w.ToggleColumn(ctx, 3)
	require.NoError(t, err)
	s := w.Snapshot()
	assert.Equal(t, domain.StateMaster, panel(t, s, "panel-3").State)
	assert.Equal(t, domain.StateHidden, panel(t, s, "panel-9").State)
}

func TestDragLifecycle(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)

	require.NoError(t, w.DragStart("panel-0"))
	assert.ErrorIs(t, w.DragStart("panel-1"), dragswap.ErrDragInProgress)
	_, err = w.Swap(ctx, "panel-0", "panel-1")
	assert.ErrorIs(t, err, ErrDragActive)

	w.DragHover("panel-0")
	assert.Empty(t, w.Snapshot().DragTarget, "the source is never highlighted as a drop target")
	out, err := w.DragEnd(ctx)
	require.NoError(t, err)
	assert.Equal(t, dragswap.Cancelled, out, "drop on self")

	require.NoError(t, w.DragStart("panel-0"))
	w.DragHover("panel-7")
	assert.Equal(t, "panel-7", w.Snapshot().DragTarget)
	out, err = w.DragEnd(ctx)
	require.NoError(t, err)
	assert.Equal(t, dragswap.Committed, out)
	s := w.Snapshot()
	assert.Equal(t, 1, panel(t, s, "panel-0").Row)
	assert.Equal(t, 1, panel(t, s, "panel-0").Col)
	assert.Empty(t, s.DragSource)

	require.NoError(t, w.DragStart("panel-1"))
	w.DragCancel()
	_, err = w.Swap(ctx, "panel-1", "panel-2")
	assert.NoError(t, err)
}

func TestDragRejectsHiddenPanels(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)
	_, err = w.MergeColumn(ctx, "panel-0")
	require.NoError(t, err)
	assert.Error(t, w.DragStart("panel-6"))

	require.NoError(t, w.DragStart("panel-1"))
	w.DragHover("panel-6")
	assert.Empty(t, w.Snapshot().DragTarget)
	out, err := w.DragEnd(ctx)
	require.NoError(t, err)
	assert.Equal(t, dragswap.Cancelled, out)
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)
	initial := w.Snapshot().Grid

	_, err = w.MergeColumn(ctx, "panel-1")
	require.NoError(t, err)
	_, err = w.ToggleRow(ctx, 1)
	require.NoError(t, err)
	merged := w.Snapshot()

	ok, err := w.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, w.Snapshot().HiddenRows)

	ok, err = w.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, initial, w.Snapshot().Grid)

	ok, err = w.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.Redo(ctx)
	require.NoError(t, err)
	_, err = w.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, merged.Grid, w.Snapshot().Grid)
	assert.Equal(t, []int{1}, w.Snapshot().HiddenRows)
}

func TestWidths(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)

	_, err = w.SetWidths(ctx, []float64{1, 1, 1, 1, 1})
	assert.Error(t, err)

	changed, err := w.SetWidths(ctx, []float64{3, 1, 1, 1, 2, 2})
	require.NoError(t, err)
	require.True(t, changed)
	assert.InDelta(t, 30.0, w.Snapshot().ColumnSizes[0], 1e-9)

	_, err = w.EqualizeWidths(ctx, []int{0, 1})
	require.NoError(t, err)
	sizes := w.Snapshot().ColumnSizes
	assert.InDelta(t, 20.0, sizes[0], 1e-9)
	assert.InDelta(t, 20.0, sizes[1], 1e-9)

	_, err = w.ResetWidths(ctx)
	require.NoError(t, err)
	assert.Equal(t, layout.EqualWidths(layout.Cols), w.Snapshot().ColumnSizes)
}

func TestSettingsOperations(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)

	_, err = w.ToggleBase(ctx, "panel-4")
	require.NoError(t, err)
	assert.Equal(t, "panel-4", w.Snapshot().BaseID)

	changed, err := w.SetContent(ctx, "panel-4", domain.CategoryBible, "kjv")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = w.SetContent(ctx, "panel-4", domain.PanelCategory("poetry"), "x")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = w.SetColors(ctx, "panel-4", "#222", "")
	require.NoError(t, err)
	st := w.Snapshot().Grid.Settings["panel-4"]
	assert.Equal(t, "#222", st.BackgroundColor)
	assert.Equal(t, layout.DefaultText, st.TextColor)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")

	w, err := Open(ctx, openFileStore(t, path), noCoalesce())
	require.NoError(t, err)
	_, err = w.MergeColumn(ctx, "panel-5")
	require.NoError(t, err)
	_, err = w.ToggleRow(ctx, 0)
	require.NoError(t, err)
	assert.True(t, w.SetPosition(ctx, 43, 3, 16))
	assert.True(t, w.SetTextSize(ctx, 100))
	want := w.Snapshot()

	again, err := Open(ctx, openFileStore(t, path), noCoalesce())
	require.NoError(t, err)
	got := again.Snapshot()
	assert.Equal(t, want.Grid, got.Grid)
	assert.Equal(t, []int{0}, got.HiddenRows)
	assert.Equal(t, domain.Position{Book: 43, Chapter: 3, Verse: 16}, got.Position)
	assert.Equal(t, MaxTextSize, got.TextSize)
	assert.True(t, got.CanUndo, "history is persisted")

	ok, err := again.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, again.Snapshot().HiddenRows)
}

func TestCorruptGridFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	gs := openFileStore(t, filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, gs.KV().Set(ctx, storage.KeyPanelGrid, []byte(`{"panels":[{"id":"x"}],"settings":{}}`)))

	w, err := Open(ctx, gs, noCoalesce())
	require.NoError(t, err)
	assert.Equal(t, layout.NewInitialGrid(), w.Snapshot().Grid)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (failingKV) Set(context.Context, string, []byte) error        { return errors.New("disk full") }
func (failingKV) Delete(context.Context, string) error             { return nil }
func (failingKV) Close() error                                     { return nil }

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	gs, err := storage.NewGridStore(failingKV{})
	require.NoError(t, err)
	w, err := Open(ctx, gs, noCoalesce())
	require.NoError(t, err)

	changed, err := w.Swap(ctx, "panel-0", "panel-11")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, panel(t, w.Snapshot(), "panel-0").Row)
}

func TestSubscribeAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")
	w, err := Open(ctx, openFileStore(t, path), noCoalesce())
	require.NoError(t, err)

	var calls atomic.Int32
	cancel := w.Subscribe(func(s Snapshot) {
		calls.Add(1)
		_ = w.Snapshot()
	})
	_, err = w.Swap(ctx, "panel-0", "panel-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	other, err := Open(ctx, openFileStore(t, path), noCoalesce())
	require.NoError(t, err)
	_, err = other.MergeColumn(ctx, "panel-4")
	require.NoError(t, err)

	w.Reload(ctx)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, domain.StateMaster, panel(t, w.Snapshot(), "panel-4").State)

	cancel()
	_, err = w.Swap(ctx, "panel-0", "panel-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResetAndDefaults(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)

	_, err = w.Reset(ctx, domain.PanelGrid{})
	assert.Error(t, err)

	g := layout.NewInitialGrid()
	g.Panels = layout.Swap(g.Panels, "panel-0", "panel-11")
	_, err = w.ToggleRow(ctx, 1)
	require.NoError(t, err)
	changed, err := w.Reset(ctx, g)
	require.NoError(t, err)
	assert.True(t, changed)
	s := w.Snapshot()
	assert.Equal(t, domain.StateHidden, panel(t, s, "panel-0").State, "hidden rows apply to the new grid")

	changed, err = w.Defaults(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	s = w.Snapshot()
	assert.Equal(t, layout.NewInitialGrid(), s.Grid)
	assert.Empty(t, s.HiddenRows)

	changed, err = w.Defaults(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSnapshotCells(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)
	_, err = w.MergeColumn(ctx, "panel-2")
	require.NoError(t, err)
	_, err = w.ToggleColumn(ctx, 0)
	require.NoError(t, err)

	cells := w.Snapshot().Cells()
	require.Len(t, cells, 9)
	var master Cell
	for _, c := range cells {
		if c.Panel.ID == "panel-2" {
			master = c
		}
	}
	assert.Equal(t, layout.Placement{RowStart: 1, RowEnd: 3, ColStart: 2, ColEnd: 3}, master.Placement)
	assert.InDelta(t, 20.0, master.Width, 1e-9)
}

func TestCellsSkipColumnsEmptiedByHiddenRow(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, nil, noCoalesce())
	require.NoError(t, err)
	_, err = w.MergeColumn(ctx, "panel-2")
	require.NoError(t, err)
	_, err = w.ToggleRow(ctx, 0)
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Equal(t, 5, s.VisibleColumnCount())
	assert.Equal(t, 1, s.VisibleRowCount())
	cells := s.Cells()
	require.Len(t, cells, 5)
	var total float64
	for _, c := range cells {
		assert.Equal(t, 1, c.Placement.RowStart, c.Panel.ID)
		assert.LessOrEqual(t, c.Placement.ColEnd, 6, c.Panel.ID)
		assert.InDelta(t, 20.0, c.Width, 1e-9, c.Panel.ID)
		total += c.Width
	}
	assert.InDelta(t, 100.0, total, 1e-9)
	last := cells[len(cells)-1]
	assert.Equal(t, "panel-11", last.Panel.ID)
	assert.Equal(t, layout.Placement{RowStart: 1, RowEnd: 2, ColStart: 5, ColEnd: 6}, last.Placement)
}

func TestContextCancelledOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, nil, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}
