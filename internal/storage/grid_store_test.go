/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
)

func newGridStore(t *testing.T) *GridStore {
	t.Helper()
	kv, err := OpenSQLiteKV(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	gs, err := NewGridStore(kv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	return gs
}

func TestGridRoundTrip(t *testing.T) {
	ctx := context.Background()
	gs := newGridStore(t)

	_, ok, err := gs.LoadGrid(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	g := layout.NewInitialGrid()
	g.Panels = layout.MergeColumn(g.Panels, "panel-2")
	g.Panels = layout.ApplyVisibility(g.Panels, nil, layout.NewIntSet(2))
	g.Settings = layout.SetContent(g.Settings, "panel-2", domain.CategoryLexicon, "Strong")
	require.NoError(t, gs.SaveGrid(ctx, g))

	got, ok, err := gs.LoadGrid(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g, got)
}

func TestLoadGridRejectsSchemaViolations(t *testing.T) {
	ctx := context.Background()
	gs := newGridStore(t)
	cases := map[string]string{
		"not an object":   `[1,2,3]`,
		"unknown state":   `{"panels":[{"id":"a","row":0,"col":0,"state":"floating"}],"settings":{}}`,
		"missing panels":  `{"settings":{}}`,
		"bad category":    `{"panels":[{"id":"a","row":0,"col":0,"state":"normal"}],"settings":{"a":{"id":"a","isBase":true,"category":"movies"}}}`,
		"negative column": `{"panels":[{"id":"a","row":0,"col":-1,"state":"normal"}],"settings":{}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, gs.KV().Set(ctx, KeyPanelGrid, []byte(raw)))
			_, ok, err := gs.LoadGrid(ctx)
			assert.False(t, ok)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

func TestLoadGridRejectsInvariantViolations(t *testing.T) {
	ctx := context.Background()
	gs := newGridStore(t)
	g := layout.NewInitialGrid()
	g.Panels = g.Panels[:5]
	require.NoError(t, gs.SaveGrid(ctx, g))
	_, _, err := gs.LoadGrid(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorContains(t, err, "expected 12 panels")
}

func TestTypedHelpers(t *testing.T) {
	ctx := context.Background()
	gs := newGridStore(t)

	require.NoError(t, gs.SaveInts(ctx, KeyHiddenCols, nil))
	raw, _, _ := gs.KV().Get(ctx, KeyHiddenCols)
	assert.Equal(t, "[]", string(raw), "nil slices persist as empty arrays")

	require.NoError(t, gs.SaveInts(ctx, KeyHiddenRows, []int{1}))
	rows, ok, err := gs.LoadInts(ctx, KeyHiddenRows)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1}, rows)

	require.NoError(t, gs.SaveFloats(ctx, KeyColumnSizes, []float64{50, 50}))
	sizes, ok, err := gs.LoadFloats(ctx, KeyColumnSizes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float64{50, 50}, sizes)

	require.NoError(t, gs.SaveInt(ctx, KeyVerse, 16))
	v, ok, err := gs.LoadInt(ctx, KeyVerse)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 16, v)

	require.NoError(t, gs.KV().Set(ctx, KeyChapter, []byte(`"three"`)))
	_, _, err = gs.LoadInt(ctx, KeyChapter)
	assert.ErrorIs(t, err, ErrCorrupt)
}
