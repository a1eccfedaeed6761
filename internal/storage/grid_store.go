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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
	applog "gracenote/internal/log"
)

//go:embed grid.schema.json
var gridSchemaJSON []byte

// ErrCorrupt wraps every rejection of a stored value.
var ErrCorrupt = errors.New("storage: stored value is corrupt")

// GridStore is the persistence adapter of the layout engine: typed load/save of the fixed layout keys over a KV.
type GridStore struct {
	kv     KV
	schema *gojsonschema.Schema
	log    *slog.Logger
}

// NewGridStore wraps kv and compiles the embedded grid schema.
func NewGridStore(kv KV) (*GridStore, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(gridSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile grid schema: %w", err)
	}
	return &GridStore{kv: kv, schema: schema, log: applog.WithComponent("storage")}, nil
}

// KV returns the underlying store.
func (s *GridStore) KV() KV { return s.kv }

// Refresh drops cached values so the next load sees changes made by another process.
func (s *GridStore) Refresh() error { return Refresh(s.kv) }

// SaveAll encodes every value and stores them in one write.
func (s *GridStore) SaveAll(ctx context.Context, values map[string]any) error {
	raw := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", k, err)
		}
		raw[k] = b
	}
	if err := SetMany(ctx, s.kv, raw); err != nil {
		return err
	}
	s.log.Debug("saved batch", slog.Int("keys", len(raw)))
	return nil
}

// Close closes the underlying store.
func (s *GridStore) Close() error { return s.kv.Close() }

// ValidateGridJSON checks raw bytes against the grid schema.
func (s *GridStore) ValidateGridJSON(raw []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(msgs, "; "))
	}
	return nil
}

// LoadGrid returns the stored grid. ok is false when nothing is stored. A stored grid that fails the schema or
// layout.Validate is reported as ErrCorrupt.
func (s *GridStore) LoadGrid(ctx context.Context) (domain.PanelGrid, bool, error) {
	raw, ok, err := s.kv.Get(ctx, KeyPanelGrid)
	if err != nil || !ok {
		return domain.PanelGrid{}, false, err
	}
	if err := s.ValidateGridJSON(raw); err != nil {
		return domain.PanelGrid{}, false, err
	}
	var g domain.PanelGrid
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.PanelGrid{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := layout.Validate(g); err != nil {
		return domain.PanelGrid{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return g, true, nil
}

// SaveGrid stores g under KeyPanelGrid.
func (s *GridStore) SaveGrid(ctx context.Context, g domain.PanelGrid) error {
	return s.SaveJSON(ctx, KeyPanelGrid, g)
}

// LoadJSON decodes key into v. ok is false when the key is absent.
func (s *GridStore) LoadJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func (s *GridStore) SaveJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, b); err != nil {
		return err
	}
	s.log.Debug("saved", slog.String("key", key), slog.Int("bytes", len(b)))
	return nil
}

func (s *GridStore) LoadInts(ctx context.Context, key string) ([]int, bool, error) {
	var v []int
	ok, err := s.LoadJSON(ctx, key, &v)
	return v, ok, err
}

func (s *GridStore) SaveInts(ctx context.Context, key string, v []int) error {
	if v == nil {
		v = []int{}
	}
	return s.SaveJSON(ctx, key, v)
}

func (s *GridStore) LoadFloats(ctx context.Context, key string) ([]float64, bool, error) {
	var v []float64
	ok, err := s.LoadJSON(ctx, key, &v)
	return v, ok, err
}

func (s *GridStore) SaveFloats(ctx context.Context, key string, v []float64) error {
	if v == nil {
		v = []float64{}
	}
	return s.SaveJSON(ctx, key, v)
}

// LoadInt reads a single number.
func (s *GridStore) LoadInt(ctx context.Context, key string) (int, bool, error) {
	var v int
	ok, err := s.LoadJSON(ctx, key, &v)
	return v, ok, err
}

func (s *GridStore) SaveInt(ctx context.Context, key string, v int) error {
	return s.SaveJSON(ctx, key, v)
}
