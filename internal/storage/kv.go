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
	"fmt"
	"sort"
	"strings"
)

// Fixed keys of the layout store.
const (
	KeyPanelGrid     = "panelGrid"
	KeyHiddenRows    = "hiddenRows"
	KeyHiddenCols    = "hiddenCols"
	KeyColumnSizes   = "columnSizes"
	KeyBook          = "book"
	KeyChapter       = "chapter"
	KeyVerse         = "verse"
	KeyPanelTextSize = "panelTextSize"
	KeyHistory       = "layoutHistory"
)

// ErrClosed is returned by a KV used after Close.
var ErrClosed = errors.New("storage: store is closed")

// KV is the persistence boundary. Values are opaque JSON documents.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Batcher is implemented by stores that write several keys in one step.
type Batcher interface {
	SetMany(ctx context.Context, values map[string][]byte) error
}

// Refresher is implemented by stores that cache values and can re-read them after an external change.
type Refresher interface {
	Refresh() error
}

// SetMany writes values in one step when kv is a Batcher, otherwise key by key in sorted order.
func SetMany(ctx context.Context, kv KV, values map[string][]byte) error {
	if b, ok := kv.(Batcher); ok {
		return b.SetMany(ctx, values)
	}
	for _, k := range sortedKeys(values) {
		if err := kv.Set(ctx, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Refresh re-reads kv when it caches values; other stores are always current.
func Refresh(kv KV) error {
	if r, ok := kv.(Refresher); ok {
		return r.Refresh()
	}
	return nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Open creates the KV selected by backend at path.
func Open(ctx context.Context, backend, path string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite:
		return OpenSQLiteKV(ctx, path)
	case BackendFile:
		return OpenFileKV(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
