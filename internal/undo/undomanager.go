/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is an opaque state blob captured before a change in one scope.
// Size is estimated as len(Blob). TS is when the snapshot was captured.
type Snapshot struct {
	Scope string    `json:"scope"`
	Blob  []byte    `json:"blob"`
	TS    time.Time `json:"ts"`
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerScope limits the undo depth per scope (0 means unlimited).
	MaxPerScope int
	// MinInterval coalesces snapshots captured within the interval for the same scope: the earlier
	// snapshot is kept so one undo reverts the whole burst. Negative disables coalescing.
	MinInterval time.Duration
}

// Manager provides in-memory undo/redo stacks per scope. It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// bytes held on the undo stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024 // 4 MiB
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the state before a change. Any new change invalidates the scope's redo stack.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Scope]
	m.redo[s.Scope] = nil
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		last := stack[n-1]
		if d := s.TS.Sub(last.TS); d >= 0 && d < m.cfg.MinInterval {
			// Coalesce: keep the older pre-change state, refresh its timestamp
			stack[n-1].TS = s.TS
			return
		}
	}
	m.undo[s.Scope] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Scope)
}

// Undo pops the latest pre-change state of scope and parks current on the redo stack.
func (m *Manager) Undo(scope string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[scope]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[scope] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[scope] = append(m.redo[scope], Snapshot{Scope: scope, Blob: current, TS: time.Now()})
	return s, true
}

// Redo pops the latest undone state of scope and parks current back on the undo stack.
func (m *Manager) Redo(scope string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[scope]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[scope] = r[:len(r)-1]
	m.undo[scope] = append(m.undo[scope], Snapshot{Scope: scope, Blob: current, TS: s.TS})
	m.totalBytes += len(current)
	m.enforceCapsLocked(scope)
	return s, true
}

// CanUndo and CanRedo report whether the stacks of scope are non-empty.
func (m *Manager) CanUndo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[scope]) > 0
}

func (m *Manager) CanRedo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[scope]) > 0
}

// History is the persisted form of one scope's stacks, oldest first.
type History struct {
	Undo []Snapshot `json:"undo"`
	Redo []Snapshot `json:"redo"`
}

// Export copies the stacks of scope.
func (m *Manager) Export(scope string) History {
	m.mu.Lock()
	defer m.mu.Unlock()
	return History{
		Undo: append([]Snapshot(nil), m.undo[scope]...),
		Redo: append([]Snapshot(nil), m.redo[scope]...),
	}
}

// Import replaces the stacks of scope, then applies the caps.
func (m *Manager) Import(scope string, h History) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(scope)
	for i := range h.Undo {
		h.Undo[i].Scope = scope
		m.totalBytes += len(h.Undo[i].Blob)
	}
	for i := range h.Redo {
		h.Redo[i].Scope = scope
	}
	m.undo[scope] = append([]Snapshot(nil), h.Undo...)
	m.redo[scope] = append([]Snapshot(nil), h.Redo...)
	m.enforceCapsLocked(scope)
}

// Clear drops undo/redo stacks for a scope to free memory.
func (m *Manager) Clear(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(scope)
}

func (m *Manager) clearLocked(scope string) {
	for _, s := range m.undo[scope] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, scope)
	delete(m.redo, scope)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, scopes int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			scopes++
		}
		totalSnapshots += len(v)
	}
	return m.totalBytes, scopes, totalSnapshots
}

func (m *Manager) enforceCapsLocked(scope string) {
	if m.cfg.MaxPerScope > 0 {
		stack := m.undo[scope]
		if len(stack) > m.cfg.MaxPerScope {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerScope
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[scope] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all scopes
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for sc, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = sc, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
