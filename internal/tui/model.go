/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tui is the terminal front end: the panel grid drawn with box characters, a keyboard cursor, and
// keyboard drag-and-drop (grab, move, drop) driving the same workspace operations as the desktop UI.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"gracenote/internal/layout"
	"gracenote/internal/workspace"
)

// snapshotMsg carries a change made outside the model, e.g. a reload after another process wrote the store.
type snapshotMsg workspace.Snapshot

// Model is the bubbletea model.
type Model struct {
	ws       *workspace.Workspace
	snap     workspace.Snapshot
	keys     keyMap
	help     help.Model
	row, col int // cursor in visible track coordinates
	width    int
	height   int
	status   string
}

// New builds a model over ws.
func New(ws *workspace.Workspace) Model {
	return Model{ws: ws, snap: ws.Snapshot(), keys: defaultKeys(), help: help.New(), width: 96, height: 24}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case snapshotMsg:
		m.snap = workspace.Snapshot(msg)
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	dragging := m.snap.DragSource != ""
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ws.DragCancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.move(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.move(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.move(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.move(0, 1)
	case key.Matches(msg, m.keys.Grab):
		if dragging {
			out, err := m.ws.DragEnd(ctx)
			m.report(out.String(), err)
		} else if id := m.focused(); id != "" {
			m.report("grabbed "+id, m.ws.DragStart(id))
			m.ws.DragHover(id)
		}
	case key.Matches(msg, m.keys.Cancel):
		m.ws.DragCancel()
	case key.Matches(msg, m.keys.Merge):
		m.apply(m.ws.MergeColumn(ctx, m.focused()))
	case key.Matches(msg, m.keys.Unmerge):
		m.apply(m.ws.Unmerge(ctx, m.focused()))
	case key.Matches(msg, m.keys.Base):
		m.apply(m.ws.ToggleBase(ctx, m.focused()))
	case key.Matches(msg, m.keys.HideCol):
		if p, ok := layout.Find(m.snap.Grid.Panels, m.focused()); ok {
			m.apply(m.ws.ToggleColumn(ctx, p.Col))
		}
	case key.Matches(msg, m.keys.HideRow):
		if p, ok := layout.Find(m.snap.Grid.Panels, m.focused()); ok {
			m.apply(m.ws.ToggleRow(ctx, p.Row))
		}
	case key.Matches(msg, m.keys.ShowAll):
		for _, r := range m.snap.HiddenRows {
			m.apply(m.ws.ToggleRow(ctx, r))
		}
		for _, c := range m.snap.HiddenCols {
			m.apply(m.ws.ToggleColumn(ctx, c))
		}
	case key.Matches(msg, m.keys.ColumnN):
		n, _ := strconv.Atoi(msg.String())
		m.apply(m.ws.ToggleColumn(ctx, n-1))
	case key.Matches(msg, m.keys.Equalize):
		m.apply(m.ws.ResetWidths(ctx))
	case key.Matches(msg, m.keys.Undo):
		m.apply(m.ws.Undo(ctx))
	case key.Matches(msg, m.keys.Redo):
		m.apply(m.ws.Redo(ctx))
	}
	m.snap = m.ws.Snapshot()
	m.clampCursor()
	if m.snap.DragSource != "" {
		m.ws.DragHover(m.focused())
		m.snap = m.ws.Snapshot()
	}
	return m, nil
}

func (m *Model) apply(changed bool, err error) {
	switch {
	case err != nil:
		m.status = err.Error()
	case !changed:
		m.status = "nothing to do"
	}
}

func (m *Model) report(ok string, err error) {
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = ok
}

func (m *Model) move(dr, dc int) {
	rows, cols := m.snap.VisibleRowCount(), m.snap.VisibleColumnCount()
	start := m.focused()
	// Step until the cursor leaves the focused block so masters are crossed in one move.
	for {
		r, c := m.row+dr, m.col+dc
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return
		}
		m.row, m.col = r, c
		if m.focused() != start {
			return
		}
	}
}

func (m *Model) clampCursor() {
	m.row = min(max(m.row, 0), max(m.snap.VisibleRowCount()-1, 0))
	m.col = min(max(m.col, 0), max(m.snap.VisibleColumnCount()-1, 0))
}

// focused returns the panel covering the cursor track.
func (m Model) focused() string {
	for _, c := range m.snap.Cells() {
		p := c.Placement
		if m.row+1 >= p.RowStart && m.row+1 < p.RowEnd && m.col+1 >= p.ColStart && m.col+1 < p.ColEnd {
			return c.Panel.ID
		}
	}
	return ""
}

// Run starts the program and forwards workspace changes from other goroutines into it.
func Run(ctx context.Context, ws *workspace.Workspace) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	p := tea.NewProgram(New(ws), tea.WithAltScreen(), tea.WithContext(ctx))
	fwd := newForwarder(p.Send)
	go fwd.run(ctx)
	cancel := ws.Subscribe(fwd.push)
	defer cancel()
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// forwarder hands snapshots to the program from a single goroutine. push never blocks: Update itself triggers
// notifications, and a newer snapshot replaces one that was not delivered yet.
type forwarder struct {
	send    func(tea.Msg)
	mu      sync.Mutex
	pending *workspace.Snapshot
	wake    chan struct{}
}

func newForwarder(send func(tea.Msg)) *forwarder {
	return &forwarder{send: send, wake: make(chan struct{}, 1)}
}

func (f *forwarder) push(s workspace.Snapshot) {
	f.mu.Lock()
	f.pending = &s
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *forwarder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}
		f.mu.Lock()
		s := f.pending
		f.pending = nil
		f.mu.Unlock()
		if s != nil {
			f.send(snapshotMsg(*s))
		}
	}
}
