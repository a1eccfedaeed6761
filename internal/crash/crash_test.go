/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
	"gracenote/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Grace Note Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

// TestRecover_SavesGrid checks that Recover writes the report, the grid copy and the store entry without
// terminating the test process.
func TestRecover_SavesGrid(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	kv, err := storage.OpenFileKV(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	gs, err := storage.NewGridStore(kv)
	if err != nil {
		t.Fatalf("grid store: %v", err)
	}
	defer func() { _ = gs.Close() }()

	g := layout.NewInitialGrid()
	g.Panels = layout.MergeColumn(g.Panels, "panel-1")
	reports := filepath.Join(dir, "crash")

	func() {
		defer Recover(&Target{Dir: reports, Store: gs, Grid: func() domain.PanelGrid { return g }})
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	var logs, grids int
	files, _ := os.ReadDir(reports)
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-grid-"):
			grids++
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			logs++
		}
	}
	if logs != 1 || grids != 1 {
		t.Fatalf("expected one report and one grid copy, got %d and %d", logs, grids)
	}
	stored, ok, err := gs.LoadGrid(context.Background())
	if err != nil || !ok {
		t.Fatalf("stored grid missing: ok=%v err=%v", ok, err)
	}
	if p, _ := layout.Find(stored.Panels, "panel-1"); p.MergeRange == nil {
		t.Fatalf("stored grid lost the merge: %+v", p)
	}
}
