/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package layoutpack

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gracenote/internal/domain"
	"gracenote/internal/workspace"
)

func openWS(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Open(context.Background(), nil, workspace.Options{})
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	return ws
}

func TestExportAndInstallPack(t *testing.T) {
	ctx := context.Background()
	src := openWS(t)
	if _, err := src.MergeColumn(ctx, "panel-1"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := src.SetContent(ctx, "panel-1", domain.CategoryCommentary, "MHC"); err != nil {
		t.Fatalf("content: %v", err)
	}
	if _, err := src.ToggleColumn(ctx, 1); err != nil {
		t.Fatalf("hide: %v", err)
	}

	zipPath := filepath.Join(t.TempDir(), "packs", "study.zip")
	if err := Export(src.Snapshot(), "study", zipPath); err != nil {
		t.Fatalf("export pack: %v", err)
	}
	st, err := os.Stat(zipPath)
	if err != nil || st.Size() == 0 {
		t.Fatalf("zip not created or empty: %v", err)
	}

	name, g, err := Read(zipPath)
	if err != nil {
		t.Fatalf("read pack: %v", err)
	}
	if name != "study" {
		t.Fatalf("name = %q", name)
	}
	for _, p := range g.Panels {
		if p.OriginalState != nil {
			t.Fatalf("%s still carries visibility state", p.ID)
		}
		if p.ID == "panel-1" && p.State != domain.StateMaster {
			t.Fatalf("panel-1 state = %s, want master", p.State)
		}
	}

	dst := openWS(t)
	changed, err := Install(ctx, dst, zipPath)
	if err != nil || !changed {
		t.Fatalf("install: changed=%v err=%v", changed, err)
	}
	s := dst.Snapshot()
	if len(s.HiddenCols) != 0 {
		t.Fatalf("hidden columns must not travel: %v", s.HiddenCols)
	}
	if got := s.Grid.Settings["panel-1"]; got.Category != domain.CategoryCommentary || got.Version != "MHC" {
		t.Fatalf("settings not installed: %+v", got)
	}
	if !s.CanUndo {
		t.Fatalf("install should be undoable")
	}

	// installing the same pack again changes nothing
	changed, err = Install(ctx, dst, zipPath)
	if err != nil || changed {
		t.Fatalf("second install: changed=%v err=%v", changed, err)
	}
}

func TestReadRejectsBadPacks(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.zip")
	f, err := os.Create(empty)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if err := writeEntry(zw, manifestName, []byte("nothing")); err != nil {
		t.Fatal(err)
	}
	_ = zw.Close()
	_ = f.Close()
	if _, _, err := Read(empty); !errors.Is(err, ErrNoLayout) {
		t.Fatalf("want ErrNoLayout, got %v", err)
	}

	broken := filepath.Join(dir, "broken.zip")
	f, err = os.Create(broken)
	if err != nil {
		t.Fatal(err)
	}
	zw = zip.NewWriter(f)
	if err := writeEntry(zw, layoutName, []byte(`{"panelGrid":{"panels":[],"settings":{}}}`)); err != nil {
		t.Fatal(err)
	}
	_ = zw.Close()
	_ = f.Close()
	if _, _, err := Read(broken); err == nil {
		t.Fatalf("expected validation error for an empty grid")
	}

	if _, _, err := Read(filepath.Join(dir, "missing.zip")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}
