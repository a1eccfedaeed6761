/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package layoutpack shares panel layouts between machines as small zip archives.
//
// A pack holds a human-readable manifest and layout.json with the panel grid (positions, merges, contents and
// colors). Hidden rows and columns and column widths are viewing preferences of the receiving workspace and are
// not carried.
package layoutpack

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
	applog "gracenote/internal/log"
	"gracenote/internal/workspace"
)

const (
	manifestName = "layoutpack.manifest.txt"
	layoutName   = "layout.json"
	// maxLayoutSize bounds layout.json; a full grid is a few kilobytes.
	maxLayoutSize = 1 << 20
)

// ErrNoLayout is returned for archives without a layout.json entry.
var ErrNoLayout = errors.New("layoutpack: archive has no layout.json")

type document struct {
	Name    string           `json:"name"`
	Created time.Time        `json:"created"`
	Grid    domain.PanelGrid `json:"panelGrid"`
}

// Export writes the grid of s, with every row and column shown, to destZipPath.
func Export(s workspace.Snapshot, name, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("layoutpack"), "export").With(slog.String("zip", destZipPath))
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	g := layout.Clone(s.Grid)
	g.Panels = layout.ApplyVisibility(g.Panels, layout.NewIntSet(), layout.NewIntSet())
	doc := document{Name: name, Created: time.Now().UTC().Truncate(time.Second), Grid: g}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)
	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Grace Note Layout Pack\nName: %s\nCreated: %s\nPanels: %d\n",
		name, doc.Created.Format(time.RFC3339), len(layout.RenderablePanels(g)))
	if err := writeEntry(zw, manifestName, []byte(manifest)); err != nil {
		_ = zf.Close()
		return err
	}
	if err := writeEntry(zw, layoutName, data); err != nil {
		_ = zf.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return fmt.Errorf("finish zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return err
	}
	l.Info("layout pack exported", slog.String("name", name))
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Read loads and validates the grid stored in a pack.
func Read(packZipPath string) (name string, g domain.PanelGrid, err error) {
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return "", g, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name != layoutName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", g, err
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxLayoutSize+1))
		_ = rc.Close()
		if err != nil {
			return "", g, err
		}
		if len(data) > maxLayoutSize {
			return "", g, fmt.Errorf("layoutpack: %s exceeds %d bytes", layoutName, maxLayoutSize)
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return "", g, fmt.Errorf("decode layout: %w", err)
		}
		if err := layout.Validate(doc.Grid); err != nil {
			return "", g, err
		}
		return doc.Name, doc.Grid, nil
	}
	return "", g, ErrNoLayout
}

// Install replaces the workspace grid with the pack's. The workspace keeps its hidden rows and columns.
func Install(ctx context.Context, ws *workspace.Workspace, packZipPath string) (bool, error) {
	l := applog.WithOperation(applog.WithComponent("layoutpack"), "install").With(slog.String("zip", packZipPath))
	name, g, err := Read(packZipPath)
	if err != nil {
		l.Warn("layout pack rejected", slog.Any("err", err))
		return false, err
	}
	changed, err := ws.Reset(ctx, g)
	if err != nil {
		return false, err
	}
	l.Info("layout pack installed", slog.String("name", name), slog.Bool("changed", changed))
	return changed, nil
}
