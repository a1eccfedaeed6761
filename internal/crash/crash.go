/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file, a last save of the panel grid and a non-zero exit.
package crash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"gracenote/internal/domain"
	applog "gracenote/internal/log"
	"gracenote/internal/storage"
	"gracenote/internal/telemetry"
	"gracenote/internal/version"
)

// exitFn is swapped by tests.
var exitFn = os.Exit

// Target names what Recover can rescue. Every field is optional.
type Target struct {
	// Dir receives the report and the grid copy; os.TempDir when empty.
	Dir string
	// Store gets a final SaveGrid of Grid().
	Store *storage.GridStore
	// Grid returns the live grid.
	Grid func() domain.PanelGrid
}

// Recover captures a panic, logs it with its stack, writes a report and a copy of the grid, saves the grid
// through the store and exits with code 2.
//
// Usage: defer crash.Recover(&crash.Target{...})
func Recover(t *Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(t, r, stack)
		if path, err := autosave(t); err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("crash autosave written", slog.String("path", path))
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func reportDir(t *Target) string {
	if t != nil && t.Dir != "" {
		_ = os.MkdirAll(t.Dir, 0o755)
		return t.Dir
	}
	return os.TempDir()
}

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Grace Note Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// autosave writes crash-grid-<stamp>.json next to the report and pushes the grid to the store.
func autosave(t *Target) (string, error) {
	if t == nil || t.Grid == nil {
		return "", nil
	}
	g := t.Grid()
	b, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-grid-%s.json", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	if t.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := t.Store.SaveGrid(ctx, g); err != nil {
			return path, err
		}
	}
	return path, nil
}
