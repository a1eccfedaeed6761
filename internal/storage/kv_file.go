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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	applog "gracenote/internal/log"
)

const (
	BackupsDirName = "backups"
	// MaxBackups bounds the number of timestamped copies kept per store file.
	MaxBackups = 20
)

// FileKV keeps every key in one JSON object on disk. Writes replace the file through a temp file and rename,
// after copying the previous version to backups/. If the main file is unreadable the latest backup is used.
type FileKV struct {
	path   string
	mu     sync.Mutex
	data   map[string]json.RawMessage
	closed bool
}

// OpenFileKV loads the document at path; a missing file starts empty.
func OpenFileKV(path string) (*FileKV, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &FileKV{path: path, data: map[string]json.RawMessage{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileKV) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil {
		var m map[string]json.RawMessage
		if err = json.Unmarshal(b, &m); err == nil {
			if m != nil {
				s.data = m
			}
			return nil
		}
	}
	applog.WithOperation(applog.WithComponent("storage"), "file_open").Warn("store unreadable, trying backup",
		slog.String("path", s.path), slog.Any("err", err))
	m, berr := openFromLatestBackup(s.path)
	if berr != nil {
		return fmt.Errorf("read store: %w; backup attempt: %v", err, berr)
	}
	s.data = m
	return nil
}

// Path returns the JSON document path.
func (s *FileKV) Path() string { return s.path }

// Refresh re-reads the document after an external change.
func (s *FileKV) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.load()
}

func (s *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *FileKV) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("set %s: value is not JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.data[key]
	s.data[key] = append(json.RawMessage(nil), value...)
	if err := s.flushLocked(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// SetMany replaces all values with a single rewrite of the document.
func (s *FileKV) SetMany(_ context.Context, values map[string][]byte) error {
	for k, v := range values {
		if !json.Valid(v) {
			return fmt.Errorf("set %s: value is not JSON", k)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		prev[k] = v
	}
	for k, v := range values {
		s.data[k] = append(json.RawMessage(nil), v...)
	}
	if err := s.flushLocked(); err != nil {
		s.data = prev
		return err
	}
	return nil
}

func (s *FileKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := s.flushLocked(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

func (s *FileKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flushLocked writes the document with transactional semantics and a timestamped backup of the previous one.
func (s *FileKV) flushLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(filepath.Dir(s.path), BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(s.path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(s.path), stamp))
		if cerr := copyFile(s.path, bpath); cerr != nil {
			return fmt.Errorf("backup current store: %w", cerr)
		}
		pruneBackups(bdir, filepath.Base(s.path), MaxBackups)
	}

	dir := filepath.Dir(s.path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(s.path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp store: %w", werr)
	}
	if rerr := os.Rename(temp, s.path); rerr != nil {
		// Windows refuses to rename over an existing file
		_ = os.Remove(s.path)
		if rerr = os.Rename(temp, s.path); rerr != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace store: %w", rerr)
		}
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

func backupsOf(bdir, base string) []string {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func pruneBackups(bdir, base string, keep int) {
	all := backupsOf(bdir, base)
	for len(all) > keep {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

// openFromLatestBackup parses the newest readable backup of path.
func openFromLatestBackup(path string) (map[string]json.RawMessage, error) {
	candidates := backupsOf(filepath.Join(filepath.Dir(path), BackupsDirName), filepath.Base(path))
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = err
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			lastErr = err
			continue
		}
		if m == nil {
			m = map[string]json.RawMessage{}
		}
		return m, nil
	}
	return nil, fmt.Errorf("parse backups: %w", lastErr)
}
