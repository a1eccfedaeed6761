/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var sqliteTables = map[Kind]string{
	KindBible:      "Bible",
	KindCommentary: "Commentary",
	KindLexicon:    "Lexicon",
	KindHymn:       "Hymn",
}

// sqliteSource keeps one handle per version file under <dir>/<kind>/<version>.db.
type sqliteSource struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewSQLite returns a Store reading per-version database files below dir.
func NewSQLite(dir string, opts Options) *Store {
	return newStore(&sqliteSource{dir: dir, dbs: map[string]*sql.DB{}}, opts, "sqlite")
}

// Path returns the database file for a collection version.
func Path(dir string, kind Kind, version string) string {
	return filepath.Join(dir, string(kind), version+".db")
}

func (s *sqliteSource) table(ctx context.Context, kind Kind, version string) (table, error) {
	if err := validVersion(version); err != nil {
		return table{}, err
	}
	p := Path(s.dir, kind, version)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dbs == nil {
		return table{}, errors.New("corpus: store closed")
	}
	if db, ok := s.dbs[p]; ok {
		return table{db: db, name: sqliteTables[kind]}, nil
	}
	// sqlite would create a missing file on first use.
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table{}, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, version)
		}
		return table{}, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(p))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return table{}, fmt.Errorf("open %s: %w", p, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return table{}, fmt.Errorf("pragma wal %s: %w", p, err)
	}
	s.dbs[p] = db
	return table{db: db, name: sqliteTables[kind]}, nil
}

func (s *sqliteSource) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, db := range s.dbs {
		errs = append(errs, db.Close())
	}
	s.dbs = nil
	return errors.Join(errs...)
}

// Versions lists the version files present for a collection, sorted by name.
func Versions(dir string, kind Kind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, string(kind)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		out = append(out, e.Name()[:len(e.Name())-len(".db")])
	}
	return out, nil
}
