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
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	glog "gracenote/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pgSource serves every collection from one shared database; tables carry a version column.
type pgSource struct {
	db *sql.DB

	mu    sync.Mutex
	known map[string]bool
}

// OpenPostgres connects to dsn, applies the embedded migrations and returns a Store.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("corpus: empty postgres dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return newStore(&pgSource{db: db, known: map[string]bool{}}, opts, "postgres"), nil
}

func (s *pgSource) table(ctx context.Context, kind Kind, version string) (table, error) {
	if err := validVersion(version); err != nil {
		return table{}, err
	}
	name := string(kind)
	key := name + "/" + version
	s.mu.Lock()
	ok := s.known[key]
	s.mu.Unlock()
	if !ok {
		var one int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM "+name+" WHERE version = $1 LIMIT 1", version).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return table{}, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, version)
		}
		if err != nil {
			return table{}, fmt.Errorf("lookup %s: %w", key, err)
		}
		s.mu.Lock()
		s.known[key] = true
		s.mu.Unlock()
	}
	return table{db: s.db, name: name, scopeCol: "version", scope: version, numbered: true}, nil
}

func (s *pgSource) close() error { return s.db.Close() }

// applyMigrations applies embedded SQL migrations in filename order and records each one.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS corpus_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure corpus_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM corpus_migrations`)
	if err != nil {
		return fmt.Errorf("select corpus_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	logger := glog.WithComponent("corpus")
	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		logger.Info("applying migration", slog.String("file", fname))
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO corpus_migrations(version, name) VALUES ($1, $2)
			ON CONFLICT (version) DO NOTHING`, version, fname); err != nil {
			return fmt.Errorf("record %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, _ := strings.Cut(base, "_")
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
