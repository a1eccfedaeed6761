/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Command gracenote drives the panel workspace from the shell, a terminal UI or the desktop UI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gracenote/internal/config"
	"gracenote/internal/corpus"
	"gracenote/internal/crash"
	"gracenote/internal/domain"
	applog "gracenote/internal/log"
	"gracenote/internal/storage"
	"gracenote/internal/telemetry"
	"gracenote/internal/workspace"
)

var (
	storeBackend string
	storePath    string
	corpusDir    string
	jsonOutput   bool

	cfg      = config.Defaults()
	pgSecret string

	// rescue is filled in once a store is open so a panic still saves the grid.
	rescue = &crash.Target{}
)

var rootCmd = &cobra.Command{
	Use:   "gracenote",
	Short: "Grace Note - multi-panel scripture study workspace",
	Long: `Grace Note arranges bible, commentary and lexicon panels in a 2x6 grid.

Panels can be swapped, merged down a column, hidden by row or column and
resized. Every change is saved to the configured store and can be undone.

Examples:
  gracenote layout show
  gracenote layout swap panel-0 panel-7
  gracenote layout merge 3
  gracenote layout hide-col 6
  gracenote search keyword --version KJV light darkness
  gracenote tui`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, secret, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if storeBackend != "" {
			c.Store.Backend = storeBackend
		}
		if storePath != "" {
			c.Store.Path = storePath
		}
		if corpusDir != "" {
			c.Corpus.Backend = "sqlite"
			c.Corpus.DataDir = corpusDir
		}
		cfg, pgSecret = c, secret
		applog.Init(applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		})
		telemetry.SetDefault(telemetry.New(telemetry.FromConfig(cfg.General.TelemetryOptIn)))
		applog.WithComponent("cli").Debug("start", slog.String("cmd", cmd.CommandPath()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		telemetry.Default().Flush(ctx)
		_ = applog.Close()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&storeBackend, "store-backend", "", "layout store backend: sqlite or file")
	pf.StringVar(&storePath, "store", "", "layout store path")
	pf.StringVar(&corpusDir, "corpus", "", "directory of SQLite corpus databases")
	pf.BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
}

func main() {
	defer crash.Recover(rescue)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openWorkspace opens the configured store and the workspace on top of it.
func openWorkspace(ctx context.Context) (*workspace.Workspace, func(), error) {
	kv, err := storage.Open(ctx, cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	gs, err := storage.NewGridStore(kv)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	ws, err := workspace.Open(ctx, gs, workspace.Options{Logger: applog.WithComponent("workspace")})
	if err != nil {
		_ = gs.Close()
		return nil, nil, err
	}
	rescue.Store = gs
	rescue.Grid = func() domain.PanelGrid { return ws.Snapshot().Grid }
	return ws, func() {
		rescue.Store, rescue.Grid = nil, nil
		if err := gs.Close(); err != nil {
			applog.WithComponent("cli").Warn("close store", slog.Any("err", err))
		}
	}, nil
}

// openCorpus opens the configured text corpus.
func openCorpus(ctx context.Context) (corpus.Repository, error) {
	opts := corpus.Options{PageSize: cfg.Corpus.PageSize, Hymnal: cfg.Corpus.Hymnal}
	switch strings.ToLower(strings.TrimSpace(cfg.Corpus.Backend)) {
	case "", "sqlite":
		return corpus.NewSQLite(cfg.Corpus.DataDir, opts), nil
	case "postgres":
		s, err := corpus.OpenPostgres(ctx, withPassword(cfg.Corpus.PostgresDSN, pgSecret), opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown corpus backend %q", cfg.Corpus.Backend)
	}
}

// withPassword adds the keychain password to a URL-style DSN that carries none.
func withPassword(dsn, secret string) string {
	if secret == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), secret)
	return u.String()
}
