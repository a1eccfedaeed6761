/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gracenote/internal/config"
	"gracenote/internal/corpus"
	"gracenote/internal/export"
	applog "gracenote/internal/log"
	"gracenote/internal/tui"
	"gracenote/internal/ui"
	"gracenote/internal/version"
	"gracenote/internal/workspace"
)

var (
	exportTitle string
	exportDPI   int
	withText    bool
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Grace Note", version.String())
		},
	})

	configCmd := &cobra.Command{Use: "config", Short: "Inspect the configuration"}
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	})
	rootCmd.AddCommand(configCmd)

	exportCmd := &cobra.Command{
		Use:   "export pdf|png|svg OUT",
		Short: "Render the current layout to a PDF, PNG or SVG sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, done, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer done()
			s := ws.Snapshot()
			opt := export.Options{Title: exportTitle}
			if withText {
				opt.Content = panelText(ctx, s)
			}
			out := args[1]
			switch strings.ToLower(args[0]) {
			case "pdf":
				err = export.LayoutPDF(s, out, opt)
			case "png":
				err = export.LayoutPNG(s, out, exportDPI, opt)
			case "svg":
				err = export.LayoutSVG(s, out, opt)
			default:
				return fmt.Errorf("unknown format %q (want pdf, png or svg)", args[0])
			}
			if err != nil {
				return err
			}
			abs, _ := filepath.Abs(out)
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", abs)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportTitle, "title", "Grace Note layout", "sheet title")
	exportCmd.Flags().IntVar(&exportDPI, "dpi", 96, "PNG resolution")
	exportCmd.Flags().BoolVar(&withText, "text", false, "include the chapter text of each panel")
	rootCmd.AddCommand(exportCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Open the terminal workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, done, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			return tui.Run(cmd.Context(), ws)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ui",
		Short: "Launch the desktop UI (build with -tags fyne)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, done, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer done()
			repo, err := openCorpus(ctx)
			if err != nil {
				applog.WithComponent("cli").Warn("corpus unavailable", slog.Any("err", err))
			} else {
				defer repo.Close()
			}
			return ui.Run(ctx, ui.Options{
				Workspace: ws,
				Corpus:    repo,
				StorePath: cfg.Store.Path,
				Watch:     cfg.Store.Watch,
				Versions:  cfg.Versions,
				Crash:     rescue,
			})
		},
	})
}

// panelText loads the chapter shown by each visible panel. Panels whose version is missing stay empty.
func panelText(ctx context.Context, s workspace.Snapshot) map[string][]string {
	l := applog.WithComponent("export")
	repo, err := openCorpus(ctx)
	if err != nil {
		l.Warn("corpus unavailable", slog.Any("err", err))
		return nil
	}
	defer repo.Close()
	out := make(map[string][]string)
	for _, c := range s.Cells() {
		vs, err := corpus.Chapter(ctx, repo, c.Settings.Category, c.Settings.Version, s.Position.Book, s.Position.Chapter)
		if err != nil {
			if !errors.Is(err, corpus.ErrNotFound) {
				l.Warn("panel text", slog.String("panel", c.Panel.ID), slog.Any("err", err))
			}
			continue
		}
		if lines := corpus.Lines(vs); lines != nil {
			out[c.Panel.ID] = lines
		}
	}
	return out
}
