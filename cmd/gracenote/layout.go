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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"gracenote/internal/domain"
	"gracenote/internal/layout"
	"gracenote/internal/layoutpack"
	"gracenote/internal/telemetry"
	"gracenote/internal/workspace"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show and change the panel layout",
	Long: `Show and change the 2x6 panel layout.

Panels are named panel-0 .. panel-11 (row-major) or just by number.
Rows and columns are numbered from 1 on the command line.`,
}

var (
	equalCols string
	packName  string
)

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, done, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			return printLayout(cmd.OutOrStdout(), ws.Snapshot())
		},
	})

	layoutCmd.AddCommand(&cobra.Command{
		Use:   "swap PANEL PANEL",
		Short: "Exchange the positions of two panels",
		Args:  cobra.ExactArgs(2),
		RunE: panelOp("swap", 2, func(ctx context.Context, ws *workspace.Workspace, ids []string, _ []string) (bool, error) {
			return ws.Swap(ctx, ids[0], ids[1])
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "merge PANEL",
		Short: "Merge the panel's whole column into it",
		Args:  cobra.ExactArgs(1),
		RunE: panelOp("merge", 1, func(ctx context.Context, ws *workspace.Workspace, ids []string, _ []string) (bool, error) {
			return ws.MergeColumn(ctx, ids[0])
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "unmerge PANEL",
		Short: "Split a merged panel back into its cells",
		Args:  cobra.ExactArgs(1),
		RunE: panelOp("unmerge", 1, func(ctx context.Context, ws *workspace.Workspace, ids []string, _ []string) (bool, error) {
			return ws.Unmerge(ctx, ids[0])
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "base PANEL",
		Short: "Toggle the base (navigation) panel",
		Args:  cobra.ExactArgs(1),
		RunE: panelOp("base", 1, func(ctx context.Context, ws *workspace.Workspace, ids []string, _ []string) (bool, error) {
			return ws.ToggleBase(ctx, ids[0])
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "content PANEL CATEGORY [VERSION]",
		Short: "Set what a panel shows (none, bible, coded_bible, commentary, lexicon)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: panelOp("content", 1, func(ctx context.Context, ws *workspace.Workspace, ids []string, rest []string) (bool, error) {
			cat := domain.PanelCategory(strings.ToLower(rest[0]))
			if !cat.Valid() {
				return false, fmt.Errorf("unknown category %q", rest[0])
			}
			version := ""
			if len(rest) > 1 {
				version = rest[1]
			}
			if offered := cfg.Versions(string(cat)); version != "" && len(offered) > 0 && !slices.Contains(offered, version) {
				return false, fmt.Errorf("version %q is not configured for %s (have %s)", version, cat, strings.Join(offered, ", "))
			}
			return ws.SetContent(ctx, ids[0], cat, version)
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "colors PANEL BACKGROUND TEXT",
		Short: "Set a panel's background and text colors",
		Args:  cobra.ExactArgs(3),
		RunE: panelOp("colors", 1, func(ctx context.Context, ws *workspace.Workspace, ids []string, rest []string) (bool, error) {
			return ws.SetColors(ctx, ids[0], rest[0], rest[1])
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "hide-col N",
		Short: "Hide column N, or show it again when hidden",
		Args:  cobra.ExactArgs(1),
		RunE: trackOp("toggle-column", layout.Cols, func(ws *workspace.Workspace) func(context.Context, int) (bool, error) {
			return ws.ToggleColumn
		}),
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "hide-row N",
		Short: "Hide row N, or show it again when hidden",
		Args:  cobra.ExactArgs(1),
		RunE: trackOp("toggle-row", layout.Rows, func(ws *workspace.Workspace) func(context.Context, int) (bool, error) {
			return ws.ToggleRow
		}),
	})

	widthsCmd := &cobra.Command{
		Use:   "widths [PERCENT...]",
		Short: "Set visible column widths; no arguments resets them to equal",
		Long: `Set the widths of the visible columns in percent, one value per visible column.
Values are scaled to sum to 100. Without arguments every column gets an equal share;
with --equal only the listed columns share their combined width.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, "widths", func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
				switch {
				case equalCols != "":
					cols, err := parseTracks(strings.Split(equalCols, ","), layout.Cols)
					if err != nil {
						return false, err
					}
					return ws.EqualizeWidths(ctx, cols)
				case len(args) == 0:
					return ws.ResetWidths(ctx)
				}
				sizes := make([]float64, 0, len(args))
				for _, a := range args {
					v, err := strconv.ParseFloat(a, 64)
					if err != nil {
						return false, fmt.Errorf("width %q: %w", a, err)
					}
					sizes = append(sizes, v)
				}
				return ws.SetWidths(ctx, sizes)
			})
		},
	}
	widthsCmd.Flags().StringVar(&equalCols, "equal", "", "comma separated columns to equalize, e.g. 1,2")
	layoutCmd.AddCommand(widthsCmd)

	layoutCmd.AddCommand(&cobra.Command{
		Use:   "position BOOK CHAPTER [VERSE]",
		Short: "Move the reading position",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums := make([]int, 3)
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid number %q", a)
				}
				nums[i] = n
			}
			if nums[2] == 0 {
				nums[2] = 1
			}
			return runOp(cmd, "position", func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
				return ws.SetPosition(ctx, nums[0], nums[1], nums[2]), nil
			})
		},
	})
	layoutCmd.AddCommand(&cobra.Command{
		Use:   "text-size N",
		Short: "Set the panel text size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid size %q", args[0])
			}
			return runOp(cmd, "text-size", func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
				return ws.SetTextSize(ctx, n), nil
			})
		},
	})

	packCmd := &cobra.Command{Use: "pack", Short: "Share layouts as zip archives"}
	packExport := &cobra.Command{
		Use:   "export FILE.zip",
		Short: "Write the current panel arrangement, contents and colors to a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, done, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			name := packName
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if err := layoutpack.Export(ws.Snapshot(), name, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", args[0])
			return nil
		},
	}
	packExport.Flags().StringVar(&packName, "name", "", "pack name; defaults to the file name")
	packCmd.AddCommand(packExport)
	packCmd.AddCommand(&cobra.Command{
		Use:   "install FILE.zip",
		Short: "Replace the panel grid with a pack's; hidden rows and columns are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, "pack-install", func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
				return layoutpack.Install(ctx, ws, args[0])
			})
		},
	})
	layoutCmd.AddCommand(packCmd)

	simple := []struct {
		use, short, op string
		fn             func(*workspace.Workspace) func(context.Context) (bool, error)
	}{
		{"reset", "Restore the initial layout", "defaults", func(ws *workspace.Workspace) func(context.Context) (bool, error) { return ws.Defaults }},
		{"undo", "Undo the last layout change", "undo", func(ws *workspace.Workspace) func(context.Context) (bool, error) { return ws.Undo }},
		{"redo", "Redo the last undone change", "redo", func(ws *workspace.Workspace) func(context.Context) (bool, error) { return ws.Redo }},
	}
	for _, s := range simple {
		s := s
		layoutCmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOp(cmd, s.op, func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
					return s.fn(ws)(ctx)
				})
			},
		})
	}
}

// runOp opens the workspace, applies fn and prints the resulting layout.
func runOp(cmd *cobra.Command, op string, fn func(context.Context, *workspace.Workspace) (bool, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ws, done, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer done()

	changed, err := fn(ctx, ws)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s := ws.Snapshot()
	if changed {
		telemetry.Default().Layout(op, s.Stats())
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: no change\n", op)
	}
	return printLayout(cmd.OutOrStdout(), s)
}

// panelOp resolves the first n arguments as panel ids and passes the rest through.
func panelOp(op string, n int, fn func(ctx context.Context, ws *workspace.Workspace, ids, rest []string) (bool, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ids := make([]string, n)
		for i := 0; i < n; i++ {
			id, err := parsePanel(args[i])
			if err != nil {
				return err
			}
			ids[i] = id
		}
		return runOp(cmd, op, func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
			return fn(ctx, ws, ids, args[n:])
		})
	}
}

func trackOp(op string, limit int, pick func(*workspace.Workspace) func(context.Context, int) (bool, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		tracks, err := parseTracks(args, limit)
		if err != nil {
			return err
		}
		return runOp(cmd, op, func(ctx context.Context, ws *workspace.Workspace) (bool, error) {
			return pick(ws)(ctx, tracks[0])
		})
	}
}

// parsePanel accepts "panel-3" or "3".
func parsePanel(s string) (string, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(strings.TrimPrefix(s, "panel-"))
	if err != nil || n < 0 || n >= layout.MaxPanels {
		return "", fmt.Errorf("invalid panel %q (want panel-0 .. panel-%d)", s, layout.MaxPanels-1)
	}
	return layout.PanelID(n), nil
}

// parseTracks converts 1-based row or column numbers to 0-based indices.
func parseTracks(args []string, limit int) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil || n < 1 || n > limit {
			return nil, fmt.Errorf("invalid track %q (want 1..%d)", a, limit)
		}
		out = append(out, n-1)
	}
	if len(out) == 0 {
		return nil, errors.New("no track given")
	}
	return out, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// printLayout writes the compacted grid as a table, or the snapshot as JSON.
func printLayout(w io.Writer, s workspace.Snapshot) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	_, err := fmt.Fprintln(w, layoutTable(s))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, layoutSummary(s))
	return err
}

func layoutTable(s workspace.Snapshot) string {
	cols, rows := s.VisibleColumnCount(), s.VisibleRowCount()
	if cols == 0 || rows == 0 {
		return "(no visible panels)"
	}
	cells := make([][]string, rows)
	for r := range cells {
		cells[r] = make([]string, cols)
	}
	for _, c := range s.Cells() {
		p := c.Placement
		for r := p.RowStart - 1; r < p.RowEnd-1 && r < rows; r++ {
			for col := p.ColStart - 1; col < p.ColEnd-1 && col < cols; col++ {
				if r == p.RowStart-1 && col == p.ColStart-1 {
					cells[r][col] = cellLabel(c)
				} else {
					cells[r][col] = "  ^ " + c.Panel.ID
				}
			}
		}
	}
	headers := make([]string, cols)
	for i := range headers {
		w := 0.0
		if i < len(s.ColumnSizes) {
			w = s.ColumnSizes[i]
		}
		headers[i] = fmt.Sprintf("%.1f%%", w)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func cellLabel(c workspace.Cell) string {
	var b strings.Builder
	if c.Settings.IsBase {
		b.WriteString("* ")
	}
	b.WriteString(c.Panel.ID)
	if c.Panel.State == domain.StateMaster {
		b.WriteString(" (merged)")
	}
	if c.Settings.Category != "" && c.Settings.Category != domain.CategoryNone {
		fmt.Fprintf(&b, "\n%s %s", c.Settings.Category, c.Settings.Version)
	}
	return b.String()
}

func layoutSummary(s workspace.Snapshot) string {
	oneBased := func(xs []int) []string {
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			out = append(out, strconv.Itoa(x+1))
		}
		return out
	}
	parts := []string{fmt.Sprintf("position %d:%d:%d", s.Position.Book, s.Position.Chapter, s.Position.Verse)}
	if len(s.HiddenCols) > 0 {
		parts = append(parts, "hidden cols "+strings.Join(oneBased(s.HiddenCols), ","))
	}
	if len(s.HiddenRows) > 0 {
		parts = append(parts, "hidden rows "+strings.Join(oneBased(s.HiddenRows), ","))
	}
	if s.CanUndo {
		parts = append(parts, "undo available")
	}
	return strings.Join(parts, "  |  ")
}
