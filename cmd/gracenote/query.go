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
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gracenote/internal/corpus"
	"gracenote/internal/domain"
)

var (
	queryVersion string
	matchAny     bool
	bookFrom     int
	bookTo       int
	page         int
	pageSize     int
	hymnNumber   string
	hymnTitle    string
	hymnLyrics   string
	hymnIn       string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a version by keywords or lexical codes",
}

func init() {
	rootCmd.AddCommand(searchCmd)

	keywordCmd := &cobra.Command{
		Use:   "keyword WORD...",
		Short: "Find verses containing the words",
		Args:  cobra.MinimumNArgs(1),
		RunE: withCorpus(func(ctx context.Context, cmd *cobra.Command, repo corpus.Repository, args []string) error {
			version, err := resolveVersion(ctx)
			if err != nil {
				return err
			}
			res, err := repo.FindKeywordFromBible(ctx, corpus.KeywordQuery{
				Version:  version,
				Books:    domain.BookRange{From: bookFrom, To: bookTo},
				Keywords: args,
				Match:    matchType(),
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			return printVerses(cmd.OutOrStdout(), res)
		}),
	}
	codesCmd := &cobra.Command{
		Use:   "codes CODE...",
		Short: "Find verses tagged with Strong's codes, e.g. H7225 G746",
		Args:  cobra.MinimumNArgs(1),
		RunE: withCorpus(func(ctx context.Context, cmd *cobra.Command, repo corpus.Repository, args []string) error {
			version, err := resolveVersion(ctx)
			if err != nil {
				return err
			}
			res, err := repo.FindLexicalCodeFromBible(ctx, corpus.CodeQuery{
				Version:  version,
				Books:    domain.BookRange{From: bookFrom, To: bookTo},
				Codes:    args,
				Match:    matchType(),
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			return printVerses(cmd.OutOrStdout(), res)
		}),
	}
	for _, c := range []*cobra.Command{keywordCmd, codesCmd} {
		f := c.Flags()
		f.StringVar(&queryVersion, "version", "", "version to search; defaults to the base panel's version")
		f.BoolVar(&matchAny, "any", false, "match any term instead of all terms")
		f.IntVar(&bookFrom, "from", 0, "first book number")
		f.IntVar(&bookTo, "to", 0, "last book number")
		f.IntVar(&page, "page", 1, "result page")
		f.IntVar(&pageSize, "size", 0, "results per page")
		searchCmd.AddCommand(c)
	}

	readCmd := &cobra.Command{
		Use:   "read [BOOK CHAPTER]",
		Short: "Print a chapter, by default at the reading position",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errors.New("want no arguments or BOOK CHAPTER")
			}
			return nil
		},
		RunE: withCorpus(func(ctx context.Context, cmd *cobra.Command, repo corpus.Repository, args []string) error {
			ws, done, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer done()
			s := ws.Snapshot()
			book, chapter := s.Position.Book, s.Position.Chapter
			if len(args) == 2 {
				if book, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid book %q", args[0])
				}
				if chapter, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid chapter %q", args[1])
				}
			}
			version, category := queryVersion, domain.CategoryBible
			if version == "" {
				st := s.Grid.Settings[s.BaseID]
				version, category = st.Version, st.Category
			}
			if version == "" {
				return errors.New("no version given and the base panel has none")
			}
			if category == domain.CategoryNone || category == domain.CategoryLexicon {
				category = domain.CategoryBible
			}
			vs, err := corpus.Chapter(ctx, repo, category, version, book, chapter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), vs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d:%d\n", version, book, chapter)
			for _, line := range corpus.Lines(vs) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}),
	}
	readCmd.Flags().StringVar(&queryVersion, "version", "", "bible version; defaults to the base panel's")
	rootCmd.AddCommand(readCmd)

	lexiconCmd := &cobra.Command{
		Use:   "lexicon CODE",
		Short: "Look up a Strong's code",
		Args:  cobra.ExactArgs(1),
		RunE: withCorpus(func(ctx context.Context, cmd *cobra.Command, repo corpus.Repository, args []string) error {
			version := queryVersion
			if version == "" {
				if vs := cfg.Versions(string(domain.CategoryLexicon)); len(vs) > 0 {
					version = vs[0]
				}
			}
			entries, err := repo.FindLexicon(ctx, version, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entry found.")
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n  %s\n", e.Code, e.Word, e.Definition)
			}
			return nil
		}),
	}
	lexiconCmd.Flags().StringVar(&queryVersion, "version", "", "lexicon version; defaults to the first configured")
	rootCmd.AddCommand(lexiconCmd)

	hymnCmd := &cobra.Command{
		Use:   "hymn [WORD...]",
		Short: "Find hymns by number, title or lyrics",
		Long: `Without words, hymns are filtered by --number, --title and --lyrics (all must match).
With words, the --in field (title or lyrics) is searched and results are paged.`,
		RunE: withCorpus(func(ctx context.Context, cmd *cobra.Command, repo corpus.Repository, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				res, err := repo.FindKeywordFromHymn(ctx, corpus.HymnKeywordQuery{
					Target:   corpus.HymnTarget(hymnIn),
					Keywords: args,
					Match:    matchType(),
					Page:     page,
					PageSize: pageSize,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, res)
				}
				printHymns(out, res.Data)
				fmt.Fprintf(out, "page %d of %d (%d hymns)\n", res.CurrentPage, res.TotalPages, res.TotalCount)
				return nil
			}
			hs, err := repo.FindHymn(ctx, corpus.HymnQuery{Number: hymnNumber, Title: hymnTitle, Lyrics: hymnLyrics})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, hs)
			}
			printHymns(out, hs)
			return nil
		}),
	}
	hf := hymnCmd.Flags()
	hf.StringVar(&hymnNumber, "number", "", "hymn number")
	hf.StringVar(&hymnTitle, "title", "", "text contained in the title")
	hf.StringVar(&hymnLyrics, "lyrics", "", "text contained in the lyrics")
	hf.StringVar(&hymnIn, "in", string(corpus.HymnTitle), "field searched by words: title or lyrics")
	hf.BoolVar(&matchAny, "any", false, "match any word instead of all words")
	hf.IntVar(&page, "page", 1, "result page")
	hf.IntVar(&pageSize, "size", 0, "results per page")
	rootCmd.AddCommand(hymnCmd)
}

func withCorpus(fn func(context.Context, *cobra.Command, corpus.Repository, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, err := openCorpus(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()
		return fn(ctx, cmd, repo, args)
	}
}

// resolveVersion falls back to the base panel's version.
func resolveVersion(ctx context.Context) (string, error) {
	if queryVersion != "" {
		return queryVersion, nil
	}
	ws, done, err := openWorkspace(ctx)
	if err != nil {
		return "", err
	}
	defer done()
	s := ws.Snapshot()
	if v := s.Grid.Settings[s.BaseID].Version; v != "" {
		return v, nil
	}
	return "", errors.New("no --version given and the base panel has no version")
}

func matchType() domain.MatchType {
	if matchAny {
		return domain.MatchAny
	}
	return domain.MatchAll
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerses(w io.Writer, res domain.PagedResult[domain.Bible]) error {
	if jsonOutput {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range res.Data {
		fmt.Fprintf(tw, "%d:%d:%d\t%s\n", v.Book, v.Chapter, v.Verse, v.Text)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d verses)\n", res.CurrentPage, res.TotalPages, res.TotalCount)
	return err
}

func printHymns(w io.Writer, hs []domain.Hymn) {
	if len(hs) == 0 {
		fmt.Fprintln(w, "No hymns found.")
		return
	}
	for _, h := range hs {
		fmt.Fprintf(w, "%s. %s\n", h.Number, h.Title)
		if l := strings.TrimSpace(h.Lyrics); l != "" {
			fmt.Fprintf(w, "   %s\n", l)
		}
	}
}
