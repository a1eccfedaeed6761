/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package corpus answers text queries for the panels: chapters, commentary, lexicon entries, hymns and paged
// keyword or lexical-code searches. Results are ordered by row id; there is no relevance ranking.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gracenote/internal/domain"
)

// DefaultPageSize applies when a query leaves PageSize at zero.
const DefaultPageSize = 100

var (
	ErrNotFound       = errors.New("corpus: version not found")
	ErrInvalidVersion = errors.New("corpus: invalid version name")
)

// Kind names a corpus collection.
type Kind string

const (
	KindBible      Kind = "bible"
	KindCommentary Kind = "commentary"
	KindLexicon    Kind = "lexicon"
	KindHymn       Kind = "hymn"
)

// KeywordQuery searches verse text for keywords.
type KeywordQuery struct {
	Version  string
	Books    domain.BookRange
	Keywords []string
	Match    domain.MatchType
	Page     int
	PageSize int
}

// CodeQuery searches a coded edition for lexical codes. Codes are matched as <W{CODE}> tags.
type CodeQuery struct {
	Version  string
	Books    domain.BookRange
	Codes    []string
	Match    domain.MatchType
	Page     int
	PageSize int
}

// HymnQuery filters hymns; empty fields are ignored and the rest combine with AND.
type HymnQuery struct {
	Number string
	Title  string
	Lyrics string
}

// HymnTarget is the hymn column a keyword search runs against.
type HymnTarget string

const (
	HymnTitle  HymnTarget = "title"
	HymnLyrics HymnTarget = "lyrics"
)

type HymnKeywordQuery struct {
	Target   HymnTarget
	Keywords []string
	Match    domain.MatchType
	Page     int
	PageSize int
}

// Repository is the query service consumed by the panels.
type Repository interface {
	FindBible(ctx context.Context, version string, book, chapter int) ([]domain.Bible, error)
	FindCommentary(ctx context.Context, version string, book, chapter int) ([]domain.Commentary, error)
	FindLexicon(ctx context.Context, version, code string) ([]domain.Lexicon, error)
	FindKeywordFromBible(ctx context.Context, q KeywordQuery) (domain.PagedResult[domain.Bible], error)
	FindLexicalCodeFromBible(ctx context.Context, q CodeQuery) (domain.PagedResult[domain.Bible], error)
	FindHymn(ctx context.Context, q HymnQuery) ([]domain.Hymn, error)
	FindKeywordFromHymn(ctx context.Context, q HymnKeywordQuery) (domain.PagedResult[domain.Hymn], error)
	Close() error
}

// builder accumulates bind arguments. Postgres numbers its placeholders, SQLite does not.
type builder struct {
	args     []any
	numbered bool
}

func (b *builder) place(v any) string {
	b.args = append(b.args, v)
	if b.numbered {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

// like is case-insensitive on both backends; SQLite's LIKE already ignores ASCII case.
func (b *builder) like() string {
	if b.numbered {
		return "ILIKE"
	}
	return "LIKE"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// contains matches term anywhere in col. Wildcards in term are matched literally.
func (b *builder) contains(col, term string) string {
	return col + " " + b.like() + " " + b.place("%"+likeEscaper.Replace(term)+"%") + ` ESCAPE '\'`
}

// termsClause renders "(col LIKE a OP col LIKE b ...)" for non-blank terms; "" when none remain.
func (b *builder) termsClause(col string, terms []string, match domain.MatchType, wrap func(string) string) string {
	var parts []string
	for _, t := range terms {
		if strings.TrimSpace(t) == "" {
			continue
		}
		parts = append(parts, b.contains(col, wrap(t)))
	}
	if len(parts) == 0 {
		return ""
	}
	op := " AND "
	if match == domain.MatchAny {
		op = " OR "
	}
	return "(" + strings.Join(parts, op) + ")"
}

func (b *builder) bookClause(r domain.BookRange) string {
	if r.From <= 0 || r.To <= 0 {
		return ""
	}
	from, to := r.From, r.To
	if from > to {
		from, to = to, from
	}
	return "book BETWEEN " + b.place(from) + " AND " + b.place(to)
}

func identity(s string) string { return s }

// codeTag normalises a lexical code into its inline tag form.
func codeTag(s string) string { return "<W" + strings.ToUpper(strings.TrimSpace(s)) + ">" }

// paging normalises page and size and computes the offset.
func paging(page, size, def int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return page, size, (page - 1) * size
}

func totalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func emptyPage[T any](page int) domain.PagedResult[T] {
	return domain.PagedResult[T]{Data: []T{}, CurrentPage: page}
}

// validVersion rejects names that could escape the data directory.
func validVersion(v string) error {
	v = strings.TrimSpace(v)
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) || strings.Contains(v, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return nil
}

// Chapter returns the verses a panel of the given category shows for a chapter. Categories without chapter text
// and panels without a version yield nil.
func Chapter(ctx context.Context, r Repository, category domain.PanelCategory, version string, book, chapter int) ([]domain.Verse, error) {
	if r == nil || version == "" {
		return nil, nil
	}
	switch category {
	case domain.CategoryBible, domain.CategoryCodedBible:
		return r.FindBible(ctx, version, book, chapter)
	case domain.CategoryCommentary:
		return r.FindCommentary(ctx, version, book, chapter)
	}
	return nil, nil
}

// Lines formats verses as "N text" lines.
func Lines(vs []domain.Verse) []string {
	if vs == nil {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, fmt.Sprintf("%d %s", v.Verse, v.Text))
	}
	return out
}
