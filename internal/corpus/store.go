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
	"fmt"
	"log/slog"
	"strings"

	"gracenote/internal/domain"
	glog "gracenote/internal/log"
)

// Options tune a Store.
type Options struct {
	PageSize int    // default page size for searches
	Hymnal   string // hymn collection name; "hymnal" when empty
}

// table is one resolved collection: the handle, the table name and, for shared databases, the column that
// selects the version.
type table struct {
	db       *sql.DB
	name     string
	scopeCol string
	scope    string
	numbered bool
}

// where starts a builder scoped to the table's version.
func (t table) where() (*builder, []string) {
	b := &builder{numbered: t.numbered}
	var conds []string
	if t.scopeCol != "" {
		conds = append(conds, t.scopeCol+" = "+b.place(t.scope))
	}
	return b, conds
}

type source interface {
	table(ctx context.Context, kind Kind, version string) (table, error)
	close() error
}

// Store implements Repository over a source.
type Store struct {
	src      source
	pageSize int
	hymnal   string
	log      *slog.Logger
}

var _ Repository = (*Store)(nil)

func newStore(src source, opts Options, backend string) *Store {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if strings.TrimSpace(opts.Hymnal) == "" {
		opts.Hymnal = "hymnal"
	}
	return &Store{
		src:      src,
		pageSize: opts.PageSize,
		hymnal:   opts.Hymnal,
		log:      glog.WithComponent("corpus").With(slog.String("backend", backend)),
	}
}

func (s *Store) Close() error { return s.src.close() }

func (s *Store) FindBible(ctx context.Context, version string, book, chapter int) ([]domain.Bible, error) {
	return s.chapter(ctx, KindBible, version, book, chapter)
}

func (s *Store) FindCommentary(ctx context.Context, version string, book, chapter int) ([]domain.Commentary, error) {
	return s.chapter(ctx, KindCommentary, version, book, chapter)
}

func (s *Store) chapter(ctx context.Context, kind Kind, version string, book, chapter int) ([]domain.Verse, error) {
	t, err := s.src.table(ctx, kind, version)
	if err != nil {
		return nil, err
	}
	b, conds := t.where()
	conds = append(conds, "book = "+b.place(book), "chapter = "+b.place(chapter))
	q := "SELECT id, book, chapter, verse, btext FROM " + t.name + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY verse, id"
	rows, err := t.db.QueryContext(ctx, q, b.args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	return scanVerses(rows)
}

func (s *Store) FindLexicon(ctx context.Context, version, code string) ([]domain.Lexicon, error) {
	t, err := s.src.table(ctx, KindLexicon, version)
	if err != nil {
		return nil, err
	}
	b, conds := t.where()
	conds = append(conds, "code = "+b.place(strings.ToUpper(strings.TrimSpace(code))))
	q := "SELECT id, code, word, definition FROM " + t.name + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY id"
	rows, err := t.db.QueryContext(ctx, q, b.args...)
	if err != nil {
		return nil, fmt.Errorf("query lexicon: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Lexicon{}
	for rows.Next() {
		var l domain.Lexicon
		if err := rows.Scan(&l.ID, &l.Code, &l.Word, &l.Definition); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) FindKeywordFromBible(ctx context.Context, q KeywordQuery) (domain.PagedResult[domain.Bible], error) {
	return s.searchVerses(ctx, q.Version, q.Books, q.Keywords, q.Match, q.Page, q.PageSize, identity)
}

func (s *Store) FindLexicalCodeFromBible(ctx context.Context, q CodeQuery) (domain.PagedResult[domain.Bible], error) {
	return s.searchVerses(ctx, q.Version, q.Books, q.Codes, q.Match, q.Page, q.PageSize, codeTag)
}

func (s *Store) searchVerses(ctx context.Context, version string, books domain.BookRange, terms []string,
	match domain.MatchType, page, size int, wrap func(string) string,
) (domain.PagedResult[domain.Bible], error) {
	page, size, offset := paging(page, size, s.pageSize)
	t, err := s.src.table(ctx, KindBible, version)
	if err != nil {
		return domain.PagedResult[domain.Bible]{}, err
	}
	b, conds := t.where()
	clause := b.termsClause("btext", terms, match, wrap)
	if clause == "" {
		return emptyPage[domain.Bible](page), nil
	}
	conds = append(conds, clause)
	if c := b.bookClause(books); c != "" {
		conds = append(conds, c)
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+where, b.args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Bible]{}, fmt.Errorf("count bible: %w", err)
	}
	q := "SELECT id, book, chapter, verse, btext FROM " + t.name + where + " ORDER BY id LIMIT " + b.place(size) +
		" OFFSET " + b.place(offset)
	rows, err := t.db.QueryContext(ctx, q, b.args...)
	if err != nil {
		return domain.PagedResult[domain.Bible]{}, fmt.Errorf("search bible: %w", err)
	}
	data, err := scanVerses(rows)
	if err != nil {
		return domain.PagedResult[domain.Bible]{}, err
	}
	s.log.Debug("search", slog.String("version", version), slog.Int("terms", len(terms)), slog.Int("total", total))
	return domain.PagedResult[domain.Bible]{
		Data:        data,
		TotalCount:  total,
		CurrentPage: page,
		TotalPages:  totalPages(total, size),
	}, nil
}

func (s *Store) FindHymn(ctx context.Context, q HymnQuery) ([]domain.Hymn, error) {
	t, err := s.src.table(ctx, KindHymn, s.hymnal)
	if err != nil {
		return nil, err
	}
	b, conds := t.where()
	if v := strings.TrimSpace(q.Number); v != "" {
		conds = append(conds, "hymn_number = "+b.place(v))
	}
	if v := strings.TrimSpace(q.Title); v != "" {
		conds = append(conds, b.contains("title", v))
	}
	if v := strings.TrimSpace(q.Lyrics); v != "" {
		conds = append(conds, b.contains("lyrics", v))
	}
	sqlText := "SELECT id, hymn_number, title, lyrics FROM " + t.name
	if len(conds) > 0 {
		sqlText += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := t.db.QueryContext(ctx, sqlText+" ORDER BY id", b.args...)
	if err != nil {
		return nil, fmt.Errorf("query hymn: %w", err)
	}
	return scanHymns(rows)
}

func (s *Store) FindKeywordFromHymn(ctx context.Context, q HymnKeywordQuery) (domain.PagedResult[domain.Hymn], error) {
	page, size, offset := paging(q.Page, q.PageSize, s.pageSize)
	col := "title"
	if q.Target == HymnLyrics {
		col = "lyrics"
	}
	t, err := s.src.table(ctx, KindHymn, s.hymnal)
	if err != nil {
		return domain.PagedResult[domain.Hymn]{}, err
	}
	b, conds := t.where()
	terms := b.termsClause(col, q.Keywords, q.Match, identity)
	if terms == "" {
		return emptyPage[domain.Hymn](page), nil
	}
	where := " WHERE " + strings.Join(append(conds, terms), " AND ")

	var total int
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+where, b.args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Hymn]{}, fmt.Errorf("count hymn: %w", err)
	}
	rows, err := t.db.QueryContext(ctx, "SELECT id, hymn_number, title, lyrics FROM "+t.name+where+
		" ORDER BY id LIMIT "+b.place(size)+" OFFSET "+b.place(offset), b.args...)
	if err != nil {
		return domain.PagedResult[domain.Hymn]{}, fmt.Errorf("search hymn: %w", err)
	}
	data, err := scanHymns(rows)
	if err != nil {
		return domain.PagedResult[domain.Hymn]{}, err
	}
	return domain.PagedResult[domain.Hymn]{
		Data:        data,
		TotalCount:  total,
		CurrentPage: page,
		TotalPages:  totalPages(total, size),
	}, nil
}

func scanVerses(rows *sql.Rows) ([]domain.Verse, error) {
	defer func() { _ = rows.Close() }()
	out := []domain.Verse{}
	for rows.Next() {
		var v domain.Verse
		if err := rows.Scan(&v.ID, &v.Book, &v.Chapter, &v.Verse, &v.Text); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanHymns(rows *sql.Rows) ([]domain.Hymn, error) {
	defer func() { _ = rows.Close() }()
	out := []domain.Hymn{}
	for rows.Next() {
		var h domain.Hymn
		if err := rows.Scan(&h.ID, &h.Number, &h.Title, &h.Lyrics); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
