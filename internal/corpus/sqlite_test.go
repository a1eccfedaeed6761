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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gracenote/internal/domain"
)

var seedVerses = []domain.Verse{
	{ID: 1, Book: 1, Chapter: 1, Verse: 1, Text: "In the beginning <WH7225> God created the heaven and the earth."},
	{ID: 2, Book: 1, Chapter: 1, Verse: 2, Text: "And the earth was without form <WH8414>, and void."},
	{ID: 3, Book: 1, Chapter: 1, Verse: 3, Text: "And God said, Let there be light: and there was light."},
	{ID: 4, Book: 1, Chapter: 2, Verse: 1, Text: "Thus the heavens and the earth were finished."},
	{ID: 5, Book: 43, Chapter: 1, Verse: 1, Text: "In the beginning <WG746> was the Word, and the Word was with God."},
	{ID: 6, Book: 43, Chapter: 3, Verse: 16, Text: "For God so loved the world <WG2889>."},
}

var seedHymns = []domain.Hymn{
	{ID: 1, Number: "1", Title: "Holy, Holy, Holy", Lyrics: "Lord God Almighty, early in the morning"},
	{ID: 2, Number: "2", Title: "Amazing Grace", Lyrics: "how sweet the sound that saved a wretch like me"},
	{ID: 3, Number: "3", Title: "Great Is Thy Faithfulness", Lyrics: "morning by morning new mercies I see"},
}

func execAll(t *testing.T, path string, stmts ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
}

func seedSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	verseTable := func(name string) []string {
		out := []string{fmt.Sprintf(`CREATE TABLE %s (id INTEGER PRIMARY KEY, book INTEGER, chapter INTEGER, verse INTEGER, btext TEXT)`, name)}
		for _, v := range seedVerses {
			out = append(out, fmt.Sprintf(`INSERT INTO %s VALUES (%d, %d, %d, %d, '%s')`, name, v.ID, v.Book, v.Chapter, v.Verse, v.Text))
		}
		return out
	}
	execAll(t, Path(dir, KindBible, "kjv"), verseTable("Bible")...)
	execAll(t, Path(dir, KindCommentary, "mh"), verseTable("Commentary")...)
	execAll(t, Path(dir, KindLexicon, "strongs"),
		`CREATE TABLE Lexicon (id INTEGER PRIMARY KEY, code TEXT, word TEXT, definition TEXT)`,
		`INSERT INTO Lexicon VALUES (1, 'H7225', 'reshith', 'beginning, chief')`,
		`INSERT INTO Lexicon VALUES (2, 'G746', 'arche', 'beginning, origin')`,
	)
	hymns := []string{`CREATE TABLE Hymn (id INTEGER PRIMARY KEY, hymn_number TEXT, title TEXT, lyrics TEXT)`}
	for _, h := range seedHymns {
		hymns = append(hymns, fmt.Sprintf(`INSERT INTO Hymn VALUES (%d, '%s', '%s', '%s')`, h.ID, h.Number, h.Title, h.Lyrics))
	}
	execAll(t, Path(dir, KindHymn, "hymnal"), hymns...)
	return dir
}

func openSQLiteForTest(t *testing.T) *Store {
	t.Helper()
	s := NewSQLite(seedSQLite(t), Options{})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func verseIDs(vs []domain.Verse) []int64 {
	out := make([]int64, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestSQLite_FindBibleChapter(t *testing.T) {
	s := openSQLiteForTest(t)
	got, err := s.FindBible(context.Background(), "kjv", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, verseIDs(got))

	com, err := s.FindCommentary(context.Background(), "mh", 43, 3)
	require.NoError(t, err)
	require.Len(t, com, 1)
	assert.Equal(t, 16, com[0].Verse)
}

func TestSQLite_UnknownVersion(t *testing.T) {
	s := openSQLiteForTest(t)
	_, err := s.FindBible(context.Background(), "nope", 1, 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.FindBible(context.Background(), "../kjv", 1, 1)
	assert.True(t, errors.Is(err, ErrInvalidVersion))
}

func TestSQLite_FindLexicon(t *testing.T) {
	s := openSQLiteForTest(t)
	got, err := s.FindLexicon(context.Background(), "strongs", " h7225 ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "reshith", got[0].Word)

	none, err := s.FindLexicon(context.Background(), "strongs", "H1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_KeywordSearch(t *testing.T) {
	s := openSQLiteForTest(t)
	ctx := context.Background()

	all, err := s.FindKeywordFromBible(ctx, KeywordQuery{Version: "kjv", Keywords: []string{"beginning", "God"}, Match: domain.MatchAll})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, verseIDs(all.Data))
	assert.Equal(t, 2, all.TotalCount)
	assert.Equal(t, 1, all.CurrentPage)
	assert.Equal(t, 1, all.TotalPages)

	anyRes, err := s.FindKeywordFromBible(ctx, KeywordQuery{Version: "kjv", Keywords: []string{"light", "loved"}, Match: domain.MatchAny})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 6}, verseIDs(anyRes.Data))

	// The book range applies to every OR branch.
	ranged, err := s.FindKeywordFromBible(ctx, KeywordQuery{
		Version: "kjv", Keywords: []string{"light", "loved"}, Match: domain.MatchAny,
		Books: domain.BookRange{From: 40, To: 66},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{6}, verseIDs(ranged.Data))
}

func TestSQLite_KeywordWildcardsAreLiteral(t *testing.T) {
	s := openSQLiteForTest(t)
	ctx := context.Background()
	for _, kw := range []string{"%", "_", "th_"} {
		res, err := s.FindKeywordFromBible(ctx, KeywordQuery{Version: "kjv", Keywords: []string{kw}, Match: domain.MatchAll})
		require.NoError(t, err)
		assert.Zero(t, res.TotalCount, kw)
	}
	hymns, err := s.FindHymn(ctx, HymnQuery{Title: "%"})
	require.NoError(t, err)
	assert.Empty(t, hymns)
}

func TestSQLite_KeywordPaging(t *testing.T) {
	s := openSQLiteForTest(t)
	ctx := context.Background()
	q := KeywordQuery{Version: "kjv", Keywords: []string{"the"}, Match: domain.MatchAll, PageSize: 4}

	p1, err := s.FindKeywordFromBible(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 6, p1.TotalCount)
	assert.Equal(t, 2, p1.TotalPages)
	assert.Len(t, p1.Data, 4)

	q.Page = 2
	p2, err := s.FindKeywordFromBible(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, verseIDs(p2.Data))
	assert.Equal(t, 2, p2.CurrentPage)
}

func TestSQLite_EmptyKeywordsSkipQuery(t *testing.T) {
	s := openSQLiteForTest(t)
	got, err := s.FindKeywordFromBible(context.Background(), KeywordQuery{Version: "kjv", Keywords: []string{"", "  "}, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.PagedResult[domain.Bible]{Data: []domain.Bible{}, CurrentPage: 3}, got)
}

func TestSQLite_LexicalCodeSearch(t *testing.T) {
	s := openSQLiteForTest(t)
	ctx := context.Background()
	got, err := s.FindLexicalCodeFromBible(ctx, CodeQuery{Version: "kjv", Codes: []string{" h7225", "g746 "}, Match: domain.MatchAny})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, verseIDs(got.Data))

	both, err := s.FindLexicalCodeFromBible(ctx, CodeQuery{Version: "kjv", Codes: []string{"H7225", "G746"}, Match: domain.MatchAll})
	require.NoError(t, err)
	assert.Empty(t, both.Data)
	assert.Equal(t, 0, both.TotalPages)
}

func TestSQLite_Hymns(t *testing.T) {
	s := openSQLiteForTest(t)
	ctx := context.Background()

	byNumber, err := s.FindHymn(ctx, HymnQuery{Number: "2"})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, "Amazing Grace", byNumber[0].Title)

	everything, err := s.FindHymn(ctx, HymnQuery{})
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	lyrics, err := s.FindKeywordFromHymn(ctx, HymnKeywordQuery{Target: HymnLyrics, Keywords: []string{"morning"}, Match: domain.MatchAll})
	require.NoError(t, err)
	assert.Equal(t, 2, lyrics.TotalCount)

	titles, err := s.FindKeywordFromHymn(ctx, HymnKeywordQuery{Target: HymnTitle, Keywords: []string{"morning"}})
	require.NoError(t, err)
	assert.Equal(t, 0, titles.TotalCount)
}

func TestVersions(t *testing.T) {
	dir := seedSQLite(t)
	got, err := Versions(dir, KindBible)
	require.NoError(t, err)
	assert.Equal(t, []string{"kjv"}, got)

	none, err := Versions(t.TempDir(), KindBible)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPagingAndClauses(t *testing.T) {
	page, size, off := paging(0, 0, 25)
	assert.Equal(t, []int{1, 25, 0}, []int{page, size, off})
	page, size, off = paging(3, 10, 25)
	assert.Equal(t, []int{3, 10, 20}, []int{page, size, off})
	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 3, totalPages(21, 10))

	b := &builder{numbered: true}
	clause := b.termsClause("btext", []string{"a", "", "b"}, domain.MatchAny, identity)
	assert.Equal(t, `(btext ILIKE $1 ESCAPE '\' OR btext ILIKE $2 ESCAPE '\')`, clause)
	assert.Equal(t, "book BETWEEN $3 AND $4", b.bookClause(domain.BookRange{From: 5, To: 2}))
	assert.Equal(t, []any{"%a%", "%b%", 2, 5}, b.args)

	lite := &builder{}
	assert.Equal(t, "", lite.bookClause(domain.BookRange{From: 1}))
	assert.Equal(t, `(btext LIKE ? ESCAPE '\' AND btext LIKE ? ESCAPE '\')`, lite.termsClause("btext", []string{"x", "y"}, domain.MatchAll, codeTag))
	assert.Equal(t, []any{"%<WX>%", "%<WY>%"}, lite.args)

	esc := &builder{}
	esc.termsClause("btext", []string{`50%_off\`}, domain.MatchAll, identity)
	assert.Equal(t, []any{`%50\%\_off\\%`}, esc.args)
}

func TestChapterByCategory(t *testing.T) {
	ctx := context.Background()
	s := openSQLiteForTest(t)

	bible, err := Chapter(ctx, s, domain.CategoryCodedBible, "kjv", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, verseIDs(bible))

	com, err := Chapter(ctx, s, domain.CategoryCommentary, "mh", 43, 3)
	require.NoError(t, err)
	lines := Lines(com)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "16 "))

	none, err := Chapter(ctx, s, domain.CategoryLexicon, "strongs", 1, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	none, err = Chapter(ctx, s, domain.CategoryBible, "", 1, 1)
	require.NoError(t, err)
	assert.Nil(t, none)
}
