/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model shared by the layout engine, the persistence adapter,
// the query service and the renderers. JSON tags match the persisted key-value documents.

// PanelState is the layout state of one grid cell.
type PanelState string

const (
	StateNormal PanelState = "normal"
	// StateMaster marks the single visible representative of a merged group.
	StateMaster PanelState = "master"
	StateHidden PanelState = "hidden"
)

// Valid reports whether s is one of the known states.
func (s PanelState) Valid() bool {
	switch s {
	case StateNormal, StateMaster, StateHidden:
		return true
	}
	return false
}

// StatePtr returns a pointer to a copy of s, used for the optional OriginalState field.
func StatePtr(s PanelState) *PanelState { return &s }

// MergeRange is the inclusive rectangle a master panel covers.
type MergeRange struct {
	StartRow int `json:"startRow"`
	StartCol int `json:"startCol"`
	EndRow   int `json:"endRow"`
	EndCol   int `json:"endCol"`
}

// Contains reports whether (row, col) lies inside the rectangle.
func (r MergeRange) Contains(row, col int) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

// PanelLayout is one grid cell's layout record.
// OriginalState is set only while the panel is hidden by the visibility policy.
// MergeRange is set only on masters (or on a master that is currently hidden by policy).
type PanelLayout struct {
	ID            string      `json:"id"`
	Row           int         `json:"row"`
	Col           int         `json:"col"`
	State         PanelState  `json:"state"`
	OriginalState *PanelState `json:"originalState,omitempty"`
	MergeRange    *MergeRange `json:"mergeRange,omitempty"`
}

// PanelCategory is the content type shown by a panel.
type PanelCategory string

const (
	CategoryBible      PanelCategory = "bible"
	CategoryCommentary PanelCategory = "commentary"
	CategoryCodedBible PanelCategory = "coded_bible"
	CategoryLexicon    PanelCategory = "lexicon"
	CategoryNone       PanelCategory = "none"
)

// Categories lists the selectable categories in menu order.
var Categories = []PanelCategory{CategoryBible, CategoryCommentary, CategoryCodedBible, CategoryLexicon, CategoryNone}

// Valid reports whether c is a known category.
func (c PanelCategory) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// PanelSettings is the per-panel content configuration. It is keyed by panel id and travels with the id
// when panels are swapped.
type PanelSettings struct {
	ID              string        `json:"id"`
	IsBase          bool          `json:"isBase"`
	Category        PanelCategory `json:"category"`
	Version         string        `json:"version"`
	BackgroundColor string        `json:"backgroundColor"`
	TextColor       string        `json:"textColor"`
}

// PanelGrid is the whole persisted layout: exactly Rows*Cols panels and one settings entry per panel id.
type PanelGrid struct {
	Panels   []PanelLayout            `json:"panels"`
	Settings map[string]PanelSettings `json:"settings"`
}

// Corpus records returned by the query service.

type Verse struct {
	ID      int64  `json:"id"`
	Book    int    `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"btext"`
}

// Bible and Commentary share the verse shape.
type (
	Bible      = Verse
	Commentary = Verse
)

type Lexicon struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

type Hymn struct {
	ID     int64  `json:"id"`
	Number string `json:"hymn_number"`
	Title  string `json:"title"`
	Lyrics string `json:"lyrics"`
}

// PagedResult is one page of a paginated query.
type PagedResult[T any] struct {
	Data        []T `json:"data"`
	TotalCount  int `json:"totalCount"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// MatchType selects how multiple search terms combine.
type MatchType string

const (
	MatchAll MatchType = "all"
	MatchAny MatchType = "any"
)

// BookRange is an inclusive book number range; zero values mean unbounded.
type BookRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Position is the reading position driven by the base panel.
type Position struct {
	Book    int `json:"book"`
	Chapter int `json:"chapter"`
	Verse   int `json:"verse"`
}
