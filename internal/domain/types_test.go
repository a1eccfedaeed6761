/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPanelLayoutJSONOmitsOptionalFields(t *testing.T) {
	p := PanelLayout{ID: "panel-0", Row: 0, Col: 0, State: StateNormal}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "originalState") || strings.Contains(s, "mergeRange") {
		t.Fatalf("optional fields should be omitted when nil: %s", s)
	}
}

func TestPanelLayoutJSONKeepsMergeRange(t *testing.T) {
	p := PanelLayout{
		ID: "panel-0", State: StateMaster,
		OriginalState: StatePtr(StateMaster),
		MergeRange:    &MergeRange{StartRow: 0, EndRow: 1},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got PanelLayout
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.MergeRange == nil || got.MergeRange.EndRow != 1 {
		t.Fatalf("merge range lost: %+v", got)
	}
	if got.OriginalState == nil || *got.OriginalState != StateMaster {
		t.Fatalf("original state lost: %+v", got)
	}
}

func TestMergeRangeContainsIsInclusive(t *testing.T) {
	r := MergeRange{StartRow: 0, StartCol: 2, EndRow: 1, EndCol: 2}
	if !r.Contains(0, 2) || !r.Contains(1, 2) {
		t.Fatalf("corners must be inside")
	}
	if r.Contains(0, 1) || r.Contains(2, 2) || r.Contains(0, 3) {
		t.Fatalf("outside cells reported inside")
	}
}

func TestEnumsValidate(t *testing.T) {
	if !StateHidden.Valid() || PanelState("gone").Valid() {
		t.Fatalf("PanelState.Valid mismatch")
	}
	if !CategoryLexicon.Valid() || PanelCategory("").Valid() {
		t.Fatalf("PanelCategory.Valid mismatch")
	}
}
