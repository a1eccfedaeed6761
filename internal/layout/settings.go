/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "gracenote/internal/domain"

// Settings operations are keyed by panel id and never look at the layout. Each returns a fresh map; an unknown
// id returns an unchanged copy.

// ToggleBase flips the base flag of id and clears it everywhere else, so at most one panel is the base.
func ToggleBase(settings map[string]domain.PanelSettings, id string) map[string]domain.PanelSettings {
	out := CloneSettings(settings)
	if _, ok := out[id]; !ok {
		return out
	}
	for k, s := range out {
		if k == id {
			s.IsBase = !s.IsBase
		} else {
			s.IsBase = false
		}
		out[k] = s
	}
	return out
}

// BaseID returns the id of the base panel, if any.
func BaseID(settings map[string]domain.PanelSettings) (string, bool) {
	for k, s := range settings {
		if s.IsBase {
			return k, true
		}
	}
	return "", false
}

// SetContent assigns the category and version shown by id. Unknown categories are ignored.
func SetContent(settings map[string]domain.PanelSettings, id string, category domain.PanelCategory, version string) map[string]domain.PanelSettings {
	out := CloneSettings(settings)
	s, ok := out[id]
	if !ok || !category.Valid() {
		return out
	}
	s.Category = category
	s.Version = version
	if category == domain.CategoryNone {
		s.Version = ""
	}
	out[id] = s
	return out
}

// SetColors sets the background and text colours of id. Empty values keep the current colour.
func SetColors(settings map[string]domain.PanelSettings, id, background, text string) map[string]domain.PanelSettings {
	out := CloneSettings(settings)
	s, ok := out[id]
	if !ok {
		return out
	}
	if background != "" {
		s.BackgroundColor = background
	}
	if text != "" {
		s.TextColor = text
	}
	out[id] = s
	return out
}
