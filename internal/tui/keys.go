/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Grab, Cancel          key.Binding
	Merge, Unmerge, Base  key.Binding
	HideCol, HideRow      key.Binding
	ShowAll               key.Binding
	ColumnN               key.Binding
	Equalize              key.Binding
	Undo, Redo            key.Binding
	Help, Quit            key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Grab:     key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "grab/drop")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		Merge:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "merge column")),
		Unmerge:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unmerge")),
		Base:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "toggle base")),
		HideCol:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "hide column")),
		HideRow:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "hide row")),
		ShowAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "show all")),
		ColumnN:  key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "toggle column")),
		Equalize: key.NewBinding(key.WithKeys("="), key.WithHelp("=", "equal widths")),
		Undo:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "undo")),
		Redo:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "redo")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Merge, k.HideCol, k.Undo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Grab, k.Cancel, k.Merge, k.Unmerge, k.Base},
		{k.HideCol, k.HideRow, k.ShowAll, k.ColumnN, k.Equalize},
		{k.Undo, k.Redo, k.Help, k.Quit},
	}
}
