/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"

	"boardcanvas/internal/vector"
)

// ContextMenu is the element menu anchored inside the canvas container.
type ContextMenu struct {
	Visible bool
	// Pos is relative to the container's top-left corner.
	Pos vector.Pt
}

// MenuAction is an entry of the context menu.
type MenuAction int

const (
	MenuCopy MenuAction = iota + 1
	MenuCut
	MenuDuplicate
	MenuPaste
	MenuDelete
)

// MenuActions lists the entries in display order.
var MenuActions = []MenuAction{MenuCopy, MenuCut, MenuDuplicate, MenuPaste, MenuDelete}

func (a MenuAction) String() string {
	switch a {
	case MenuCopy:
		return "Copy"
	case MenuCut:
		return "Cut"
	case MenuDuplicate:
		return "Duplicate"
	case MenuPaste:
		return "Paste"
	case MenuDelete:
		return "Delete"
	default:
		return fmt.Sprintf("MenuAction(%d)", int(a))
	}
}

// Menu returns the context menu state. It is never visible with an empty selection.
func (e *Engine) Menu() ContextMenu { return e.menu }

// CloseMenu hides the context menu.
func (e *Engine) CloseMenu() { e.closeMenu() }

func (e *Engine) openMenu(client vector.Pt) {
	if e.selection.Len() == 0 {
		return
	}
	e.menu = ContextMenu{Visible: true, Pos: client.Sub(e.container.Min())}
}

func (e *Engine) closeMenu() { e.menu.Visible = false }

// syncMenu hides the menu once nothing is selected any more.
func (e *Engine) syncMenu() {
	if e.selection.Len() == 0 {
		e.closeMenu()
	}
}

// RunMenuAction applies a menu entry to the current selection and closes the menu.
func (e *Engine) RunMenuAction(a MenuAction) error {
	defer e.closeMenu()
	ids := e.selection.IDs()
	switch a {
	case MenuCopy:
		_, err := e.Copy(ids)
		return err
	case MenuCut:
		_, err := e.Cut(ids)
		return err
	case MenuDuplicate:
		return e.Duplicate(ids)
	case MenuPaste:
		return e.Paste()
	case MenuDelete:
		e.DeleteMany(ids)
		return nil
	default:
		return e.invalid("menu_action", ErrInvalidGesture, "unknown action %d", int(a))
	}
}
