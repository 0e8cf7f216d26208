/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"slices"
	"testing"

	"boardcanvas/internal/vector"
)

func rightDown(pos vector.Pt, tgt Target) PointerEvent {
	return PointerEvent{Pos: pos, Target: tgt, Button: ButtonSecondary}
}

func TestMenuOpensRelativeToContainer(t *testing.T) {
	e, _ := newTestEngine()
	e.SetContainer(vector.R(100, 40, 800, 600))
	if err := e.RightClickSelect(2, vector.Pt{X: 150, Y: 90}); err != nil {
		t.Fatal(err)
	}
	m := e.Menu()
	if !m.Visible || m.Pos != (vector.Pt{X: 50, Y: 50}) {
		t.Fatalf("menu = %+v", m)
	}
}

func TestMenuFromDispatcherUsesSurfacePosition(t *testing.T) {
	e, _ := newTestEngine()
	e.SetContainer(vector.R(100, 40, 800, 600))
	_ = e.PointerDown(rightDown(vector.Pt{X: 15, Y: 25}, OnElement(1)))
	if m := e.Menu(); !m.Visible || m.Pos != (vector.Pt{X: 15, Y: 25}) {
		t.Fatalf("menu = %+v", m)
	}
	_ = e.PointerDown(rightDown(vector.Pt{X: 15, Y: 25}, OnBackground()))
	if e.Menu().Visible {
		t.Fatalf("right press on background should close the menu")
	}
}

func TestMenuClosesOnCanvasInteraction(t *testing.T) {
	cases := map[string]func(e *Engine){
		"left click element": func(e *Engine) { _ = e.ClickSelect(3, false) },
		"marquee start":      func(e *Engine) { _ = e.StartMarquee(vector.Pt{X: 500, Y: 500}) },
		"tool switch":        func(e *Engine) { e.SetTool(ToolPan) },
		"background press": func(e *Engine) {
			_ = e.PointerDown(down(vector.Pt{X: 500, Y: 500}, OnBackground()))
		},
		"menu action": func(e *Engine) { _ = e.RunMenuAction(MenuCopy) },
		"delete key":  func(e *Engine) { e.KeyDown("Delete") },
	}
	for name, act := range cases {
		e, _ := newTestEngine()
		_ = e.RightClickSelect(1, vector.Pt{})
		if !e.Menu().Visible {
			t.Fatalf("%s: menu did not open", name)
		}
		act(e)
		if e.Menu().Visible {
			t.Errorf("%s: menu still visible", name)
		}
		e.Wait()
	}
}

func TestMenuClickDoesNotReachCanvas(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.ClickSelect(1, false)
	_ = e.ClickSelect(2, true)
	_ = e.RightClickSelect(2, vector.Pt{X: 3, Y: 3})
	_ = e.PointerDown(down(vector.Pt{X: 5, Y: 5}, OnMenu()))
	_ = e.PointerUp(down(vector.Pt{X: 5, Y: 5}, OnMenu()))
	if !e.Menu().Visible || !slices.Equal(e.Selected(), ids(1, 2)) || e.Marquee().Active {
		t.Fatalf("menu press leaked to the canvas: menu=%+v sel=%v", e.Menu(), e.Selected())
	}
}

func TestMenuActionsApplyToSelection(t *testing.T) {
	e, fs := newTestEngine()
	_ = e.ClickSelect(1, false)
	_ = e.ClickSelect(2, true)
	_ = e.RightClickSelect(1, vector.Pt{})

	if err := e.RunMenuAction(MenuDuplicate); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	if e.Len() != 5 || len(fs.ops("create")) != 2 {
		t.Fatalf("duplicate via menu: Len=%d creates=%d", e.Len(), len(fs.ops("create")))
	}
	_ = e.RightClickSelect(3, vector.Pt{})
	if err := e.RunMenuAction(MenuDelete); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Element(3); ok {
		t.Fatalf("menu delete did not remove the element")
	}
	e.Wait()
}

func TestMenuHiddenWhenSelectionEmpties(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.RightClickSelect(1, vector.Pt{})
	e.DeleteMany(ids(1))
	if e.Menu().Visible {
		t.Fatalf("menu visible with empty selection")
	}
	e.Wait()
}

func TestMenuActionNames(t *testing.T) {
	var names []string
	for _, a := range MenuActions {
		names = append(names, a.String())
	}
	if !slices.Equal(names, []string{"Copy", "Cut", "Duplicate", "Paste", "Delete"}) {
		t.Fatalf("names = %v", names)
	}
}
