/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"math"
	"slices"
	"testing"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

func down(pos vector.Pt, tgt Target) PointerEvent {
	return PointerEvent{Pos: pos, Target: tgt, Button: ButtonPrimary}
}

func TestClickOnElementSelects(t *testing.T) {
	e, fs := newTestEngine()
	p := vector.Pt{X: 120, Y: 20}
	_ = e.PointerDown(down(p, OnElement(2)))
	_ = e.PointerMove(down(p.Add(vector.Pt{X: 1}), OnElement(2)))
	_ = e.PointerUp(down(p.Add(vector.Pt{X: 1}), OnElement(2)))
	if !slices.Equal(e.Selected(), ids(2)) {
		t.Fatalf("selection = %v", e.Selected())
	}
	ev := down(vector.Pt{X: 10, Y: 10}, OnElement(1))
	ev.Mods.Shift = true
	_ = e.PointerDown(ev)
	_ = e.PointerUp(ev)
	if !slices.Equal(e.Selected(), ids(2, 1)) {
		t.Fatalf("shift click selection = %v", e.Selected())
	}
	e.Wait()
	if fs.count() != 0 {
		t.Fatalf("a click must not persist anything")
	}
}

func TestDragElementCommitsInLogicalUnits(t *testing.T) {
	e, fs := newTestEngine()
	_ = e.PanTo(vector.Pt{X: 100, Y: 50})
	e.viewport.Scale = 2
	start := e.Viewport().ToScreen(vector.Pt{X: 110, Y: 10})

	_ = e.PointerDown(down(start, OnElement(2)))
	_ = e.PointerMove(down(start.Add(vector.Pt{X: 20, Y: 40}), OnElement(2)))
	id, g, ok := e.Dragging()
	if !ok || id != 2 || g.X != 110 || g.Y != 20 {
		t.Fatalf("drag preview = %v %+v %v", id, g, ok)
	}
	_ = e.PointerUp(down(start.Add(vector.Pt{X: 20, Y: 40}), OnElement(2)))

	el, _ := e.Element(2)
	if el.X != 110 || el.Y != 20 {
		t.Fatalf("dropped at %v,%v want 110,20", el.X, el.Y)
	}
	if len(e.Selected()) != 0 {
		t.Fatalf("a drag must not change the selection: %v", e.Selected())
	}
	e.Wait()
	if len(fs.ops("update")) != 1 {
		t.Fatalf("expected one transform call")
	}
}

func TestLockedElementNeverStartsDrag(t *testing.T) {
	fs := newFakeStore()
	locked := rect(4, 0, 0, 50, 50, 0)
	locked.LockedPosition = true
	e := New("b", []domain.Element{locked}, fs, testOptions())

	_ = e.PointerDown(down(vector.Pt{X: 10, Y: 10}, OnElement(4)))
	_ = e.PointerMove(down(vector.Pt{X: 80, Y: 80}, OnElement(4)))
	if _, _, ok := e.Dragging(); ok {
		t.Fatalf("locked element started a drag")
	}
	_ = e.PointerUp(down(vector.Pt{X: 80, Y: 80}, OnElement(4)))
	el, _ := e.Element(4)
	if el.X != 0 || el.Y != 0 {
		t.Fatalf("locked element moved")
	}
	if !slices.Equal(e.Selected(), ids(4)) {
		t.Fatalf("press on locked element should still select it: %v", e.Selected())
	}
	e.Wait()
	if fs.count() != 0 {
		t.Fatalf("store calls = %d, want 0", fs.count())
	}
}

func TestBackgroundDragRunsMarquee(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.ClickSelect(3, false)
	_ = e.PointerDown(down(vector.Pt{X: -5, Y: -5}, OnBackground()))
	if len(e.Selected()) != 0 || !e.Marquee().Active {
		t.Fatalf("background press should clear selection and start marquee")
	}
	_ = e.PointerMove(down(vector.Pt{X: 60, Y: 60}, OnBackground()))
	_ = e.PointerUp(down(vector.Pt{X: 60, Y: 60}, OnBackground()))
	if !slices.Equal(e.Selected(), ids(1)) {
		t.Fatalf("selection = %v, want [1]", e.Selected())
	}
}

func TestPanToolPansAndIgnoresElements(t *testing.T) {
	e, fs := newTestEngine()
	e.SetTool(ToolPan)
	_ = e.PointerDown(down(vector.Pt{X: 10, Y: 10}, OnElement(1)))
	_ = e.PointerMove(down(vector.Pt{X: 40, Y: -10}, OnElement(1)))
	if got := e.View().Offset; got != (vector.Pt{X: 30, Y: -20}) {
		t.Fatalf("in-flight view offset = %v", got)
	}
	if e.Viewport().Offset != (vector.Pt{}) {
		t.Fatalf("viewport committed before gesture end")
	}
	_ = e.PointerUp(down(vector.Pt{X: 40, Y: -10}, OnElement(1)))
	if got := e.Viewport().Offset; got != (vector.Pt{X: 30, Y: -20}) {
		t.Fatalf("committed offset = %v", got)
	}
	el, _ := e.Element(1)
	if el.X != 0 || len(e.Selected()) != 0 {
		t.Fatalf("pan tool interacted with an element")
	}
	e.Wait()
	if fs.count() != 0 {
		t.Fatalf("pan persisted something")
	}
}

func TestWheelZooms(t *testing.T) {
	e, _ := newTestEngine()
	e.Wheel(vector.Pt{X: 50, Y: 50}, -120)
	if e.Viewport().Scale <= 1 {
		t.Fatalf("wheel up should zoom in: %v", e.Viewport().Scale)
	}
	e.Wheel(vector.Pt{X: 50, Y: 50}, 120)
	e.Wheel(vector.Pt{X: 50, Y: 50}, 120)
	if e.Viewport().Scale >= 1 {
		t.Fatalf("wheel down should zoom out: %v", e.Viewport().Scale)
	}
	before := e.Viewport()
	e.Wheel(vector.Pt{X: 50, Y: 50}, 0)
	if e.Viewport() != before {
		t.Fatalf("zero wheel delta changed the viewport")
	}
}

func TestDeleteKey(t *testing.T) {
	e, fs := newTestEngine()
	if e.KeyDown("Delete") {
		t.Fatalf("Delete with empty selection must not be consumed")
	}
	_ = e.ClickSelect(1, false)
	if e.KeyDown("a") {
		t.Fatalf("other keys are not handled")
	}
	if !e.KeyDown("Backspace") {
		t.Fatalf("Backspace with selection must be consumed")
	}
	if _, ok := e.Element(1); ok || len(e.Selected()) != 0 {
		t.Fatalf("element 1 not deleted")
	}
	e.Wait()
	if len(fs.ops("delete")) != 1 {
		t.Fatalf("delete calls = %d", len(fs.ops("delete")))
	}
}

func TestSetToolCancelsGestures(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.PointerDown(down(vector.Pt{X: -5, Y: -5}, OnBackground()))
	e.SetTool(ToolPan)
	if e.Marquee().Active {
		t.Fatalf("tool switch must deactivate the marquee")
	}
	_ = e.PointerDown(down(vector.Pt{}, OnBackground()))
	e.SetTool(ToolSelect)
	if e.Viewport().Offset != (vector.Pt{}) || e.View().Offset != (vector.Pt{}) {
		t.Fatalf("dropped pan leaked into the viewport")
	}
	if e.Tool() != ToolSelect {
		t.Fatalf("tool = %v", e.Tool())
	}
}

func TestDeletingPressedElementAbandonsPress(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.PointerDown(down(vector.Pt{X: 10, Y: 10}, OnElement(1)))
	e.DeleteMany(ids(1))
	if err := e.PointerUp(down(vector.Pt{X: 10, Y: 10}, OnElement(1))); err != nil {
		t.Fatalf("pointer up after delete: %v", err)
	}
	e.Wait()
}

func TestParseTool(t *testing.T) {
	for in, want := range map[string]Tool{"select": ToolSelect, "pan": ToolPan, "hand": ToolPan} {
		if got, err := ParseTool(in); err != nil || got != want {
			t.Errorf("ParseTool(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTool("lasso"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWheelDuringPanKeepsPointerAnchor(t *testing.T) {
	e, _ := newTestEngine()
	e.SetTool(ToolPan)
	pointer := vector.Pt{X: 100, Y: 100}
	_ = e.PointerDown(down(vector.Pt{}, OnBackground()))
	_ = e.PointerMove(down(vector.Pt{X: 20, Y: 10}, OnBackground()))
	before := e.View().ToLogical(pointer)

	e.Wheel(pointer, -1)
	if got := e.View().ToLogical(pointer); !got.Eq(before, 1e-9) {
		t.Fatalf("point under pointer moved on zoom: %v -> %v", before, got)
	}

	_ = e.PointerUp(down(vector.Pt{X: 20, Y: 10}, OnBackground()))
	v := e.Viewport()
	if math.Abs(v.Scale-1.05) > 1e-12 {
		t.Fatalf("scale = %v", v.Scale)
	}
	if got := v.ToLogical(pointer); !got.Eq(before, 1e-9) {
		t.Fatalf("point under pointer moved on release: %v -> %v", before, got)
	}

	// further motion after the zoom still pans one to one
	_ = e.PointerDown(down(vector.Pt{}, OnBackground()))
	e.Wheel(pointer, 1)
	start := e.View().Offset
	_ = e.PointerMove(down(vector.Pt{X: 5, Y: 5}, OnBackground()))
	if got := e.View().Offset; !got.Eq(start.Add(vector.Pt{X: 5, Y: 5}), 1e-9) {
		t.Fatalf("pan after zoom offset = %v, want %v", got, start.Add(vector.Pt{X: 5, Y: 5}))
	}
	_ = e.PointerUp(down(vector.Pt{X: 5, Y: 5}, OnBackground()))
}
