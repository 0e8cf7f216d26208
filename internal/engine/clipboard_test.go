/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"encoding/json"
	"slices"
	"testing"

	"boardcanvas/internal/domain"
)

func TestCopyThenCutScenario(t *testing.T) {
	e, _ := newTestEngine()
	if ok, err := e.Copy(ids(1, 2)); !ok || err != nil {
		t.Fatalf("Copy = %v, %v", ok, err)
	}
	if ok, err := e.Cut(ids(3)); !ok || err != nil {
		t.Fatalf("Cut = %v, %v", ok, err)
	}
	c, ok := e.Clipboard()
	if !ok || c.Mode != ClipboardCut || len(c.Elements) != 1 || c.Elements[0].ID != 3 {
		t.Fatalf("clipboard = %+v", c)
	}
	if _, ok := e.Element(3); ok {
		t.Fatalf("cut element still on canvas")
	}
	for _, id := range ids(1, 2) {
		if _, ok := e.Element(id); !ok {
			t.Fatalf("element %d removed by cut of another selection", id)
		}
	}
	e.Wait()
}

func TestCopyEmptySelectionIsNoop(t *testing.T) {
	e, _ := newTestEngine()
	if ok, _ := e.Copy(nil); ok {
		t.Fatalf("empty copy reported success")
	}
	if _, ok := e.Clipboard(); ok {
		t.Fatalf("empty copy populated the clipboard")
	}
}

func TestClipboardIsASnapshot(t *testing.T) {
	e, _ := newTestEngine()
	_, _ = e.Copy(ids(1))
	_ = e.CommitDrag(1, 500, 500)
	c, _ := e.Clipboard()
	if c.Elements[0].X != 0 || c.Elements[0].Y != 0 {
		t.Fatalf("clipboard followed live edit: %+v", c.Elements[0])
	}
	c.Elements[0].X = 77
	again, _ := e.Clipboard()
	if again.Elements[0].X != 0 {
		t.Fatalf("Clipboard() exposes internal state")
	}
	e.Wait()
}

func TestDuplicate(t *testing.T) {
	fs := newFakeStore()
	gid := "group-a"
	media := int64(12)
	src := domain.Element{ID: 1, Type: domain.TypeMedia, X: 10, Y: 20, Width: 30, Height: 40, Rotation: 15, ZIndex: 4,
		GroupID: &gid, MediaID: &media, Properties: json.RawMessage(`{"src":"a.png"}`)}
	e := New("b", []domain.Element{src}, fs, testOptions())
	_ = e.ClickSelect(1, false)

	if err := e.Duplicate(e.Selected()); err != nil {
		t.Fatal(err)
	}
	e.Wait()

	if e.Len() != 2 {
		t.Fatalf("Len = %d, want 2", e.Len())
	}
	sel := e.Selected()
	if len(sel) != 1 || sel[0] == 1 {
		t.Fatalf("selection = %v, want the new id only", sel)
	}
	dup, _ := e.Element(sel[0])
	want := domain.Geometry{X: 30, Y: 40, Width: 30, Height: 40, Rotation: 15}
	if dup.Geometry() != want {
		t.Fatalf("duplicate geometry = %+v, want %+v", dup.Geometry(), want)
	}
	if dup.ZIndex != 5 || dup.GroupID != nil || dup.Type != domain.TypeMedia || *dup.MediaID != 12 || string(dup.Properties) != `{"src":"a.png"}` {
		t.Fatalf("duplicate content = %+v", dup)
	}
	if creates := fs.ops("create"); len(creates) != 1 || creates[0].draft.GroupID != nil {
		t.Fatalf("create calls = %+v", creates)
	}
}

func TestDuplicateRunsInSelectionOrder(t *testing.T) {
	e, fs := newTestEngine()
	_ = e.ClickSelect(3, false)
	_ = e.ClickSelect(1, true)
	_ = e.Duplicate(e.Selected())
	e.Wait()
	creates := fs.ops("create")
	if len(creates) != 2 || creates[0].draft.X != 220 || creates[1].draft.X != 20 {
		t.Fatalf("create order = %+v", creates)
	}
	if got := e.Selected(); !slices.Equal(got, ids(101, 102)) {
		t.Fatalf("selection = %v, want [101 102]", got)
	}
}

func TestDuplicatePartialFailureKeepsCreated(t *testing.T) {
	e, fs := newTestEngine()
	fs.failCreateAt = 2
	e.SelectAll()
	_ = e.Duplicate(e.Selected())
	e.Wait()
	if n := len(fs.ops("create")); n != 2 {
		t.Fatalf("creates attempted = %d, want 2 (stop at failure)", n)
	}
	if e.Len() != 4 {
		t.Fatalf("Len = %d, want 4", e.Len())
	}
	if got := e.Selected(); !slices.Equal(got, ids(101)) {
		t.Fatalf("selection = %v, want [101]", got)
	}
}

func TestPasteGetsFreshIDsAndCascades(t *testing.T) {
	e, fs := newTestEngine()
	_, _ = e.Cut(ids(2))
	e.Wait()

	_ = e.Paste()
	e.Wait()
	_ = e.Paste()
	e.Wait()

	creates := fs.ops("create")
	if len(creates) != 2 {
		t.Fatalf("creates = %d", len(creates))
	}
	if creates[0].draft.X != 100 || creates[0].draft.Y != 0 {
		t.Fatalf("first paste of a cut should land in place: %+v", creates[0].draft)
	}
	if creates[1].draft.X != 120 || creates[1].draft.Y != 20 {
		t.Fatalf("second paste should cascade: %+v", creates[1].draft)
	}
	for _, el := range e.Elements() {
		if el.ID == 2 {
			t.Fatalf("paste reused the snapshot id")
		}
	}
	if e.Len() != 4 {
		t.Fatalf("Len = %d, want 4", e.Len())
	}
}

func TestPasteOfCopyIsOffset(t *testing.T) {
	e, fs := newTestEngine()
	_, _ = e.Copy(ids(1))
	_ = e.Paste()
	e.Wait()
	if c := fs.ops("create"); len(c) != 1 || c[0].draft.X != 20 || *c[0].draft.ZIndex != 1 {
		t.Fatalf("paste of copy = %+v", c)
	}
}

func TestPasteWithEmptyClipboardIsNoop(t *testing.T) {
	e, fs := newTestEngine()
	if err := e.Paste(); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	if fs.count() != 0 {
		t.Fatalf("unexpected calls")
	}
}

func TestCloseDropsContinuations(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.Duplicate(ids(1))
	e.Close()
	e.Wait()
	if e.Len() != 3 {
		t.Fatalf("continuation applied after Close: Len = %d", e.Len())
	}
}

func TestReadySignalsPendingWork(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.Duplicate(ids(1))
	<-e.Ready()
	e.out.wg.Wait()
	if n := e.ApplyPending(); n < 2 {
		t.Fatalf("applied %d continuations, want append + select", n)
	}
	if e.Len() != 4 {
		t.Fatalf("Len = %d", e.Len())
	}
}
