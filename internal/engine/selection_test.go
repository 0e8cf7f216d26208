/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"errors"
	"slices"
	"testing"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

func marquee(t *testing.T, e *Engine, a, b vector.Pt) []domain.ElementID {
	t.Helper()
	if err := e.StartMarquee(a); err != nil {
		t.Fatalf("StartMarquee: %v", err)
	}
	if err := e.UpdateMarquee(b); err != nil {
		t.Fatalf("UpdateMarquee: %v", err)
	}
	got, err := e.FinishMarquee()
	if err != nil {
		t.Fatalf("FinishMarquee: %v", err)
	}
	return got
}

func TestMarqueeSelectsOverlappingElements(t *testing.T) {
	e := New("b", []domain.Element{rect(5, 0, 0, 50, 50, 0)}, nil, testOptions())

	if got := marquee(t, e, vector.Pt{X: 10, Y: 10}, vector.Pt{X: 40, Y: 40}); !slices.Equal(got, ids(5)) {
		t.Fatalf("inner marquee selected %v, want [5]", got)
	}
	if got := marquee(t, e, vector.Pt{X: 60, Y: 60}, vector.Pt{X: 90, Y: 90}); len(got) != 0 {
		t.Fatalf("disjoint marquee selected %v", got)
	}
	if got := marquee(t, e, vector.Pt{X: 50, Y: 0}, vector.Pt{X: 70, Y: 20}); len(got) != 0 {
		t.Fatalf("edge-touching marquee selected %v", got)
	}
	if got := marquee(t, e, vector.Pt{X: 40, Y: 40}, vector.Pt{X: -5, Y: -5}); !slices.Equal(got, ids(5)) {
		t.Fatalf("reversed corners selected %v", got)
	}
}

func TestMarqueeReplacesSelection(t *testing.T) {
	e, _ := newTestEngine()
	if err := e.ClickSelect(3, false); err != nil {
		t.Fatal(err)
	}
	if err := e.StartMarquee(vector.Pt{X: -10, Y: -10}); err != nil {
		t.Fatal(err)
	}
	if len(e.Selected()) != 0 {
		t.Fatalf("StartMarquee must clear the selection, got %v", e.Selected())
	}
	if !e.Marquee().Active {
		t.Fatalf("marquee not active")
	}
	_ = e.UpdateMarquee(vector.Pt{X: 120, Y: 10})
	got, _ := e.FinishMarquee()
	if !slices.Equal(got, ids(1, 2)) {
		t.Fatalf("selection = %v, want [1 2]", got)
	}
	if e.Marquee().Active {
		t.Fatalf("marquee still active after finish")
	}
}

func TestMarqueeInvalidStates(t *testing.T) {
	e, _ := newTestEngine()
	if _, err := e.FinishMarquee(); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("finish without start: err = %v", err)
	}
	if err := e.UpdateMarquee(vector.Pt{}); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("update without start: err = %v", err)
	}
	e.SetTool(ToolPan)
	if err := e.StartMarquee(vector.Pt{}); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("start under pan tool: err = %v", err)
	}
}

func TestStrictModePanicsOnInvalidGesture(t *testing.T) {
	o := testOptions()
	o.Strict = true
	e := New("b", nil, nil, o)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidGesture) {
			t.Fatalf("expected ErrInvalidGesture panic, got %v", r)
		}
	}()
	_, _ = e.FinishMarquee()
}

func TestClickSelect(t *testing.T) {
	e, _ := newTestEngine()
	e.SelectAll()
	if err := e.ClickSelect(2, false); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(e.Selected(), ids(2)) {
		t.Fatalf("non-additive click: selection = %v, want [2]", e.Selected())
	}

	if err := e.ClickSelect(1, true); err != nil {
		t.Fatal(err)
	}
	before := e.Selected()
	_ = e.ClickSelect(3, true)
	_ = e.ClickSelect(3, true)
	if !slices.Equal(e.Selected(), before) {
		t.Fatalf("additive click twice is not an identity: %v vs %v", e.Selected(), before)
	}
	_ = e.ClickSelect(2, true)
	if !slices.Equal(e.Selected(), ids(1)) {
		t.Fatalf("additive click on selected id should remove it: %v", e.Selected())
	}
}

func TestClickSelectCancelsMarqueeAndUnknownIDs(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.StartMarquee(vector.Pt{})
	_ = e.ClickSelect(1, false)
	if e.Marquee().Active {
		t.Fatalf("click did not cancel the marquee")
	}
	if err := e.ClickSelect(42, false); !errors.Is(err, ErrUnknownElement) || !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("unknown id: err = %v", err)
	}
	if !slices.Equal(e.Selected(), ids(1)) {
		t.Fatalf("failed click changed selection: %v", e.Selected())
	}
}

func TestRightClickSelect(t *testing.T) {
	e, _ := newTestEngine()
	_ = e.ClickSelect(1, false)
	_ = e.ClickSelect(2, true)

	if err := e.RightClickSelect(2, vector.Pt{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(e.Selected(), ids(1, 2)) {
		t.Fatalf("right click on selected element must keep multi-selection: %v", e.Selected())
	}
	if err := e.RightClickSelect(3, vector.Pt{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(e.Selected(), ids(3)) {
		t.Fatalf("right click on unselected element: %v, want [3]", e.Selected())
	}
}

func TestLoadPrunesSelection(t *testing.T) {
	e, _ := newTestEngine()
	e.SelectAll()
	e.Load([]domain.Element{rect(2, 0, 0, 10, 10, 0)})
	if !slices.Equal(e.Selected(), ids(2)) {
		t.Fatalf("selection after reload = %v, want [2]", e.Selected())
	}
	if e.Len() != 1 {
		t.Fatalf("Len = %d", e.Len())
	}
}

func TestSelectionSetOperations(t *testing.T) {
	var s Selection
	s.Replace(ids(3, 1, 3, 2))
	if !slices.Equal(s.IDs(), ids(3, 1, 2)) {
		t.Fatalf("Replace must drop duplicates and keep order: %v", s.IDs())
	}
	s.Toggle(1)
	s.Toggle(9)
	if !slices.Equal(s.IDs(), ids(3, 2, 9)) {
		t.Fatalf("Toggle: %v", s.IDs())
	}
	s.Remove(3, 9)
	s.Retain(func(id domain.ElementID) bool { return id != 7 })
	if !slices.Equal(s.IDs(), ids(2)) || s.Len() != 1 {
		t.Fatalf("Remove/Retain: %v", s.IDs())
	}
}
