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
	"math"
	"testing"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

func boxNear(a, b vector.Box) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.W-b.W) < eps &&
		math.Abs(a.H-b.H) < eps && math.Abs(a.Rotation-b.Rotation) < eps
}

// boxNodes registers a BoxNode per element, the way a host without a scene graph does.
func boxNodes(e *Engine) map[domain.ElementID]*BoxNode {
	nodes := map[domain.ElementID]*BoxNode{}
	for _, el := range e.Elements() {
		nodes[el.ID] = NewBoxNode(el.Geometry())
	}
	e.SetNodeLookup(NodeLookupFunc(func(id domain.ElementID) (NodeHandle, bool) {
		n, ok := nodes[id]
		return n, ok
	}))
	return nodes
}

func TestResizeProposalKeepsOppositeCorner(t *testing.T) {
	start := vector.Box{W: 50, H: 50}
	cases := []struct {
		name string
		h    Handle
		to   vector.Pt
		want vector.Box
	}{
		{"bottom-right", HandleBottomRight, vector.Pt{X: 80, Y: 70}, vector.Box{W: 80, H: 70}},
		{"top-left", HandleTopLeft, vector.Pt{X: 10, Y: 20}, vector.Box{X: 10, Y: 20, W: 40, H: 30}},
		{"top-right", HandleTopRight, vector.Pt{X: 60, Y: -10}, vector.Box{Y: -10, W: 60, H: 60}},
		{"bottom-left", HandleBottomLeft, vector.Pt{X: -5, Y: 45}, vector.Box{X: -5, W: 55, H: 45}},
		{"past opposite corner", HandleBottomRight, vector.Pt{X: -10, Y: 20}, vector.Box{W: -10, H: 20}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResizeProposal(start, tc.h, tc.to); !boxNear(got, tc.want) {
				t.Fatalf("ResizeProposal = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestResizeProposalOnRotatedBoxWorksInLocalFrame(t *testing.T) {
	start := vector.Box{X: 100, W: 50, H: 50, Rotation: 90}
	got := ResizeProposal(start, HandleBottomRight, vector.Pt{X: 40, Y: 60})
	want := vector.Box{X: 100, W: 60, H: 60, Rotation: 90}
	if !boxNear(got, want) {
		t.Fatalf("ResizeProposal = %+v, want %+v", got, want)
	}
}

func TestRotateProposalTurnsAboutCentre(t *testing.T) {
	start := vector.Box{W: 50, H: 50}
	got := RotateProposal(start, vector.Pt{X: 100, Y: 25})
	if !boxNear(got, vector.Box{X: 50, W: 50, H: 50, Rotation: 90}) {
		t.Fatalf("RotateProposal right = %+v", got)
	}
	c := got.Transform().Apply(vector.Pt{X: 25, Y: 25})
	if !c.Eq(vector.Pt{X: 25, Y: 25}, 1e-9) {
		t.Fatalf("centre moved to %v", c)
	}
	if up := RotateProposal(start, vector.Pt{X: 25, Y: -100}); !boxNear(up, start) {
		t.Fatalf("pointing up = %+v, want unrotated", up)
	}
	if left := RotateProposal(start, vector.Pt{X: -10, Y: 25}); math.Abs(left.Rotation+90) > 1e-9 {
		t.Fatalf("pointing left rotation = %v, want -90", left.Rotation)
	}
}

func TestHandleAtFollowsView(t *testing.T) {
	b := vector.Box{W: 50, H: 50}
	v := NewViewport(0.1, 10, 1.05)
	if h := HandleAt(b, v, vector.Pt{X: 52, Y: 49}); h != HandleBottomRight {
		t.Fatalf("HandleAt near corner = %v", h)
	}
	if h := HandleAt(b, v, vector.Pt{X: 25, Y: -RotateHandleOffset}); h != HandleRotate {
		t.Fatalf("HandleAt rotate = %v", h)
	}
	if h := HandleAt(b, v, vector.Pt{X: 25, Y: 25}); h != HandleNone {
		t.Fatalf("HandleAt inside = %v", h)
	}
	v.Scale, v.Offset = 2, vector.Pt{X: 10, Y: 10}
	if h := HandleAt(b, v, vector.Pt{X: 110, Y: 110}); h != HandleBottomRight {
		t.Fatalf("HandleAt zoomed = %v", h)
	}
	if h := HandleAt(b, v, vector.Pt{X: 60, Y: 10 - RotateHandleOffset}); h != HandleRotate {
		t.Fatalf("rotate handle keeps its screen offset when zoomed, got %v", h)
	}
}

func TestParseHandle(t *testing.T) {
	for s, want := range map[string]Handle{"top-left": HandleTopLeft, "Bottom_Right": HandleBottomRight, " rotate ": HandleRotate} {
		if h, err := ParseHandle(s); err != nil || h != want {
			t.Fatalf("ParseHandle(%q) = %v, %v", s, h, err)
		}
	}
	if _, err := ParseHandle("middle"); err == nil {
		t.Fatalf("expected error for unknown handle")
	}
}

func TestTransformGestureCommitsResizedBox(t *testing.T) {
	e, fs := newTestEngine()
	nodes := boxNodes(e)
	_ = e.ClickSelect(1, false)
	g, err := e.BeginTransform(1, HandleBottomRight)
	if err != nil {
		t.Fatal(err)
	}
	g.Update(vector.Pt{X: 70, Y: 60})
	if got := g.Update(vector.Pt{X: 80, Y: 70}); !boxNear(got, vector.Box{W: 80, H: 70}) {
		t.Fatalf("in-gesture box = %+v", got)
	}
	if err := g.End(); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	el, _ := e.Element(1)
	want := domain.Geometry{Width: 80, Height: 70}
	if el.Geometry() != want {
		t.Fatalf("committed %+v, want %+v", el.Geometry(), want)
	}
	calls := fs.ops("update")
	if len(calls) != 1 || calls[0].geom != want {
		t.Fatalf("update calls = %+v", calls)
	}
	if sx, sy := nodes[1].Scale(); sx != 1 || sy != 1 {
		t.Fatalf("node scale after commit = %v,%v, want reset", sx, sy)
	}
}

func TestTransformGestureBelowMinimumCommitsNothing(t *testing.T) {
	e, fs := newTestEngine()
	boxNodes(e)
	_ = e.ClickSelect(1, false)
	g, err := e.BeginTransform(1, HandleTopLeft)
	if err != nil {
		t.Fatal(err)
	}
	g.Update(vector.Pt{X: 45, Y: 2})
	if err := g.End(); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	if el, _ := e.Element(1); el.Geometry() != (domain.Geometry{Width: 50, Height: 50}) {
		t.Fatalf("geometry changed to %+v", el.Geometry())
	}
	if fs.count() != 0 {
		t.Fatalf("store calls = %d, want 0", fs.count())
	}
}

func TestTransformGestureBoundsBelowMinimum(t *testing.T) {
	e, _ := newTestEngine()
	boxNodes(e)
	_ = e.ClickSelect(1, false)
	g, err := e.BeginTransform(1, HandleBottomRight)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Update(vector.Pt{X: 5, Y: 5}); !boxNear(got, vector.Box{W: 50, H: 50}) {
		t.Fatalf("below-minimum proposal shown as %+v", got)
	}
	g.Update(vector.Pt{X: 60, Y: 60})
	if got := g.Update(vector.Pt{X: 8, Y: 60}); !boxNear(got, vector.Box{W: 60, H: 60}) {
		t.Fatalf("narrow proposal shown as %+v, want last valid box", got)
	}
	if err := g.End(); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	if el, _ := e.Element(1); el.Width != 60 || el.Height != 60 {
		t.Fatalf("committed %+v, want last valid 60x60", el.Geometry())
	}
}

func TestTransformGestureRotatesAboutCentre(t *testing.T) {
	e, _ := newTestEngine()
	boxNodes(e)
	_ = e.ClickSelect(3, false)
	g, err := e.BeginTransform(3, HandleRotate)
	if err != nil {
		t.Fatal(err)
	}
	g.Update(vector.Pt{X: 300, Y: 215})
	if err := g.End(); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	el, _ := e.Element(3)
	if el.Width != 40 || el.Height != 30 || math.Abs(el.Rotation-90) > 1e-9 {
		t.Fatalf("committed %+v, want 40x30 at 90 degrees", el.Geometry())
	}
	c := el.Geometry().Box().Transform().Apply(vector.Pt{X: 20, Y: 15})
	if !c.Eq(vector.Pt{X: 220, Y: 215}, 1e-9) {
		t.Fatalf("centre moved to %v", c)
	}
}

func TestTransformGestureCancelRestoresNode(t *testing.T) {
	e, fs := newTestEngine()
	nodes := boxNodes(e)
	_ = e.ClickSelect(2, false)
	g, err := e.BeginTransform(2, HandleTopLeft)
	if err != nil {
		t.Fatal(err)
	}
	g.Update(vector.Pt{X: 120, Y: 20})
	g.Cancel()
	if got := nodes[2].Box(); !boxNear(got, vector.Box{X: 100, W: 50, H: 50}) {
		t.Fatalf("node after cancel = %+v", got)
	}
	e.Wait()
	if fs.count() != 0 {
		t.Fatalf("cancel issued %d store calls", fs.count())
	}
}

func TestBeginTransformRejections(t *testing.T) {
	t.Run("not selected", func(t *testing.T) {
		e, _ := newTestEngine()
		boxNodes(e)
		if _, err := e.BeginTransform(1, HandleBottomRight); !errors.Is(err, ErrInvalidGesture) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("multi selection", func(t *testing.T) {
		e, _ := newTestEngine()
		boxNodes(e)
		_ = e.ClickSelect(1, false)
		_ = e.ClickSelect(2, true)
		if _, err := e.BeginTransform(1, HandleBottomRight); !errors.Is(err, ErrInvalidGesture) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("unknown element", func(t *testing.T) {
		e, _ := newTestEngine()
		if _, err := e.BeginTransform(42, HandleRotate); !errors.Is(err, ErrUnknownElement) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("no handle", func(t *testing.T) {
		e, _ := newTestEngine()
		boxNodes(e)
		_ = e.ClickSelect(1, false)
		if _, err := e.BeginTransform(1, HandleNone); !errors.Is(err, ErrInvalidGesture) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("no lookup", func(t *testing.T) {
		e, _ := newTestEngine()
		_ = e.ClickSelect(1, false)
		if _, err := e.BeginTransform(1, HandleBottomRight); !errors.Is(err, ErrInvalidGesture) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("node without box", func(t *testing.T) {
		e, _ := newTestEngine()
		e.SetNodeLookup(NodeLookupFunc(func(domain.ElementID) (NodeHandle, bool) {
			return &fakeNode{sx: 1, sy: 1}, true
		}))
		_ = e.ClickSelect(1, false)
		if _, err := e.BeginTransform(1, HandleBottomRight); !errors.Is(err, ErrInvalidGesture) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("locked", func(t *testing.T) {
		locked := rect(7, 10, 10, 20, 20, 0)
		locked.LockedPosition = true
		e := New("b", []domain.Element{locked}, newFakeStore(), testOptions())
		boxNodes(e)
		_ = e.ClickSelect(7, false)
		if _, err := e.BeginTransform(7, HandleRotate); !errors.Is(err, ErrPositionLocked) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestBoxNodeScaleIsRelativeToLastReset(t *testing.T) {
	n := NewBoxNode(domain.Geometry{X: 1, Y: 2, Width: 20, Height: 10})
	n.SetBox(vector.Box{X: 1, Y: 2, W: 40, H: 5})
	if sx, sy := n.Scale(); sx != 2 || sy != 0.5 {
		t.Fatalf("scale = %v,%v", sx, sy)
	}
	n.ResetScale()
	if sx, sy := n.Scale(); sx != 1 || sy != 1 {
		t.Fatalf("scale after reset = %v,%v", sx, sy)
	}
	if p := n.Position(); p != (vector.Pt{X: 1, Y: 2}) {
		t.Fatalf("position = %v", p)
	}
}

func TestCommittedNodesFollowCommits(t *testing.T) {
	e, _ := newTestEngine()
	e.SetNodeLookup(CommittedNodes(e))
	_ = e.ClickSelect(3, false)
	g, err := e.BeginTransform(3, HandleBottomRight)
	if err != nil {
		t.Fatal(err)
	}
	g.Update(vector.Pt{X: 260, Y: 250})
	if g.Geometry() != (domain.Geometry{X: 200, Y: 200, Width: 60, Height: 50}) {
		t.Fatalf("in-gesture geometry = %+v", g.Geometry())
	}
	if err := g.End(); err != nil {
		t.Fatal(err)
	}
	n, ok := CommittedNodes(e).Node(3)
	if !ok || n.(*BoxNode).Box() != (vector.Box{X: 200, Y: 200, W: 60, H: 50}) {
		t.Fatalf("fresh node = %+v %v", n, ok)
	}
	if _, ok := CommittedNodes(e).Node(99); ok {
		t.Fatalf("node for unknown element")
	}
}
