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
	"log/slog"
	"math"
	"strings"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

// Handle is one of the transform handles drawn around a selected element.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
	HandleRotate
)

var handleNames = map[Handle]string{
	HandleTopLeft:     "top-left",
	HandleTopRight:    "top-right",
	HandleBottomRight: "bottom-right",
	HandleBottomLeft:  "bottom-left",
	HandleRotate:      "rotate",
}

func (h Handle) String() string {
	if s, ok := handleNames[h]; ok {
		return s
	}
	return fmt.Sprintf("Handle(%d)", int(h))
}

// ParseHandle accepts the handle names with '-' or '_' separators.
func ParseHandle(s string) (Handle, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for h, name := range handleNames {
		if name == s {
			return h, nil
		}
	}
	return HandleNone, fmt.Errorf("unknown handle %q", s)
}

const (
	// RotateHandleOffset is the screen distance of the rotate handle above the top edge.
	RotateHandleOffset = 24
	// HandleRadius is the screen distance within which a press grabs a handle.
	HandleRadius = 6
)

// HandlePositions returns the screen position of every handle of b under view.
func HandlePositions(b vector.Box, view Viewport) map[Handle]vector.Pt {
	cs := b.Corners()
	top := b.Transform().Apply(vector.Pt{X: b.W / 2, Y: -RotateHandleOffset / view.Scale})
	return map[Handle]vector.Pt{
		HandleTopLeft:     view.ToScreen(cs[0]),
		HandleTopRight:    view.ToScreen(cs[1]),
		HandleBottomRight: view.ToScreen(cs[2]),
		HandleBottomLeft:  view.ToScreen(cs[3]),
		HandleRotate:      view.ToScreen(top),
	}
}

// HandleAt returns the handle of b under the screen point p, or HandleNone.
func HandleAt(b vector.Box, view Viewport, p vector.Pt) Handle {
	best, bestD := HandleNone, float64(HandleRadius)
	for h, at := range HandlePositions(b, view) {
		if d := at.Dist(p); d <= bestD {
			best, bestD = h, d
		}
	}
	return best
}

// ResizeProposal is the box produced by dragging corner handle h of start to the
// board point p. The opposite corner stays put and the rotation is unchanged. A
// pointer past the opposite corner yields a negative size.
func ResizeProposal(start vector.Box, h Handle, p vector.Pt) vector.Box {
	m := start.Transform()
	inv, ok := m.Invert()
	if !ok {
		return start
	}
	lp := inv.Apply(p)
	var origin vector.Pt
	w, ht := start.W, start.H
	switch h {
	case HandleTopLeft:
		origin, w, ht = lp, start.W-lp.X, start.H-lp.Y
	case HandleTopRight:
		origin, w, ht = vector.Pt{Y: lp.Y}, lp.X, start.H-lp.Y
	case HandleBottomRight:
		w, ht = lp.X, lp.Y
	case HandleBottomLeft:
		origin, w, ht = vector.Pt{X: lp.X}, start.W-lp.X, lp.Y
	default:
		return start
	}
	at := m.Apply(origin)
	return vector.Box{X: at.X, Y: at.Y, W: w, H: ht, Rotation: start.Rotation}
}

// RotateProposal is the box produced by dragging the rotate handle of start to the
// board point p. The box turns about its centre; pointing straight up is 0 degrees.
func RotateProposal(start vector.Box, p vector.Pt) vector.Box {
	c := start.Transform().Apply(vector.Pt{X: start.W / 2, Y: start.H / 2})
	if p.Eq(c, 1e-9) {
		return start
	}
	deg := math.Atan2(p.Y-c.Y, p.X-c.X)*180/math.Pi + 90
	if deg > 180 {
		deg -= 360
	}
	half := vector.Rotate(vector.Deg2Rad(deg)).Apply(vector.Pt{X: start.W / 2, Y: start.H / 2})
	return vector.Box{X: c.X - half.X, Y: c.Y - half.Y, W: start.W, H: start.H, Rotation: deg}
}

// BoxHandle is a node whose box the host can read and move while a handle is dragged.
type BoxHandle interface {
	NodeHandle
	Box() vector.Box
	SetBox(vector.Box)
}

// BoxNode is a BoxHandle for hosts without a retained scene graph. Its scale is the
// ratio between the current box and the size last folded in by ResetScale.
type BoxNode struct {
	box          vector.Box
	baseW, baseH float64
}

// NewBoxNode starts a node at the element's committed geometry.
func NewBoxNode(g domain.Geometry) *BoxNode {
	return &BoxNode{box: g.Box(), baseW: g.Width, baseH: g.Height}
}

func (n *BoxNode) Box() vector.Box     { return n.box }
func (n *BoxNode) SetBox(b vector.Box) { n.box = b }
func (n *BoxNode) Position() vector.Pt { return vector.Pt{X: n.box.X, Y: n.box.Y} }
func (n *BoxNode) Rotation() float64   { return n.box.Rotation }

func (n *BoxNode) Scale() (sx, sy float64) {
	sx, sy = 1, 1
	if n.baseW != 0 {
		sx = n.box.W / n.baseW
	}
	if n.baseH != 0 {
		sy = n.box.H / n.baseH
	}
	return sx, sy
}

func (n *BoxNode) ResetScale() { n.baseW, n.baseH = n.box.W, n.box.H }

// CommittedNodes is a NodeLookup for hosts without a retained scene graph: every
// lookup hands out a fresh BoxNode at the element's committed geometry.
func CommittedNodes(e *Engine) NodeLookup {
	return NodeLookupFunc(func(id domain.ElementID) (NodeHandle, bool) {
		el := e.ref(id)
		if el == nil {
			return nil, false
		}
		return NewBoxNode(el.Geometry()), true
	})
}

// TransformGesture is a resize or rotate handle drag on one selected element.
type TransformGesture struct {
	e      *Engine
	id     domain.ElementID
	handle Handle
	node   BoxHandle
	start  vector.Box
}

// BeginTransform starts dragging handle h of id, which must be the only selected
// element. The node is resolved through the injected NodeLookup and must implement
// BoxHandle.
func (e *Engine) BeginTransform(id domain.ElementID, h Handle) (*TransformGesture, error) {
	el := e.ref(id)
	if el == nil {
		return nil, e.invalid("begin_transform", ErrUnknownElement, "id %d", id)
	}
	if _, ok := handleNames[h]; !ok {
		return nil, e.invalid("begin_transform", ErrInvalidGesture, "handle %v", h)
	}
	if e.selection.Len() != 1 || !e.selection.Has(id) {
		return nil, e.invalid("begin_transform", ErrInvalidGesture, "element %d is not the single selection", id)
	}
	if el.LockedPosition {
		e.opLog("begin_transform").Warn("transform rejected on locked element", slog.Int64("element", int64(id)))
		return nil, ErrPositionLocked
	}
	var node BoxHandle
	if ts := e.TransformTargets(); len(ts) == 1 {
		node, _ = ts[0].(BoxHandle)
	}
	if node == nil {
		return nil, e.invalid("begin_transform", ErrInvalidGesture, "no transformable node for %d", id)
	}
	return &TransformGesture{e: e, id: id, handle: h, node: node, start: node.Box()}, nil
}

func (g *TransformGesture) ID() domain.ElementID { return g.id }
func (g *TransformGesture) Handle() Handle       { return g.handle }

// Box is the box the node currently shows.
func (g *TransformGesture) Box() vector.Box { return g.node.Box() }

// Geometry is Box as element geometry, for drawing the element mid-gesture.
func (g *TransformGesture) Geometry() domain.Geometry { return domain.GeometryOf(g.node.Box()) }

// Update moves the handle to the board point p. Resize proposals pass through
// BoundBox against the previous box, so the node never shrinks below the minimum.
func (g *TransformGesture) Update(p vector.Pt) vector.Box {
	prev := g.node.Box()
	var next vector.Box
	if g.handle == HandleRotate {
		next = RotateProposal(g.start, p)
	} else {
		next = ResizeProposal(g.start, g.handle, p)
		old := vector.Rect{X: prev.X, Y: prev.Y, W: prev.W, H: prev.H}
		if g.e.BoundBox(old, vector.Rect{X: next.X, Y: next.Y, W: next.W, H: next.H}) == old {
			next = prev
		}
	}
	if !vector.Finite(next.X, next.Y, next.W, next.H, next.Rotation) {
		return prev
	}
	g.node.SetBox(next)
	return next
}

// End commits the node through TransformEnd. A gesture that left the node where
// it started commits nothing.
func (g *TransformGesture) End() error {
	if g.e.ref(g.id) == nil {
		return g.e.invalid("transform_end", ErrUnknownElement, "id %d", g.id)
	}
	if g.node.Box() == g.start {
		return nil
	}
	return g.e.TransformEnd(g.id, g.node)
}

// Cancel puts the node back where the gesture started.
func (g *TransformGesture) Cancel() { g.node.SetBox(g.start) }
