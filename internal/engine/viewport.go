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
	"math"

	"boardcanvas/internal/vector"
)

// Viewport maps logical board coordinates to screen pixels:
// screen = logical*Scale + Offset.
type Viewport struct {
	Offset vector.Pt
	Scale  float64

	minScale, maxScale, factor float64
}

// NewViewport returns an identity viewport with the given zoom policy.
func NewViewport(minScale, maxScale, factor float64) Viewport {
	return Viewport{Scale: 1, minScale: minScale, maxScale: maxScale, factor: factor}.clamped()
}

func (v Viewport) clamped() Viewport {
	v.Scale = math.Min(math.Max(v.Scale, v.minScale), v.maxScale)
	return v
}

// PanTo sets the pan offset directly.
func (v *Viewport) PanTo(offset vector.Pt) error {
	if !offset.Finite() {
		return fmt.Errorf("pan offset %v is not finite", offset)
	}
	v.Offset = offset
	return nil
}

// ZoomAt scales by the zoom factor in the given direction (+1 in, -1 out, 0 no-op)
// keeping the logical point under pointer fixed on screen.
func (v *Viewport) ZoomAt(pointer vector.Pt, direction int) {
	if direction == 0 || !pointer.Finite() {
		return
	}
	old := v.Scale
	next := old * v.factor
	if direction < 0 {
		next = old / v.factor
	}
	next = math.Min(math.Max(next, v.minScale), v.maxScale)
	if next == old {
		return
	}
	ratio := next / old
	v.Offset = pointer.Sub(pointer.Sub(v.Offset).Mul(ratio))
	v.Scale = next
}

// ToLogical converts a screen position to board coordinates.
func (v Viewport) ToLogical(p vector.Pt) vector.Pt {
	return vector.Pt{X: (p.X - v.Offset.X) / v.Scale, Y: (p.Y - v.Offset.Y) / v.Scale}
}

// ToScreen converts board coordinates to a screen position.
func (v Viewport) ToScreen(p vector.Pt) vector.Pt {
	return vector.Pt{X: p.X*v.Scale + v.Offset.X, Y: p.Y*v.Scale + v.Offset.Y}
}

// Transform is the logical to screen matrix.
func (v Viewport) Transform() vector.Affine2D {
	return vector.Translate(v.Offset.X, v.Offset.Y).Mul(vector.Scale(v.Scale, v.Scale))
}

// Viewport returns the committed viewport.
func (e *Engine) Viewport() Viewport { return e.viewport }

// View returns the viewport to render with, including an in-flight pan drag.
func (e *Engine) View() Viewport {
	v := e.viewport
	if p := e.press; p != nil && p.kind == pressPan {
		v.Offset = p.originOffset.Add(p.current.Sub(p.start))
	}
	return v
}

// PanTo commits a pan offset.
func (e *Engine) PanTo(offset vector.Pt) error {
	if err := e.viewport.PanTo(offset); err != nil {
		return e.invalid("pan_to", ErrInvalidGesture, "%v", err)
	}
	return nil
}

// ZoomAt zooms around a screen position. During a pan drag the zoom applies to
// the view being shown and the drag restarts from it.
func (e *Engine) ZoomAt(pointer vector.Pt, direction int) {
	p := e.press
	if p == nil || p.kind != pressPan {
		e.viewport.ZoomAt(pointer, direction)
		return
	}
	v := e.View()
	v.ZoomAt(pointer, direction)
	e.viewport = v
	p.originOffset = v.Offset
	p.start = p.current
}
