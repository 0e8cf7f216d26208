/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Box is a rectangle of size W x H placed at X,Y and rotated by Rotation degrees
// about that top-left corner. Positive angles turn clockwise on a y-down surface.
type Box struct {
	X, Y     float64
	W, H     float64
	Rotation float64
}

// Transform maps box-local coordinates onto the board.
func (b Box) Transform() Affine2D {
	return Translate(b.X, b.Y).Mul(Rotate(Deg2Rad(b.Rotation)))
}

// Corners returns the four board-space corners, clockwise from the origin corner.
func (b Box) Corners() [4]Pt {
	m := b.Transform()
	return [4]Pt{
		m.Apply(Pt{0, 0}),
		m.Apply(Pt{b.W, 0}),
		m.Apply(Pt{b.W, b.H}),
		m.Apply(Pt{0, b.H}),
	}
}

// Bounds returns the axis-aligned rect enclosing the rotated box.
func (b Box) Bounds() Rect {
	if math.Mod(b.Rotation, 360) == 0 {
		return Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
	}
	cs := b.Corners()
	minX, minY := cs[0].X, cs[0].Y
	maxX, maxY := minX, minY
	for _, c := range cs[1:] {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Hit reports whether p (board space) lies inside the rotated box.
func (b Box) Hit(p Pt) bool {
	inv, ok := b.Transform().Invert()
	if !ok {
		return false
	}
	return Rect{W: b.W, H: b.H}.Contains(inv.Apply(p))
}
