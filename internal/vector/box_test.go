/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func TestBoxUnrotatedBoundsAndHit(t *testing.T) {
	b := Box{X: 10, Y: 20, W: 100, H: 50}
	if got := b.Bounds(); got != R(10, 20, 100, 50) {
		t.Fatalf("bounds = %+v", got)
	}
	if !b.Hit(Pt{60, 45}) {
		t.Fatalf("center should hit")
	}
	if b.Hit(Pt{5, 45}) {
		t.Fatalf("point left of box should miss")
	}
}

func TestBoxRotatesAboutTopLeft(t *testing.T) {
	b := Box{X: 0, Y: 0, W: 100, H: 20, Rotation: 90}
	cs := b.Corners()
	if !cs[0].Eq(Pt{0, 0}, 1e-9) {
		t.Fatalf("origin corner moved: %+v", cs[0])
	}
	// Clockwise quarter turn on a y-down surface sends the width axis down.
	if !cs[1].Eq(Pt{0, 100}, 1e-9) {
		t.Fatalf("width corner = %+v, want (0,100)", cs[1])
	}
	bb := b.Bounds()
	if math.Abs(bb.X+20) > 1e-9 || math.Abs(bb.W-20) > 1e-9 || math.Abs(bb.H-100) > 1e-9 {
		t.Fatalf("rotated bounds = %+v", bb)
	}
	if !b.Hit(Pt{-10, 50}) {
		t.Fatalf("point inside rotated box should hit")
	}
	if b.Hit(Pt{50, 10}) {
		t.Fatalf("point in the unrotated footprint should miss")
	}
}

func TestBoxFullTurnKeepsBounds(t *testing.T) {
	b := Box{X: 1, Y: 2, W: 3, H: 4, Rotation: 720}
	if got := b.Bounds(); got != R(1, 2, 3, 4) {
		t.Fatalf("bounds = %+v", got)
	}
}
