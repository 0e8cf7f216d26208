/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

// NodeHandle is the rendering surface's node for one element, read at gesture end.
type NodeHandle interface {
	Position() vector.Pt
	Scale() (sx, sy float64)
	Rotation() float64
	// ResetScale folds the accumulated scale back to 1 once it has been applied to the size.
	ResetScale()
}

// NodeLookup resolves element ids to nodes owned by the rendering surface.
type NodeLookup interface {
	Node(id domain.ElementID) (NodeHandle, bool)
}

// NodeLookupFunc adapts a function to NodeLookup.
type NodeLookupFunc func(id domain.ElementID) (NodeHandle, bool)

func (f NodeLookupFunc) Node(id domain.ElementID) (NodeHandle, bool) { return f(id) }
