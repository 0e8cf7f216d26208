/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Board content model. JSON names follow the element store's wire format
// so the same types travel between the REST server, the client and snapshot files.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"boardcanvas/internal/vector"

	"github.com/google/uuid"
)

// ElementID is assigned by the store and unique within a board.
type ElementID int64

func (id ElementID) String() string { return strconv.FormatInt(int64(id), 10) }

// ElementType is the closed set of canvas element kinds.
type ElementType string

const (
	TypeShape  ElementType = "SHAPE"
	TypeText   ElementType = "TEXT"
	TypeSticky ElementType = "STICKY"
	TypeArrow  ElementType = "ARROW"
	TypeBrush  ElementType = "BRUSH"
	TypeMedia  ElementType = "MEDIA"
)

// ElementTypes lists every valid type in a stable order.
var ElementTypes = []ElementType{TypeShape, TypeText, TypeSticky, TypeArrow, TypeBrush, TypeMedia}

func (t ElementType) Valid() bool {
	for _, v := range ElementTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Geometry is the tuple every transform call carries.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// Valid reports whether all values are finite and the size is not negative.
func (g Geometry) Valid() error {
	if !vector.Finite(g.X, g.Y, g.Width, g.Height, g.Rotation) {
		return fmt.Errorf("geometry has non-finite values: %+v", g)
	}
	if g.Width < 0 || g.Height < 0 {
		return fmt.Errorf("geometry has negative size %gx%g", g.Width, g.Height)
	}
	return nil
}

// Box returns the geometry as a rotated box.
func (g Geometry) Box() vector.Box {
	return vector.Box{X: g.X, Y: g.Y, W: g.Width, H: g.Height, Rotation: g.Rotation}
}

// GeometryOf is the inverse of Geometry.Box.
func GeometryOf(b vector.Box) Geometry {
	return Geometry{X: b.X, Y: b.Y, Width: b.W, Height: b.H, Rotation: b.Rotation}
}

// Element is one item on a board.
type Element struct {
	ID             ElementID       `json:"id"`
	Type           ElementType     `json:"type"`
	X              float64         `json:"x"`
	Y              float64         `json:"y"`
	Width          float64         `json:"width"`
	Height         float64         `json:"height"`
	Rotation       float64         `json:"rotation"`
	ZIndex         int             `json:"zIndex"`
	GroupID        *string         `json:"groupId,omitempty"`
	LockedPosition bool            `json:"lockedPosition"`
	LockedEditing  bool            `json:"lockedEditing"`
	MediaID        *int64          `json:"mediaId,omitempty"`
	Properties     json.RawMessage `json:"properties,omitempty"`
}

func (e Element) Geometry() Geometry {
	return Geometry{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, Rotation: e.Rotation}
}

// WithGeometry returns a copy of e placed at g.
func (e Element) WithGeometry(g Geometry) Element {
	e.X, e.Y, e.Width, e.Height, e.Rotation = g.X, g.Y, g.Width, g.Height, g.Rotation
	return e
}

// Rect is the unrotated footprint used for marquee selection.
func (e Element) Rect() vector.Rect { return vector.R(e.X, e.Y, e.Width, e.Height) }

// Box is the rotated footprint used for hit testing and export.
func (e Element) Box() vector.Box { return e.Geometry().Box() }

// Clone returns a deep copy sharing no pointers or buffers with e.
func (e Element) Clone() Element {
	c := e
	if e.GroupID != nil {
		g := *e.GroupID
		c.GroupID = &g
	}
	if e.MediaID != nil {
		m := *e.MediaID
		c.MediaID = &m
	}
	if e.Properties != nil {
		c.Properties = bytes.Clone(e.Properties)
	}
	return c
}

// Draft describes e as a create request. Store-owned fields (id, locks) are left out.
func (e Element) Draft() Draft {
	c := e.Clone()
	rot := c.Rotation
	z := c.ZIndex
	return Draft{
		Type:       c.Type,
		X:          c.X,
		Y:          c.Y,
		Width:      c.Width,
		Height:     c.Height,
		Rotation:   &rot,
		ZIndex:     &z,
		GroupID:    c.GroupID,
		MediaID:    c.MediaID,
		Properties: c.Properties,
	}
}

// Property decodes a single top-level key of the properties bag into dst.
// It reports false when the key is missing or has an incompatible type.
func (e Element) Property(key string, dst any) bool {
	if len(e.Properties) == 0 {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(e.Properties, &m); err != nil {
		return false
	}
	raw, ok := m[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SortByZ orders elements for painting: ascending zIndex, ties by id.
func SortByZ(els []Element) {
	sort.SliceStable(els, func(i, j int) bool {
		if els[i].ZIndex != els[j].ZIndex {
			return els[i].ZIndex < els[j].ZIndex
		}
		return els[i].ID < els[j].ID
	})
}

// MaxZ returns the highest zIndex, or math.MinInt for an empty slice.
func MaxZ(els []Element) int {
	z := math.MinInt
	for _, e := range els {
		if e.ZIndex > z {
			z = e.ZIndex
		}
	}
	return z
}

// NewGroupID returns a fresh opaque group identifier.
func NewGroupID() string { return uuid.NewString() }

// NewBoardID returns a fresh board identifier.
func NewBoardID() string { return uuid.NewString() }

// ParseBoardID validates a board identifier.
func ParseBoardID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid board id %q: %w", s, err)
	}
	return id.String(), nil
}
