/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/hex"
	"image/color"
	"strings"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

// BoardBounds returns the union of the rotated bounds of all elements. ok is false for an empty board.
func BoardBounds(elements []domain.Element) (r vector.Rect, ok bool) {
	for i, el := range elements {
		b := el.Box().Bounds()
		if i == 0 {
			r = b
			continue
		}
		r = r.Union(b)
	}
	return r, len(elements) > 0
}

// paintOrder returns a copy of elements sorted bottom to top.
func paintOrder(elements []domain.Element) []domain.Element {
	out := make([]domain.Element, len(elements))
	copy(out, elements)
	domain.SortByZ(out)
	return out
}

var (
	black       = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	transparent = color.RGBA{}
)

var defaultFill = map[domain.ElementType]color.RGBA{
	domain.TypeShape:  {R: 0xdb, G: 0xea, B: 0xfe, A: 0xff},
	domain.TypeSticky: {R: 0xfe, G: 0xf0, B: 0x8a, A: 0xff},
	domain.TypeText:   transparent,
	domain.TypeArrow:  {R: 0x64, G: 0x74, B: 0x8b, A: 0xff},
	domain.TypeBrush:  {R: 0x33, G: 0x41, B: 0x55, A: 0xff},
	domain.TypeMedia:  {R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff},
}

// fillColor is properties.fill when it parses, else the type default.
func fillColor(el domain.Element) color.RGBA {
	var s string
	if el.Property("fill", &s) {
		if c, ok := parseHexColor(s); ok {
			return c
		}
	}
	return defaultFill[el.Type]
}

// strokeColor is properties.stroke when it parses. Text has no outline by default.
func strokeColor(el domain.Element) color.RGBA {
	var s string
	if el.Property("stroke", &s) {
		if c, ok := parseHexColor(s); ok {
			return c
		}
	}
	if el.Type == domain.TypeText {
		return transparent
	}
	return black
}

func label(el domain.Element) string {
	var s string
	if el.Property("text", &s) {
		return strings.TrimSpace(s)
	}
	return ""
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return color.RGBA{}, false
	}
	c := color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, true
}
