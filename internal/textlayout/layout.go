/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Label measurement and line breaking for element text. All values are pixels of
// the resolved face.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Metrics are the vertical metrics of a face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is the distance between two baselines.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Provider resolves the face used for labels.
type Provider interface {
	Face() (font.Face, Metrics)
}

// BasicProvider uses basicfont.Face7x13, which is deterministic across platforms.
type BasicProvider struct{}

func (BasicProvider) Face() (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Box is text broken into lines for a maximum width.
type Box struct {
	Lines   []string
	Width   float64
	Height  float64
	Metrics Metrics
}

// Wrap breaks text on spaces and newlines so that no line exceeds maxWidth. A word
// wider than maxWidth gets a line of its own. maxWidth <= 0 only breaks on newlines.
func Wrap(p Provider, text string, maxWidth float64) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Face()
	d := &font.Drawer{Face: face}
	box := Box{Metrics: met}
	space := advance(d, " ")
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		curW := 0.0
		flush := func() {
			box.Lines = append(box.Lines, cur.String())
			if curW > box.Width {
				box.Width = curW
			}
			cur.Reset()
			curW = 0
		}
		for _, word := range strings.Fields(para) {
			w := advance(d, word)
			if cur.Len() > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += w
		}
		flush()
	}
	box.Height = float64(len(box.Lines)) * met.LineHeight()
	return box
}

// Measure returns the single-line width and height of s.
func Measure(p Provider, s string) (w, h float64) {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Face()
	return advance(&font.Drawer{Face: face}, s), met.Ascent + met.Descent
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
}
