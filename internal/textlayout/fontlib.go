/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// DefaultFontSize is the label size in pixels when none is configured.
const DefaultFontSize = 13

// FaceProvider serves an OpenType face loaded from a font file.
type FaceProvider struct {
	face    font.Face
	metrics Metrics
}

// LoadFont parses the TrueType or OpenType file at path and builds a face of sizePx
// pixels. sizePx <= 0 uses DefaultFontSize.
func LoadFont(path string, sizePx float64) (*FaceProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return ParseFont(data, sizePx)
}

// ParseFont is LoadFont for font data already in memory.
func ParseFont(data []byte, sizePx float64) (*FaceProvider, error) {
	if sizePx <= 0 {
		sizePx = DefaultFontSize
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	// 72 DPI makes points equal pixels
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePx, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	m := face.Metrics()
	return &FaceProvider{face: face, metrics: Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}}, nil
}

func (p *FaceProvider) Face() (font.Face, Metrics) {
	if p == nil || p.face == nil {
		return BasicProvider{}.Face()
	}
	return p.face, p.metrics
}

// Resolve returns a FaceProvider for path, or BasicProvider when path is empty.
func Resolve(path string, sizePx float64) (Provider, error) {
	if path == "" {
		return BasicProvider{}, nil
	}
	p, err := LoadFont(path, sizePx)
	if err != nil {
		return BasicProvider{}, err
	}
	return p, nil
}
