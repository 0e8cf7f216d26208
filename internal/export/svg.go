/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/textlayout"
)

// SVGOptions controls SVG export. The viewBox uses board units.
type SVGOptions struct {
	Margin       float64 // 16 when zero
	IncludeFrame bool
}

// ExportSVG writes the board as an SVG document. Elements become rotated rects with
// their labels as text lines inside the same transform.
func ExportSVG(elements []domain.Element, outPath string, opt SVGOptions) error {
	data, err := RenderSVG(elements, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// RenderSVG returns the SVG document for the board.
func RenderSVG(elements []domain.Element, opt SVGOptions) ([]byte, error) {
	bounds, ok := BoardBounds(elements)
	if !ok {
		return nil, ErrEmptyBoard
	}
	if opt.Margin <= 0 {
		opt.Margin = 16
	}
	w := bounds.W + 2*opt.Margin
	h := bounds.H + 2*opt.Margin
	dx := opt.Margin - bounds.X
	dy := opt.Margin - bounds.Y

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", w, h, w, h)
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", w, h)
	if opt.IncludeFrame {
		wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"#ff0000\" stroke-width=\"0.2\"/>\n", opt.Margin, opt.Margin, bounds.W, bounds.H)
	}

	for _, el := range paintOrder(elements) {
		x, y := el.X+dx, el.Y+dy
		wf("  <g data-id=\"%d\" data-type=\"%s\" transform=\"rotate(%g %g %g)\">\n", el.ID, el.Type, el.Rotation, x, y)
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			x, y, el.Width, el.Height, svgPaint(fillColor(el)), svgPaint(strokeColor(el)))
		if text := label(el); text != "" {
			const pad = 4.0
			box := textlayout.Wrap(nil, text, el.Width-2*pad)
			for i, line := range box.Lines {
				var esc bytes.Buffer
				if err := xml.EscapeText(&esc, []byte(line)); err != nil {
					return nil, err
				}
				ly := y + pad + box.Metrics.Ascent + float64(i)*box.Metrics.LineHeight()
				wf("    <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"12\" fill=\"#000\">%s</text>\n",
					x+pad, ly, esc.String())
			}
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

func svgPaint(c color.RGBA) string {
	if c.A == 0 {
		return "none"
	}
	if c.A < 0xff {
		return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
