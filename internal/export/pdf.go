/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/version"
)

// ErrEmptyBoard is returned when there is nothing to export.
var ErrEmptyBoard = errors.New("board has no elements")

// PDFOptions controls PDF export. One board unit is one point.
type PDFOptions struct {
	Margin       float64 // around the board bounds; 36pt when zero
	FontSize     float64 // label size in pt; 12 when zero
	Title        string
	IncludeFrame bool // hairline around the board bounds
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.FontSize <= 0 {
		o.FontSize = 12
	}
	if o.Title == "" {
		o.Title = "Board"
	}
	return o
}

// ExportPDF writes the board to a single page PDF sized to the element bounds plus margin.
// Elements are drawn bottom to top as rotated boxes with their text labels.
func ExportPDF(elements []domain.Element, outPath string, opt PDFOptions) error {
	bounds, ok := BoardBounds(elements)
	if !ok {
		return ErrEmptyBoard
	}
	opt = opt.withDefaults()
	pageW := bounds.W + 2*opt.Margin
	pageH := bounds.H + 2*opt.Margin
	dx := opt.Margin - bounds.X
	dy := opt.Margin - bounds.Y

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator(version.String(), true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", opt.FontSize)

	if opt.IncludeFrame {
		pdf.SetLineWidth(0.2)
		pdf.SetDrawColor(255, 0, 0)
		pdf.Rect(opt.Margin, opt.Margin, bounds.W, bounds.H, "D")
	}

	for _, el := range paintOrder(elements) {
		fill, stroke := fillColor(el), strokeColor(el)
		style := pdfStyle(fill, stroke)
		corners := el.Box().Corners()
		if style != "" {
			pts := make([]gofpdf.PointType, 0, 4)
			for _, c := range corners {
				pts = append(pts, gofpdf.PointType{X: c.X + dx, Y: c.Y + dy})
			}
			setFillColor(pdf, fill)
			setDrawColor(pdf, stroke)
			pdf.SetLineWidth(1)
			pdf.Polygon(pts, style)
		}
		const pad = 4.0
		text := label(el)
		if text == "" || el.Width-2*pad < opt.FontSize {
			continue
		}
		// labels are laid out in the element's own frame and rotated with it
		x, y := el.X+dx, el.Y+dy
		pdf.TransformBegin()
		pdf.TransformRotate(-el.Rotation, x, y)
		pdf.SetTextColor(0, 0, 0)
		lineH := opt.FontSize * 1.2
		for i, line := range pdf.SplitText(tr(text), el.Width-2*pad) {
			baseline := y + pad + opt.FontSize + float64(i)*lineH
			if baseline > y+el.Height {
				break
			}
			pdf.Text(x+pad, baseline, line)
		}
		pdf.TransformEnd()
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfStyle picks the gofpdf paint style for a fill/outline pair; empty means nothing to paint.
func pdfStyle(fill, stroke color.RGBA) string {
	switch {
	case fill.A > 0 && stroke.A > 0:
		return "FD"
	case fill.A > 0:
		return "F"
	case stroke.A > 0:
		return "D"
	}
	return ""
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
