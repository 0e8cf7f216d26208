/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	xvector "golang.org/x/image/vector"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/textlayout"
	"boardcanvas/internal/vector"
)

// PNGOptions controls raster export.
type PNGOptions struct {
	Scale      float64    // pixels per board unit; 1 when zero
	Margin     float64    // board units around the bounds; 16 when zero
	Background color.RGBA // white when fully transparent and Transparent is false
	// Transparent keeps the background clear.
	Transparent bool
	MaxPixels   int // refuse larger images; 64M when zero
	// Font draws labels; basicfont when nil.
	Font textlayout.Provider
}

func (o PNGOptions) withDefaults() PNGOptions {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Margin <= 0 {
		o.Margin = 16
	}
	if o.Background == (color.RGBA{}) && !o.Transparent {
		o.Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = 64 << 20
	}
	return o
}

// RenderImage rasterises the board. Element boxes are anti-aliased and rotated; labels
// use a fixed bitmap face and stay axis aligned at the element's top-left corner.
func RenderImage(elements []domain.Element, opt PNGOptions) (*image.RGBA, error) {
	bounds, ok := BoardBounds(elements)
	if !ok {
		return nil, ErrEmptyBoard
	}
	opt = opt.withDefaults()
	pixW := int(math.Ceil((bounds.W + 2*opt.Margin) * opt.Scale))
	pixH := int(math.Ceil((bounds.H + 2*opt.Margin) * opt.Scale))
	if pixW <= 0 || pixH <= 0 || pixW*pixH > opt.MaxPixels {
		return nil, fmt.Errorf("image size %dx%d out of range", pixW, pixH)
	}
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: opt.Background}, image.Point{}, draw.Src)

	// board to pixel space
	m := vector.Scale(opt.Scale, opt.Scale).Mul(vector.Translate(opt.Margin-bounds.X, opt.Margin-bounds.Y))
	PaintWith(img, elements, m, opt.Scale, opt.Font)
	return img, nil
}

// Paint draws elements onto img in paint order through m, the board to pixel
// transform whose uniform scale is scale. Elements entirely outside img are skipped.
func Paint(img *image.RGBA, elements []domain.Element, m vector.Affine2D, scale float64) {
	PaintWith(img, elements, m, scale, nil)
}

// PaintWith is Paint with labels drawn in the face of provider.
func PaintWith(img *image.RGBA, elements []domain.Element, m vector.Affine2D, scale float64, provider textlayout.Provider) {
	if provider == nil {
		provider = textlayout.BasicProvider{}
	}
	face, _ := provider.Face()
	b := img.Bounds()
	view := vector.R(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))

	for _, el := range paintOrder(elements) {
		var px [4]vector.Pt
		for i, c := range el.Box().Corners() {
			px[i] = m.Apply(c)
		}
		screen := vector.RectFromCorners(px[0], px[0])
		for _, p := range px[1:] {
			screen = screen.Union(vector.RectFromCorners(p, p))
		}
		if !screen.Overlaps(view.Inset(-2, -2)) {
			continue
		}
		if fill := fillColor(el); fill.A > 0 {
			fillPolygon(img, px[:], fill)
		}
		if stroke := strokeColor(el); stroke.A > 0 {
			strokePolygon(img, px[:], math.Max(1, scale), stroke)
		}
		drawLabel(img, face, provider, label(el), px[0], el.Width*scale)
	}
}

// ExportPNG renders the board and writes it to outPath.
func ExportPNG(elements []domain.Element, outPath string, opt PNGOptions) error {
	img, err := RenderImage(elements, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func fillPolygon(img *image.RGBA, pts []vector.Pt, c color.RGBA) {
	b := img.Bounds()
	z := xvector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
	z.Draw(img, b, image.NewUniform(c), image.Point{})
}

// strokePolygon draws every edge of the closed polygon as a quad of the given width.
func strokePolygon(img *image.RGBA, pts []vector.Pt, width float64, c color.RGBA) {
	b := img.Bounds()
	z := xvector.NewRasterizer(b.Dx(), b.Dy())
	for i := range pts {
		a, e := pts[i], pts[(i+1)%len(pts)]
		d := e.Sub(a)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		n := vector.P(-d.Y/l*width/2, d.X/l*width/2)
		q := [4]vector.Pt{a.Add(n), e.Add(n), e.Sub(n), a.Sub(n)}
		z.MoveTo(float32(q[0].X), float32(q[0].Y))
		for _, p := range q[1:] {
			z.LineTo(float32(p.X), float32(p.Y))
		}
		z.ClosePath()
	}
	z.Draw(img, b, image.NewUniform(c), image.Point{})
}

func drawLabel(img *image.RGBA, face font.Face, p textlayout.Provider, text string, at vector.Pt, maxWidth float64) {
	if text == "" {
		return
	}
	const pad = 4
	box := textlayout.Wrap(p, text, maxWidth-2*pad)
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	for i, line := range box.Lines {
		y := at.Y + pad + box.Metrics.Ascent + float64(i)*box.Metrics.LineHeight()
		d.Dot = fixed.P(int(math.Round(at.X+pad)), int(math.Round(y)))
		d.DrawString(line)
	}
}
