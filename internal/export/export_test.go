/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/textlayout"
	"boardcanvas/internal/vector"
)

func sampleBoard() []domain.Element {
	return []domain.Element{
		{ID: 1, Type: domain.TypeShape, X: 0, Y: 0, Width: 100, Height: 50, ZIndex: 0, Properties: json.RawMessage(`{"fill":"#ff0000"}`)},
		{ID: 2, Type: domain.TypeSticky, X: 200, Y: 100, Width: 80, Height: 80, Rotation: 45, ZIndex: 2,
			Properties: json.RawMessage(`{"text":"Ship it <now> & later"}`)},
		{ID: 3, Type: domain.TypeText, X: 20, Y: 300, Width: 150, Height: 40, ZIndex: 1, Properties: json.RawMessage(`{"text":"Hello"}`)},
	}
}

func TestBoardBounds(t *testing.T) {
	if _, ok := BoardBounds(nil); ok {
		t.Fatalf("empty board must report !ok")
	}
	r, ok := BoardBounds(sampleBoard())
	if !ok {
		t.Fatal("expected bounds")
	}
	// the rotated sticky sets the right edge, the text element the bottom
	if r.X != 0 || r.Y != 0 {
		t.Fatalf("bounds origin = %v,%v", r.X, r.Y)
	}
	if math.Abs(r.Y+r.H-340) > 1e-9 {
		t.Fatalf("bounds bottom = %v", r.Y+r.H)
	}
	wantRight := 200 + 80*math.Sqrt2/2
	if math.Abs(r.X+r.W-wantRight) > 1e-9 {
		t.Fatalf("bounds right = %v, want %v", r.X+r.W, wantRight)
	}
}

func TestColors(t *testing.T) {
	els := sampleBoard()
	if c := fillColor(els[0]); c != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("fill = %v", c)
	}
	if c := fillColor(els[1]); c != defaultFill[domain.TypeSticky] {
		t.Fatalf("sticky default fill = %v", c)
	}
	if strokeColor(els[2]).A != 0 {
		t.Fatalf("text should have no outline")
	}
	for in, want := range map[string]bool{"#abc": true, "112233": true, "#11223344": true, "#12": false, "#gggggg": false} {
		if _, ok := parseHexColor(in); ok != want {
			t.Errorf("parseHexColor(%q) ok = %v", in, ok)
		}
	}
	c, _ := parseHexColor("#abc")
	if c != (color.RGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}) {
		t.Fatalf("short hex = %v", c)
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "board.pdf")
	if err := ExportPDF(sampleBoard(), out, PDFOptions{IncludeFrame: true, Title: "Test"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(b), "%PDF-") {
		t.Fatalf("not a pdf: %q", b[:8])
	}
	if err := ExportPDF(nil, out, PDFOptions{}); !errors.Is(err, ErrEmptyBoard) {
		t.Fatalf("empty board err = %v", err)
	}
}

func TestRenderImage_PaintsElements(t *testing.T) {
	img, err := RenderImage(sampleBoard(), PNGOptions{Scale: 1, Margin: 10})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// centre of the red shape: board (50,25) plus margin
	if got := img.RGBAAt(60, 35); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("shape pixel = %v", got)
	}
	// the margin stays white
	if got := img.RGBAAt(2, 2); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("margin pixel = %v", got)
	}
	if _, err := RenderImage(sampleBoard(), PNGOptions{Scale: 100, MaxPixels: 1000}); err == nil {
		t.Fatalf("expected size guard error")
	}
}

func TestExportPNG_CreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "board.png")
	if err := ExportPNG(sampleBoard(), out, PNGOptions{Scale: 2}); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || len(b) < 8 || string(b[1:4]) != "PNG" {
		t.Fatalf("png header missing (%v)", err)
	}
}

func TestRenderSVG(t *testing.T) {
	b, err := RenderSVG(sampleBoard(), SVGOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `rotate(45 `) {
		t.Fatalf("missing rotation transform:\n%s", s)
	}
	if !strings.Contains(s, "&lt;now&gt; &amp;") {
		t.Fatalf("label not escaped:\n%s", s)
	}
	// paint order: shape (z0), text (z1), sticky (z2)
	i1, i3, i2 := strings.Index(s, `data-id="1"`), strings.Index(s, `data-id="3"`), strings.Index(s, `data-id="2"`)
	if !(i1 < i3 && i3 < i2) {
		t.Fatalf("unexpected paint order %d %d %d", i1, i3, i2)
	}
}

func TestBatchExport_Presets(t *testing.T) {
	dir := t.TempDir()
	web, err := BatchExport(sampleBoard(), BatchOptions{Preset: PresetWeb, OutDir: filepath.Join(dir, "web")})
	if err != nil {
		t.Fatalf("web preset: %v", err)
	}
	printed, err := BatchExport(sampleBoard(), BatchOptions{Preset: PresetPrint, OutDir: filepath.Join(dir, "print"), Name: "retro"})
	if err != nil {
		t.Fatalf("print preset: %v", err)
	}
	want := []string{
		filepath.Join(dir, "web", "board.png"),
		filepath.Join(dir, "web", "board.svg"),
		filepath.Join(dir, "print", "retro.pdf"),
		filepath.Join(dir, "print", "retro.png"),
	}
	got := append(web, printed...)
	if len(got) != len(want) {
		t.Fatalf("written = %v", got)
	}
	for i, p := range want {
		if got[i] != p {
			t.Errorf("written[%d] = %s, want %s", i, got[i], p)
		}
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Errorf("missing or empty %s (%v)", p, err)
		}
	}
	if _, err := BatchExport(sampleBoard(), BatchOptions{OutDir: dir, Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestExportFile_ByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "a.PNG", "a.svg"} {
		if err := ExportFile(sampleBoard(), filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if err := ExportFile(sampleBoard(), filepath.Join(dir, "a.gif")); err == nil {
		t.Fatalf("expected error for gif")
	}
}

func TestPaint_ViewTransform(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	els := []domain.Element{
		{ID: 1, Type: domain.TypeShape, X: 10, Y: 10, Width: 20, Height: 20, Properties: json.RawMessage(`{"fill":"#00ff00","stroke":"#00ff00"}`)},
		{ID: 2, Type: domain.TypeShape, X: 5000, Y: 5000, Width: 20, Height: 20},
	}
	// pan by (40, 0) and zoom 2x: element 1 covers x 60..100, y 20..60
	Paint(img, els, vector.Translate(40, 0).Mul(vector.Scale(2, 2)), 2)
	if got := img.RGBAAt(80, 40); got != (color.RGBA{G: 255, A: 255}) {
		t.Fatalf("expected element under the view transform, got %+v", got)
	}
	if got := img.RGBAAt(30, 30); got.A != 0 {
		t.Fatalf("expected untouched pixel left of the element, got %+v", got)
	}
}

func TestRenderImage_LabelFont(t *testing.T) {
	face, err := textlayout.ParseFont(goregular.TTF, 24)
	if err != nil {
		t.Fatalf("ParseFont: %v", err)
	}
	plain, err := RenderImage(sampleBoard(), PNGOptions{Scale: 1, Margin: 10})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	styled, err := RenderImage(sampleBoard(), PNGOptions{Scale: 1, Margin: 10, Font: face})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// the "Hello" text element occupies board (20,300)-(170,340)
	diff := 0
	for y := 310; y < 350; y++ {
		for x := 30; x < 180; x++ {
			if plain.RGBAAt(x, y) != styled.RGBAAt(x, y) {
				diff++
			}
		}
	}
	if diff == 0 {
		t.Fatal("label font did not change the rendered text")
	}
}
