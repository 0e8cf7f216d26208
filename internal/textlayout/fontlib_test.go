/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestParseFont_SizeScalesMetrics(t *testing.T) {
	small, err := ParseFont(goregular.TTF, 10)
	if err != nil {
		t.Fatalf("ParseFont: %v", err)
	}
	big, err := ParseFont(goregular.TTF, 30)
	if err != nil {
		t.Fatalf("ParseFont: %v", err)
	}
	ws, _ := Measure(small, "Sticky")
	wb, _ := Measure(big, "Sticky")
	if ws <= 0 || wb <= 2*ws {
		t.Fatalf("widths small=%v big=%v", ws, wb)
	}
	_, m := big.Face()
	if m.LineHeight() <= 0 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestParseFont_Invalid(t *testing.T) {
	if _, err := ParseFont([]byte("not a font"), 12); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolve(t *testing.T) {
	p, err := Resolve("", 0)
	if err != nil {
		t.Fatalf("Resolve empty: %v", err)
	}
	if _, ok := p.(BasicProvider); !ok {
		t.Fatalf("provider = %T", p)
	}
	p, err = Resolve(filepath.Join(t.TempDir(), "missing.ttf"), 12)
	if err == nil {
		t.Fatal("expected error for missing font")
	}
	if w, _ := Measure(p, "ABC"); w != 21 {
		t.Fatalf("fallback width = %v", w)
	}
	var nilFace *FaceProvider
	if w, _ := Measure(nilFace, "ABC"); w != 21 {
		t.Fatalf("nil provider width = %v", w)
	}
}
