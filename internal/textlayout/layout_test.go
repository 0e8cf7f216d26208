/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "testing"

func TestWrap_BreaksOnWidth(t *testing.T) {
	box := Wrap(BasicProvider{}, "Hello world from Go", 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %q", box.Lines)
	}
	for _, l := range box.Lines {
		if w, _ := Measure(nil, l); w > 50 && len(l) > 5 {
			t.Errorf("line %q is %v px wide", l, w)
		}
	}
	if box.Width <= 0 || box.Height != float64(len(box.Lines))*box.Metrics.LineHeight() {
		t.Fatalf("unexpected box size: %+v", box)
	}
}

func TestWrap_NewlinesAndNoLimit(t *testing.T) {
	box := Wrap(nil, "one two\nthree", 0)
	if len(box.Lines) != 2 || box.Lines[0] != "one two" || box.Lines[1] != "three" {
		t.Fatalf("lines = %q", box.Lines)
	}
}

func TestWrap_LongWordKeepsOwnLine(t *testing.T) {
	box := Wrap(nil, "a supercalifragilistic b", 30)
	if len(box.Lines) != 3 || box.Lines[1] != "supercalifragilistic" {
		t.Fatalf("lines = %q", box.Lines)
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, "ABC")
	w2, h2 := Measure(nil, "ABC")
	if w1 != w2 || h1 != h2 || w1 != 21 {
		t.Fatalf("measure mismatch: %v/%v vs %v/%v", w1, h1, w2, h2)
	}
}
