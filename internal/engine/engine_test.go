/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"testing"

	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
)

func TestNewFillsZeroOptionsFromDefaults(t *testing.T) {
	fs := newFakeStore()
	e := New("board-1", []domain.Element{rect(1, 0, 0, 50, 50, 0)}, fs, Options{Logger: applog.Discard()})

	got, def := e.Options(), DefaultOptions()
	if got.MinElementSize != def.MinElementSize || got.DuplicateOffset != def.DuplicateOffset || got.DragThreshold != def.DragThreshold {
		t.Fatalf("options = %+v", got)
	}

	if err := e.Duplicate(ids(1)); err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	e.Wait()
	if c := fs.ops("create"); len(c) != 1 || c[0].draft.X != 20 || c[0].draft.Y != 20 {
		t.Fatalf("duplicate drafts = %+v", c)
	}

	if err := e.CommitResizeRotate(1, domain.Geometry{Width: 2, Height: 2}); err != nil {
		t.Fatalf("CommitResizeRotate: %v", err)
	}
	e.Wait()
	if el, _ := e.Element(1); el.Width != 50 || el.Height != 50 {
		t.Fatalf("resize below minimum applied: %+v", el)
	}
	if len(fs.ops("update")) != 0 {
		t.Fatalf("resize below minimum persisted")
	}
}

func TestNewKeepsExplicitOptions(t *testing.T) {
	o := testOptions()
	o.MinElementSize = 4
	o.DuplicateOffset = -5
	o.DragThreshold = 8
	got := New("board-1", nil, newFakeStore(), o).Options()
	if got.MinElementSize != 4 || got.DuplicateOffset != -5 || got.DragThreshold != 8 {
		t.Fatalf("options = %+v", got)
	}
}
