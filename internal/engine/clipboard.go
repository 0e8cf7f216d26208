/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"boardcanvas/internal/domain"
)

// ClipboardMode records how a snapshot was taken.
type ClipboardMode int

const (
	ClipboardCopy ClipboardMode = iota + 1
	ClipboardCut
)

func (m ClipboardMode) String() string {
	switch m {
	case ClipboardCopy:
		return "copy"
	case ClipboardCut:
		return "cut"
	default:
		return fmt.Sprintf("ClipboardMode(%d)", int(m))
	}
}

// ClipboardState is a deep copy of elements taken at copy or cut time.
type ClipboardState struct {
	Mode     ClipboardMode
	Elements []domain.Element
	pastes   int
}

// Clipboard returns a copy of the clipboard snapshot.
func (e *Engine) Clipboard() (ClipboardState, bool) {
	if e.clipboard == nil {
		return ClipboardState{}, false
	}
	c := *e.clipboard
	c.Elements = cloneAll(c.Elements)
	return c, true
}

func cloneAll(els []domain.Element) []domain.Element {
	out := make([]domain.Element, len(els))
	for i, el := range els {
		out[i] = el.Clone()
	}
	return out
}

// snapshot deep-copies the live elements for ids, in id order.
func (e *Engine) snapshot(op string, ids []domain.ElementID) ([]domain.Element, error) {
	out := make([]domain.Element, 0, len(ids))
	for _, id := range ids {
		el := e.ref(id)
		if el == nil {
			return nil, e.invalid(op, ErrUnknownElement, "id %d", id)
		}
		out = append(out, el.Clone())
	}
	return out, nil
}

// Copy snapshots ids with mode copy. It reports false when ids is empty.
func (e *Engine) Copy(ids []domain.ElementID) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	snap, err := e.snapshot("copy", ids)
	if err != nil {
		return false, err
	}
	e.clipboard = &ClipboardState{Mode: ClipboardCopy, Elements: snap}
	return true, nil
}

// Cut snapshots ids with mode cut and deletes them.
func (e *Engine) Cut(ids []domain.ElementID) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	snap, err := e.snapshot("cut", ids)
	if err != nil {
		return false, err
	}
	e.clipboard = &ClipboardState{Mode: ClipboardCut, Elements: snap}
	e.DeleteMany(ids)
	return true, nil
}

// Duplicate creates offset copies of ids next to the originals.
func (e *Engine) Duplicate(ids []domain.ElementID) error {
	if len(ids) == 0 {
		return nil
	}
	src, err := e.snapshot("duplicate", ids)
	if err != nil {
		return err
	}
	d := e.opts.DuplicateOffset
	e.createSequential("duplicate", drafts(src, d, d))
	return nil
}

// Paste re-creates the clipboard snapshot with fresh store ids, building drafts
// the way Duplicate does. It differs from Duplicate in one case: the first paste
// of a cut snapshot lands at the original position, where the cut elements no
// longer are. Every other paste cascades by the duplicate offset times the paste
// count.
func (e *Engine) Paste() error {
	c := e.clipboard
	if c == nil || len(c.Elements) == 0 {
		return nil
	}
	n := c.pastes
	if c.Mode != ClipboardCut {
		n++
	}
	c.pastes++
	d := e.opts.DuplicateOffset * float64(n)
	e.createSequential("paste", drafts(c.Elements, d, d))
	return nil
}

// drafts turns source elements into create requests: offset position, zIndex one
// above the source, group membership dropped.
func drafts(src []domain.Element, dx, dy float64) []domain.Draft {
	out := make([]domain.Draft, len(src))
	for i, el := range src {
		dr := el.Draft()
		dr.X += dx
		dr.Y += dy
		z := el.ZIndex + 1
		dr.ZIndex = &z
		dr.GroupID = nil
		out[i] = dr
	}
	return out
}

// createSequential issues creates one at a time. Each created element is
// appended locally as it arrives; the selection switches to the new ids once
// the batch settles. A failure stops the batch without undoing earlier creates.
func (e *Engine) createSequential(op string, batch []domain.Draft) {
	store, board := e.store, e.boardID
	if store == nil {
		e.opLog(op).Warn("no store configured, nothing created")
		return
	}
	e.spawn(func(ctx context.Context) {
		created := make([]domain.ElementID, 0, len(batch))
		for _, d := range batch {
			el, err := store.Create(ctx, board, d)
			if err != nil {
				e.persistFailed(op, 0, err)
				break
			}
			created = append(created, el.ID)
			e.out.post(func(e *Engine) {
				if !e.appendElement(el) {
					e.opLog(op).Warn("created id already present", slog.Int64("element", int64(el.ID)))
				}
			})
		}
		if len(created) == 0 {
			return
		}
		e.out.post(func(e *Engine) {
			e.selection.Replace(created)
			e.selection.Retain(e.has)
			e.syncMenu()
		})
	})
}
