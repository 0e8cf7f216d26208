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
	"errors"
	"log/slog"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"

	"golang.org/x/sync/errgroup"
)

// CanDrag reports whether the element exists and may start a drag.
func (e *Engine) CanDrag(id domain.ElementID) bool {
	el := e.ref(id)
	return el != nil && !el.LockedPosition && e.tool == ToolSelect
}

// CommitDrag stores the position an element was dropped at and persists the
// full geometry. Position-locked elements are rejected without a store call.
func (e *Engine) CommitDrag(id domain.ElementID, x, y float64) error {
	el := e.ref(id)
	if el == nil {
		return e.invalid("commit_drag", ErrUnknownElement, "id %d", id)
	}
	if !vector.Finite(x, y) {
		return e.invalid("commit_drag", ErrInvalidGesture, "position (%v,%v) is not finite", x, y)
	}
	if el.LockedPosition {
		e.opLog("commit_drag").Warn("drag rejected on locked element", slog.Int64("element", int64(id)))
		return ErrPositionLocked
	}
	el.X, el.Y = x, y
	e.persistGeometry("commit_drag", id, el.Geometry())
	return nil
}

// DragEnd commits the position reported by a node the renderer dragged itself.
func (e *Engine) DragEnd(id domain.ElementID, h NodeHandle) error {
	if h == nil {
		return e.invalid("drag_end", ErrInvalidGesture, "nil node for %d", id)
	}
	p := h.Position()
	return e.CommitDrag(id, p.X, p.Y)
}

// BoundBox is the in-gesture bounding function for resize handles: a proposal
// smaller than the minimum usable size keeps the previous box.
func (e *Engine) BoundBox(old, proposed vector.Rect) vector.Rect {
	if proposed.W < e.opts.MinElementSize || proposed.H < e.opts.MinElementSize {
		return old
	}
	return proposed
}

// CommitResizeRotate stores the box a resize or rotate gesture ended with. A box
// below the minimum usable size leaves the pre-gesture geometry in place and
// issues no store call.
func (e *Engine) CommitResizeRotate(id domain.ElementID, box domain.Geometry) error {
	el := e.ref(id)
	if el == nil {
		return e.invalid("commit_resize_rotate", ErrUnknownElement, "id %d", id)
	}
	if !vector.Finite(box.X, box.Y, box.Width, box.Height, box.Rotation) {
		return e.invalid("commit_resize_rotate", ErrInvalidGesture, "box %+v is not finite", box)
	}
	if el.LockedPosition {
		return ErrPositionLocked
	}
	if box.Width < e.opts.MinElementSize || box.Height < e.opts.MinElementSize {
		e.opLog("commit_resize_rotate").Debug("resize below minimum size, restoring",
			slog.Int64("element", int64(id)), slog.Float64("width", box.Width), slog.Float64("height", box.Height))
		return nil
	}
	*el = el.WithGeometry(box)
	e.persistGeometry("commit_resize_rotate", id, box)
	return nil
}

// TransformEnd derives the new box from a transformed node: the accumulated
// scale is applied to the pre-gesture size and then reset on the node.
func (e *Engine) TransformEnd(id domain.ElementID, h NodeHandle) error {
	el := e.ref(id)
	if el == nil {
		return e.invalid("transform_end", ErrUnknownElement, "id %d", id)
	}
	if h == nil {
		return e.invalid("transform_end", ErrInvalidGesture, "nil node for %d", id)
	}
	sx, sy := h.Scale()
	p := h.Position()
	box := domain.Geometry{X: p.X, Y: p.Y, Width: el.Width * sx, Height: el.Height * sy, Rotation: h.Rotation()}
	h.ResetScale()
	return e.CommitResizeRotate(id, box)
}

// persistGeometry sends one transform call. The response is never written back.
func (e *Engine) persistGeometry(op string, id domain.ElementID, g domain.Geometry) {
	store, board := e.store, e.boardID
	if store == nil {
		return
	}
	e.spawn(func(ctx context.Context) {
		if _, err := store.UpdateGeometry(ctx, board, id, g); err != nil {
			e.persistFailed(op, id, err)
		}
	})
}

// DeleteMany removes ids from the local cache and the selection at once, then
// deletes each one remotely in parallel. Failures do not restore anything.
func (e *Engine) DeleteMany(ids []domain.ElementID) []domain.ElementID {
	removed := e.removeElements(ids)
	if len(removed) == 0 {
		return nil
	}
	e.opLog("delete_many").Debug("deleted locally", slog.Int("count", len(removed)))
	store, board := e.store, e.boardID
	if store == nil {
		return removed
	}
	e.spawn(func(ctx context.Context) {
		var g errgroup.Group
		for _, id := range removed {
			id := id
			g.Go(func() error {
				if err := store.Delete(ctx, board, id); err != nil {
					e.persistFailed("delete_many", id, err)
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			e.opLog("delete_many").Warn("some deletions failed", slog.Int("requested", len(removed)))
		}
	})
	return removed
}

// DeleteSelected deletes the current selection.
func (e *Engine) DeleteSelected() []domain.ElementID { return e.DeleteMany(e.selection.IDs()) }
