/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"log/slog"
	"slices"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

// Selection is a set of element ids that remembers insertion order.
type Selection struct {
	ids []domain.ElementID
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Has(id domain.ElementID) bool { return slices.Contains(s.ids, id) }

// IDs returns the selected ids in the order they were selected.
func (s *Selection) IDs() []domain.ElementID { return slices.Clone(s.ids) }

func (s *Selection) Clear() { s.ids = nil }

// Replace sets the selection to ids, dropping duplicates.
func (s *Selection) Replace(ids []domain.ElementID) {
	s.ids = nil
	for _, id := range ids {
		if !s.Has(id) {
			s.ids = append(s.ids, id)
		}
	}
}

// Toggle adds id when absent and removes it when present.
func (s *Selection) Toggle(id domain.ElementID) {
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		return
	}
	s.ids = append(s.ids, id)
}

func (s *Selection) Remove(ids ...domain.ElementID) {
	s.ids = slices.DeleteFunc(s.ids, func(id domain.ElementID) bool { return slices.Contains(ids, id) })
}

// Retain keeps only the ids for which keep returns true.
func (s *Selection) Retain(keep func(domain.ElementID) bool) {
	s.ids = slices.DeleteFunc(s.ids, func(id domain.ElementID) bool { return !keep(id) })
}

// Marquee is the drag rectangle in logical coordinates.
type Marquee struct {
	Active         bool
	Start, Current vector.Pt
}

// Rect normalizes the two corners.
func (m Marquee) Rect() vector.Rect { return vector.RectFromCorners(m.Start, m.Current) }

// Selected returns the selected ids.
func (e *Engine) Selected() []domain.ElementID { return e.selection.IDs() }

// IsSelected reports whether id is selected.
func (e *Engine) IsSelected(id domain.ElementID) bool { return e.selection.Has(id) }

// Marquee returns the marquee state for rendering.
func (e *Engine) Marquee() Marquee { return e.marquee }

// StartMarquee begins a drag selection at a logical position on the empty canvas.
// The current selection is cleared immediately.
func (e *Engine) StartMarquee(p vector.Pt) error {
	if e.tool != ToolSelect {
		return e.invalid("start_marquee", ErrInvalidGesture, "tool is %s", e.tool)
	}
	if e.marquee.Active {
		return e.invalid("start_marquee", ErrInvalidGesture, "marquee already active")
	}
	if !p.Finite() {
		return e.invalid("start_marquee", ErrInvalidGesture, "position %v is not finite", p)
	}
	e.closeMenu()
	e.selection.Clear()
	e.marquee = Marquee{Active: true, Start: p, Current: p}
	return nil
}

// UpdateMarquee moves the marquee's free corner.
func (e *Engine) UpdateMarquee(p vector.Pt) error {
	if !e.marquee.Active {
		return e.invalid("update_marquee", ErrInvalidGesture, "no active marquee")
	}
	if !p.Finite() {
		return e.invalid("update_marquee", ErrInvalidGesture, "position %v is not finite", p)
	}
	e.marquee.Current = p
	return nil
}

// FinishMarquee selects every element whose footprint overlaps the marquee
// with non-zero area and returns the new selection.
func (e *Engine) FinishMarquee() ([]domain.ElementID, error) {
	if !e.marquee.Active {
		return nil, e.invalid("finish_marquee", ErrInvalidGesture, "no active marquee")
	}
	box := e.marquee.Rect()
	var hit []domain.ElementID
	for _, el := range e.elements {
		if el.Rect().Overlaps(box) {
			hit = append(hit, el.ID)
		}
	}
	e.selection.Replace(hit)
	e.marquee.Active = false
	e.opLog("finish_marquee").Debug("marquee selection", slog.Int("count", len(hit)))
	return e.selection.IDs(), nil
}

// cancelMarquee deactivates the marquee without touching the selection.
func (e *Engine) cancelMarquee() { e.marquee.Active = false }

// ClickSelect selects id alone, or toggles it when additive.
func (e *Engine) ClickSelect(id domain.ElementID, additive bool) error {
	if !e.has(id) {
		return e.invalid("click_select", ErrUnknownElement, "id %d", id)
	}
	e.cancelMarquee()
	e.closeMenu()
	if additive {
		e.selection.Toggle(id)
	} else {
		e.selection.Replace([]domain.ElementID{id})
	}
	return nil
}

// RightClickSelect selects id unless it already belongs to the selection, then
// opens the context menu at the client position relative to the container.
func (e *Engine) RightClickSelect(id domain.ElementID, client vector.Pt) error {
	if !e.has(id) {
		return e.invalid("right_click_select", ErrUnknownElement, "id %d", id)
	}
	e.cancelMarquee()
	if !e.selection.Has(id) {
		e.selection.Replace([]domain.ElementID{id})
	}
	e.openMenu(client)
	return nil
}

// SelectAll selects every element.
func (e *Engine) SelectAll() {
	ids := make([]domain.ElementID, len(e.elements))
	for i, el := range e.elements {
		ids[i] = el.ID
	}
	e.selection.Replace(ids)
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() {
	e.selection.Clear()
	e.syncMenu()
}
