/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

// Tool selects how pointer input is interpreted.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPan
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolPan:
		return "pan"
	default:
		return fmt.Sprintf("Tool(%d)", int(t))
	}
}

// ParseTool accepts "select" and "pan" (and "hand" as an alias of pan).
func ParseTool(s string) (Tool, error) {
	switch s {
	case "select":
		return ToolSelect, nil
	case "pan", "hand":
		return ToolPan, nil
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

// TargetKind says what a pointer event hit.
type TargetKind int

const (
	TargetBackground TargetKind = iota
	TargetElement
	// TargetMenu is the open context menu; such events never reach the canvas.
	TargetMenu
)

// Target is the concrete hit of a pointer event.
type Target struct {
	Kind TargetKind
	ID   domain.ElementID
}

func OnBackground() Target                 { return Target{Kind: TargetBackground} }
func OnElement(id domain.ElementID) Target { return Target{Kind: TargetElement, ID: id} }
func OnMenu() Target                       { return Target{Kind: TargetMenu} }

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

type Modifiers struct {
	Shift, Ctrl, Meta bool
}

// Additive reports whether a click should toggle instead of replace.
func (m Modifiers) Additive() bool { return m.Shift || m.Ctrl || m.Meta }

// PointerEvent is a pointer sample in surface coordinates (the container's pixel space).
type PointerEvent struct {
	Pos    vector.Pt
	Target Target
	Button Button
	Mods   Modifiers
}

type pressKind int

const (
	pressElement pressKind = iota + 1
	pressPan
)

// press tracks a primary-button gesture between down and up.
type press struct {
	kind           pressKind
	id             domain.ElementID
	start, current vector.Pt
	origin         vector.Pt
	originOffset   vector.Pt
	additive       bool
	draggable      bool
	dragging       bool
}

// Tool returns the active tool.
func (e *Engine) Tool() Tool { return e.tool }

// SetTool switches tools. Any marquee or press in progress is dropped and the
// context menu closes.
func (e *Engine) SetTool(t Tool) {
	e.cancelMarquee()
	e.press = nil
	e.closeMenu()
	e.tool = t
}

// Dragging reports the live geometry of an element being dragged.
func (e *Engine) Dragging() (domain.ElementID, domain.Geometry, bool) {
	p := e.press
	if p == nil || p.kind != pressElement || !p.dragging {
		return 0, domain.Geometry{}, false
	}
	el := e.ref(p.id)
	if el == nil {
		return 0, domain.Geometry{}, false
	}
	g := el.Geometry()
	pos := e.dragPosition(p)
	g.X, g.Y = pos.X, pos.Y
	return p.id, g, true
}

func (e *Engine) dragPosition(p *press) vector.Pt {
	return p.origin.Add(p.current.Sub(p.start).Mul(1 / e.viewport.Scale))
}

// PointerDown routes a button press.
func (e *Engine) PointerDown(ev PointerEvent) error {
	if ev.Target.Kind == TargetMenu {
		return nil
	}
	e.closeMenu()
	switch ev.Button {
	case ButtonSecondary:
		if e.tool == ToolSelect && ev.Target.Kind == TargetElement {
			return e.RightClickSelect(ev.Target.ID, ev.Pos.Add(e.container.Min()))
		}
		return nil
	case ButtonPrimary:
	default:
		return nil
	}
	if e.press != nil {
		return e.invalid("pointer_down", ErrInvalidGesture, "press already in progress")
	}
	switch e.tool {
	case ToolPan:
		e.press = &press{kind: pressPan, start: ev.Pos, current: ev.Pos, originOffset: e.viewport.Offset}
		return nil
	case ToolSelect:
		if ev.Target.Kind == TargetBackground {
			return e.StartMarquee(e.viewport.ToLogical(ev.Pos))
		}
		el := e.ref(ev.Target.ID)
		if el == nil {
			return e.invalid("pointer_down", ErrUnknownElement, "id %d", ev.Target.ID)
		}
		e.press = &press{
			kind:      pressElement,
			id:        el.ID,
			start:     ev.Pos,
			current:   ev.Pos,
			origin:    vector.Pt{X: el.X, Y: el.Y},
			additive:  ev.Mods.Additive(),
			draggable: !el.LockedPosition,
		}
	}
	return nil
}

// PointerMove routes pointer motion.
func (e *Engine) PointerMove(ev PointerEvent) error {
	if p := e.press; p != nil {
		p.current = ev.Pos
		if p.kind == pressElement && !p.dragging && p.draggable && p.current.Dist(p.start) > e.opts.DragThreshold {
			p.dragging = true
		}
		return nil
	}
	if e.marquee.Active {
		return e.UpdateMarquee(e.viewport.ToLogical(ev.Pos))
	}
	return nil
}

// PointerUp completes the gesture started by PointerDown.
func (e *Engine) PointerUp(ev PointerEvent) error {
	if ev.Button != ButtonPrimary {
		return nil
	}
	if p := e.press; p != nil {
		e.press = nil
		p.current = ev.Pos
		switch p.kind {
		case pressPan:
			return e.PanTo(p.originOffset.Add(p.current.Sub(p.start)))
		case pressElement:
			if p.dragging {
				pos := e.dragPosition(p)
				return e.CommitDrag(p.id, pos.X, pos.Y)
			}
			return e.ClickSelect(p.id, p.additive)
		}
		return nil
	}
	if e.marquee.Active {
		if err := e.UpdateMarquee(e.viewport.ToLogical(ev.Pos)); err != nil {
			return err
		}
		_, err := e.FinishMarquee()
		return err
	}
	return nil
}

// Wheel zooms around the pointer: scrolling up (negative delta) zooms in.
func (e *Engine) Wheel(pos vector.Pt, deltaY float64) {
	switch {
	case deltaY < 0:
		e.ZoomAt(pos, 1)
	case deltaY > 0:
		e.ZoomAt(pos, -1)
	}
}

// KeyDown handles global shortcuts. It reports true when the key was consumed
// and the host must suppress its default handling.
func (e *Engine) KeyDown(key string) bool {
	switch key {
	case "Delete", "Backspace":
		if e.selection.Len() == 0 {
			return false
		}
		e.DeleteSelected()
		return true
	}
	return false
}
