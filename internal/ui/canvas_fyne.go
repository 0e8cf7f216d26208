//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/engine"
	"boardcanvas/internal/export"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/vector"
)

var (
	boardBackground = color.RGBA{R: 245, G: 245, B: 242, A: 255}
	selectionColor  = color.RGBA{R: 30, G: 120, B: 230, A: 255}
	marqueeFill     = color.RGBA{R: 30, G: 120, B: 230, A: 40}
	handleFill      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const handleSize = 2 * engine.HandleRadius

// BoardCanvas hosts an engine: it renders the board through the engine viewport and
// forwards mouse and wheel input as engine pointer events.
type BoardCanvas struct {
	widget.BaseWidget
	eng *engine.Engine
	log *slog.Logger

	// pressed is set between a primary MouseDown and its release.
	pressed bool
	last    vector.Pt
	// gesture is the handle drag in progress, if any.
	gesture *engine.TransformGesture

	// OnChanged runs after every input that may alter the view or selection.
	OnChanged func()
}

var (
	_ desktop.Mouseable = (*BoardCanvas)(nil)
	_ desktop.Hoverable = (*BoardCanvas)(nil)
	_ fyne.Draggable    = (*BoardCanvas)(nil)
	_ fyne.Scrollable   = (*BoardCanvas)(nil)
)

func NewBoardCanvas(e *engine.Engine) *BoardCanvas {
	b := &BoardCanvas{eng: e, log: applog.WithComponent("ui.canvas")}
	e.SetNodeLookup(engine.CommittedNodes(e))
	b.ExtendBaseWidget(b)
	return b
}

// Engine returns the hosted engine.
func (b *BoardCanvas) Engine() *engine.Engine { return b.eng }

// CreateRenderer builds the raster for the board and the vector overlays for selection.
func (b *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{bc: b}
	r.raster = canvas.NewRaster(b.paint)
	r.marquee = canvas.NewRectangle(marqueeFill)
	r.marquee.StrokeColor = selectionColor
	r.marquee.StrokeWidth = 1
	r.marquee.Hide()
	for range engine.HandleRotate {
		c := canvas.NewCircle(handleFill)
		c.StrokeColor = selectionColor
		c.StrokeWidth = 1.5
		c.Resize(fyne.NewSize(handleSize, handleSize))
		c.Hide()
		r.handles = append(r.handles, c)
	}
	r.rebuild(0)
	return r
}

func toPt(p fyne.Position) vector.Pt { return vector.P(float64(p.X), float64(p.Y)) }

func toPos(p vector.Pt) fyne.Position { return fyne.NewPos(float32(p.X), float32(p.Y)) }

func mouseButton(b desktop.MouseButton) engine.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return engine.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return engine.ButtonMiddle
	default:
		return engine.ButtonPrimary
	}
}

func modifiers(m fyne.KeyModifier) engine.Modifiers {
	return engine.Modifiers{
		Shift: m&fyne.KeyModifierShift != 0,
		Ctrl:  m&fyne.KeyModifierControl != 0,
		Meta:  m&fyne.KeyModifierSuper != 0,
	}
}

// syncContainer tells the engine where the widget sits in the window.
func (b *BoardCanvas) syncContainer() {
	d := fyne.CurrentApp().Driver()
	abs := d.AbsolutePositionForObject(b)
	size := b.Size()
	b.eng.SetContainer(vector.R(float64(abs.X), float64(abs.Y), float64(size.Width), float64(size.Height)))
}

func (b *BoardCanvas) event(pos vector.Pt, btn engine.Button, mods engine.Modifiers) engine.PointerEvent {
	return engine.PointerEvent{Pos: pos, Target: b.eng.HitTest(pos), Button: btn, Mods: mods}
}

// handleTarget is the element that shows transform handles: the single selected
// element, when it may be moved.
func (b *BoardCanvas) handleTarget() (domain.Element, bool) {
	sel := b.eng.Selected()
	if len(sel) != 1 || b.eng.Tool() != engine.ToolSelect {
		return domain.Element{}, false
	}
	el, ok := b.eng.Element(sel[0])
	if !ok || el.LockedPosition {
		return domain.Element{}, false
	}
	if b.gesture != nil && b.gesture.ID() == el.ID {
		el = el.WithGeometry(b.gesture.Geometry())
	}
	return el, true
}

// beginHandle starts a resize or rotate drag when pos is on a handle.
func (b *BoardCanvas) beginHandle(pos vector.Pt) bool {
	el, ok := b.handleTarget()
	if !ok {
		return false
	}
	h := engine.HandleAt(el.Box(), b.eng.View(), pos)
	if h == engine.HandleNone {
		return false
	}
	g, err := b.eng.BeginTransform(el.ID, h)
	if err != nil {
		b.log.Debug("transform rejected", slog.String("handle", h.String()), slog.Any("err", err))
		return false
	}
	b.gesture = g
	return true
}

func (b *BoardCanvas) MouseDown(ev *desktop.MouseEvent) {
	b.syncContainer()
	pos := toPt(ev.Position)
	btn := mouseButton(ev.Button)
	if btn == engine.ButtonPrimary && b.beginHandle(pos) {
		b.pressed = true
		b.last = pos
		b.changed()
		return
	}
	if err := b.eng.PointerDown(b.event(pos, btn, modifiers(ev.Modifier))); err != nil {
		b.log.Debug("pointer down rejected", slog.Any("err", err))
	}
	if btn == engine.ButtonPrimary {
		b.pressed = true
		b.last = pos
	}
	if btn == engine.ButtonSecondary && b.eng.Menu().Visible {
		b.showMenu()
	}
	b.changed()
}

func (b *BoardCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !b.pressed {
		return
	}
	b.release(toPt(ev.Position), modifiers(ev.Modifier))
}

func (b *BoardCanvas) MouseIn(*desktop.MouseEvent) {}

func (b *BoardCanvas) MouseMoved(ev *desktop.MouseEvent) { b.move(toPt(ev.Position)) }

func (b *BoardCanvas) MouseOut() {}

func (b *BoardCanvas) Dragged(ev *fyne.DragEvent) { b.move(toPt(ev.Position)) }

// DragEnd completes a press whose MouseUp landed outside the widget.
func (b *BoardCanvas) DragEnd() {
	if b.pressed {
		b.release(b.last, engine.Modifiers{})
	}
}

func (b *BoardCanvas) move(pos vector.Pt) {
	if !b.pressed {
		return
	}
	b.last = pos
	if b.gesture != nil {
		b.gesture.Update(b.eng.View().ToLogical(pos))
		b.Refresh()
		return
	}
	if err := b.eng.PointerMove(b.event(pos, engine.ButtonPrimary, engine.Modifiers{})); err != nil {
		b.log.Debug("pointer move rejected", slog.Any("err", err))
	}
	b.Refresh()
}

func (b *BoardCanvas) release(pos vector.Pt, mods engine.Modifiers) {
	b.pressed = false
	if g := b.gesture; g != nil {
		b.gesture = nil
		if err := g.End(); err != nil {
			b.log.Warn("transform rejected", slog.Int64("element", int64(g.ID())), slog.Any("err", err))
		}
		b.changed()
		return
	}
	if err := b.eng.PointerUp(b.event(pos, engine.ButtonPrimary, mods)); err != nil {
		b.log.Warn("pointer up rejected", slog.Any("err", err))
	}
	b.changed()
}

// Scrolled zooms around the pointer. Fyne reports wheel-up as positive DY.
func (b *BoardCanvas) Scrolled(ev *fyne.ScrollEvent) {
	b.eng.Wheel(toPt(ev.Position), -float64(ev.Scrolled.DY))
	b.changed()
}

// KeyDown forwards a typed key to the engine and reports whether it was consumed.
func (b *BoardCanvas) KeyDown(name fyne.KeyName) bool {
	ok := b.eng.KeyDown(engineKey(string(name)))
	if ok {
		b.changed()
	}
	return ok
}

// SetTool switches the engine tool.
func (b *BoardCanvas) SetTool(t engine.Tool) {
	b.pressed = false
	if b.gesture != nil {
		b.gesture.Cancel()
		b.gesture = nil
	}
	b.eng.SetTool(t)
	b.changed()
}

// ZoomStep zooms around the widget centre; direction is +1 or -1.
func (b *BoardCanvas) ZoomStep(direction int) {
	s := b.Size()
	b.eng.ZoomAt(vector.P(float64(s.Width)/2, float64(s.Height)/2), direction)
	b.changed()
}

// RunAction applies a context menu entry to the selection.
func (b *BoardCanvas) RunAction(a engine.MenuAction) {
	if err := b.eng.RunMenuAction(a); err != nil {
		b.log.Warn("menu action failed", slog.String("action", a.String()), slog.Any("err", err))
	}
	b.changed()
}

func (b *BoardCanvas) showMenu() {
	d := fyne.CurrentApp().Driver()
	c := d.CanvasForObject(b)
	if c == nil {
		b.eng.CloseMenu()
		return
	}
	items := make([]*fyne.MenuItem, 0, len(engine.MenuActions))
	for _, a := range engine.MenuActions {
		a := a
		item := fyne.NewMenuItem(a.String(), func() { b.RunAction(a) })
		item.Disabled = !menuEnabled(b.eng, a)
		items = append(items, item)
	}
	pm := widget.NewPopUpMenu(fyne.NewMenu("", items...), c)
	pm.OnDismiss = func() {
		pm.Hide()
		b.eng.CloseMenu()
		b.changed()
	}
	m := b.eng.Menu()
	pm.ShowAtPosition(d.AbsolutePositionForObject(b).Add(toPos(m.Pos)))
}

func (b *BoardCanvas) changed() {
	b.Refresh()
	if b.OnChanged != nil {
		b.OnChanged()
	}
}

// scene returns the elements to draw, with an in-flight drag or handle drag applied.
func (b *BoardCanvas) scene() []domain.Element {
	els := b.eng.PaintOrder()
	if t := b.gesture; t != nil {
		for i := range els {
			if els[i].ID == t.ID() {
				els[i] = els[i].WithGeometry(t.Geometry())
			}
		}
	}
	if id, g, ok := b.eng.Dragging(); ok {
		for i := range els {
			if els[i].ID == id {
				els[i] = els[i].WithGeometry(g)
			}
		}
	}
	return els
}

// paint renders the board into a w x h pixel image (device pixels).
func (b *BoardCanvas) paint(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: boardBackground}, image.Point{}, draw.Src)
	size := b.Size()
	if size.Width <= 0 || w <= 0 {
		return img
	}
	k := float64(w) / float64(size.Width)
	v := b.eng.View()
	export.Paint(img, b.scene(), vector.Scale(k, k).Mul(v.Transform()), k*v.Scale)
	return img
}

// boardRenderer layers the board raster, selection outlines, transform handles
// and the marquee.
type boardRenderer struct {
	bc       *BoardCanvas
	raster   *canvas.Raster
	marquee  *canvas.Rectangle
	outlines []*canvas.Line
	handles  []*canvas.Circle
	objects  []fyne.CanvasObject
}

func (r *boardRenderer) Destroy()                     {}
func (r *boardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 240) }

func (r *boardRenderer) Refresh() {
	r.Layout(r.bc.Size())
	r.raster.Refresh()
	canvas.Refresh(r.bc)
}

// rebuild sizes the outline pool to n lines.
func (r *boardRenderer) rebuild(n int) {
	for len(r.outlines) < n {
		l := canvas.NewLine(selectionColor)
		l.StrokeWidth = 2
		r.outlines = append(r.outlines, l)
	}
	r.objects = r.objects[:0]
	r.objects = append(r.objects, r.raster)
	for _, l := range r.outlines {
		r.objects = append(r.objects, l)
	}
	for _, c := range r.handles {
		r.objects = append(r.objects, c)
	}
	r.objects = append(r.objects, r.marquee)
}

func (r *boardRenderer) Layout(size fyne.Size) {
	r.raster.Resize(size)
	r.raster.Move(fyne.NewPos(0, 0))

	e := r.bc.eng
	v := e.View()
	var segs [][2]vector.Pt
	for _, el := range r.bc.scene() {
		if !e.IsSelected(el.ID) {
			continue
		}
		c := el.Box().Corners()
		for i := range c {
			segs = append(segs, [2]vector.Pt{v.ToScreen(c[i]), v.ToScreen(c[(i+1)%len(c)])})
		}
	}
	if len(segs) > len(r.outlines) {
		r.rebuild(len(segs))
	}
	for i, l := range r.outlines {
		if i >= len(segs) {
			l.Hide()
			continue
		}
		l.Position1 = toPos(segs[i][0])
		l.Position2 = toPos(segs[i][1])
		l.Show()
	}

	for _, c := range r.handles {
		c.Hide()
	}
	if el, ok := r.bc.handleTarget(); ok {
		for h, at := range engine.HandlePositions(el.Box(), v) {
			c := r.handles[h-engine.HandleTopLeft]
			c.Move(toPos(at.Sub(vector.P(engine.HandleRadius, engine.HandleRadius))))
			c.Show()
		}
	}

	if m := e.Marquee(); m.Active {
		rect := m.Rect()
		a := v.ToScreen(rect.Min())
		b := v.ToScreen(rect.Max())
		r.marquee.Move(toPos(a))
		r.marquee.Resize(fyne.NewSize(float32(b.X-a.X), float32(b.Y-a.Y)))
		r.marquee.Show()
	} else {
		r.marquee.Hide()
	}
}
