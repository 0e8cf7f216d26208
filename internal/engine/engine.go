/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine turns pointer and keyboard input on a whiteboard canvas into
// selection state, geometric transforms, clipboard operations and persistence
// requests against an element store.
//
// An Engine is not safe for concurrent use. The host calls every exported
// method from its event loop. Store calls run in the background and report
// back through continuations which the host applies with ApplyPending.
package engine

import (
	"context"
	"log/slog"
	"time"

	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/vector"
)

// Store is the remote element store the engine persists to.
type Store interface {
	Create(ctx context.Context, boardID string, d domain.Draft) (domain.Element, error)
	UpdateGeometry(ctx context.Context, boardID string, id domain.ElementID, g domain.Geometry) (domain.Element, error)
	Delete(ctx context.Context, boardID string, id domain.ElementID) error
}

// Options are the interaction policy values. Zero fields take the DefaultOptions value.
type Options struct {
	MinScale        float64
	MaxScale        float64
	ZoomFactor      float64
	MinElementSize  float64
	DuplicateOffset float64
	// DragThreshold is the screen distance a press must travel before it becomes a drag.
	DragThreshold  float64
	PersistTimeout time.Duration
	// Strict panics on operations invoked from an invalid state.
	Strict bool
	Logger *slog.Logger
	// OnPersistError observes every failed store call. It runs on a background goroutine.
	OnPersistError func(op string, id domain.ElementID, err error)
}

// DefaultOptions returns the stock policy.
func DefaultOptions() Options {
	return Options{
		MinScale:        0.2,
		MaxScale:        5,
		ZoomFactor:      1.05,
		MinElementSize:  10,
		DuplicateOffset: 20,
		DragThreshold:   3,
		PersistTimeout:  15 * time.Second,
	}
}

// Engine is the interaction state of one board-viewing session.
type Engine struct {
	boardID string
	store   Store
	opts    Options
	log     *slog.Logger

	elements []domain.Element
	index    map[domain.ElementID]int

	tool      Tool
	viewport  Viewport
	selection Selection
	marquee   Marquee
	clipboard *ClipboardState
	menu      ContextMenu
	container vector.Rect
	nodes     NodeLookup
	press     *press

	out *outbox
}

// New creates an engine for boardID holding a copy of elements.
func New(boardID string, elements []domain.Element, store Store, opts Options) *Engine {
	def := DefaultOptions()
	if opts.MinScale <= 0 {
		opts.MinScale = def.MinScale
	}
	if opts.MaxScale < opts.MinScale {
		opts.MaxScale = max(def.MaxScale, opts.MinScale)
	}
	if opts.ZoomFactor <= 1 {
		opts.ZoomFactor = def.ZoomFactor
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = def.PersistTimeout
	}
	if opts.MinElementSize <= 0 {
		opts.MinElementSize = def.MinElementSize
	}
	if opts.DuplicateOffset == 0 {
		opts.DuplicateOffset = def.DuplicateOffset
	}
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = def.DragThreshold
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("engine")
	}
	l = l.With(slog.String("board", boardID))
	e := &Engine{
		boardID:  boardID,
		store:    store,
		opts:     opts,
		log:      l,
		tool:     ToolSelect,
		viewport: NewViewport(opts.MinScale, opts.MaxScale, opts.ZoomFactor),
		out:      newOutbox(),
	}
	e.Load(elements)
	return e
}

// BoardID returns the board this engine edits.
func (e *Engine) BoardID() string { return e.boardID }

// Options returns the effective policy values.
func (e *Engine) Options() Options { return e.opts }

// Load replaces the element collection, e.g. after a board reload. Selection
// entries whose element disappeared are dropped; an in-flight press on a
// vanished element is abandoned.
func (e *Engine) Load(elements []domain.Element) {
	e.elements = make([]domain.Element, 0, len(elements))
	e.index = make(map[domain.ElementID]int, len(elements))
	for _, el := range elements {
		if _, dup := e.index[el.ID]; dup {
			e.log.Warn("duplicate element id on load", slog.Int64("element", int64(el.ID)))
			continue
		}
		e.index[el.ID] = len(e.elements)
		e.elements = append(e.elements, el.Clone())
	}
	e.pruneSelection()
	if e.press != nil && e.press.kind != pressPan && !e.has(e.press.id) {
		e.press = nil
	}
}

// Elements returns a copy of the local element cache in insertion order.
func (e *Engine) Elements() []domain.Element {
	out := make([]domain.Element, len(e.elements))
	for i, el := range e.elements {
		out[i] = el.Clone()
	}
	return out
}

// PaintOrder returns the elements sorted for painting, bottom first.
func (e *Engine) PaintOrder() []domain.Element {
	out := e.Elements()
	domain.SortByZ(out)
	return out
}

// Element returns a copy of the element with the given id.
func (e *Engine) Element(id domain.ElementID) (domain.Element, bool) {
	i, ok := e.index[id]
	if !ok {
		return domain.Element{}, false
	}
	return e.elements[i].Clone(), true
}

// Len returns the number of known elements.
func (e *Engine) Len() int { return len(e.elements) }

func (e *Engine) has(id domain.ElementID) bool {
	_, ok := e.index[id]
	return ok
}

func (e *Engine) ref(id domain.ElementID) *domain.Element {
	i, ok := e.index[id]
	if !ok {
		return nil
	}
	return &e.elements[i]
}

func (e *Engine) appendElement(el domain.Element) bool {
	if e.has(el.ID) {
		return false
	}
	e.index[el.ID] = len(e.elements)
	e.elements = append(e.elements, el.Clone())
	return true
}

func (e *Engine) removeElements(ids []domain.ElementID) []domain.ElementID {
	drop := make(map[domain.ElementID]struct{}, len(ids))
	var removed []domain.ElementID
	for _, id := range ids {
		if _, seen := drop[id]; seen || !e.has(id) {
			continue
		}
		drop[id] = struct{}{}
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return nil
	}
	kept := e.elements[:0]
	for _, el := range e.elements {
		if _, gone := drop[el.ID]; !gone {
			kept = append(kept, el)
		}
	}
	clear(e.elements[len(kept):])
	e.elements = kept
	e.reindex()
	e.selection.Remove(removed...)
	if e.press != nil && e.press.kind != pressPan {
		if _, gone := drop[e.press.id]; gone {
			e.press = nil
		}
	}
	e.syncMenu()
	return removed
}

func (e *Engine) reindex() {
	clear(e.index)
	for i, el := range e.elements {
		e.index[el.ID] = i
	}
}

func (e *Engine) pruneSelection() {
	e.selection.Retain(e.has)
	e.syncMenu()
}

// SetContainer records the canvas container rectangle in client coordinates.
func (e *Engine) SetContainer(r vector.Rect) { e.container = r }

// SetNodeLookup injects the rendering surface's id to node resolver.
func (e *Engine) SetNodeLookup(l NodeLookup) { e.nodes = l }

// TransformTargets resolves node handles for the current selection. Handles are
// looked up on every call and never retained.
func (e *Engine) TransformTargets() []NodeHandle {
	if e.nodes == nil {
		return nil
	}
	var hs []NodeHandle
	for _, id := range e.selection.IDs() {
		if h, ok := e.nodes.Node(id); ok && h != nil {
			hs = append(hs, h)
		}
	}
	return hs
}

func (e *Engine) opLog(op string) *slog.Logger { return applog.WithOperation(e.log, op) }
