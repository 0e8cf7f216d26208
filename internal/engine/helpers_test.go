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
	"sync"

	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/vector"
)

type storeCall struct {
	op    string
	id    domain.ElementID
	geom  domain.Geometry
	draft domain.Draft
}

// fakeStore records every call and can be told to fail.
type fakeStore struct {
	mu     sync.Mutex
	calls  []storeCall
	nextID domain.ElementID

	failCreateAt int // 1-based index of the create that fails; 0 never
	creates      int
	failDelete   map[domain.ElementID]bool
	failUpdate   error
	// echo, when set, is returned by UpdateGeometry instead of the request.
	echo *domain.Geometry
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 100, failDelete: map[domain.ElementID]bool{}}
}

func (f *fakeStore) Create(_ context.Context, _ string, d domain.Draft) (domain.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.calls = append(f.calls, storeCall{op: "create", draft: d})
	if f.failCreateAt != 0 && f.creates == f.failCreateAt {
		return domain.Element{}, errors.New("create refused")
	}
	f.nextID++
	el := domain.Element{ID: f.nextID, Type: d.Type, X: d.X, Y: d.Y, Width: d.Width, Height: d.Height,
		GroupID: d.GroupID, MediaID: d.MediaID, Properties: d.Properties}
	if d.Rotation != nil {
		el.Rotation = *d.Rotation
	}
	if d.ZIndex != nil {
		el.ZIndex = *d.ZIndex
	}
	return el, nil
}

func (f *fakeStore) UpdateGeometry(_ context.Context, _ string, id domain.ElementID, g domain.Geometry) (domain.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{op: "update", id: id, geom: g})
	if f.failUpdate != nil {
		return domain.Element{}, f.failUpdate
	}
	if f.echo != nil {
		g = *f.echo
	}
	return domain.Element{ID: id}.WithGeometry(g), nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, id domain.ElementID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{op: "delete", id: id})
	if f.failDelete[id] {
		return errors.New("delete refused")
	}
	return nil
}

func (f *fakeStore) ops(op string) []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storeCall
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNode struct {
	pos       domain.Geometry
	sx, sy    float64
	resetCall int
}

func (n *fakeNode) Position() vector.Pt       { return vector.Pt{X: n.pos.X, Y: n.pos.Y} }
func (n *fakeNode) Scale() (float64, float64) { return n.sx, n.sy }
func (n *fakeNode) Rotation() float64         { return n.pos.Rotation }
func (n *fakeNode) ResetScale()               { n.sx, n.sy = 1, 1; n.resetCall++ }

func testOptions() Options {
	o := DefaultOptions()
	o.Logger = applog.Discard()
	return o
}

func rect(id domain.ElementID, x, y, w, h float64, z int) domain.Element {
	return domain.Element{ID: id, Type: domain.TypeShape, X: x, Y: y, Width: w, Height: h, ZIndex: z}
}

// newTestEngine builds an engine over a fake store with three elements.
func newTestEngine() (*Engine, *fakeStore) {
	fs := newFakeStore()
	els := []domain.Element{
		rect(1, 0, 0, 50, 50, 0),
		rect(2, 100, 0, 50, 50, 1),
		rect(3, 200, 200, 40, 30, 2),
	}
	return New("board-1", els, fs, testOptions()), fs
}

func ids(v ...domain.ElementID) []domain.ElementID { return v }
