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
	"log/slog"
	"sync"

	"boardcanvas/internal/domain"
)

// outbox carries results of background store calls back to the host loop.
type outbox struct {
	mu      sync.Mutex
	pending []func(*Engine)
	closed  bool
	ready   chan struct{}
	wg      sync.WaitGroup
}

func newOutbox() *outbox { return &outbox{ready: make(chan struct{}, 1)} }

func (o *outbox) post(fn func(*Engine)) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.pending = append(o.pending, fn)
	o.mu.Unlock()
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

func (o *outbox) drain() []func(*Engine) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fns := o.pending
	o.pending = nil
	return fns
}

// spawn runs a store call in the background with its own deadline.
func (e *Engine) spawn(fn func(ctx context.Context)) {
	e.out.wg.Add(1)
	timeout := e.opts.PersistTimeout
	go func() {
		defer e.out.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}

// persistFailed logs a failed store call. The optimistic local state is kept.
func (e *Engine) persistFailed(op string, id domain.ElementID, err error) {
	l := e.opLog(op)
	if id != 0 {
		l = l.With(slog.Int64("element", int64(id)))
	}
	l.Error("persist failed", slog.String("err", err.Error()))
	if e.opts.OnPersistError != nil {
		e.opts.OnPersistError(op, id, err)
	}
}

// Ready signals that continuations are waiting for ApplyPending.
func (e *Engine) Ready() <-chan struct{} { return e.out.ready }

// ApplyPending runs queued continuations on the caller's goroutine and
// returns how many were applied.
func (e *Engine) ApplyPending() int {
	fns := e.out.drain()
	for _, fn := range fns {
		fn(e)
	}
	return len(fns)
}

// Wait blocks until every in-flight store call finished, then applies the
// continuations they queued.
func (e *Engine) Wait() {
	e.out.wg.Wait()
	e.ApplyPending()
}

// Close abandons interest in outstanding store calls. Their continuations are
// dropped; the calls themselves run to completion.
func (e *Engine) Close() {
	e.out.mu.Lock()
	e.out.closed = true
	e.out.pending = nil
	e.out.mu.Unlock()
}
