/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvalidGesture marks an operation invoked from a state where it is not valid.
	ErrInvalidGesture = errors.New("operation invalid in current interaction state")
	// ErrUnknownElement marks a reference to an id the engine does not hold.
	ErrUnknownElement = errors.New("unknown element")
	// ErrPositionLocked is returned when a geometry commit targets a position-locked element.
	ErrPositionLocked = errors.New("element position is locked")
)

// invalid reports an engine bug: logged, panicking in strict mode.
func (e *Engine) invalid(op string, cause error, format string, args ...any) error {
	err := fmt.Errorf("%s: %w: %s", op, cause, fmt.Sprintf(format, args...))
	if !errors.Is(cause, ErrInvalidGesture) {
		err = fmt.Errorf("%w (%w)", err, ErrInvalidGesture)
	}
	e.opLog(op).Error("invalid gesture", slog.String("err", err.Error()))
	if e.opts.Strict {
		panic(err)
	}
	return err
}
