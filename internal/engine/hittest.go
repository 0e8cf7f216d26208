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
	"strings"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/vector"
)

// ElementAt returns the topmost element whose rotated box contains p (board space).
func (e *Engine) ElementAt(p vector.Pt) (domain.ElementID, bool) {
	order := e.PaintOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if order[i].Box().Hit(p) {
			return order[i].ID, true
		}
	}
	return 0, false
}

// HitTest resolves a container-relative screen position to a pointer target.
func (e *Engine) HitTest(screen vector.Pt) Target {
	if id, ok := e.ElementAt(e.View().ToLogical(screen)); ok {
		return OnElement(id)
	}
	return OnBackground()
}

// ParseMenuAction accepts the lower-case entry names ("copy", "cut", ...).
func ParseMenuAction(s string) (MenuAction, error) {
	for _, a := range MenuActions {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown menu action %q", s)
}
