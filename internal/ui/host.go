/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"math"
	"strings"

	"boardcanvas/internal/config"
	"boardcanvas/internal/engine"
)

// Options configures the desktop host.
type Options struct {
	Config config.AppConfig
	Token  string
	// BoardID is opened on start. When empty the most recent board is used, or a new one.
	BoardID string
}

const recentMax = 10

// pushRecent moves id to the front of list, dropping duplicates and trimming to max entries.
func pushRecent(list []string, id string, limit int) []string {
	id = strings.TrimSpace(id)
	if id == "" {
		return list
	}
	out := make([]string, 0, min(len(list)+1, limit))
	out = append(out, id)
	for _, s := range list {
		if s == id || strings.TrimSpace(s) == "" {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, s)
	}
	return out
}

// engineKey maps a fyne key name to the names the engine understands.
func engineKey(name string) string {
	switch name {
	case "BackSpace":
		return "Backspace"
	case "Delete":
		return "Delete"
	}
	return name
}

// statusText summarises the engine for the status bar.
func statusText(e *engine.Engine) string {
	v := e.Viewport()
	parts := []string{
		fmt.Sprintf("%d elements", e.Len()),
		fmt.Sprintf("%d selected", len(e.Selected())),
		fmt.Sprintf("zoom %d%%", int(math.Round(v.Scale*100))),
		"tool " + e.Tool().String(),
	}
	if cb, ok := e.Clipboard(); ok {
		parts = append(parts, fmt.Sprintf("clipboard %s (%d)", strings.ToLower(cb.Mode.String()), len(cb.Elements)))
	}
	return strings.Join(parts, " | ")
}

// menuEnabled reports whether a context menu entry applies to the current state.
func menuEnabled(e *engine.Engine, a engine.MenuAction) bool {
	if a == engine.MenuPaste {
		_, ok := e.Clipboard()
		return ok
	}
	return len(e.Selected()) > 0
}
