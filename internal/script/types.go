/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/engine"
	"boardcanvas/internal/vector"
)

// Script is a recorded sequence of host input replayed against an engine.
// Positions are container-relative screen pixels, as a host would report them.
type Script struct {
	// Container is the canvas rectangle in client coordinates. Zero means 1280x800 at the origin.
	Container vector.Rect
	Steps     []Step
}

// StepKind indicates what a step feeds into the engine.
type StepKind int

const (
	StepUnknown StepKind = iota
	StepTool
	StepDown
	StepMove
	StepUp
	StepClick
	StepDrag
	StepWheel
	StepKey
	StepMenu
	StepWait
	StepSelectAll
	StepResize
	StepRotate
)

var stepNames = map[StepKind]string{
	StepTool:      "tool",
	StepDown:      "down",
	StepMove:      "move",
	StepUp:        "up",
	StepClick:     "click",
	StepDrag:      "drag",
	StepWheel:     "wheel",
	StepKey:       "key",
	StepMenu:      "menu",
	StepWait:      "wait",
	StepSelectAll: "select_all",
	StepResize:    "resize",
	StepRotate:    "rotate",
}

func (k StepKind) String() string {
	if s, ok := stepNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// TargetMode says how a pointer step picks its target.
type TargetMode int

const (
	// TargetHit hit-tests the position the way the desktop host does.
	TargetHit TargetMode = iota
	TargetBackground
	TargetElement
)

// Step is one input event (or a compound click/drag).
type Step struct {
	Kind StepKind
	Pos  vector.Pt
	// To and Moves are set for drags and handle drags: Moves intermediate
	// positions are sent before the release.
	To    vector.Pt
	Moves int
	// Handle is the transform handle a resize or rotate step grabs. The drag
	// starts wherever that handle is drawn.
	Handle engine.Handle

	Target  TargetMode
	Element domain.ElementID
	Button  engine.Button
	Mods    engine.Modifiers

	Tool   engine.Tool
	Key    string
	Action engine.MenuAction
	DeltaY float64

	Line int // 1-based source line
}

// Error represents a parse or replay error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
