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
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/engine"
	"boardcanvas/internal/vector"
)

// document is the YAML layout:
//
//	container: [0, 0, 1280, 800]
//	steps:
//	  - tool: select
//	  - click: {x: 20, y: 20, shift: true}
//	  - drag: {x: 20, y: 20, to: [120, 20], moves: 4}
//	  - down: {x: 5, y: 5, target: background}
//	  - wheel: {x: 300, y: 200, dy: -1}
//	  - resize: {target: 3, handle: bottom-right, to: [260, 240]}
//	  - rotate: {target: 3, to: [400, 215]}
//	  - key: Delete
//	  - menu: duplicate
//	  - wait
type document struct {
	Container []float64   `yaml:"container"`
	Steps     []yaml.Node `yaml:"steps"`
}

type pointerSpec struct {
	X      float64   `yaml:"x"`
	Y      float64   `yaml:"y"`
	Target string    `yaml:"target"`
	Button string    `yaml:"button"`
	Shift  bool      `yaml:"shift"`
	Ctrl   bool      `yaml:"ctrl"`
	Meta   bool      `yaml:"meta"`
	To     []float64 `yaml:"to"`
	Moves  int       `yaml:"moves"`
	DY     float64   `yaml:"dy"`
	Handle string    `yaml:"handle"`
}

// Parse parses a replay script.
// Every step is either a bare word (wait, select_all) or a single-key mapping
// whose key names the step. Errors carry the line of the offending step; all
// steps are checked so one pass reports every problem.
func Parse(input []byte) (Script, []Error) {
	var s Script
	var root yaml.Node
	if err := yaml.Unmarshal(input, &root); err != nil {
		return s, []Error{{Line: 1, Message: err.Error()}}
	}
	if len(root.Content) == 0 {
		return s, []Error{{Line: 1, Message: "empty script"}}
	}
	var doc document
	if err := root.Decode(&doc); err != nil {
		return s, []Error{{Line: root.Content[0].Line, Column: root.Content[0].Column, Message: err.Error()}}
	}

	var errs []Error
	switch len(doc.Container) {
	case 0:
	case 4:
		c := vector.R(doc.Container[0], doc.Container[1], doc.Container[2], doc.Container[3])
		if !vector.Finite(c.X, c.Y, c.W, c.H) || c.Empty() {
			errs = append(errs, Error{Line: 1, Message: "container must be a finite, non-empty [x, y, width, height]"})
		} else {
			s.Container = c
		}
	default:
		errs = append(errs, Error{Line: 1, Message: "container must be [x, y, width, height]"})
	}

	for i := range doc.Steps {
		n := &doc.Steps[i]
		st, err := parseStep(n)
		if err != nil {
			errs = append(errs, Error{Line: n.Line, Column: n.Column, Message: err.Error()})
			continue
		}
		st.Line = n.Line
		s.Steps = append(s.Steps, st)
	}
	return s, errs
}

func parseStep(n *yaml.Node) (Step, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch strings.ToLower(strings.TrimSpace(n.Value)) {
		case "wait":
			return Step{Kind: StepWait}, nil
		case "select_all", "select-all":
			return Step{Kind: StepSelectAll}, nil
		}
		return Step{}, fmt.Errorf("unknown step %q", n.Value)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return Step{}, fmt.Errorf("a step must have exactly one key, got %d", len(n.Content)/2)
		}
	default:
		return Step{}, fmt.Errorf("a step must be a word or a single-key mapping")
	}

	name, val := strings.ToLower(n.Content[0].Value), n.Content[1]
	switch name {
	case "tool":
		t, err := engine.ParseTool(strings.ToLower(val.Value))
		return Step{Kind: StepTool, Tool: t}, err
	case "key":
		if strings.TrimSpace(val.Value) == "" {
			return Step{}, fmt.Errorf("key needs a key name")
		}
		return Step{Kind: StepKey, Key: val.Value}, nil
	case "menu":
		a, err := engine.ParseMenuAction(val.Value)
		return Step{Kind: StepMenu, Action: a}, err
	}

	kind, ok := pointerKinds[name]
	if !ok {
		return Step{}, fmt.Errorf("unknown step %q", name)
	}
	var spec pointerSpec
	if err := val.Decode(&spec); err != nil {
		return Step{}, err
	}
	return pointerStep(kind, spec)
}

var pointerKinds = map[string]StepKind{
	"down":   StepDown,
	"move":   StepMove,
	"up":     StepUp,
	"click":  StepClick,
	"drag":   StepDrag,
	"wheel":  StepWheel,
	"resize": StepResize,
	"rotate": StepRotate,
}

func pointerStep(kind StepKind, spec pointerSpec) (Step, error) {
	if !vector.Finite(spec.X, spec.Y, spec.DY) {
		return Step{}, fmt.Errorf("%s: coordinates must be finite", kind)
	}
	st := Step{
		Kind:   kind,
		Pos:    vector.P(spec.X, spec.Y),
		Mods:   engine.Modifiers{Shift: spec.Shift, Ctrl: spec.Ctrl, Meta: spec.Meta},
		DeltaY: spec.DY,
	}
	var err error
	if st.Button, err = parseButton(spec.Button); err != nil {
		return Step{}, err
	}
	if st.Target, st.Element, err = parseTarget(spec.Target); err != nil {
		return Step{}, err
	}
	switch kind {
	case StepDrag:
		if len(spec.To) != 2 || !vector.Finite(spec.To...) {
			return Step{}, fmt.Errorf("drag needs to: [x, y]")
		}
		st.To = vector.P(spec.To[0], spec.To[1])
		st.Moves = max(spec.Moves, 1)
	case StepWheel:
		if spec.DY == 0 {
			return Step{}, fmt.Errorf("wheel needs a non-zero dy")
		}
	case StepResize, StepRotate:
		if st.Target != TargetElement {
			return Step{}, fmt.Errorf("%s needs target: <element id>", kind)
		}
		if len(spec.To) != 2 || !vector.Finite(spec.To...) {
			return Step{}, fmt.Errorf("%s needs to: [x, y]", kind)
		}
		st.To = vector.P(spec.To[0], spec.To[1])
		st.Moves = max(spec.Moves, 1)
		st.Handle = engine.HandleRotate
		if kind == StepResize {
			if st.Handle, err = engine.ParseHandle(spec.Handle); err != nil {
				return Step{}, err
			}
			if st.Handle == engine.HandleRotate {
				return Step{}, fmt.Errorf("resize needs a corner handle, use rotate")
			}
		}
	}
	return st, nil
}

func parseButton(s string) (engine.Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary", "left":
		return engine.ButtonPrimary, nil
	case "secondary", "right":
		return engine.ButtonSecondary, nil
	case "middle":
		return engine.ButtonMiddle, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

func parseTarget(s string) (TargetMode, domain.ElementID, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "hit":
		return TargetHit, 0, nil
	case "background", "bg":
		return TargetBackground, 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("target must be hit, background or an element id, got %q", s)
	}
	return TargetElement, domain.ElementID(id), nil
}
