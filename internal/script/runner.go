/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"log/slog"

	"boardcanvas/internal/domain"
	"boardcanvas/internal/engine"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/vector"
)

// DefaultContainer is used when a script does not place the canvas.
var DefaultContainer = vector.R(0, 0, 1280, 800)

var errMenuClosed = errors.New("context menu is not open")

// Report is the outcome of a replay.
type Report struct {
	Steps    int
	Failures []Error
}

// Run replays s against e. A step the engine rejects is recorded and the replay
// continues with the next one. Continuations are applied after every step, and
// in-flight store calls are awaited before Run returns. Run installs its own
// node lookup so handle drags have nodes to move.
func Run(e *engine.Engine, s Script) Report {
	l := applog.WithOperation(applog.WithComponent("replay"), "run").With(slog.String("board", e.BoardID()))
	c := s.Container
	if c.Empty() {
		c = DefaultContainer
	}
	e.SetContainer(c)
	e.SetNodeLookup(engine.CommittedNodes(e))

	var rep Report
	for _, st := range s.Steps {
		if err := apply(e, st); err != nil {
			l.Warn("step rejected", slog.Int("line", st.Line), slog.String("step", st.Kind.String()), slog.Any("err", err))
			rep.Failures = append(rep.Failures, Error{Line: st.Line, Message: err.Error()})
		}
		e.ApplyPending()
		rep.Steps++
	}
	e.Wait()
	l.Info("replay finished", slog.Int("steps", rep.Steps), slog.Int("failures", len(rep.Failures)))
	return rep
}

func apply(e *engine.Engine, st Step) error {
	switch st.Kind {
	case StepTool:
		e.SetTool(st.Tool)
	case StepDown:
		return e.PointerDown(pointer(e, st, st.Pos))
	case StepMove:
		return e.PointerMove(pointer(e, st, st.Pos))
	case StepUp:
		return e.PointerUp(pointer(e, st, st.Pos))
	case StepClick:
		ev := pointer(e, st, st.Pos)
		if err := e.PointerDown(ev); err != nil {
			return err
		}
		return e.PointerUp(ev)
	case StepDrag:
		return drag(e, st)
	case StepWheel:
		e.Wheel(st.Pos, st.DeltaY)
	case StepKey:
		e.KeyDown(st.Key)
	case StepMenu:
		if !e.Menu().Visible {
			return errMenuClosed
		}
		return e.RunMenuAction(st.Action)
	case StepWait:
		e.Wait()
	case StepSelectAll:
		e.SelectAll()
	case StepResize, StepRotate:
		return handleDrag(e, st)
	default:
		return errors.New("unknown step")
	}
	return nil
}

func drag(e *engine.Engine, st Step) error {
	down := pointer(e, st, st.Pos)
	if err := e.PointerDown(down); err != nil {
		return err
	}
	ev := down
	for i := 1; i <= st.Moves; i++ {
		f := float64(i) / float64(st.Moves)
		ev.Pos = st.Pos.Add(st.To.Sub(st.Pos).Mul(f))
		if err := e.PointerMove(ev); err != nil {
			return err
		}
	}
	ev.Pos = st.To
	return e.PointerUp(ev)
}

// handleDrag grabs a transform handle where it is drawn and drags it to st.To,
// the way the desktop canvas does.
func handleDrag(e *engine.Engine, st Step) error {
	g, err := e.BeginTransform(st.Element, st.Handle)
	if err != nil {
		return err
	}
	from := engine.HandlePositions(g.Box(), e.View())[st.Handle]
	for i := 1; i <= st.Moves; i++ {
		f := float64(i) / float64(st.Moves)
		g.Update(e.View().ToLogical(from.Add(st.To.Sub(from).Mul(f))))
	}
	return g.End()
}

// pointer builds the event a host would deliver at pos.
func pointer(e *engine.Engine, st Step, pos vector.Pt) engine.PointerEvent {
	ev := engine.PointerEvent{Pos: pos, Button: st.Button, Mods: st.Mods}
	switch st.Target {
	case TargetBackground:
		ev.Target = engine.OnBackground()
	case TargetElement:
		ev.Target = engine.OnElement(st.Element)
	default:
		ev.Target = e.HitTest(pos)
	}
	return ev
}

// ElementSummary is the committed state of one element after a replay.
type ElementSummary struct {
	ID       domain.ElementID   `yaml:"id" json:"id"`
	Type     domain.ElementType `yaml:"type" json:"type"`
	X        float64            `yaml:"x" json:"x"`
	Y        float64            `yaml:"y" json:"y"`
	Width    float64            `yaml:"width" json:"width"`
	Height   float64            `yaml:"height" json:"height"`
	Rotation float64            `yaml:"rotation" json:"rotation"`
	ZIndex   int                `yaml:"z" json:"zIndex"`
}

// Summary is what the replay command prints.
type Summary struct {
	Tool      string             `yaml:"tool" json:"tool"`
	Scale     float64            `yaml:"scale" json:"scale"`
	Offset    [2]float64         `yaml:"offset,flow" json:"offset"`
	Selected  []domain.ElementID `yaml:"selected,flow" json:"selected"`
	Clipboard string             `yaml:"clipboard,omitempty" json:"clipboard,omitempty"`
	Elements  []ElementSummary   `yaml:"elements" json:"elements"`
	Failures  []string           `yaml:"failures,omitempty" json:"failures,omitempty"`
}

// Summarize captures the engine state after a replay.
func Summarize(e *engine.Engine, rep Report) Summary {
	v := e.Viewport()
	sum := Summary{
		Tool:     e.Tool().String(),
		Scale:    vector.FloatRound(v.Scale, 4),
		Offset:   [2]float64{vector.FloatRound(v.Offset.X, 2), vector.FloatRound(v.Offset.Y, 2)},
		Selected: e.Selected(),
	}
	if cb, ok := e.Clipboard(); ok {
		sum.Clipboard = cb.Mode.String()
	}
	for _, el := range e.PaintOrder() {
		sum.Elements = append(sum.Elements, ElementSummary{
			ID: el.ID, Type: el.Type,
			X: vector.FloatRound(el.X, 2), Y: vector.FloatRound(el.Y, 2),
			Width: vector.FloatRound(el.Width, 2), Height: vector.FloatRound(el.Height, 2),
			Rotation: vector.FloatRound(el.Rotation, 2), ZIndex: el.ZIndex,
		})
	}
	for _, f := range rep.Failures {
		sum.Failures = append(sum.Failures, f.Error())
	}
	return sum
}
