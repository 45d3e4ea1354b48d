/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"godiagram/internal/align"
	"godiagram/internal/domain"
	"godiagram/internal/snap"
	"godiagram/internal/vector"
)

// Action is an editor intent. Name doubles as the undo label; actions with
// the same name dispatched in quick succession collapse into one undo step.
type Action interface {
	Name() string
}

// AddShape places a new shape. An empty ID gets a UUID, a nil Size the
// catalog default for Kind. With the place tool active the position snaps.
type AddShape struct{ Shape domain.Shape }

// RemoveShapes deletes shapes by id.
type RemoveShapes struct{ IDs []string }

// MoveShape sets a shape's top-left corner, optionally snapped.
type MoveShape struct {
	ID   string
	To   domain.Point
	Snap bool
}

// ResizeShape sets a shape's size.
type ResizeShape struct {
	ID   string
	Size domain.Size
}

// UpdateShape changes non-geometric fields. Nil pointers leave the field
// alone; a Props entry with an empty value deletes that key.
type UpdateShape struct {
	ID    string
	Label *string
	Kind  *string
	Props map[string]string
}

type SetSelection struct{ IDs []string }

type SetTool struct{ Tool Tool }

type SetSnapOptions struct{ Options snap.Options }

// AlignSelection runs an alignment or distribution mode over the selection.
type AlignSelection struct{ Mode align.Mode }

// GridSelection lays the selection out in a grid.
type GridSelection struct {
	Columns int
	Spacing domain.Point
}

// MatchSpacingSelection makes the gaps between selected shapes equal.
type MatchSpacingSelection struct {
	Gap  float64
	Axis align.Axis
}

func (a AddShape) Name() string              { return "add" }
func (a RemoveShapes) Name() string          { return "remove" }
func (a MoveShape) Name() string             { return "move:" + a.ID }
func (a ResizeShape) Name() string           { return "resize:" + a.ID }
func (a UpdateShape) Name() string           { return "update:" + a.ID }
func (a SetSelection) Name() string          { return "select" }
func (a SetTool) Name() string               { return "tool" }
func (a SetSnapOptions) Name() string        { return "snap-options" }
func (a AlignSelection) Name() string        { return "align:" + string(a.Mode) }
func (a GridSelection) Name() string         { return "grid" }
func (a MatchSpacingSelection) Name() string { return "space" }

// ChangesDrawing reports whether a can modify the drawing (and so belongs in history).
func ChangesDrawing(a Action) bool {
	switch a.(type) {
	case SetSelection, SetTool, SetSnapOptions:
		return false
	default:
		return true
	}
}

// Apply returns the state that results from a. s is not modified. Engine
// no-ops (too few shapes selected) are not errors.
func Apply(s State, a Action) (State, error) {
	next := s.Clone()
	switch a := a.(type) {
	case AddShape:
		return addShape(next, a)
	case RemoveShapes:
		return removeShapes(next, a)
	case MoveShape:
		return moveShape(next, a)
	case ResizeShape:
		return resizeShape(next, a)
	case UpdateShape:
		return updateShape(next, a)
	case SetSelection:
		return setSelection(next, a.IDs)
	case SetTool:
		t, err := ParseTool(string(a.Tool))
		if err != nil {
			return s, err
		}
		next.Tool = t
		return next, nil
	case SetSnapOptions:
		next.Snap = a.Options
		next.Snap.Exclude = append([]string(nil), a.Options.Exclude...)
		return next, nil
	case AlignSelection:
		if _, err := align.ParseMode(string(a.Mode)); err != nil {
			return s, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return withSelection(next, func(sel []domain.Shape) []domain.Shape { return align.Shapes(sel, a.Mode) }), nil
	case GridSelection:
		if a.Columns < 1 || !vector.Finite(a.Spacing.X, a.Spacing.Y) {
			return s, fmt.Errorf("%w: grid needs columns >= 1 and finite spacing", ErrInvalidAction)
		}
		return withSelection(next, func(sel []domain.Shape) []domain.Shape { return align.Grid(sel, a.Columns, a.Spacing) }), nil
	case MatchSpacingSelection:
		if _, err := align.ParseAxis(string(a.Axis)); err != nil || !vector.Finite(a.Gap) {
			return s, fmt.Errorf("%w: match spacing needs a valid axis and finite gap", ErrInvalidAction)
		}
		return withSelection(next, func(sel []domain.Shape) []domain.Shape { return align.MatchSpacing(sel, a.Gap, a.Axis) }), nil
	case nil:
		return s, fmt.Errorf("%w: nil action", ErrInvalidAction)
	default:
		return s, fmt.Errorf("%w: %T", ErrInvalidAction, a)
	}
}

func addShape(s State, a AddShape) (State, error) {
	sh := a.Shape.Clone()
	if strings.TrimSpace(sh.ID) == "" {
		sh.ID = uuid.NewString()
	}
	if s.Drawing.Index(sh.ID) >= 0 {
		return s, fmt.Errorf("%w: %s", ErrDuplicateID, sh.ID)
	}
	if sh.Position == nil || !vector.Finite(sh.Position.X, sh.Position.Y) {
		return s, fmt.Errorf("%w: new shape needs a finite position", ErrInvalidAction)
	}
	if sh.Size == nil {
		size := domain.DefaultSize
		if s.SymbolSize != nil {
			size = s.SymbolSize
		}
		sz := size(sh.Kind)
		sh.Size = &sz
	}
	if s.Tool == ToolPlace {
		res := snap.Position(*sh.Position, s.Drawing.Shapes, s.Snap)
		sh = sh.WithPosition(res.Position)
	}
	s.Drawing.Shapes = append(s.Drawing.Shapes, sh)
	s.Selection = []string{sh.ID}
	return s, nil
}

func removeShapes(s State, a RemoveShapes) (State, error) {
	drop := make(map[string]struct{}, len(a.IDs))
	for _, id := range a.IDs {
		if s.Drawing.Index(id) < 0 {
			return s, fmt.Errorf("%w: %s", ErrShapeNotFound, id)
		}
		drop[id] = struct{}{}
	}
	kept := s.Drawing.Shapes[:0:0]
	for _, sh := range s.Drawing.Shapes {
		if _, ok := drop[sh.ID]; !ok {
			kept = append(kept, sh)
		}
	}
	s.Drawing.Shapes = kept
	sel := s.Selection[:0:0]
	for _, id := range s.Selection {
		if _, ok := drop[id]; !ok {
			sel = append(sel, id)
		}
	}
	s.Selection = sel
	return s, nil
}

func moveShape(s State, a MoveShape) (State, error) {
	i := s.Drawing.Index(a.ID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrShapeNotFound, a.ID)
	}
	if !vector.Finite(a.To.X, a.To.Y) {
		return s, fmt.Errorf("%w: non-finite position", ErrInvalidAction)
	}
	to := a.To
	if a.Snap {
		opts := s.Snap
		opts.Exclude = append(append([]string(nil), s.Snap.Exclude...), a.ID)
		res := snap.Position(to, s.Drawing.Shapes, opts)
		to = res.Position
		if res.Snap == nil && s.Guides.Threshold > 0 {
			// no point target in range; align edges/centers with neighbours
			to, _ = snap.Guides(s.Drawing.Shapes[i].WithPosition(to), s.Drawing.Shapes, s.Guides)
		}
	}
	s.Drawing.Shapes[i] = s.Drawing.Shapes[i].WithPosition(to)
	return s, nil
}

func resizeShape(s State, a ResizeShape) (State, error) {
	i := s.Drawing.Index(a.ID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrShapeNotFound, a.ID)
	}
	if !vector.Finite(a.Size.Width, a.Size.Height) || a.Size.Width < 0 || a.Size.Height < 0 {
		return s, fmt.Errorf("%w: size must be finite and non-negative", ErrInvalidAction)
	}
	sz := a.Size
	s.Drawing.Shapes[i].Size = &sz
	return s, nil
}

func updateShape(s State, a UpdateShape) (State, error) {
	i := s.Drawing.Index(a.ID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrShapeNotFound, a.ID)
	}
	sh := &s.Drawing.Shapes[i]
	if a.Label != nil {
		sh.Label = *a.Label
	}
	if a.Kind != nil {
		sh.Kind = *a.Kind
	}
	for k, v := range a.Props {
		if v == "" {
			delete(sh.Props, k)
			continue
		}
		if sh.Props == nil {
			sh.Props = make(map[string]string, len(a.Props))
		}
		sh.Props[k] = v
	}
	return s, nil
}

func setSelection(s State, ids []string) (State, error) {
	sel := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if s.Drawing.Index(id) < 0 {
			return s, fmt.Errorf("%w: %s", ErrShapeNotFound, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sel = append(sel, id)
	}
	s.Selection = sel
	return s, nil
}

// withSelection runs f over the selected shapes (drawing order) and writes
// the results back in place.
func withSelection(s State, f func([]domain.Shape) []domain.Shape) State {
	var idx []int
	var sel []domain.Shape
	for i, sh := range s.Drawing.Shapes {
		if s.IsSelected(sh.ID) {
			idx = append(idx, i)
			sel = append(sel, sh)
		}
	}
	if len(sel) == 0 {
		return s
	}
	out := f(sel)
	for j, i := range idx {
		s.Drawing.Shapes[i] = out[j]
	}
	return s
}
