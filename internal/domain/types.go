/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the drawing model: shapes placed on a canvas and the
// drawing that owns them. A drawing serializes to a human-readable JSON
// manifest (see internal/storage).

import (
	"time"

	"godiagram/internal/vector"
)

// Point is a position in canvas units (top-left origin).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in canvas units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Shape is a placed symbol or primitive. Position and Size are pointers so a
// record read from disk with a missing field stays representable; such a
// shape is malformed and is skipped by snapping and alignment.
type Shape struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind,omitempty"`
	Label    string            `json:"label,omitempty"`
	Position *Point            `json:"position,omitempty"`
	Size     *Size             `json:"size,omitempty"`
	Rotation float64           `json:"rotation,omitempty"` // degrees; ignored by snap/align
	Props    map[string]string `json:"props,omitempty"`
}

// Bounds returns the axis-aligned bounding box and whether the shape is well formed.
func (s Shape) Bounds() (vector.Rect, bool) {
	if s.Position == nil || s.Size == nil {
		return vector.Rect{}, false
	}
	p, sz := *s.Position, *s.Size
	if !vector.Finite(p.X, p.Y, sz.Width, sz.Height) || sz.Width < 0 || sz.Height < 0 {
		return vector.Rect{}, false
	}
	return vector.R(p.X, p.Y, sz.Width, sz.Height), true
}

// Valid reports whether the shape has a usable position and size.
func (s Shape) Valid() bool {
	_, ok := s.Bounds()
	return ok
}

// WithPosition returns a copy of s at p. The position pointer is freshly
// allocated; Size and Props are shared with s since they are not modified.
func (s Shape) WithPosition(p Point) Shape {
	s.Position = &p
	return s
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	out := s
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	if s.Size != nil {
		sz := *s.Size
		out.Size = &sz
	}
	if s.Props != nil {
		out.Props = make(map[string]string, len(s.Props))
		for k, v := range s.Props {
			out.Props[k] = v
		}
	}
	return out
}

// GridSettings describes the canvas grid.
type GridSettings struct {
	Size    float64 `json:"size"`
	Visible bool    `json:"visible"`
}

// Metadata contains optional descriptive metadata for a drawing.
type Metadata struct {
	Discipline string `json:"discipline,omitempty"` // electrical, mechanical, pid, mixed
	Author     string `json:"author,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Drawing is a single diagram sheet and the unit of persistence.
type Drawing struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Metadata  Metadata     `json:"metadata,omitempty"`
	Grid      GridSettings `json:"grid"`
	Shapes    []Shape      `json:"shapes"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

// Index returns the position of the shape with the given id or -1.
func (d Drawing) Index(id string) int {
	for i, s := range d.Shapes {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// ShapeAt returns the topmost well-formed shape whose bounds contain p,
// edges included. Later shapes draw over earlier ones.
func (d Drawing) ShapeAt(p Point) (Shape, bool) {
	for i := len(d.Shapes) - 1; i >= 0; i-- {
		r, ok := d.Shapes[i].Bounds()
		if ok && r.Contains(vector.Pt{X: p.X, Y: p.Y}) {
			return d.Shapes[i], true
		}
	}
	return Shape{}, false
}

// Clone returns a deep copy of the drawing.
func (d Drawing) Clone() Drawing {
	out := d
	if d.Shapes != nil {
		out.Shapes = make([]Shape, len(d.Shapes))
		for i, s := range d.Shapes {
			out.Shapes[i] = s.Clone()
		}
	}
	return out
}

// Bounds returns the union of all well-formed shape bounds.
func (d Drawing) Bounds() (vector.Rect, bool) {
	var out vector.Rect
	found := false
	for _, s := range d.Shapes {
		r, ok := s.Bounds()
		if !ok {
			continue
		}
		if !found {
			out, found = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, found
}
