/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package align repositions a selection of shapes: edge/center alignment,
// even distribution, grid arrangement and fixed-gap spacing.
//
// Every function returns a new slice in input order and never mutates its
// argument. Only positions change. Malformed shapes (see domain.Shape.Bounds)
// are passed through untouched and do not count towards an operation's
// minimum; below the minimum the input is returned as an unchanged copy.
package align

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

// Mode selects an alignment or distribution rule.
type Mode string

const (
	Left                 Mode = "left"
	CenterH              Mode = "center-h"
	Right                Mode = "right"
	Top                  Mode = "top"
	MiddleV              Mode = "middle-v"
	Bottom               Mode = "bottom"
	DistributeHorizontal Mode = "distribute-horizontal"
	DistributeVertical   Mode = "distribute-vertical"
)

// Modes lists all modes in toolbar order.
var Modes = []Mode{Left, CenterH, Right, Top, MiddleV, Bottom, DistributeHorizontal, DistributeVertical}

// ParseMode resolves a mode name (case-insensitive).
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown alignment mode %q", s)
}

// MinShapes returns how many well-formed shapes the mode needs to do anything.
func (m Mode) MinShapes() int {
	if m == DistributeHorizontal || m == DistributeVertical {
		return 3
	}
	return 2
}

// Axis is a layout direction.
type Axis string

const (
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"
)

// ParseAxis accepts "horizontal"/"vertical" and the shorthands "h"/"v", "x"/"y".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h", "x":
		return Horizontal, nil
	case "vertical", "v", "y":
		return Vertical, nil
	}
	return "", fmt.Errorf("unknown axis %q", s)
}

// item is a well-formed shape and its index in the input.
type item struct {
	idx int
	r   vector.Rect
}

func collect(shapes []domain.Shape) []item {
	items := make([]item, 0, len(shapes))
	for i, s := range shapes {
		if r, ok := s.Bounds(); ok {
			items = append(items, item{idx: i, r: r})
		}
	}
	return items
}

func copyShapes(shapes []domain.Shape) []domain.Shape {
	if shapes == nil {
		return nil
	}
	out := make([]domain.Shape, len(shapes))
	copy(out, shapes)
	return out
}

// place writes new positions for items into a copy of shapes.
func place(shapes []domain.Shape, items []item, pos func(it item) domain.Point) []domain.Shape {
	out := copyShapes(shapes)
	for _, it := range items {
		out[it.idx] = out[it.idx].WithPosition(pos(it))
	}
	return out
}

// Shapes applies an alignment or distribution mode.
//
// center-h and middle-v align to the center of the selection's bounding box.
// Distribution orders shapes by center along the axis (stable), keeps the
// first and last fixed and spaces the interior centers evenly between them.
// Ordering by center keeps a second pass from picking different anchors.
func Shapes(shapes []domain.Shape, mode Mode) []domain.Shape {
	items := collect(shapes)
	if len(items) < mode.MinShapes() {
		return copyShapes(shapes)
	}
	switch mode {
	case Left, CenterH, Right, Top, MiddleV, Bottom:
		return alignEdges(shapes, items, mode)
	case DistributeHorizontal:
		return distribute(shapes, items, Horizontal)
	case DistributeVertical:
		return distribute(shapes, items, Vertical)
	default:
		return copyShapes(shapes)
	}
}

func alignEdges(shapes []domain.Shape, items []item, mode Mode) []domain.Shape {
	box := items[0].r
	for _, it := range items[1:] {
		box = box.Union(it.r)
	}
	return place(shapes, items, func(it item) domain.Point {
		x, y := it.r.X, it.r.Y
		switch mode {
		case Left:
			x = box.X
		case Right:
			x = box.Right() - it.r.W
		case CenterH:
			x = box.Center().X - it.r.W/2
		case Top:
			y = box.Y
		case Bottom:
			y = box.Bottom() - it.r.H
		case MiddleV:
			y = box.Center().Y - it.r.H/2
		}
		return domain.Point{X: x, Y: y}
	})
}

func center(r vector.Rect, axis Axis) float64 {
	if axis == Horizontal {
		return r.X + r.W/2
	}
	return r.Y + r.H/2
}

func start(r vector.Rect, axis Axis) float64 {
	if axis == Horizontal {
		return r.X
	}
	return r.Y
}

func extent(r vector.Rect, axis Axis) float64 {
	if axis == Horizontal {
		return r.W
	}
	return r.H
}

func distribute(shapes []domain.Shape, items []item, axis Axis) []domain.Shape {
	sorted := make([]item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return center(sorted[i].r, axis) < center(sorted[j].r, axis)
	})
	first := center(sorted[0].r, axis)
	last := center(sorted[len(sorted)-1].r, axis)
	step := (last - first) / float64(len(sorted)-1)

	rank := make(map[int]int, len(sorted))
	for i, it := range sorted {
		rank[it.idx] = i
	}
	n := len(sorted)
	return place(shapes, items, func(it item) domain.Point {
		x, y := it.r.X, it.r.Y
		i := rank[it.idx]
		if i == 0 || i == n-1 {
			return domain.Point{X: x, Y: y}
		}
		c := first + float64(i)*step
		if axis == Horizontal {
			x = c - it.r.W/2
		} else {
			y = c - it.r.H/2
		}
		return domain.Point{X: x, Y: y}
	})
}

// Grid arranges well-formed shapes in input order into rows of columns cells.
// Cell (row, col) is placed at origin + (col*spacing.X, row*spacing.Y) where
// origin is the first well-formed shape's current position.
// columns < 1 or non-finite spacing leaves the input unchanged.
func Grid(shapes []domain.Shape, columns int, spacing domain.Point) []domain.Shape {
	items := collect(shapes)
	if columns < 1 || len(items) == 0 || !vector.Finite(spacing.X, spacing.Y) {
		return copyShapes(shapes)
	}
	origin := items[0].r.Min()
	order := make(map[int]int, len(items))
	for i, it := range items {
		order[it.idx] = i
	}
	return place(shapes, items, func(it item) domain.Point {
		i := order[it.idx]
		row, col := i/columns, i%columns
		return domain.Point{
			X: origin.X + float64(col)*spacing.X,
			Y: origin.Y + float64(row)*spacing.Y,
		}
	})
}

// MatchSpacing lays shapes out along axis with exactly gap units between
// consecutive edges. Shapes are ordered by their leading edge; the first
// one stays put. Needs at least 3 well-formed shapes.
func MatchSpacing(shapes []domain.Shape, gap float64, axis Axis) []domain.Shape {
	items := collect(shapes)
	if len(items) < 3 || !vector.Finite(gap) || (axis != Horizontal && axis != Vertical) {
		return copyShapes(shapes)
	}
	sorted := make([]item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return start(sorted[i].r, axis) < start(sorted[j].r, axis)
	})
	next := make(map[int]float64, len(sorted))
	cursor := start(sorted[0].r, axis)
	for _, it := range sorted {
		next[it.idx] = cursor
		cursor += extent(it.r, axis) + gap
	}
	return place(shapes, items, func(it item) domain.Point {
		if axis == Horizontal {
			return domain.Point{X: next[it.idx], Y: it.r.Y}
		}
		return domain.Point{X: it.r.X, Y: next[it.idx]}
	})
}

// Gaps returns the edge-to-edge gaps between consecutive well-formed shapes
// ordered along axis. Useful for checking spacing after a layout.
func Gaps(shapes []domain.Shape, axis Axis) []float64 {
	items := collect(shapes)
	sort.SliceStable(items, func(i, j int) bool {
		return start(items[i].r, axis) < start(items[j].r, axis)
	})
	if len(items) < 2 {
		return nil
	}
	out := make([]float64, 0, len(items)-1)
	for i := 1; i < len(items); i++ {
		prev := items[i-1].r
		d := start(items[i].r, axis) - (start(prev, axis) + extent(prev, axis))
		out = append(out, vector.FloatRound(d, 6))
	}
	return out
}

// Equal reports whether two shape slices have the same positions, within eps.
func Equal(a, b []domain.Shape, eps float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
		pa, pb := a[i].Position, b[i].Position
		if (pa == nil) != (pb == nil) {
			return false
		}
		if pa != nil && (math.Abs(pa.X-pb.X) > eps || math.Abs(pa.Y-pb.Y) > eps) {
			return false
		}
	}
	return true
}
