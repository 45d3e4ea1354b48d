/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snap computes the snapped cursor position for the drawing canvas.
// Candidates are shape corners, edge midpoints, centers and the nearest grid
// intersection; the closest candidate within the tolerance radius wins.
// All functions are pure and safe to call from pointer-move handlers.
package snap

import (
	"math"

	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

// Kind identifies what a snap point matched. Lower values win distance ties.
type Kind int

const (
	Corner Kind = iota
	EdgeMidpoint
	Center
	Grid
)

func (k Kind) String() string {
	switch k {
	case Corner:
		return "corner"
	case EdgeMidpoint:
		return "edge-midpoint"
	case Center:
		return "center"
	case Grid:
		return "grid"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON and logs.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

const (
	DefaultTolerance = 10.0
	DefaultGridSize  = 20.0
)

// Options controls candidate generation.
type Options struct {
	// Tolerance is the snap radius in canvas units. <= 0 means DefaultTolerance.
	Tolerance float64
	// GridSize is the grid spacing. <= 0 means DefaultGridSize.
	GridSize      float64
	Corners       bool
	EdgeMidpoints bool
	Centers       bool
	Grid          bool
	// Exclude lists shape IDs that never act as candidate sources,
	// typically the shape being dragged.
	Exclude []string
}

// DefaultOptions enables every candidate kind with default tolerance and grid.
func DefaultOptions() Options {
	return Options{
		Tolerance:     DefaultTolerance,
		GridSize:      DefaultGridSize,
		Corners:       true,
		EdgeMidpoints: true,
		Centers:       true,
		Grid:          true,
	}
}

func (o Options) normalized() Options {
	if o.Tolerance <= 0 || !vector.Finite(o.Tolerance) {
		o.Tolerance = DefaultTolerance
	}
	if o.GridSize <= 0 || !vector.Finite(o.GridSize) {
		o.GridSize = DefaultGridSize
	}
	return o
}

// Point is a matched snap target.
type Point struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind Kind    `json:"kind"`
}

// Result is the outcome of Position. Snap is nil when nothing was in range.
type Result struct {
	Position domain.Point
	Snap     *Point
}

// Position returns the snapped position for raw. When no candidate lies
// within the tolerance, raw is returned unchanged with a nil Snap.
//
// Ties on distance go to the higher-priority kind (corner, edge midpoint,
// center, grid) and then to the earlier shape in the slice.
func Position(raw domain.Point, shapes []domain.Shape, opts Options) Result {
	none := Result{Position: raw}
	if !vector.Finite(raw.X, raw.Y) {
		return none
	}
	opts = opts.normalized()
	cursor := vector.Pt{X: raw.X, Y: raw.Y}

	var (
		best     vector.Pt
		bestKind Kind
		bestDist = math.Inf(1)
		found    bool
	)
	consider := func(p vector.Pt, k Kind) {
		d := vector.Dist(cursor, p)
		if d > opts.Tolerance {
			return
		}
		// strict comparison keeps the earliest shape on exact ties
		if !found || d < bestDist || (d == bestDist && k < bestKind) {
			best, bestKind, bestDist, found = p, k, d, true
		}
	}

	excluded := excludeSet(opts.Exclude)
	for _, s := range shapes {
		if _, skip := excluded[s.ID]; skip {
			continue
		}
		r, ok := s.Bounds()
		if !ok {
			continue
		}
		if opts.Corners {
			for _, p := range r.Corners() {
				consider(p, Corner)
			}
		}
		if opts.EdgeMidpoints {
			for _, p := range r.EdgeMidpoints() {
				consider(p, EdgeMidpoint)
			}
		}
		if opts.Centers {
			consider(r.Center(), Center)
		}
	}
	if opts.Grid {
		consider(nearestGrid(cursor, opts.GridSize), Grid)
	}

	if !found {
		return none
	}
	return Result{
		Position: domain.Point{X: best.X, Y: best.Y},
		Snap:     &Point{X: best.X, Y: best.Y, Kind: bestKind},
	}
}

// ToGrid rounds p to the nearest grid intersection regardless of tolerance.
// Used for placing new elements when grid placement is forced.
func ToGrid(p domain.Point, gridSize float64) domain.Point {
	if gridSize <= 0 || !vector.Finite(gridSize, p.X, p.Y) {
		return p
	}
	g := nearestGrid(vector.Pt{X: p.X, Y: p.Y}, gridSize)
	return domain.Point{X: g.X, Y: g.Y}
}

func nearestGrid(p vector.Pt, size float64) vector.Pt {
	return vector.Pt{
		X: math.Round(p.X/size) * size,
		Y: math.Round(p.Y/size) * size,
	}
}

func excludeSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
