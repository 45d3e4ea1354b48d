/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Smart guides for dragging a shape across the canvas. The moving rect is
// snapped per axis against the edges and centers of the other shapes, and the
// matched alignment is reported as a guide line for the UI to draw.

import "math"

// GuideOptions controls which guide candidates are considered and the threshold.
type GuideOptions struct {
	// Threshold is the maximum distance in canvas units at which snapping occurs.
	Threshold float64
	// Snap to edges (left, right, top, bottom), including abutting edges.
	SnapToEdges bool
	// Snap to centers (cx, cy)
	SnapToCenters bool
}

// Anchor is a static reference rect such as another shape on the canvas.
// Weight biases selection when distances are close (higher = preferred);
// use 1 when there is no preference.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine describes a visual guide generated during a snap alignment.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
// Position is the x (vertical) or y (horizontal) coordinate of the guide,
// rounded to 3 decimal places.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

type axisBest struct {
	delta float64
	dist  float64
	guide GuideLine
	found bool
}

func (b *axisBest) consider(delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if !b.found || score < b.dist {
		b.delta, b.dist, b.guide, b.found = delta, score, g, true
	}
}

// ComputeSmartGuides snaps moving against anchors independently in X and Y.
// It returns the snapped rect and the guide lines that caused the snap.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts GuideOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	var bx, by axisBest

	mL, mR, mT, mB := moving.X, moving.Right(), moving.Y, moving.Bottom()
	mc := moving.Center()

	for _, a := range anchors {
		r := a.Rect
		ac := r.Center()
		if opts.SnapToEdges {
			for _, pair := range [][2]float64{{mL, r.X}, {mR, r.Right()}, {mL, r.Right()}, {mR, r.X}} {
				bx.consider(pair[0]-pair[1], opts.Threshold, a.Weight, verticalGuide(pair[1], moving, r, "edge"))
			}
			for _, pair := range [][2]float64{{mT, r.Y}, {mB, r.Bottom()}, {mT, r.Bottom()}, {mB, r.Y}} {
				by.consider(pair[0]-pair[1], opts.Threshold, a.Weight, horizontalGuide(pair[1], moving, r, "edge"))
			}
		}
		if opts.SnapToCenters {
			bx.consider(mc.X-ac.X, opts.Threshold, a.Weight, verticalGuide(ac.X, moving, r, "center"))
			by.consider(mc.Y-ac.Y, opts.Threshold, a.Weight, horizontalGuide(ac.Y, moving, r, "center"))
		}
	}

	var guides []GuideLine
	snapped := moving
	if bx.found {
		snapped.X = FloatRound(moving.X-bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.found {
		snapped.Y = FloatRound(moving.Y-by.delta, 3)
		guides = append(guides, by.guide)
	}
	return snapped, guides
}

func verticalGuide(x float64, a, b Rect, kind string) GuideLine {
	x = FloatRound(x, 3)
	minY := math.Min(a.Y, b.Y)
	maxY := math.Max(a.Bottom(), b.Bottom())
	return GuideLine{Orientation: "vertical", Kind: kind, Position: x, From: Pt{x, minY}, To: Pt{x, maxY}}
}

func horizontalGuide(y float64, a, b Rect, kind string) GuideLine {
	y = FloatRound(y, 3)
	minX := math.Min(a.X, b.X)
	maxX := math.Max(a.Right(), b.Right())
	return GuideLine{Orientation: "horizontal", Kind: kind, Position: y, From: Pt{minX, y}, To: Pt{maxX, y}}
}
