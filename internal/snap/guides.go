/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

// DefaultGuideOptions snaps to edges and centers within 6 canvas units.
func DefaultGuideOptions() vector.GuideOptions {
	return vector.GuideOptions{Threshold: 6, SnapToEdges: true, SnapToCenters: true}
}

// Guides snaps the bounding box of a dragged shape against the other shapes
// and returns its adjusted top-left position plus the guides to render.
// The moving shape itself and malformed shapes are not used as anchors.
// A malformed moving shape is returned at its current position (or the
// origin if it has none) without guides.
func Guides(moving domain.Shape, shapes []domain.Shape, opts vector.GuideOptions) (domain.Point, []vector.GuideLine) {
	r, ok := moving.Bounds()
	if !ok {
		if moving.Position != nil {
			return *moving.Position, nil
		}
		return domain.Point{}, nil
	}
	anchors := make([]vector.Anchor, 0, len(shapes))
	for _, s := range shapes {
		if s.ID == moving.ID {
			continue
		}
		ar, ok := s.Bounds()
		if !ok {
			continue
		}
		anchors = append(anchors, vector.Anchor{Rect: ar, Weight: 1})
	}
	snapped, guides := vector.ComputeSmartGuides(r, anchors, opts)
	return domain.Point{X: snapped.X, Y: snapped.Y}, guides
}
