/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

func TestSnapProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("cursor far from all shapes is returned unchanged", prop.ForAll(
		func(x, y, w, h, cx, cy float64) bool {
			shapes := []domain.Shape{shape("a", x, y, w, h)}
			raw := domain.Point{X: cx, Y: cy}
			res := Position(raw, shapes, noGrid())
			return res.Snap == nil && res.Position == raw
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(1, 100),
		gen.Float64Range(1, 100),
		gen.Float64Range(1000, 5000),
		gen.Float64Range(-5000, 5000),
	))

	properties.Property("cursor on a corner snaps to that corner", prop.ForAll(
		func(x, y, w, h float64, corner int) bool {
			s := shape("a", x, y, w, h)
			r, _ := s.Bounds()
			c := r.Corners()[corner]
			res := Position(domain.Point{X: c.X, Y: c.Y}, []domain.Shape{s}, DefaultOptions())
			return res.Snap != nil && res.Snap.Kind == Corner &&
				res.Position.X == c.X && res.Position.Y == c.Y
		},
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
		gen.Float64Range(1, 200),
		gen.Float64Range(1, 200),
		gen.IntRange(0, 3),
	))

	properties.Property("a snap never moves the cursor further than the tolerance", prop.ForAll(
		func(x, y, cx, cy float64) bool {
			shapes := []domain.Shape{shape("a", x, y, 40, 30), shape("b", y, x, 20, 60)}
			raw := domain.Point{X: cx, Y: cy}
			res := Position(raw, shapes, DefaultOptions())
			if res.Snap == nil {
				return res.Position == raw
			}
			d := vector.Dist(vector.Pt{X: cx, Y: cy}, vector.Pt{X: res.Position.X, Y: res.Position.Y})
			return d <= DefaultTolerance
		},
		gen.Float64Range(-200, 200),
		gen.Float64Range(-200, 200),
		gen.Float64Range(-250, 250),
		gen.Float64Range(-250, 250),
	))

	properties.TestingRun(t)
}
