/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a drawing to SVG, PNG and PDF. All exporters share
// one page layout: the bounds of the well-formed shapes grown by a margin,
// mapped to output units by a scale+translate transform.
package export

import (
	"math"
	"strings"

	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

// Color is an 8-bit RGBA color.
type Color struct{ R, G, B, A uint8 }

func (c Color) isZero() bool { return c == Color{} }

// Options controls all exporters. Zero values get reasonable defaults.
//
//nolint:revive // keep options grouped and explicit for clarity
type Options struct {
	IncludeGrid bool
	Margin      float64 // canvas units around the drawing; default 20
	Scale       float64 // output units per canvas unit; default 1
	StrokeWidth float64
	Stroke      Color
	Fill        Color
	GridColor   Color
	LabelColor  Color
}

// DefaultMargin is used when Options.Margin is zero or negative.
const DefaultMargin = 20

func (o Options) withDefaults() Options {
	if o.Margin <= 0 || !vector.Finite(o.Margin) {
		o.Margin = DefaultMargin
	}
	if o.Scale <= 0 || !vector.Finite(o.Scale) {
		o.Scale = 1
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = 1
	}
	if o.Stroke.isZero() {
		o.Stroke = Color{A: 255}
	}
	if o.Fill.isZero() {
		o.Fill = Color{R: 255, G: 255, B: 255, A: 255}
	}
	if o.GridColor.isZero() {
		o.GridColor = Color{R: 220, G: 220, B: 220, A: 255}
	}
	if o.LabelColor.isZero() {
		o.LabelColor = Color{A: 255}
	}
	return o
}

type outline int

const (
	outlineRect outline = iota
	outlineEllipse
	outlineNone
)

// outlineFor picks the primitive used to draw a symbol kind.
func outlineFor(kind string) outline {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "ellipse", "motor", "gear", "bearing", "pump", "instrument":
		return outlineEllipse
	case "text":
		return outlineNone
	default:
		return outlineRect
	}
}

// frame is the shared page layout. Page is in canvas units; XF maps canvas
// coordinates to output coordinates whose origin is the page's top-left.
type frame struct {
	Page vector.Rect
	XF   vector.Affine2D
	W, H float64
}

func layout(d domain.Drawing, o Options) frame {
	page := vector.R(0, 0, 0, 0)
	if b, ok := d.Bounds(); ok {
		page = b
	}
	page = page.Inset(-o.Margin, -o.Margin)
	xf := vector.Scale(o.Scale, o.Scale).Mul(vector.Translate(-page.X, -page.Y))
	return frame{Page: page, XF: xf, W: page.W * o.Scale, H: page.H * o.Scale}
}

// gridLines returns the canvas-space grid coordinates inside page.
func gridLines(page vector.Rect, size float64) (xs, ys []float64) {
	if size <= 0 || !vector.Finite(size) {
		return nil, nil
	}
	for x := math.Ceil(page.X/size) * size; x <= page.Right(); x += size {
		xs = append(xs, x)
	}
	for y := math.Ceil(page.Y/size) * size; y <= page.Bottom(); y += size {
		ys = append(ys, y)
	}
	return xs, ys
}

// drawable pairs a well-formed shape with its canvas bounds.
type drawable struct {
	shape domain.Shape
	rect  vector.Rect
}

// drawables skips malformed shapes, keeping drawing order.
func drawables(d domain.Drawing) []drawable {
	out := make([]drawable, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		if r, ok := s.Bounds(); ok {
			out = append(out, drawable{shape: s, rect: r})
		}
	}
	return out
}
