/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

// MaxPNGSide caps either raster dimension.
const MaxPNGSide = 16384

// ErrImageTooLarge is returned when Scale would produce an oversized raster.
var ErrImageTooLarge = errors.New("png export: image too large")

// Raster renders the drawing into an RGBA image at the configured scale.
func Raster(d domain.Drawing, opts Options) (*image.RGBA, error) {
	o := opts.withDefaults()
	f := layout(d, o)
	pixW := int(math.Ceil(f.W))
	pixH := int(math.Ceil(f.H))
	if pixW > MaxPNGSide || pixH > MaxPNGSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, pixW, pixH)
	}
	if pixW < 1 {
		pixW = 1
	}
	if pixH < 1 {
		pixH = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	if o.IncludeGrid {
		gc := toRGBA(o.GridColor)
		xs, ys := gridLines(f.Page, d.Grid.Size)
		for _, x := range xs {
			px := int(math.Round(f.XF.Apply(vector.Pt{X: x}).X))
			strokeRect(img, px, 0, px, pixH-1, gc)
		}
		for _, y := range ys {
			py := int(math.Round(f.XF.Apply(vector.Pt{Y: y}).Y))
			strokeRect(img, 0, py, pixW-1, py, gc)
		}
	}

	sc, fc, lc := toRGBA(o.Stroke), toRGBA(o.Fill), toRGBA(o.LabelColor)
	for _, dr := range drawables(d) {
		r := f.XF.ApplyRect(dr.rect)
		x0 := int(math.Round(r.X))
		y0 := int(math.Round(r.Y))
		x1 := int(math.Round(r.Right())) - 1
		y1 := int(math.Round(r.Bottom())) - 1
		switch outlineFor(dr.shape.Kind) {
		case outlineEllipse:
			fillEllipse(img, r, fc, sc)
		case outlineRect:
			fillRect(img, x0, y0, x1, y1, fc)
			strokeRect(img, x0, y0, x1, y1, sc)
		}
		if dr.shape.Label != "" {
			drawLabel(img, r.Center(), dr.shape.Label, lc)
		}
	}
	return img, nil
}

// PNG encodes the rasterized drawing to w.
func PNG(d domain.Drawing, w io.Writer, opts Options) error {
	img, err := Raster(d, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func toRGBA(c Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// drawLabel centers s on c using the 7x13 bitmap face.
func drawLabel(img *image.RGBA, c vector.Pt, s string, col color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	m := face.Metrics()
	// baseline so that the text box is vertically centered on c
	base := int(math.Round(c.Y)) + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(int(math.Round(c.X))-width/2, base),
	}
	dr.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// fillEllipse fills the ellipse inscribed in r and draws a ~1px outline.
func fillEllipse(img *image.RGBA, r vector.Rect, fill, stroke color.RGBA) {
	rx, ry := r.W/2, r.H/2
	if rx <= 0 || ry <= 0 {
		return
	}
	c := r.Center()
	// normalized thickness of the outline ring
	edge := 1 / math.Min(rx, ry)
	for y := int(math.Floor(r.Y)); y <= int(math.Ceil(r.Bottom())); y++ {
		for x := int(math.Floor(r.X)); x <= int(math.Ceil(r.Right())); x++ {
			dx := (float64(x) + 0.5 - c.X) / rx
			dy := (float64(y) + 0.5 - c.Y) / ry
			dist := math.Sqrt(dx*dx + dy*dy)
			switch {
			case dist > 1:
				continue
			case dist > 1-edge:
				img.SetRGBA(x, y, stroke)
			default:
				img.SetRGBA(x, y, fill)
			}
		}
	}
}
