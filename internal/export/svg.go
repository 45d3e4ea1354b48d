/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"

	"godiagram/internal/domain"
)

// SVG writes the drawing as a standalone SVG document. The viewBox is in
// canvas units so coordinates match the model; width/height apply Scale.
func SVG(d domain.Drawing, w io.Writer, opts Options) error {
	o := opts.withDefaults()
	f := layout(d, o)

	var buf bytes.Buffer
	wf := func(format string, args ...any) {
		_, _ = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"%g %g %g %g\">\n",
		f.W, f.H, f.Page.X, f.Page.Y, f.Page.W, f.Page.H)
	if d.Name != "" {
		wf("  <title>%s</title>\n", escText(d.Name))
	}
	wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", f.Page.X, f.Page.Y, f.Page.W, f.Page.H)

	if o.IncludeGrid {
		xs, ys := gridLines(f.Page, d.Grid.Size)
		gc := svgColor(o.GridColor)
		wf("  <g id=\"grid\" stroke=\"%s\" stroke-width=\"%g\">\n", gc, 0.5/o.Scale)
		for _, x := range xs {
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", x, f.Page.Y, x, f.Page.Bottom())
		}
		for _, y := range ys {
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", f.Page.X, y, f.Page.Right(), y)
		}
		wf("  </g>\n")
	}

	sc, fc, lc := svgColor(o.Stroke), svgColor(o.Fill), svgColor(o.LabelColor)
	for _, dr := range drawables(d) {
		s, r := dr.shape, dr.rect
		wf("  <g id=\"%s\" data-kind=\"%s\">\n", escAttr(s.ID), escAttr(s.Kind))
		switch outlineFor(s.Kind) {
		case outlineEllipse:
			c := r.Center()
			wf("    <ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				c.X, c.Y, r.W/2, r.H/2, fc, sc, o.StrokeWidth)
		case outlineRect:
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				r.X, r.Y, r.W, r.H, fc, sc, o.StrokeWidth)
		}
		if s.Label != "" {
			c := r.Center()
			wf("    <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" dominant-baseline=\"central\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"12\" fill=\"%s\">%s</text>\n",
				c.X, c.Y, lc, escText(s.Label))
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func svgColor(c Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
