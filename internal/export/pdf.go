/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"godiagram/internal/domain"
	"godiagram/internal/vector"
)

// PDF writes the drawing as a single-page PDF to path. Output units are
// points, so Scale 1 maps one canvas unit to one point. Labels use the
// built-in Helvetica which keeps text vector without embedding.
func PDF(d domain.Drawing, path string, opts Options) error {
	if path == "" {
		return fmt.Errorf("pdf output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	pdf := buildPDF(d, opts)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WritePDF is PDF for an arbitrary writer.
func WritePDF(d domain.Drawing, w io.Writer, opts Options) error {
	pdf := buildPDF(d, opts)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func buildPDF(d domain.Drawing, opts Options) *gofpdf.Fpdf {
	o := opts.withDefaults()
	f := layout(d, o)
	size := gofpdf.SizeType{Wd: f.W, Ht: f.H}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", OrientationStr: "P", Size: size})
	pdf.SetTitle(d.Name, true)
	pdf.SetAuthor(d.Metadata.Author, true)
	pdf.SetCreator("godiagram", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", size)

	if o.IncludeGrid {
		setDrawColor(pdf, o.GridColor)
		pdf.SetLineWidth(0.25)
		xs, ys := gridLines(f.Page, d.Grid.Size)
		for _, x := range xs {
			px := f.XF.Apply(vector.Pt{X: x}).X
			pdf.Line(px, 0, px, f.H)
		}
		for _, y := range ys {
			py := f.XF.Apply(vector.Pt{Y: y}).Y
			pdf.Line(0, py, f.W, py)
		}
	}

	setDrawColor(pdf, o.Stroke)
	setFillColor(pdf, o.Fill)
	pdf.SetLineWidth(o.StrokeWidth * o.Scale)
	fontSize := 12 * o.Scale
	pdf.SetFont("Helvetica", "", fontSize)
	pdf.SetTextColor(int(o.LabelColor.R), int(o.LabelColor.G), int(o.LabelColor.B))
	for _, dr := range drawables(d) {
		r := f.XF.ApplyRect(dr.rect)
		switch outlineFor(dr.shape.Kind) {
		case outlineEllipse:
			c := r.Center()
			pdf.Ellipse(c.X, c.Y, r.W/2, r.H/2, 0, "FD")
		case outlineRect:
			pdf.Rect(r.X, r.Y, r.W, r.H, "FD")
		}
		if dr.shape.Label != "" {
			c := r.Center()
			tw := pdf.GetStringWidth(dr.shape.Label)
			// approximate vertical centering for Helvetica
			pdf.Text(c.X-tw/2, c.Y+fontSize*0.35, dr.shape.Label)
		}
	}
	return pdf
}

func setDrawColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
