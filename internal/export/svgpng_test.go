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
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestSVGContent(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(sampleDrawing(), &buf, Options{IncludeGrid: true}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`viewBox="-10 0 160 80"`,
		`width="160" height="80"`,
		`<title>Pump Skid &lt;A&gt;</title>`,
		`<g id="grid"`,
		`<g id="r1" data-kind="resistor">`,
		`<rect x="10" y="20" width="60" height="20"`,
		`<ellipse cx="115" cy="40" rx="15" ry="20"`,
		`>P&lt;1&gt;</text>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ghost") {
		t.Fatalf("malformed shape should be skipped")
	}
}

func TestSVGWithoutGrid(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(sampleDrawing(), &buf, Options{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if strings.Contains(buf.String(), `id="grid"`) {
		t.Fatalf("grid should be omitted")
	}
}

func TestRasterPixels(t *testing.T) {
	red := Color{R: 255, A: 255}
	img, err := Raster(sampleDrawing(), Options{IncludeGrid: true, Fill: red})
	if err != nil {
		t.Fatalf("raster: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 80 {
		t.Fatalf("unexpected size %v", b)
	}
	// r1 occupies pixels 20..79 x 20..39
	if got := img.RGBAAt(20, 20); got != (color.RGBA{A: 255}) {
		t.Fatalf("expected stroke at r1 corner, got %v", got)
	}
	if got := img.RGBAAt(21, 21); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("expected fill inside r1, got %v", got)
	}
	// canvas x=0 lands on pixel column 10
	if got := img.RGBAAt(10, 5); got != (color.RGBA{220, 220, 220, 255}) {
		t.Fatalf("expected grid line, got %v", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("expected white background, got %v", got)
	}
	// pump center is filled
	if got := img.RGBAAt(125, 30); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("expected ellipse fill, got %v", got)
	}
	// corner of the pump's box is outside the ellipse
	if got := img.RGBAAt(111, 21); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("expected background outside ellipse, got %v", got)
	}
}

func TestPNGEncodesDecodableImage(t *testing.T) {
	var buf bytes.Buffer
	if err := PNG(sampleDrawing(), &buf, Options{Scale: 2}); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 160 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestPNGTooLarge(t *testing.T) {
	err := PNG(sampleDrawing(), &bytes.Buffer{}, Options{Scale: 1000})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}
