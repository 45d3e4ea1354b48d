/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"godiagram/internal/domain"
	"godiagram/internal/metrics"
	"godiagram/internal/storage"
)

// Format is an output file format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts svg, png or pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// ToFile writes the drawing in the given format to path, creating parent directories.
func ToFile(d domain.Drawing, format Format, path string, opts Options) (err error) {
	defer func(start time.Time) { metrics.DefaultRegistry().RecordExport(string(format), start, err) }(time.Now())
	if format == FormatPDF {
		return PDF(d, path, opts)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", format, err)
	}
	switch format {
	case FormatSVG:
		err = SVG(d, f, opts)
	case FormatPNG:
		err = PNG(d, f, opts)
	default:
		err = fmt.Errorf("unknown format: %s", format)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", format, cerr)
	}
	return err
}

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export of a project's drawing.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <project>/exports/<preset>/.
//   - Files are named <base>.<format> where base is derived from the drawing name.
//
//nolint:revive // keep fields explicit for clarity
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // allowed: svg, png, pdf; empty means preset defaults
	Scale       float64  // when > 0 overrides the preset scale
	IncludeGrid *bool    // when set, overrides preset's default for the grid
	OutDir      string
}

// BatchExport runs the preset's exports and returns the written paths.
func BatchExport(ph *storage.ProjectHandle, opt BatchOptions) ([]string, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = "default"
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.ExportsDir(), baseOut)
	}

	o := presetOptions(opt.Preset)
	if opt.Scale > 0 {
		o.Scale = opt.Scale
	}
	if opt.IncludeGrid != nil {
		o.IncludeGrid = *opt.IncludeGrid
	}

	base := fileBase(ph.Drawing)
	var written []string
	for _, s := range formats {
		f, err := ParseFormat(s)
		if err != nil {
			return written, err
		}
		out := filepath.Join(baseOut, base+"."+string(f))
		if err := ToFile(ph.Drawing, f, out, o); err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"svg", "png"}
	case PresetPrint:
		return []string{"pdf"}
	default:
		return []string{"svg"}
	}
}

func presetOptions(p PresetName) Options {
	switch p {
	case PresetWeb:
		return Options{Scale: 2}
	case PresetPrint:
		return Options{Scale: 1, IncludeGrid: true}
	default:
		return Options{Scale: 1}
	}
}

// fileBase derives a filesystem-friendly name from the drawing.
func fileBase(d domain.Drawing) string {
	name := strings.ToLower(strings.TrimSpace(d.Name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "drawing"
	}
	return b.String()
}
