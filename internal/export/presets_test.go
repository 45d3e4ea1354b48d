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
	"os"
	"path/filepath"
	"testing"

	"godiagram/internal/metrics"
	"godiagram/internal/storage"

	dto "github.com/prometheus/client_model/go"
)

func TestBatchExport_WebPreset(t *testing.T) {
	root := t.TempDir()
	ph, err := storage.InitProject(root, sampleDrawing())
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	written, err := BatchExport(ph, BatchOptions{Preset: PresetWeb})
	if err != nil {
		t.Fatalf("batch export web: %v", err)
	}
	checks := []string{
		filepath.Join(root, "exports", "web", "pump-skid-a.svg"),
		filepath.Join(root, "exports", "web", "pump-skid-a.png"),
	}
	if len(written) != len(checks) {
		t.Fatalf("unexpected outputs %v", written)
	}
	for i, p := range checks {
		if written[i] != p {
			t.Fatalf("output %d = %s, want %s", i, written[i], p)
		}
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
}

func TestBatchExport_PrintPreset(t *testing.T) {
	root := t.TempDir()
	ph, err := storage.InitProject(root, sampleDrawing())
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	noGrid := false
	out := filepath.Join(root, "out")
	written, err := BatchExport(ph, BatchOptions{Preset: PresetPrint, IncludeGrid: &noGrid, OutDir: out})
	if err != nil {
		t.Fatalf("batch export print: %v", err)
	}
	want := filepath.Join(out, "pump-skid-a.pdf")
	if len(written) != 1 || written[0] != want {
		t.Fatalf("unexpected outputs %v", written)
	}
	if st, err := os.Stat(want); err != nil || st.Size() <= 0 {
		t.Fatalf("missing pdf: %v", err)
	}
}

func TestBatchExport_UnknownFormat(t *testing.T) {
	ph, err := storage.InitProject(t.TempDir(), sampleDrawing())
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	if _, err := BatchExport(ph, BatchOptions{Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := BatchExport(nil, BatchOptions{}); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}

func TestParseFormatAndFileBase(t *testing.T) {
	if f, err := ParseFormat(" PNG "); err != nil || f != FormatPNG {
		t.Fatalf("ParseFormat got %q err %v", f, err)
	}
	if _, err := ParseFormat("tiff"); err == nil {
		t.Fatalf("expected error for tiff")
	}
	if got := fileBase(sampleDrawing()); got != "pump-skid-a" {
		t.Fatalf("fileBase = %q", got)
	}
}

func TestToFileRecordsExportMetric(t *testing.T) {
	count := func(format, status string) float64 {
		var m dto.Metric
		if err := metrics.DefaultRegistry().ExportsTotal.WithLabelValues(format, status).Write(&m); err != nil {
			t.Fatalf("read metric: %v", err)
		}
		return m.GetCounter().GetValue()
	}
	okBefore, errBefore := count("svg", "ok"), count("bmp", "error")

	dir := t.TempDir()
	if err := ToFile(sampleDrawing(), FormatSVG, filepath.Join(dir, "a.svg"), Options{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if err := ToFile(sampleDrawing(), Format("bmp"), filepath.Join(dir, "a.bmp"), Options{}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if got := count("svg", "ok") - okBefore; got != 1 {
		t.Fatalf("svg ok delta = %v", got)
	}
	if got := count("bmp", "error") - errBefore; got != 1 {
		t.Fatalf("bmp error delta = %v", got)
	}
}
