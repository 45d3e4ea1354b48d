/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package symbolpack

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"godiagram/internal/domain"
	"godiagram/internal/storage"
)

func writeSymbols(t *testing.T, root, name, body string) {
	t.Helper()
	path := filepath.Join(root, storage.SymbolsDirName, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const pidSymbols = `symbols:
  - kind: check-valve
    name: Check valve
    category: pid
    width: 40
    height: 30
  - kind: Pump
    width: 90
    height: 90
`

func TestLoadOverlaysCatalog(t *testing.T) {
	root := t.TempDir()
	writeSymbols(t, root, "pid.yaml", pidSymbols)

	lib, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := lib.DefaultSize("check-valve"); got != (domain.Size{Width: 40, Height: 30}) {
		t.Fatalf("custom size: %+v", got)
	}
	if got := lib.DefaultSize("pump"); got != (domain.Size{Width: 90, Height: 90}) {
		t.Fatalf("override size: %+v", got)
	}
	if got := lib.DefaultSize("resistor"); got != domain.DefaultSize("resistor") {
		t.Fatalf("catalog size: %+v", got)
	}
	if got := lib.DefaultSize("unknown"); got != domain.GenericSize {
		t.Fatalf("generic size: %+v", got)
	}
	syms := lib.Symbols()
	if len(syms) != len(domain.Symbols())+1 {
		t.Fatalf("expected catalog plus one custom kind, got %d", len(syms))
	}
	if last := syms[len(syms)-1]; last.Kind != "check-valve" || last.Category != domain.CategoryPID {
		t.Fatalf("custom symbol last: %+v", last)
	}
	pump, _ := lib.Lookup("pump")
	if pump.Category != domain.CategoryGeneric || pump.Name != "pump" {
		t.Fatalf("defaults for sparse definition: %+v", pump)
	}
}

func TestLoadLaterFileWins(t *testing.T) {
	root := t.TempDir()
	writeSymbols(t, root, "a.yaml", "symbols:\n  - kind: tag\n    width: 10\n    height: 10\n")
	writeSymbols(t, root, "b.yml", "symbols:\n  - kind: tag\n    width: 20\n    height: 5\n")
	lib, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := lib.DefaultSize("tag"); got != (domain.Size{Width: 20, Height: 5}) {
		t.Fatalf("expected b.yml to win, got %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero width":   "symbols:\n  - kind: x\n    width: 0\n    height: 1\n",
		"no kind":      "symbols:\n  - width: 1\n    height: 1\n",
		"bad category": "symbols:\n  - kind: x\n    category: hydraulic\n    width: 1\n    height: 1\n",
		"not yaml":     "symbols: [",
	}
	for name, body := range cases {
		root := t.TempDir()
		writeSymbols(t, root, "s.yaml", body)
		if _, err := Load(root); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadWithoutSymbolsDir(t *testing.T) {
	lib, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lib.Symbols()) != len(domain.Symbols()) {
		t.Fatalf("expected plain catalog")
	}
	var nilLib *Library
	if nilLib.DefaultSize("valve") != domain.DefaultSize("valve") {
		t.Fatalf("nil library should use the catalog")
	}
}

func TestExportAndInstall(t *testing.T) {
	src := t.TempDir()
	writeSymbols(t, src, "pid.yaml", pidSymbols)
	writeSymbols(t, src, filepath.Join("icons", "check-valve.svg"), "<svg/>")

	zipPath := filepath.Join(t.TempDir(), "pack.zip")
	n, err := Export(src, zipPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 files, got %d", n)
	}

	dst := t.TempDir()
	writeSymbols(t, dst, "pid.yaml", "symbols: []\n")
	installed, err := Install(dst, zipPath)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if installed != 1 {
		t.Fatalf("existing pid.yaml must be kept, installed %d", installed)
	}
	if _, err := os.Stat(filepath.Join(dst, storage.SymbolsDirName, "icons", "check-valve.svg")); err != nil {
		t.Fatalf("icon not installed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, storage.SymbolsDirName, ManifestName)); !os.IsNotExist(err) {
		t.Fatalf("manifest must not be installed")
	}
}

func TestInstallRejectsEscapingEntries(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("../outside.yaml")
	_, _ = w.Write([]byte("symbols: []"))
	_ = zw.Close()
	_ = f.Close()

	root := t.TempDir()
	_, err = Install(root, zipPath)
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("expected escape error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "outside.yaml")); !os.IsNotExist(err) {
		t.Fatalf("file written outside symbols dir")
	}
}
