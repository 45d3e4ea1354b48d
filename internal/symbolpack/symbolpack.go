/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package symbolpack manages a project's own symbol library: YAML definitions
// under <project>/symbols that add kinds to the built-in catalog or change
// their default sizes, and zip packs for sharing them between projects.
package symbolpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"godiagram/internal/domain"
	applog "godiagram/internal/log"
	"godiagram/internal/storage"
)

// ManifestName is the human-readable file at the root of every pack.
const ManifestName = "symbolpack.manifest.txt"

// Definition is one entry of a symbols/*.yaml file:
//
//	symbols:
//	  - kind: check-valve
//	    name: Check valve
//	    category: pid
//	    width: 40
//	    height: 30
type Definition struct {
	Kind     string  `yaml:"kind" validate:"required"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category" validate:"omitempty,oneof=electrical mechanical pid generic"`
	Width    float64 `yaml:"width" validate:"gt=0"`
	Height   float64 `yaml:"height" validate:"gt=0"`
}

type file struct {
	Symbols []Definition `yaml:"symbols" validate:"dive"`
}

var validate = validator.New()

// Library is the built-in catalog overlaid with a project's definitions.
// The zero value is the plain catalog.
type Library struct {
	custom map[string]domain.Symbol
	order  []string
}

func symbolsDir(projectRoot string) string {
	return filepath.Join(projectRoot, storage.SymbolsDirName)
}

// Load reads every .yaml/.yml file below <projectRoot>/symbols in path order.
// A later definition of the same kind replaces an earlier one. A missing
// directory yields the plain catalog.
func Load(projectRoot string) (*Library, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("projectRoot is required")
	}
	lib := &Library{custom: make(map[string]domain.Symbol)}
	var paths []string
	err := filepath.WalkDir(symbolsDir(projectRoot), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan symbols: %w", err)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := lib.loadFile(p); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *Library) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: %s failed %q", filepath.Base(path), verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for _, d := range f.Symbols {
		kind := strings.ToLower(strings.TrimSpace(d.Kind))
		sym := domain.Symbol{Kind: kind, Name: d.Name, Category: d.Category, Default: domain.Size{Width: d.Width, Height: d.Height}}
		if sym.Name == "" {
			sym.Name = kind
		}
		if sym.Category == "" {
			sym.Category = domain.CategoryGeneric
		}
		if _, seen := l.custom[kind]; !seen {
			l.order = append(l.order, kind)
		}
		l.custom[kind] = sym
	}
	return nil
}

// Lookup prefers the project definition over the catalog.
func (l *Library) Lookup(kind string) (domain.Symbol, bool) {
	if l != nil {
		if s, ok := l.custom[strings.ToLower(strings.TrimSpace(kind))]; ok {
			return s, true
		}
	}
	return domain.LookupSymbol(kind)
}

// DefaultSize is domain.DefaultSize with project overrides applied.
func (l *Library) DefaultSize(kind string) domain.Size {
	if s, ok := l.Lookup(kind); ok {
		return s.Default
	}
	return domain.GenericSize
}

// Symbols lists the catalog (with overrides) followed by project-only kinds.
func (l *Library) Symbols() []domain.Symbol {
	out := domain.Symbols()
	if l == nil {
		return out
	}
	known := make(map[string]bool, len(out))
	for i, s := range out {
		known[s.Kind] = true
		if c, ok := l.custom[s.Kind]; ok {
			out[i] = c
		}
	}
	for _, k := range l.order {
		if !known[k] {
			out = append(out, l.custom[k])
		}
	}
	return out
}

// Export zips <projectRoot>/symbols into destZip with a manifest at the root
// and returns the number of symbol files written.
func Export(projectRoot, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("symbolpack"), "export").With(slog.String("project", projectRoot))
	if strings.TrimSpace(projectRoot) == "" || strings.TrimSpace(destZip) == "" {
		return 0, errors.New("projectRoot and destZip are required")
	}
	dir := symbolsDir(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure symbols dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	w, err := zw.Create(ManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := fmt.Fprintf(w, "godiagram symbol pack\nCreated: %s\nProject: %s\n", time.Now().Format(time.RFC3339), projectRoot); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	added := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		fw, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return added, fmt.Errorf("build zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("symbol pack exported", slog.Int("files", added), slog.String("zip", destZip))
	return added, nil
}

// Install extracts a pack into <projectRoot>/symbols. Existing files are kept
// and entries that would land outside the directory are rejected. It returns
// the number of files written.
func Install(projectRoot, packZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("symbolpack"), "install").With(slog.String("project", projectRoot))
	if strings.TrimSpace(projectRoot) == "" || strings.TrimSpace(packZip) == "" {
		return 0, errors.New("projectRoot and packZip are required")
	}
	dir := symbolsDir(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure symbols dir: %w", err)
	}
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		rel := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(rel) {
			return installed, fmt.Errorf("pack entry %q escapes the symbols directory", f.Name)
		}
		target := filepath.Join(dir, rel)
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("symbol pack installed", slog.Int("files", installed))
	return installed, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
