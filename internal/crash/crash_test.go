/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"godiagram/internal/domain"
	"godiagram/internal/storage"
)

func fixedNow(t *testing.T) {
	t.Helper()
	old := now
	now = func() time.Time { return time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = old })
}

func TestWriteReportInTempWithoutProject(t *testing.T) {
	fixedNow(t)
	path, err := writeReport(nil, newReport(nil, "boom", []byte("stacktrace")))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected report in temp dir, got %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "godiagram crash report\n") {
		t.Fatalf("report header missing: %q", s)
	}
	if !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "ProjectRoot:") {
		t.Fatalf("no project section expected: %s", s)
	}
}

func TestWriteReportInProjectBackups(t *testing.T) {
	fixedNow(t)
	root := t.TempDir()
	ph := &storage.ProjectHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, storage.ManifestFileName),
		Drawing:      domain.Drawing{ID: "d-42", Name: "Boiler feed", Shapes: []domain.Shape{{ID: "a"}, {ID: "b"}}},
	}
	path, err := writeReport(ph, newReport(ph, "kaboom", []byte("stack")))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected report under backups, got %s", path)
	}
	if filepath.Base(path) != "crash-20240309-083000.000.log" {
		t.Fatalf("unexpected report name %s", filepath.Base(path))
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Drawing: Boiler feed (d-42), 2 shapes") {
		t.Fatalf("drawing summary missing: %s", b)
	}
}
