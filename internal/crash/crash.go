/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file plus a recovery copy of the
// open drawing, then exits non-zero.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "godiagram/internal/log"
	"godiagram/internal/storage"
	"godiagram/internal/version"
)

// exitFn is swapped out in tests.
var exitFn = os.Exit

var now = time.Now

// Report is the content of a crash report file.
type Report struct {
	Time      time.Time
	Panic     any
	Stack     []byte
	Root      string
	Manifest  string
	DrawingID string
	Drawing   string
	Shapes    int
}

// Bytes renders the report as plain text.
func (r Report) Bytes() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "godiagram crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", r.Time.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if r.Root != "" {
		fmt.Fprintf(&buf, "ProjectRoot: %s\n", r.Root)
		fmt.Fprintf(&buf, "Manifest: %s\n", r.Manifest)
		fmt.Fprintf(&buf, "Drawing: %s (%s), %d shapes\n", r.Drawing, r.DrawingID, r.Shapes)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", r.Panic)
	fmt.Fprintf(&buf, "Stack:\n%s\n", r.Stack)
	return buf.Bytes()
}

func newReport(ph *storage.ProjectHandle, panicVal any, stack []byte) Report {
	r := Report{Time: now(), Panic: panicVal, Stack: stack}
	if ph != nil {
		r.Root = ph.Root
		r.Manifest = ph.ManifestPath
		r.DrawingID = ph.Drawing.ID
		r.Drawing = ph.Drawing.Name
		r.Shapes = len(ph.Drawing.Shapes)
	}
	return r
}

// Recover must be deferred directly. On panic it logs the stack, writes a
// crash report, saves ph's in-memory drawing as a crash backup (when ph
// points at a project) and exits with code 2. ph may be filled in after the
// defer statement runs.
//
//	ph := &storage.ProjectHandle{}
//	defer crash.Recover(ph)
func Recover(ph *storage.ProjectHandle) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(ph, newReport(ph, r, stack))
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if ph != nil && ph.Root != "" {
		if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
			l.Error("crash backup failed", slog.Any("err", err))
		} else {
			l.Info("crash backup written", slog.String("path", path))
		}
	}
	if _, err := fmt.Fprintf(os.Stderr, "godiagram stopped unexpectedly. Crash report: %s\nVersion: %s\n", reportPath, version.String()); err != nil {
		l.Error("write crash notice failed", slog.Any("err", err))
	}
	exitFn(2)
}

// writeReport puts the report under the project's backups dir, or the
// system temp dir without a project.
func writeReport(ph *storage.ProjectHandle, rep Report) (string, error) {
	dir := os.TempDir()
	if ph != nil && ph.Root != "" {
		dir = filepath.Join(ph.Root, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("ensure backups dir: %w", err)
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", rep.Time.Format("20060102-150405.000")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("close crash report failed", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(rep.Bytes()); err != nil {
		return path, err
	}
	return path, f.Sync()
}
