/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"godiagram/internal/align"
	"godiagram/internal/config"
	"godiagram/internal/domain"
	"godiagram/internal/editor"
	"godiagram/internal/export"
	applog "godiagram/internal/log"
	"godiagram/internal/metrics"
	"godiagram/internal/snap"
	"godiagram/internal/storage"
	"godiagram/internal/symbolpack"
	"godiagram/internal/undo"
	"godiagram/internal/version"
)

// historyListLimit caps how many checkpoints history lists and can restore.
const historyListLimit = 20

// app carries what every command needs. ph is shared with crash.Recover so a
// panic mid-command can save the in-memory drawing.
type app struct {
	cfg config.AppConfig
	out io.Writer
	ph  *storage.ProjectHandle
	log *slog.Logger
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage(a.out)
		return nil
	}
	cmd, rest := args[0], args[1:]
	if cmd != "version" && cmd != "--version" && cmd != "-v" && len(rest) == 0 {
		return usageErr("%s requires <dir>", cmd)
	}
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(a.out, "godiagram", version.String())
		return nil
	case "new":
		return a.cmdNew(ctx, rest)
	case "info":
		return a.cmdInfo(rest)
	case "add":
		return a.cmdAdd(ctx, rest)
	case "move":
		return a.cmdMove(ctx, rest)
	case "snap":
		return a.cmdSnap(rest)
	case "align":
		return a.cmdAlign(ctx, rest)
	case "distribute":
		return a.cmdDistribute(ctx, rest)
	case "grid":
		return a.cmdGrid(ctx, rest)
	case "space":
		return a.cmdSpace(ctx, rest)
	case "export":
		return a.cmdExport(rest)
	case "index":
		return a.cmdIndex(ctx, rest)
	case "search":
		return a.cmdSearch(ctx, rest)
	case "history":
		return a.cmdHistory(ctx, rest)
	case "symbols":
		return a.cmdSymbols(rest)
	default:
		return usageErr("unknown command %q", cmd)
	}
}

// open loads the project at dir into the shared handle.
func (a *app) open(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	h, err := storage.Open(abs)
	if err != nil {
		return err
	}
	*a.ph = *h
	a.log.Debug("opened drawing", slog.String("root", abs), slog.String("drawing", h.Drawing.ID))
	return nil
}

func (a *app) session() *editor.Session {
	st := editor.NewState(a.ph.Drawing, a.cfg.SnapOptions())
	st.Guides.Threshold = a.cfg.Snap.GuideThreshold
	if lib, err := symbolpack.Load(a.ph.Root); err != nil {
		a.log.Warn("project symbols ignored", slog.Any("err", err))
	} else {
		st.SymbolSize = lib.DefaultSize
	}
	s := editor.NewSession(st, undo.NewHistory(a.cfg.HistoryConfig()))
	s.OnChange = func(st editor.State) { a.ph.Drawing = st.Drawing }
	return s
}

// edit opens dir, dispatches actions in order and, when the drawing changed,
// saves it, refreshes the index and stores a checkpoint of the prior drawing.
func (a *app) edit(ctx context.Context, dir string, actions ...editor.Action) (editor.State, bool, error) {
	if err := a.open(dir); err != nil {
		return editor.State{}, false, err
	}
	ctx = applog.WithDrawing(ctx, a.ph.Drawing.ID)
	sess := a.session()
	label := actions[len(actions)-1].Name()
	prev, err := sess.Snapshot(label)
	if err != nil {
		return editor.State{}, false, err
	}
	var st editor.State
	for _, act := range actions {
		if st, err = sess.Dispatch(ctx, act); err != nil {
			return st, false, err
		}
	}
	if !sess.CanUndo() {
		return st, false, nil
	}
	return st, true, a.persist(ctx, prev)
}

// persist saves the edited drawing, refreshes the index and stores prev as a checkpoint.
func (a *app) persist(ctx context.Context, prev undo.Snapshot) error {
	if err := storage.Save(a.ph); err != nil {
		return err
	}
	l := applog.WithOperation(a.log, prev.Label)
	if _, err := storage.UpdateIndex(ctx, a.ph.Root, a.ph.Drawing); err != nil {
		l.WarnContext(ctx, "index update failed", slog.Any("err", err))
	}
	if err := storage.SaveSnapshot(ctx, a.ph, prev); err != nil {
		l.WarnContext(ctx, "checkpoint failed", slog.Any("err", err))
	} else if keep := a.cfg.History.MaxDepth; keep > 0 {
		if _, err := storage.PruneSnapshots(ctx, a.ph, a.ph.Drawing.ID, keep); err != nil {
			l.WarnContext(ctx, "checkpoint prune failed", slog.Any("err", err))
		}
	}
	return nil
}

func (a *app) cmdNew(_ context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("new requires <dir> and <name>")
	}
	d := domain.Drawing{
		Name:   args[1],
		Grid:   domain.GridSettings{Size: a.cfg.Snap.GridSize, Visible: true},
		Shapes: []domain.Shape{},
	}
	if len(args) > 2 {
		d.Metadata.Discipline = strings.ToLower(args[2])
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	h, err := storage.InitProject(abs, d)
	if err != nil {
		return err
	}
	*a.ph = *h
	a.log.Info("created drawing", slog.String("root", abs), slog.String("drawing", h.Drawing.ID))
	fmt.Fprintf(a.out, "Created drawing %q (%s) at %s\n", h.Drawing.Name, h.Drawing.ID, abs)
	return nil
}

func (a *app) cmdInfo(args []string) error {
	if err := a.open(args[0]); err != nil {
		return err
	}
	d := a.ph.Drawing
	malformed := 0
	for _, s := range d.Shapes {
		if !s.Valid() {
			malformed++
		}
	}
	fmt.Fprintf(a.out, "Drawing: %s (%s)\n", d.Name, d.ID)
	if d.Metadata.Discipline != "" {
		fmt.Fprintf(a.out, "Discipline: %s\n", d.Metadata.Discipline)
	}
	fmt.Fprintf(a.out, "Grid: %g\n", d.Grid.Size)
	fmt.Fprintf(a.out, "Shapes: %d (%d malformed)\n", len(d.Shapes), malformed)
	if b, ok := d.Bounds(); ok {
		fmt.Fprintf(a.out, "Bounds: %g,%g %gx%g\n", b.X, b.Y, b.W, b.H)
	}
	if backups, err := storage.ListBackups(a.ph.Root); err == nil {
		fmt.Fprintf(a.out, "Backups: %d\n", len(backups))
	}
	fmt.Fprintln(a.out, "Root:", a.ph.Root)
	return nil
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return usageErr("add requires <dir> <kind> <x> <y> [label]")
	}
	p, err := parsePoint(args[2], args[3])
	if err != nil {
		return err
	}
	sh := domain.Shape{Kind: strings.ToLower(args[1]), Position: &p}
	if len(args) > 4 {
		sh.Label = strings.Join(args[4:], " ")
	}
	st, _, err := a.edit(ctx, args[0], editor.SetTool{Tool: editor.ToolPlace}, editor.AddShape{Shape: sh})
	if err != nil {
		return err
	}
	added, _ := st.Shape(st.Selection[0])
	fmt.Fprintf(a.out, "Added %s %s at %s\n", added.Kind, added.ID, fmtPoint(*added.Position))
	return nil
}

func (a *app) cmdMove(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return usageErr("move requires <dir> <id> <x> <y> [--snap]")
	}
	p, err := parsePoint(args[2], args[3])
	if err != nil {
		return err
	}
	snapped := len(args) > 4 && args[4] == "--snap"
	st, changed, err := a.edit(ctx, args[0], editor.MoveShape{ID: args[1], To: p, Snap: snapped})
	if err != nil {
		return err
	}
	sh, _ := st.Shape(args[1])
	if !changed {
		fmt.Fprintf(a.out, "%s already at %s\n", sh.ID, fmtPoint(*sh.Position))
		return nil
	}
	fmt.Fprintf(a.out, "Moved %s to %s\n", sh.ID, fmtPoint(*sh.Position))
	return nil
}

func (a *app) cmdSnap(args []string) error {
	if len(args) < 3 {
		return usageErr("snap requires <dir> <x> <y>")
	}
	p, err := parsePoint(args[1], args[2])
	if err != nil {
		return err
	}
	if err := a.open(args[0]); err != nil {
		return err
	}
	res := snap.Position(p, a.ph.Drawing.Shapes, a.cfg.SnapOptions())
	kind := ""
	if res.Snap != nil {
		kind = res.Snap.Kind.String()
	}
	metrics.DefaultRegistry().RecordSnap(kind)
	if res.Snap == nil {
		fmt.Fprintf(a.out, "%s (no snap)\n", fmtPoint(res.Position))
	} else {
		fmt.Fprintf(a.out, "%s (%s)\n", fmtPoint(res.Position), res.Snap.Kind)
	}
	if s, ok := a.ph.Drawing.ShapeAt(res.Position); ok {
		fmt.Fprintf(a.out, "Over: %s (%s)\n", s.ID, s.Kind)
	}
	return nil
}

func (a *app) cmdAlign(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("align requires <dir> <mode> [ids...]")
	}
	mode, err := align.ParseMode(args[1])
	if err != nil {
		return usageErr("%v", err)
	}
	_, _, err = a.layout(ctx, args[0], args[2:], editor.AlignSelection{Mode: mode})
	return err
}

func (a *app) cmdDistribute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("distribute requires <dir> <axis> [ids...]")
	}
	axis, err := align.ParseAxis(args[1])
	if err != nil {
		return usageErr("%v", err)
	}
	mode := align.DistributeHorizontal
	if axis == align.Vertical {
		mode = align.DistributeVertical
	}
	_, _, err = a.layout(ctx, args[0], args[2:], editor.AlignSelection{Mode: mode})
	return err
}

// cmdGrid accepts "-" for any of columns, sx, sy to use the configured default.
func (a *app) cmdGrid(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return usageErr("grid requires <dir> <columns> <sx> <sy> [ids...]")
	}
	lc := a.cfg.Layout
	cols := lc.GridColumns
	if args[1] != "-" {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return usageErr("columns must be a positive integer")
		}
		cols = n
	}
	sx, err := floatOr(args[2], lc.SpacingX)
	if err != nil {
		return err
	}
	sy, err := floatOr(args[3], lc.SpacingY)
	if err != nil {
		return err
	}
	_, _, err = a.layout(ctx, args[0], args[4:], editor.GridSelection{Columns: cols, Spacing: domain.Point{X: sx, Y: sy}})
	return err
}

func (a *app) cmdSpace(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageErr("space requires <dir> <gap> <axis> [ids...]")
	}
	gap, err := floatOr(args[1], a.cfg.Layout.DefaultGap)
	if err != nil {
		return err
	}
	axis, err := align.ParseAxis(args[2])
	if err != nil {
		return usageErr("%v", err)
	}
	st, changed, err := a.layout(ctx, args[0], args[3:], editor.MatchSpacingSelection{Gap: gap, Axis: axis})
	if err != nil || !changed {
		return err
	}
	gaps := align.Gaps(st.Selected(), axis)
	parts := make([]string, len(gaps))
	for i, g := range gaps {
		parts[i] = strconv.FormatFloat(g, 'g', -1, 64)
	}
	fmt.Fprintf(a.out, "Gaps: %s\n", strings.Join(parts, ", "))
	return nil
}

// layout selects ids (every shape when empty) and applies act.
func (a *app) layout(ctx context.Context, dir string, ids []string, act editor.Action) (editor.State, bool, error) {
	if len(ids) == 0 {
		if err := a.open(dir); err != nil {
			return editor.State{}, false, err
		}
		for _, s := range a.ph.Drawing.Shapes {
			ids = append(ids, s.ID)
		}
	}
	st, changed, err := a.edit(ctx, dir, editor.SetSelection{IDs: ids}, act)
	if err != nil {
		return st, false, err
	}
	if !changed {
		fmt.Fprintln(a.out, "No change")
		return st, false, nil
	}
	for _, s := range st.Selected() {
		if s.Position == nil {
			continue
		}
		fmt.Fprintf(a.out, "%s\t%s\n", s.ID, fmtPoint(*s.Position))
	}
	return st, true, nil
}

func (a *app) cmdExport(args []string) error {
	if len(args) < 3 {
		return usageErr("export requires <dir> svg|png|pdf <out> or <dir> --preset web|print")
	}
	if err := a.open(args[0]); err != nil {
		return err
	}
	if args[1] == "--preset" {
		paths, err := export.BatchExport(a.ph, export.BatchOptions{Preset: export.PresetName(args[2])})
		for _, p := range paths {
			fmt.Fprintln(a.out, "Wrote", p)
		}
		return err
	}
	f, err := export.ParseFormat(args[1])
	if err != nil {
		return usageErr("%v", err)
	}
	opts := export.Options{IncludeGrid: len(args) > 3 && args[3] == "--grid"}
	if err := export.ToFile(a.ph.Drawing, f, args[2], opts); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Wrote", args[2])
	return nil
}

func (a *app) cmdIndex(ctx context.Context, args []string) error {
	if err := a.open(args[0]); err != nil {
		return err
	}
	rebuilt, err := storage.DetectAndRebuildIndex(ctx, a.ph.Root, a.ph.Drawing)
	if err != nil {
		return err
	}
	n, err := storage.UpdateIndex(ctx, a.ph.Root, a.ph.Drawing)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Indexed %d shapes (rebuilt: %t)\n", n, rebuilt)
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("search requires <dir> <query>")
	}
	if err := a.open(args[0]); err != nil {
		return err
	}
	q := storage.ParseQuery(strings.Join(args[1:], " "))
	q.DrawingID = a.ph.Drawing.ID
	hits, err := storage.Search(ctx, a.ph.Root, q)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(a.out, "No matches")
		return nil
	}
	for _, h := range hits {
		at := "-"
		if h.HasBounds {
			at = fmtPoint(domain.Point{X: h.X, Y: h.Y})
		}
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", h.ShapeID, h.Kind, h.Label, at)
	}
	return nil
}

// cmdHistory lists checkpoints newest first, or restores checkpoint n (default 1).
func (a *app) cmdHistory(ctx context.Context, args []string) error {
	n := 0
	if len(args) > 1 {
		if args[1] != "restore" {
			return usageErr("history takes only restore [n]")
		}
		n = 1
		if len(args) > 2 {
			v, err := strconv.Atoi(args[2])
			if err != nil || v < 1 {
				return usageErr("checkpoint number must be >= 1, got %q", args[2])
			}
			n = v
		}
	}
	if err := a.open(args[0]); err != nil {
		return err
	}
	snaps, err := storage.ListSnapshots(ctx, a.ph, a.ph.Drawing.ID, historyListLimit)
	if err != nil {
		return err
	}
	if n > 0 {
		if n > len(snaps) {
			return fmt.Errorf("checkpoint %d not found (%d available)", n, len(snaps))
		}
		return a.restore(ctx, n, snaps[n-1])
	}
	if len(snaps) == 0 {
		fmt.Fprintln(a.out, "No checkpoints")
		return nil
	}
	for i, s := range snaps {
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%d bytes\n", i+1, s.TS.Local().Format(time.DateTime), s.Label, len(s.Blob))
	}
	return nil
}

// restore swaps the drawing for a checkpoint. The replaced drawing becomes
// the newest checkpoint, so a restore can itself be restored away.
func (a *app) restore(ctx context.Context, n int, cp undo.Snapshot) error {
	ctx = applog.WithDrawing(ctx, a.ph.Drawing.ID)
	sess := a.session()
	prev, err := sess.Snapshot("restore")
	if err != nil {
		return err
	}
	if err := sess.Restore(ctx, cp); err != nil {
		return err
	}
	if err := a.persist(ctx, prev); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored checkpoint %d (%s), %d shapes\n", n, cp.Label, len(a.ph.Drawing.Shapes))
	return nil
}

// cmdSymbols lists the palette, or exports/installs a symbol pack.
func (a *app) cmdSymbols(args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if len(args) >= 3 {
		switch args[1] {
		case "export":
			n, err := symbolpack.Export(root, args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d symbol files to %s\n", n, args[2])
			return nil
		case "install":
			n, err := symbolpack.Install(root, args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Installed %d symbol files\n", n)
			return nil
		}
		return usageErr("symbols <dir> [export|install <zip>]")
	}
	lib, err := symbolpack.Load(root)
	if err != nil {
		return err
	}
	for _, s := range lib.Symbols() {
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%gx%g\n", s.Kind, s.Category, s.Name, s.Default.Width, s.Default.Height)
	}
	return nil
}

func parsePoint(xs, ys string) (domain.Point, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return domain.Point{}, usageErr("bad x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return domain.Point{}, usageErr("bad y %q", ys)
	}
	return domain.Point{X: x, Y: y}, nil
}

func floatOr(s string, def float64) (float64, error) {
	if s == "-" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, usageErr("bad number %q", s)
	}
	return f, nil
}

func fmtPoint(p domain.Point) string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}
