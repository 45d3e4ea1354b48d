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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"godiagram/internal/config"
	"godiagram/internal/crash"
	applog "godiagram/internal/log"
	"godiagram/internal/metrics"
	"godiagram/internal/storage"
	"godiagram/internal/version"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "godiagram: diagram editor core")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  godiagram version                                  Show version")
	fmt.Fprintln(w, "  godiagram new <dir> <name> [discipline]            Create a drawing project")
	fmt.Fprintln(w, "  godiagram info <dir>                               Print a drawing summary")
	fmt.Fprintln(w, "  godiagram add <dir> <kind> <x> <y> [label]         Place a symbol (snapped)")
	fmt.Fprintln(w, "  godiagram move <dir> <id> <x> <y> [--snap]         Move a shape")
	fmt.Fprintln(w, "  godiagram snap <dir> <x> <y>                       Show where a point snaps and what it is over")
	fmt.Fprintln(w, "  godiagram align <dir> <mode> [ids...]              left|center-h|right|top|middle-v|bottom")
	fmt.Fprintln(w, "  godiagram distribute <dir> <axis> [ids...]         Distribute centers evenly")
	fmt.Fprintln(w, "  godiagram grid <dir> <columns> <sx> <sy> [ids...]  Arrange in a grid (- = default)")
	fmt.Fprintln(w, "  godiagram space <dir> <gap> <axis> [ids...]        Equal gaps along an axis (prints the gaps)")
	fmt.Fprintln(w, "  godiagram export <dir> svg|png|pdf <out> [--grid]  Export the drawing")
	fmt.Fprintln(w, "  godiagram export <dir> --preset web|print          Batch export into <dir>/exports")
	fmt.Fprintln(w, "  godiagram index <dir>                              Check and refresh the search index")
	fmt.Fprintln(w, "  godiagram search <dir> <query>                     Search shapes (kind:<k> filters)")
	fmt.Fprintln(w, "  godiagram history <dir> [restore [n]]              List checkpoints or restore one (1 = newest)")
	fmt.Fprintln(w, "  godiagram symbols <dir> [export|install <zip>]     List or share project symbols")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "With no ids, layout commands act on every shape.")
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(applog.FromConfig(cfg.Logging))
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	ph := &storage.ProjectHandle{}
	defer crash.Recover(ph)

	l.Debug("start", slog.Int("args", len(os.Args)))
	a := &app{cfg: cfg, out: os.Stdout, ph: ph, log: l}
	code := exitCode(a.run(context.Background(), os.Args[1:]), l)
	if path := os.Getenv(config.EnvMetricsFile); path != "" {
		if err := metrics.DefaultRegistry().WriteTextfile(path); err != nil {
			l.Warn("metrics not written", slog.String("path", path), slog.Any("err", err))
		}
	}
	_ = applog.Close()
	if code != 0 {
		os.Exit(code)
	}
}

func exitCode(err error, l *slog.Logger) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, "Error:", err)
		usage(os.Stderr)
		return 2
	default:
		l.Error("command failed", slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}
