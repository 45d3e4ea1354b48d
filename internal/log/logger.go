/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up the process-wide slog logger: a readable console
// handler (or JSON), an optional rotating JSON file, static app/version
// attributes and the drawing id carried on the context.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"godiagram/internal/config"
	"godiagram/internal/version"
)

// Options controls Init. The zero value logs INFO to stderr in console format.
type Options struct {
	Level     string // debug|info|warn|error
	Format    string // console|json
	AddSource bool
	// File enables an additional JSON log rotated by size.
	File string
	// Writer replaces stderr for console output.
	Writer io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	sink    *lj.Logger
	level   = new(slog.LevelVar)
)

// L returns the application logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the application logger and slog.Default. A previously opened
// log file is closed.
func Init(opts Options) {
	level.Set(parseLevel(opts.Level))
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level, AddSource: opts.AddSource})
	} else {
		console = newConsoleHandler(out, level, opts.AddSource)
	}

	var file *lj.Logger
	h := console
	if path := strings.TrimSpace(opts.File); path != "" {
		file = &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		h = fanout{console, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level, AddSource: opts.AddSource})}
	}

	logger := slog.New(drawingHandler{h}).With(
		slog.String("app", "godiagram"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	old := sink
	current, sink = logger, file
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

// SetLevel changes the level of the running logger.
func SetLevel(s string) { level.Set(parseLevel(s)) }

// FromEnv reads GDG_LOG_LEVEL, GDG_LOG_FORMAT, GDG_LOG_SOURCE and GDG_LOG_FILE.
func FromEnv() Options {
	return Options{
		Level:     getenv(config.EnvLogLevel, "info"),
		Format:    getenv(config.EnvLogFormat, "console"),
		AddSource: strings.EqualFold(getenv(config.EnvLogSource, "false"), "true"),
		File:      os.Getenv(config.EnvLogFile),
	}
}

// FromConfig uses the logging section of the user config, which already has
// env overrides applied.
func FromConfig(c config.LoggingConfig) Options {
	return Options{Level: c.Level, Format: c.Format, AddSource: c.Source, File: c.File}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// WithDrawing returns a context whose log records carry drawing=<id>.
func WithDrawing(ctx context.Context, drawingID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, drawingID)
}

// DrawingFrom returns the drawing id stored by WithDrawing.
func DrawingFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// drawingHandler copies the context's drawing id onto each record.
type drawingHandler struct{ slog.Handler }

func (h drawingHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := DrawingFrom(ctx); ok {
		r = r.Clone()
		r.AddAttrs(slog.String("drawing", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h drawingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return drawingHandler{h.Handler.WithAttrs(attrs)}
}

func (h drawingHandler) WithGroup(name string) slog.Handler {
	return drawingHandler{h.Handler.WithGroup(name)}
}

// fanout sends every record to all handlers and reports the first error.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
