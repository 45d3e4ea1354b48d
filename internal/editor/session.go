/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang/snappy"

	"godiagram/internal/align"
	"godiagram/internal/domain"
	applog "godiagram/internal/log"
	"godiagram/internal/metrics"
	"godiagram/internal/undo"
)

// layoutEps is the tolerance under which a layout action counts as a no-op.
const layoutEps = 1e-9

// Session owns the live editor state and its undo history.
// It is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	state State
	hist  *undo.History
	now   func() time.Time
	seq   int
	log   *slog.Logger
	stats *metrics.Registry
	// OnChange, if set, is called after every drawing change (dispatch, undo or redo).
	OnChange func(State)
}

// NewSession starts a session over s. A nil history gets undo defaults.
func NewSession(s State, h *undo.History) *Session {
	if h == nil {
		h = undo.NewHistory(undo.Config{})
	}
	return &Session{
		state: s.Clone(),
		hist:  h,
		now:   time.Now,
		log:   applog.WithComponent("editor"),
		stats: metrics.DefaultRegistry(),
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies a and records the prior drawing for undo when the drawing
// changed. Repeated moves or resizes of one shape inside the history's
// coalescing window undo as a single step.
func (s *Session) Dispatch(ctx context.Context, a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := applog.WithOperation(s.log, "dispatch")

	next, err := Apply(s.state, a)
	s.stats.RecordAction(actionName(a), err)
	if err != nil {
		l.DebugContext(ctx, "action rejected", slog.String("action", actionName(a)), slog.Any("err", err))
		return s.state.Clone(), err
	}
	if ChangesDrawing(a) && drawingChanged(s.state.Drawing, next.Drawing) {
		blob, err := encodeDrawing(s.state.Drawing)
		if err != nil {
			return s.state.Clone(), err
		}
		s.hist.Push(undo.Snapshot{
			DrawingID: s.state.Drawing.ID,
			Label:     s.undoLabel(a),
			Blob:      blob,
			TS:        s.now(),
		})
		s.state = next
		l.DebugContext(ctx, "applied", slog.String("action", a.Name()), slog.Int("shapes", len(next.Drawing.Shapes)))
		s.observe()
		s.notify()
		return s.state.Clone(), nil
	}
	s.state = next
	return s.state.Clone(), nil
}

// Undo restores the drawing before the most recent recorded edit. It reports
// false when there is nothing to undo.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	return s.step(ctx, "undo", s.hist.Undo)
}

// Redo re-applies the most recently undone edit.
func (s *Session) Redo(ctx context.Context) (bool, error) {
	return s.step(ctx, "redo", s.hist.Redo)
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo(s.state.Drawing.ID)
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo(s.state.Drawing.ID)
}

// Snapshot serializes the current drawing as a history snapshot, for
// persisting the session (see storage.SaveSnapshot).
func (s *Session) Snapshot(label string) (undo.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, err := encodeDrawing(s.state.Drawing)
	if err != nil {
		return undo.Snapshot{}, err
	}
	return undo.Snapshot{DrawingID: s.state.Drawing.ID, Label: label, Blob: blob, TS: s.now()}, nil
}

// Restore replaces the drawing with the one in snap. The step is undoable.
// Snapshots of another drawing are rejected with ErrInvalidAction.
func (s *Session) Restore(ctx context.Context, snap undo.Snapshot) error {
	d, err := DecodeDrawing(snap.Blob)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.state.Drawing.ID
	if d.ID != cur || (snap.DrawingID != "" && snap.DrawingID != cur) {
		err := fmt.Errorf("%w: snapshot of drawing %q cannot restore %q", ErrInvalidAction, d.ID, cur)
		s.stats.RecordAction("restore", err)
		return err
	}
	blob, err := encodeDrawing(s.state.Drawing)
	if err != nil {
		return err
	}
	s.seq++
	s.hist.Push(undo.Snapshot{DrawingID: cur, Label: fmt.Sprintf("restore#%d", s.seq), Blob: blob, TS: s.now()})
	s.state.Drawing = d
	s.state.Selection = retainExisting(s.state.Selection, d)
	s.stats.RecordAction("restore", nil)
	s.log.InfoContext(ctx, "restored snapshot", slog.String("label", snap.Label))
	s.observe()
	s.notify()
	return nil
}

func (s *Session) step(ctx context.Context, op string, pop func(undo.Snapshot) (undo.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, err := encodeDrawing(s.state.Drawing)
	if err != nil {
		return false, err
	}
	cur := undo.Snapshot{DrawingID: s.state.Drawing.ID, Label: op, Blob: blob, TS: s.now()}
	prev, ok := pop(cur)
	if !ok {
		return false, nil
	}
	d, err := DecodeDrawing(prev.Blob)
	if err != nil {
		return false, err
	}
	s.state.Drawing = d
	s.state.Selection = retainExisting(s.state.Selection, d)
	applog.WithOperation(s.log, op).DebugContext(ctx, "restored", slog.String("label", prev.Label))
	s.stats.RecordHistoryStep(op)
	s.observe()
	s.notify()
	return true, nil
}

func (s *Session) observe() {
	bytes, _, _ := s.hist.Stats()
	s.stats.HistoryBytes.Set(float64(bytes))
	s.stats.DrawingShapes.Set(float64(len(s.state.Drawing.Shapes)))
}

func (s *Session) notify() {
	if s.OnChange != nil {
		s.OnChange(s.state.Clone())
	}
}

// undoLabel keeps move/resize labels stable so drags coalesce, and makes
// every other label unique so distinct edits never merge.
func (s *Session) undoLabel(a Action) string {
	switch a.(type) {
	case MoveShape, ResizeShape:
		return a.Name()
	}
	s.seq++
	return fmt.Sprintf("%s#%d", a.Name(), s.seq)
}

func actionName(a Action) string {
	if a == nil {
		return "<nil>"
	}
	return a.Name()
}

func drawingChanged(a, b domain.Drawing) bool {
	if len(a.Shapes) != len(b.Shapes) {
		return true
	}
	for i := range a.Shapes {
		x, y := a.Shapes[i], b.Shapes[i]
		if x.ID != y.ID || x.Kind != y.Kind || x.Label != y.Label || x.Rotation != y.Rotation || !sameProps(x.Props, y.Props) {
			return true
		}
	}
	return !align.Equal(a.Shapes, b.Shapes, layoutEps) || !sameSizes(a.Shapes, b.Shapes)
}

func sameSizes(a, b []domain.Shape) bool {
	for i := range a {
		x, y := a[i].Size, b[i].Size
		if (x == nil) != (y == nil) || (x != nil && *x != *y) {
			return false
		}
	}
	return true
}

func sameProps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func retainExisting(sel []string, d domain.Drawing) []string {
	out := make([]string, 0, len(sel))
	for _, id := range sel {
		if d.Index(id) >= 0 {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot blobs are snappy-compressed drawing JSON.
func encodeDrawing(d domain.Drawing) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode drawing snapshot: %w", err)
	}
	return snappy.Encode(nil, b), nil
}

// DecodeDrawing parses a snapshot blob written by a Session.
func DecodeDrawing(blob []byte) (domain.Drawing, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return domain.Drawing{}, fmt.Errorf("decompress drawing snapshot: %w", err)
	}
	var d domain.Drawing
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Drawing{}, fmt.Errorf("decode drawing snapshot: %w", err)
	}
	return d, nil
}
