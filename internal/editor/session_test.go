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
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godiagram/internal/align"
	"godiagram/internal/domain"
	"godiagram/internal/metrics"
	"godiagram/internal/snap"
	"godiagram/internal/undo"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSession(shapes ...domain.Shape) (*Session, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSession(testState(shapes...), undo.NewHistory(undo.Config{MinInterval: 100 * time.Millisecond}))
	s.now = clk.now
	return s, clk
}

func TestSessionDragCoalescesIntoOneUndo(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestSession(rect("a", 0, 0, 10, 10))
	for i := 1; i <= 5; i++ {
		_, err := s.Dispatch(ctx, MoveShape{ID: "a", To: domain.Point{X: float64(i * 3), Y: 0}})
		require.NoError(t, err)
		clk.advance(20 * time.Millisecond)
	}
	assert.Equal(t, domain.Point{X: 15, Y: 0}, pos(t, s.State(), "a"))

	ok, err := s.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 0, Y: 0}, pos(t, s.State(), "a"))
	assert.False(t, s.CanUndo())

	ok, err = s.Redo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 15, Y: 0}, pos(t, s.State(), "a"))
}

func TestSessionSeparateDragsAfterPause(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestSession(rect("a", 0, 0, 10, 10))
	_, _ = s.Dispatch(ctx, MoveShape{ID: "a", To: domain.Point{X: 5}})
	clk.advance(time.Second)
	_, _ = s.Dispatch(ctx, MoveShape{ID: "a", To: domain.Point{X: 9}})

	_, _ = s.Undo(ctx)
	assert.Equal(t, domain.Point{X: 5}, pos(t, s.State(), "a"))
	_, _ = s.Undo(ctx)
	assert.Equal(t, domain.Point{}, pos(t, s.State(), "a"))
}

func TestSessionDistinctEditsNeverMerge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession()
	_, err := s.Dispatch(ctx, AddShape{Shape: rect("a", 0, 0, 10, 10)})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, AddShape{Shape: rect("b", 40, 0, 10, 10)})
	require.NoError(t, err)

	_, _ = s.Undo(ctx)
	assert.Len(t, s.State().Drawing.Shapes, 1)
	_, _ = s.Undo(ctx)
	assert.Empty(t, s.State().Drawing.Shapes)
	ok, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionNoopsAndSelectionSkipHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(rect("a", 0, 0, 10, 10), rect("b", 40, 0, 10, 10))
	_, err := s.Dispatch(ctx, SetSelection{IDs: []string{"a", "b"}})
	require.NoError(t, err)
	// already top-aligned
	_, err = s.Dispatch(ctx, AlignSelection{Mode: align.Top})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, SetTool{Tool: ToolPan})
	require.NoError(t, err)
	assert.False(t, s.CanUndo())
	assert.Equal(t, ToolPan, s.State().Tool)
}

func TestSessionRejectedActionLeavesState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(rect("a", 0, 0, 10, 10))
	before := s.State()
	_, err := s.Dispatch(ctx, RemoveShapes{IDs: []string{"nope"}})
	assert.ErrorIs(t, err, ErrShapeNotFound)
	assert.Equal(t, before, s.State())
	assert.False(t, s.CanUndo())
}

func TestSessionUndoPrunesSelection(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession()
	_, err := s.Dispatch(ctx, AddShape{Shape: rect("a", 0, 0, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.State().Selection)
	_, _ = s.Undo(ctx)
	assert.Empty(t, s.State().Selection)
}

func TestSessionSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(rect("a", 0, 0, 10, 10))
	snap, err := s.Snapshot("checkpoint")
	require.NoError(t, err)
	assert.Equal(t, "d1", snap.DrawingID)

	_, err = s.Dispatch(ctx, MoveShape{ID: "a", To: domain.Point{X: 50, Y: 50}})
	require.NoError(t, err)
	var changes int
	s.OnChange = func(State) { changes++ }
	require.NoError(t, s.Restore(ctx, snap))
	assert.Equal(t, domain.Point{}, pos(t, s.State(), "a"))
	assert.Equal(t, 1, changes)

	_, _ = s.Undo(ctx)
	assert.Equal(t, domain.Point{X: 50, Y: 50}, pos(t, s.State(), "a"))

	assert.Error(t, s.Restore(ctx, undo.Snapshot{Blob: []byte("{")}))
}

func TestSessionRestoreRejectsOtherDrawing(t *testing.T) {
	ctx := context.Background()
	other := NewSession(NewState(domain.Drawing{ID: "d2", Shapes: []domain.Shape{}}, snap.DefaultOptions()), nil)
	foreign, err := other.Snapshot("elsewhere")
	require.NoError(t, err)

	s, _ := newTestSession(rect("a", 0, 0, 10, 10))
	s.stats = metrics.NewRegistry()
	err = s.Restore(ctx, foreign)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, "d1", s.State().Drawing.ID)
	assert.Len(t, s.State().Drawing.Shapes, 1)
	assert.False(t, s.CanUndo())

	relabelled := foreign
	relabelled.DrawingID = "d1"
	require.ErrorIs(t, s.Restore(ctx, relabelled), ErrInvalidAction)
}

func TestSessionRestoreUndoesAndUpdatesGauges(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestSession(rect("a", 0, 0, 10, 10))
	s.stats = metrics.NewRegistry()
	single, err := s.Snapshot("single")
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, AddShape{Shape: rect("b", 40, 0, 10, 10)})
	require.NoError(t, err)
	clk.advance(time.Second)

	_, err = s.Dispatch(ctx, RemoveShapes{IDs: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, s.Restore(ctx, single))
	assert.Equal(t, 1.0, gaugeValue(t, s.stats.DrawingShapes))
	assert.Positive(t, gaugeValue(t, s.stats.HistoryBytes))

	ok, err := s.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, s.State().Drawing.Shapes)
	assert.Equal(t, 0.0, gaugeValue(t, s.stats.DrawingShapes))
}

func TestSessionConcurrentDispatch(t *testing.T) {
	ctx := context.Background()
	shapes := make([]domain.Shape, 8)
	for i := range shapes {
		shapes[i] = rect(fmt.Sprintf("s%d", i), 0, 0, 10, 10)
	}
	s, _ := newTestSession(shapes...)
	var wg sync.WaitGroup
	for i := range shapes {
		wg.Add(1)
		go func(id string, x float64) {
			defer wg.Done()
			_, err := s.Dispatch(ctx, MoveShape{ID: id, To: domain.Point{X: x}})
			assert.NoError(t, err)
		}(shapes[i].ID, float64(i+1)*10)
	}
	wg.Wait()
	for i, sh := range s.State().Drawing.Shapes {
		assert.Equal(t, float64(i+1)*10, sh.Position.X)
	}
}

func TestSessionSnapshotBlobIsCompressed(t *testing.T) {
	shapes := make([]domain.Shape, 50)
	for i := range shapes {
		shapes[i] = rect(fmt.Sprintf("shape-%02d", i), float64(i*20), 0, 20, 20)
	}
	s, _ := newTestSession(shapes...)
	snap, err := s.Snapshot("big")
	require.NoError(t, err)

	plain, err := json.Marshal(s.State().Drawing)
	require.NoError(t, err)
	assert.Less(t, len(snap.Blob), len(plain))

	d, err := DecodeDrawing(snap.Blob)
	require.NoError(t, err)
	assert.Equal(t, s.State().Drawing.Shapes, d.Shapes)
}

func counter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSessionRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(rect("a", 0, 0, 10, 10))
	reg := metrics.NewRegistry()
	s.stats = reg

	_, _ = s.Dispatch(ctx, MoveShape{ID: "a", To: domain.Point{X: 5}})
	_, _ = s.Dispatch(ctx, MoveShape{ID: "missing"})
	_, _ = s.Undo(ctx)

	assert.Equal(t, 1.0, counter(t, reg.ActionsTotal.WithLabelValues("move", "ok")))
	assert.Equal(t, 1.0, counter(t, reg.ActionsTotal.WithLabelValues("move", "error")))
	assert.Equal(t, 1.0, counter(t, reg.HistoryStepsTotal.WithLabelValues("undo")))
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
