/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(id, label, blob string, ts time.Time) Snapshot {
	return Snapshot{DrawingID: id, Label: label, Blob: []byte(blob), TS: ts}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	h.Push(snap("d", "add", "v1", t0))
	h.Push(snap("d", "add", "v2", t0.Add(20*time.Millisecond)))
	if _, drawings, total := h.Stats(); drawings != 1 || total != 2 {
		t.Fatalf("expected 1 drawing and 2 snapshots, got drawings=%d total=%d", drawings, total)
	}

	prev, ok := h.Undo(snap("d", "", "v3", t0))
	if !ok || string(prev.Blob) != "v2" {
		t.Fatalf("undo expected v2, got ok=%v blob=%q", ok, string(prev.Blob))
	}
	if !h.CanRedo("d") {
		t.Fatalf("expected redo available")
	}
	next, ok := h.Redo(prev)
	if !ok || string(next.Blob) != "v3" {
		t.Fatalf("redo expected v3, got ok=%v blob=%q", ok, string(next.Blob))
	}
	if h.CanRedo("d") {
		t.Fatalf("redo stack should be empty")
	}
	// the restored-from state is back on the undo stack
	again, ok := h.Undo(next)
	if !ok || string(again.Blob) != "v2" {
		t.Fatalf("expected v2 back on undo stack, got %q", string(again.Blob))
	}
}

func TestUndoEmpty(t *testing.T) {
	h := NewHistory(Config{})
	if _, ok := h.Undo(snap("d", "", "x", time.Now())); ok {
		t.Fatalf("expected nothing to undo")
	}
	if _, ok := h.Redo(snap("d", "", "x", time.Now())); ok {
		t.Fatalf("expected nothing to redo")
	}
}

func TestPushClearsRedo(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Push(snap("d", "a", "1", t0))
	h.Undo(snap("d", "", "2", t0))
	if !h.CanRedo("d") {
		t.Fatalf("expected redo after undo")
	}
	h.Push(snap("d", "b", "3", t0.Add(time.Second)))
	if h.CanRedo("d") {
		t.Fatalf("new edit must invalidate redo")
	}
}

func TestCoalesceSameLabelKeepsEarliest(t *testing.T) {
	h := NewHistory(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	if !h.Push(snap("d", "move:a", "start", t0)) {
		t.Fatalf("first push must be recorded")
	}
	if h.Push(snap("d", "move:a", "mid", t0.Add(10*time.Millisecond))) {
		t.Fatalf("second push within interval should coalesce")
	}
	h.Push(snap("d", "move:a", "late", t0.Add(40*time.Millisecond)))
	if _, _, total := h.Stats(); total != 1 {
		t.Fatalf("expected 1 snapshot after coalescing, got %d", total)
	}
	s, ok := h.Undo(snap("d", "", "now", t0))
	if !ok || string(s.Blob) != "start" {
		t.Fatalf("expected the pre-drag state, got %q", string(s.Blob))
	}
}

func TestDifferentLabelsDoNotCoalesce(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Hour})
	t0 := time.Now()
	h.Push(snap("d", "move:a", "1", t0))
	h.Push(snap("d", "move:b", "2", t0))
	h.Push(snap("d", "", "3", t0))
	h.Push(snap("d", "", "4", t0))
	if _, _, total := h.Stats(); total != 4 {
		t.Fatalf("expected 4 snapshots, got %d", total)
	}
}

func TestDepthCap(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 1024, MaxDepth: 2, MinInterval: time.Millisecond})
	for i := 0; i < 10; i++ {
		h.Push(snap("d", "", "xxxxx", time.Now().Add(time.Duration(i)*time.Second)))
	}
	tb, _, total := h.Stats()
	if total != 2 || tb != 10 {
		t.Fatalf("expected depth cap of 2 (10 bytes), got total=%d bytes=%d", total, tb)
	}
}

func TestGlobalPruneAcrossDrawings(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 8, MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Push(snap("one", "", "xxxx", t0))
	h.Push(snap("two", "", "yyyy", t0.Add(time.Second)))
	h.Push(snap("two", "", "zzzz", t0.Add(2*time.Second)))

	if h.CanUndo("one") {
		t.Fatalf("expected the oldest drawing entry to be pruned")
	}
	if !h.CanUndo("two") {
		t.Fatalf("expected drawing two to keep snapshots")
	}
}

func TestClearAndStats(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 1024, MinInterval: time.Millisecond})
	h.Push(snap("d", "", "abcdef", time.Now()))
	tb, drawings, total := h.Stats()
	if tb != 6 || drawings != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d drawings=%d total=%d", tb, drawings, total)
	}
	h.Clear("d")
	tb, drawings, total = h.Stats()
	if tb != 0 || drawings != 0 || total != 0 {
		t.Fatalf("expected zero stats after clear, got tb=%d drawings=%d total=%d", tb, drawings, total)
	}
}
