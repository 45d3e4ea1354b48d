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
	"sync"
	"time"
)

// Snapshot is an immutable, serialized drawing state.
// Blob content is opaque to the history; its size is estimated as len(Blob).
// Label names the edit that produced the snapshot ("move:<id>", "align", ...).
type Snapshot struct {
	DrawingID string
	Label     string
	Blob      []byte
	TS        time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; oldest undo entries across all drawings are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits undo entries per drawing (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces consecutive snapshots with the same non-empty label
	// captured within the interval: the earlier snapshot is kept so a whole drag
	// undoes in one step.
	MinInterval time.Duration
}

// History keeps per-drawing undo/redo stacks of snapshots.
// It is safe for concurrent use.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// last push per drawing, used for coalescing
	lastPush   map[string]Snapshot
	totalBytes int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &History{
		cfg:      cfg,
		undo:     make(map[string][]Snapshot),
		redo:     make(map[string][]Snapshot),
		lastPush: make(map[string]Snapshot),
	}
}

// Push records the state before an edit. It clears the redo stack for the
// drawing. It returns false when the snapshot was coalesced into the previous one.
func (h *History) Push(s Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := s.DrawingID
	h.dropRedoLocked(id)

	prev, hasPrev := h.lastPush[id]
	h.lastPush[id] = s
	if hasPrev && s.Label != "" && s.Label == prev.Label && s.TS.Sub(prev.TS) < h.cfg.MinInterval && len(h.undo[id]) > 0 {
		return false
	}
	h.undo[id] = append(h.undo[id], s)
	h.totalBytes += len(s.Blob)
	h.enforceCapsLocked(id)
	return true
}

// Undo pops the most recent snapshot for the drawing and returns it. current
// is the state being replaced; it goes onto the redo stack.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := current.DrawingID
	stack := h.undo[id]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	h.undo[id] = stack[:len(stack)-1]
	h.totalBytes -= len(s.Blob)
	h.redo[id] = append(h.redo[id], current)
	delete(h.lastPush, id)
	return s, true
}

// Redo pops from the redo stack; current goes back onto the undo stack.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := current.DrawingID
	r := h.redo[id]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	h.redo[id] = r[:len(r)-1]
	h.undo[id] = append(h.undo[id], current)
	h.totalBytes += len(current.Blob)
	delete(h.lastPush, id)
	h.enforceCapsLocked(id)
	return s, true
}

// CanUndo reports whether the drawing has undo entries.
func (h *History) CanUndo(drawingID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo[drawingID]) > 0
}

// CanRedo reports whether the drawing has redo entries.
func (h *History) CanRedo(drawingID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo[drawingID]) > 0
}

// Clear drops undo/redo stacks for a drawing to free memory.
func (h *History) Clear(drawingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.undo[drawingID] {
		h.totalBytes -= len(s.Blob)
	}
	delete(h.undo, drawingID)
	delete(h.redo, drawingID)
	delete(h.lastPush, drawingID)
	if h.totalBytes < 0 {
		h.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes int, drawings int, totalSnapshots int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.undo {
		if len(v) == 0 {
			continue
		}
		drawings++
		totalSnapshots += len(v)
	}
	return h.totalBytes, drawings, totalSnapshots
}

func (h *History) dropRedoLocked(id string) {
	delete(h.redo, id)
}

func (h *History) enforceCapsLocked(id string) {
	if h.cfg.MaxDepth > 0 {
		stack := h.undo[id]
		if len(stack) > h.cfg.MaxDepth {
			toDrop := len(stack) - h.cfg.MaxDepth
			for i := 0; i < toDrop; i++ {
				h.totalBytes -= len(stack[i].Blob)
			}
			h.undo[id] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all drawings, never the newest entry
	for h.cfg.MaxBytes > 0 && h.totalBytes > h.cfg.MaxBytes {
		oldestID := ""
		found := false
		var oldestTS time.Time
		for did, stack := range h.undo {
			if len(stack) == 0 || (did == id && len(stack) == 1) {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestID, oldestTS, found = did, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := h.undo[oldestID]
		h.totalBytes -= len(stack[0].Blob)
		h.undo[oldestID] = stack[1:]
		if len(h.undo[oldestID]) == 0 {
			delete(h.undo, oldestID)
		}
	}
}
