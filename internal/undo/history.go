/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded undo/redo stacks of encoded scene states, one
// pair of stacks per editing key (usually a project id).
package undo

import (
	"sync"
	"time"
)

// Snapshot is an encoded scene state taken before an edit.
type Snapshot struct {
	Key  string
	Blob []byte
	TS   time.Time
}

// Config bounds memory and depth and sets the coalescing window.
type Config struct {
	// MaxBytes caps the undo stacks of all keys together; the oldest
	// snapshots are pruned first.
	MaxBytes int
	// MaxDepth limits undo entries per key (0 means unlimited).
	MaxDepth int
	// MinInterval merges edits closer than this into one undo step, so a
	// drag undoes to where it started.
	MinInterval time.Duration
}

// History is safe for concurrent use.
type History struct {
	cfg        Config
	mu         sync.Mutex
	undo       map[string][]Snapshot
	redo       map[string][]Snapshot
	totalBytes int
}

// New returns a history with defaults for unset limits.
func New(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 << 20
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &History{cfg: cfg, undo: map[string][]Snapshot{}, redo: map[string][]Snapshot{}}
}

// Record stores the state before an edit and invalidates redo. It reports
// false when the edit was merged into the previous step.
func (h *History) Record(s Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropRedoLocked(s.Key)
	stack := h.undo[s.Key]
	if n := len(stack); n > 0 && s.TS.Sub(stack[n-1].TS) < h.cfg.MinInterval {
		// keep the older state, slide the window forward
		stack[n-1].TS = s.TS
		return false
	}
	h.undo[s.Key] = append(stack, s)
	h.totalBytes += len(s.Blob)
	h.enforceCapsLocked(s.Key)
	return true
}

// Undo returns the state to restore and remembers current for Redo.
func (h *History) Undo(key string, current []byte) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.undo[key]
	if len(stack) == 0 {
		return nil, false
	}
	s := stack[len(stack)-1]
	h.undo[key] = stack[:len(stack)-1]
	h.totalBytes -= len(s.Blob)
	h.redo[key] = append(h.redo[key], Snapshot{Key: key, Blob: current, TS: time.Now()})
	return s.Blob, true
}

// Redo returns the state undone last and pushes current back on undo.
func (h *History) Redo(key string, current []byte) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.redo[key]
	if len(r) == 0 {
		return nil, false
	}
	s := r[len(r)-1]
	h.redo[key] = r[:len(r)-1]
	// a zero timestamp keeps the next Record from merging into this step
	h.undo[key] = append(h.undo[key], Snapshot{Key: key, Blob: current})
	h.totalBytes += len(current)
	h.enforceCapsLocked(key)
	return s.Blob, true
}

// CanUndo and CanRedo report whether a step is available.
func (h *History) CanUndo(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo[key]) > 0
}

func (h *History) CanRedo(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo[key]) > 0
}

// Forget drops both stacks of key.
func (h *History) Forget(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.undo[key] {
		h.totalBytes -= len(s.Blob)
	}
	delete(h.undo, key)
	delete(h.redo, key)
}

// Stats returns the undo byte total, key count and snapshot count.
func (h *History) Stats() (totalBytes, keys, snapshots int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.undo {
		snapshots += len(v)
	}
	return h.totalBytes, len(h.undo), snapshots
}

func (h *History) dropRedoLocked(key string) { delete(h.redo, key) }

func (h *History) enforceCapsLocked(key string) {
	if h.cfg.MaxDepth > 0 {
		if stack := h.undo[key]; len(stack) > h.cfg.MaxDepth {
			drop := len(stack) - h.cfg.MaxDepth
			for _, s := range stack[:drop] {
				h.totalBytes -= len(s.Blob)
			}
			h.undo[key] = append([]Snapshot(nil), stack[drop:]...)
		}
	}
	for h.totalBytes > h.cfg.MaxBytes {
		oldest := ""
		var oldestTS time.Time
		found := false
		for k, stack := range h.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = k, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := h.undo[oldest]
		h.totalBytes -= len(stack[0].Blob)
		if len(stack) == 1 {
			delete(h.undo, oldest)
		} else {
			h.undo[oldest] = stack[1:]
		}
	}
}
