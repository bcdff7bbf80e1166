/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestForgetAndStats(t *testing.T) {
	h := New(Config{MaxBytes: 1024, MaxDepth: 10, MinInterval: time.Millisecond})
	h.Record(Snapshot{Key: "proj_a", Blob: []byte("abcdef"), TS: time.Now()})
	tb, keys, total := h.Stats()
	if tb != 6 || keys != 1 || total != 1 {
		t.Fatalf("stats before forget: bytes=%d keys=%d snapshots=%d", tb, keys, total)
	}
	h.Forget("proj_a")
	if tb, keys, total := h.Stats(); tb != 0 || keys != 0 || total != 0 {
		t.Fatalf("stats after forget: bytes=%d keys=%d snapshots=%d", tb, keys, total)
	}
	if h.CanUndo("proj_a") || h.CanRedo("proj_a") {
		t.Fatalf("forgotten key still has steps")
	}
}

func TestPruneAcrossKeys(t *testing.T) {
	h := New(Config{MaxBytes: 8, MinInterval: time.Millisecond})
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.Record(Snapshot{Key: "a", Blob: []byte("xxxx"), TS: t0})
	h.Record(Snapshot{Key: "b", Blob: []byte("yyyy"), TS: t0.Add(time.Second)})
	h.Record(Snapshot{Key: "b", Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	tb, keys, total := h.Stats()
	if tb != 8 || keys != 1 || total != 2 {
		t.Fatalf("stats = bytes=%d keys=%d snapshots=%d", tb, keys, total)
	}
	if _, ok := h.Undo("a", nil); ok {
		t.Fatalf("oldest key should have been pruned")
	}
	if b, ok := h.Undo("b", []byte("now")); !ok || string(b) != "zzzz" {
		t.Fatalf("undo b = %q, %v", b, ok)
	}
}
