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

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New(Config{MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	h.Record(Snapshot{Key: "p", Blob: []byte("empty"), TS: t0})
	h.Record(Snapshot{Key: "p", Blob: []byte("one"), TS: t0.Add(time.Second)})

	prev, ok := h.Undo("p", []byte("two"))
	if !ok || string(prev) != "one" {
		t.Fatalf("undo = %q %v", prev, ok)
	}
	prev, ok = h.Undo("p", []byte("one"))
	if !ok || string(prev) != "empty" {
		t.Fatalf("second undo = %q %v", prev, ok)
	}
	if _, ok := h.Undo("p", nil); ok {
		t.Fatalf("undo past the first step should fail")
	}
	next, ok := h.Redo("p", []byte("empty"))
	if !ok || string(next) != "one" {
		t.Fatalf("redo = %q %v", next, ok)
	}
	next, ok = h.Redo("p", []byte("one"))
	if !ok || string(next) != "two" {
		t.Fatalf("second redo = %q %v", next, ok)
	}
	if h.CanRedo("p") || !h.CanUndo("p") {
		t.Fatalf("stack flags wrong after redo")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Record(Snapshot{Key: "p", Blob: []byte("a"), TS: t0})
	h.Undo("p", []byte("b"))
	h.Record(Snapshot{Key: "p", Blob: []byte("a"), TS: t0.Add(time.Second)})
	if h.CanRedo("p") {
		t.Fatalf("a new edit must clear redo")
	}
}

func TestRapidEditsMerge(t *testing.T) {
	h := New(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	if !h.Record(Snapshot{Key: "p", Blob: []byte("start"), TS: t0}) {
		t.Fatalf("first record should not merge")
	}
	for i := 1; i <= 5; i++ {
		if h.Record(Snapshot{Key: "p", Blob: []byte("drag"), TS: t0.Add(time.Duration(i*10) * time.Millisecond)}) {
			t.Fatalf("step %d should merge", i)
		}
	}
	if _, _, n := h.Stats(); n != 1 {
		t.Fatalf("expected 1 snapshot, got %d", n)
	}
	prev, _ := h.Undo("p", []byte("end"))
	if string(prev) != "start" {
		t.Fatalf("drag should undo to its start, got %q", prev)
	}
}

func TestCaps(t *testing.T) {
	h := New(Config{MaxBytes: 20, MaxDepth: 3, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		h.Record(Snapshot{Key: "a", Blob: []byte("xxxxx"), TS: t0.Add(time.Duration(i) * time.Second)})
	}
	if total, _, n := h.Stats(); n != 3 || total != 15 {
		t.Fatalf("depth cap: n=%d total=%d", n, total)
	}
	h.Record(Snapshot{Key: "b", Blob: []byte("yyyyyyyyyy"), TS: t0.Add(time.Minute)})
	total, _, _ := h.Stats()
	if total > 20 {
		t.Fatalf("byte cap exceeded: %d", total)
	}
	if !h.CanUndo("b") {
		t.Fatalf("newest snapshot should survive pruning")
	}
	h.Forget("a")
	h.Forget("b")
	if total, keys, _ := h.Stats(); total != 0 || keys != 0 {
		t.Fatalf("forget left total=%d keys=%d", total, keys)
	}
}
