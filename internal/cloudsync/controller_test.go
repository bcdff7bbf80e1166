/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"socialstudio/internal/domain"
	"socialstudio/internal/store"
)

type recorder struct {
	projects chan []domain.ProjectRecord
	uploads  chan []domain.Upload
}

func newRecorder() *recorder {
	return &recorder{projects: make(chan []domain.ProjectRecord, 32), uploads: make(chan []domain.Upload, 32)}
}

func (r *recorder) ProjectsChanged(p []domain.ProjectRecord) { r.projects <- p }
func (r *recorder) UploadsChanged(u []domain.Upload)         { r.uploads <- u }
func (r *recorder) SyncFailed(error)                         {}

func waitProjects(t *testing.T, r *recorder, ok func([]domain.ProjectRecord) bool) []domain.ProjectRecord {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-r.projects:
			if ok(p) {
				return p
			}
		case <-deadline:
			t.Fatalf("timed out waiting for projects snapshot")
			return nil
		}
	}
}

// countingRemote wraps a store and counts Unsubscribe calls.
type countingRemote struct {
	store.Remote
	mu       sync.Mutex
	unsubs   int
	writeErr error
}

type countingSub struct {
	inner store.Subscription
	r     *countingRemote
}

func (s countingSub) Unsubscribe() {
	s.r.mu.Lock()
	s.r.unsubs++
	s.r.mu.Unlock()
	s.inner.Unsubscribe()
}

func (r *countingRemote) Subscribe(col string, l store.Listener) (store.Subscription, error) {
	sub, err := r.Remote.Subscribe(col, l)
	if err != nil {
		return nil, err
	}
	return countingSub{inner: sub, r: r}, nil
}

func (r *countingRemote) Put(ctx context.Context, col, id string, data []byte) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	return r.Remote.Put(ctx, col, id, data)
}

func record(id string, day int) domain.ProjectRecord {
	return domain.ProjectRecord{
		ID:              id,
		Name:            "Design " + id,
		Date:            time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		PresetID:        "linkedin-post",
		SerializedScene: `{"version":1,"background":"","objects":[]}`,
	}
}

func TestSaveIsDrivenByNotification(t *testing.T) {
	rem := store.NewMemory()
	defer func() { _ = rem.Close() }()
	rec := newRecorder()
	c := New(rem, "u1", rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()
	waitProjects(t, rec, func(p []domain.ProjectRecord) bool { return len(p) == 0 })

	ctx := context.Background()
	for i, id := range []string{"p1", "p2", "p3"} {
		if err := c.SaveProject(ctx, record(id, i+1)); err != nil {
			t.Fatalf("SaveProject %s: %v", id, err)
		}
	}
	got := waitProjects(t, rec, func(p []domain.ProjectRecord) bool { return len(p) == 3 })
	if got[0].ID != "p3" || got[1].ID != "p2" || got[2].ID != "p1" {
		t.Fatalf("projects must be newest first: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if len(c.Projects()) != 3 {
		t.Fatalf("controller list not updated")
	}

	if err := c.DeleteProject(ctx, "p2"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	waitProjects(t, rec, func(p []domain.ProjectRecord) bool { return len(p) == 2 })
	if _, ok := c.Project("p2"); ok {
		t.Fatalf("deleted project still listed")
	}
}

func TestUploadsSortedByCreation(t *testing.T) {
	rem := store.NewMemory()
	defer func() { _ = rem.Close() }()
	rec := newRecorder()
	c := New(rem, "u1", rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.png", "new.png", "mid.png"} {
		offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
		if _, err := c.AddUpload(ctx, domain.Upload{URL: "https://x/" + name, Name: name, CreatedAt: base.Add(offset)}); err != nil {
			t.Fatalf("AddUpload: %v", err)
		}
	}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case u := <-rec.uploads:
			if len(u) != 3 {
				continue
			}
			if u[0].Name != "new.png" || u[1].Name != "mid.png" || u[2].Name != "old.png" {
				t.Fatalf("uploads order: %s %s %s", u[0].Name, u[1].Name, u[2].Name)
			}
			if u[0].ID == "" {
				t.Fatalf("upload id not assigned")
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for uploads")
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	c := New(store.NewMemory(), "u1", nil)
	var docs []store.Document
	for i, id := range []string{"b", "a", "c", "a"} {
		r := record(id, 10-i)
		b, _ := json.Marshal(r)
		docs = append(docs, store.Document{ID: id, Data: b})
	}
	docs = append(docs, store.Document{ID: "bad", Data: []byte("{")})

	c.reconcileProjects(docs)
	first := c.Projects()
	c.reconcileProjects(docs)
	second := c.Projects()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second reconciliation changed the list")
	}
	if len(first) != 3 {
		t.Fatalf("expected duplicates collapsed and bad doc skipped, got %d", len(first))
	}
	c.reconcileProjects(nil)
	if len(c.Projects()) != 0 {
		t.Fatalf("empty snapshot must empty the list")
	}
}

func TestCloseUnsubscribesExactlyOnce(t *testing.T) {
	rem := &countingRemote{Remote: store.NewMemory()}
	rec := newRecorder()
	c := New(rem, "u1", rec)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Close()
	c.Close()
	rem.mu.Lock()
	n := rem.unsubs
	rem.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected one unsubscribe per subscription, got %d", n)
	}
	if err := c.Start(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close: %v", err)
	}
	var we *domain.SyncWriteError
	if err := c.SaveProject(context.Background(), record("p", 1)); !errors.As(err, &we) {
		t.Fatalf("write after close should fail with SyncWriteError, got %v", err)
	}

	// a snapshot arriving after teardown is dropped
	b, _ := json.Marshal(record("late", 1))
	c.reconcileProjects([]store.Document{{ID: "late", Data: b}})
	if len(c.Projects()) != 0 {
		t.Fatalf("late snapshot applied after close")
	}
}

func TestWriteFailureIsSyncWriteError(t *testing.T) {
	boom := errors.New("permission denied")
	rem := &countingRemote{Remote: store.NewMemory(), writeErr: boom}
	c := New(rem, "u1", nil)
	defer c.Close()
	err := c.SaveProject(context.Background(), record("p1", 1))
	var we *domain.SyncWriteError
	if !errors.As(err, &we) || we.ID != "p1" || we.Op != "put" || !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}
	if len(c.Projects()) != 0 {
		t.Fatalf("failed write must not touch local state")
	}
	if err := c.SaveProject(context.Background(), domain.ProjectRecord{}); err == nil {
		t.Fatalf("save without id should fail")
	}
}

func TestDecodeProjectsSkipsBadDocuments(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []store.Document{
		{ID: "p1", Data: []byte(`{"name":"Old","date":"` + older.Format(time.RFC3339) + `","presetId":"linkedin-post","serializedScene":"{}"}`)},
		{ID: "bad", Data: []byte(`not json`)},
		{ID: "p2", Data: []byte(`{"id":"ignored","name":"New","date":"` + older.Add(time.Hour).Format(time.RFC3339) + `","presetId":"ig-story","serializedScene":"{}"}`)},
	}
	list, bad := DecodeProjects(docs)
	if len(list) != 2 || list[0].ID != "p2" || list[1].ID != "p1" {
		t.Fatalf("list = %+v", list)
	}
	if len(bad) != 1 || bad[0] != "bad" {
		t.Fatalf("bad = %v", bad)
	}
}

func TestDeleteUploadRemovesRecord(t *testing.T) {
	rem := store.NewMemory()
	defer func() { _ = rem.Close() }()
	c := New(rem, "u1", nil)
	ctx := context.Background()
	up, err := c.AddUpload(ctx, domain.Upload{URL: "https://x/a.png", Name: "a.png"})
	if err != nil {
		t.Fatalf("AddUpload: %v", err)
	}
	if err := c.DeleteUpload(ctx, up.ID); err != nil {
		t.Fatalf("DeleteUpload: %v", err)
	}
	docs, err := rem.List(ctx, UploadsPath("u1"))
	if err != nil || len(docs) != 0 {
		t.Fatalf("records left = %d, %v", len(docs), err)
	}
	c.Close()
	var we *domain.SyncWriteError
	if err := c.DeleteUpload(ctx, up.ID); !errors.As(err, &we) || we.Collection != UploadsCollection || !errors.Is(err, ErrClosed) {
		t.Fatalf("delete after close = %v", err)
	}
}
