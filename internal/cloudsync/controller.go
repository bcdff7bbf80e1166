/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cloudsync mirrors a user's remote project list and upload gallery.
// Local lists only ever change when the store delivers a snapshot; writes
// are issued and then forgotten until that snapshot arrives.
package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"socialstudio/internal/domain"
	applog "socialstudio/internal/log"
	"socialstudio/internal/store"
)

// Collection names below a user's root.
const (
	ProjectsCollection = "projects"
	UploadsCollection  = "uploads"
)

// ErrClosed is returned once the controller has been torn down.
var ErrClosed = errors.New("sync controller closed")

// ProjectsPath is the collection holding uid's projects.
func ProjectsPath(uid string) string { return "users/" + uid + "/" + ProjectsCollection }

// UploadsPath is the collection holding uid's uploads.
func UploadsPath(uid string) string { return "users/" + uid + "/" + UploadsCollection }

// Observer is told about every reconciled list. Calls arrive on store
// goroutines. Close stops new calls but does not wait for one already
// running, so observers keep their own closed state.
type Observer interface {
	ProjectsChanged(projects []domain.ProjectRecord)
	UploadsChanged(uploads []domain.Upload)
	SyncFailed(err error)
}

// Controller owns the two subscriptions of one user session.
type Controller struct {
	remote store.Remote
	uid    string
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	projects []domain.ProjectRecord
	uploads  []domain.Upload
	subs     []store.Subscription
	observer Observer
	started  bool
	closed   bool
	once     sync.Once
}

// New returns a controller for uid. Call Start to subscribe.
func New(remote store.Remote, uid string, observer Observer) *Controller {
	return &Controller{
		remote:   remote,
		uid:      uid,
		observer: observer,
		now:      time.Now,
		log:      applog.WithComponent("cloudsync").With(slog.String("uid", uid)),
	}
}

// Start opens the projects and uploads subscriptions.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	ps, err := c.remote.Subscribe(ProjectsPath(c.uid), store.Funcs{Snapshot: c.reconcileProjects, Error: c.failed})
	if err != nil {
		return fmt.Errorf("subscribe projects: %w", err)
	}
	us, err := c.remote.Subscribe(UploadsPath(c.uid), store.Funcs{Snapshot: c.reconcileUploads, Error: c.failed})
	if err != nil {
		ps.Unsubscribe()
		return fmt.Errorf("subscribe uploads: %w", err)
	}
	c.subs = []store.Subscription{ps, us}
	c.started = true
	c.log.Info("subscriptions open")
	return nil
}

// Projects returns the current list, newest first.
func (c *Controller) Projects() []domain.ProjectRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ProjectRecord(nil), c.projects...)
}

// Uploads returns the current gallery, newest first.
func (c *Controller) Uploads() []domain.Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Upload(nil), c.uploads...)
}

// Project finds id in the current list.
func (c *Controller) Project(id string) (domain.ProjectRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.projects {
		if p.ID == id {
			return p, true
		}
	}
	return domain.ProjectRecord{}, false
}

// SaveProject writes rec. The local list is not touched.
func (c *Controller) SaveProject(ctx context.Context, rec domain.ProjectRecord) error {
	if rec.ID == "" {
		return &domain.SyncWriteError{Op: "put", Collection: ProjectsCollection, Err: errors.New("project id is required")}
	}
	return c.put(ctx, ProjectsCollection, ProjectsPath(c.uid), rec.ID, rec)
}

// DeleteProject removes id remotely.
func (c *Controller) DeleteProject(ctx context.Context, id string) error {
	return c.delete(ctx, ProjectsCollection, ProjectsPath(c.uid), id)
}

// DeleteUpload removes the upload record id. The stored file is kept.
func (c *Controller) DeleteUpload(ctx context.Context, id string) error {
	return c.delete(ctx, UploadsCollection, UploadsPath(c.uid), id)
}

// AddUpload records a finished upload, filling in id and creation time
// when they are missing.
func (c *Controller) AddUpload(ctx context.Context, up domain.Upload) (domain.Upload, error) {
	if up.ID == "" {
		up.ID = uuid.NewString()
	}
	if up.CreatedAt.IsZero() {
		up.CreatedAt = c.now().UTC()
	}
	if err := c.put(ctx, UploadsCollection, UploadsPath(c.uid), up.ID, up); err != nil {
		return domain.Upload{}, err
	}
	return up, nil
}

func (c *Controller) put(ctx context.Context, collection, path, id string, v any) error {
	if c.isClosed() {
		return &domain.SyncWriteError{Op: "put", Collection: collection, ID: id, Err: ErrClosed}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return &domain.SyncWriteError{Op: "put", Collection: collection, ID: id, Err: err}
	}
	if err := c.remote.Put(ctx, path, id, b); err != nil {
		c.log.Warn("write failed", slog.String("collection", collection), slog.String("id", id), slog.Any("err", err))
		return &domain.SyncWriteError{Op: "put", Collection: collection, ID: id, Err: err}
	}
	return nil
}

func (c *Controller) delete(ctx context.Context, collection, path, id string) error {
	if c.isClosed() {
		return &domain.SyncWriteError{Op: "delete", Collection: collection, ID: id, Err: ErrClosed}
	}
	if err := c.remote.Delete(ctx, path, id); err != nil {
		c.log.Warn("delete failed", slog.String("collection", collection), slog.String("id", id), slog.Any("err", err))
		return &domain.SyncWriteError{Op: "delete", Collection: collection, ID: id, Err: err}
	}
	return nil
}

// Close releases both subscriptions exactly once. Snapshots that arrive
// afterwards are dropped.
func (c *Controller) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		subs := c.subs
		c.subs = nil
		c.mu.Unlock()
		for _, s := range subs {
			s.Unsubscribe()
		}
		c.log.Info("subscriptions closed")
	})
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DecodeProjects decodes a projects collection, newest first. Documents
// that are not records are skipped and their ids returned.
func DecodeProjects(docs []store.Document) ([]domain.ProjectRecord, []string) {
	byID := make(map[string]domain.ProjectRecord, len(docs))
	var bad []string
	for _, d := range docs {
		var rec domain.ProjectRecord
		if err := json.Unmarshal(d.Data, &rec); err != nil {
			bad = append(bad, d.ID)
			continue
		}
		rec.ID = d.ID
		byID[d.ID] = rec
	}
	list := make([]domain.ProjectRecord, 0, len(byID))
	for _, r := range byID {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].ID < list[j].ID
	})
	return list, bad
}

func (c *Controller) reconcileProjects(docs []store.Document) {
	list, bad := DecodeProjects(docs)
	for _, id := range bad {
		c.log.Warn("skipping unreadable project", slog.String("id", id))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.projects = list
	obs := c.observer
	c.mu.Unlock()
	if obs != nil {
		obs.ProjectsChanged(append([]domain.ProjectRecord(nil), list...))
	}
}

func (c *Controller) reconcileUploads(docs []store.Document) {
	byID := make(map[string]domain.Upload, len(docs))
	for _, d := range docs {
		var up domain.Upload
		if err := json.Unmarshal(d.Data, &up); err != nil {
			c.log.Warn("skipping unreadable upload", slog.String("id", d.ID), slog.Any("err", err))
			continue
		}
		up.ID = d.ID
		byID[d.ID] = up
	}
	list := make([]domain.Upload, 0, len(byID))
	for _, u := range byID {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.uploads = list
	obs := c.observer
	c.mu.Unlock()
	if obs != nil {
		obs.UploadsChanged(append([]domain.Upload(nil), list...))
	}
}

func (c *Controller) failed(err error) {
	c.mu.Lock()
	closed, obs := c.closed, c.observer
	c.mu.Unlock()
	if closed {
		return
	}
	c.log.Warn("subscription error", slog.Any("err", err))
	if obs != nil {
		obs.SyncFailed(err)
	}
}
