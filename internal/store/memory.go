/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	applog "socialstudio/internal/log"
)

// Memory is a process-local store, used by tests and the offline editor.
type Memory struct {
	mu     sync.RWMutex
	cols   map[string]map[string]Document
	closed bool
	hub    *hub
	now    func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	m := &Memory{cols: make(map[string]map[string]Document), now: time.Now}
	m.hub = newHub(m.List, applog.WithComponent("store").With("driver", DriverMemory))
	return m
}

func (m *Memory) Put(_ context.Context, collection, id string, data []byte) error {
	if err := checkDoc(collection, id, data); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.cols[collection] == nil {
		m.cols[collection] = make(map[string]Document)
	}
	m.cols[collection][id] = Document{ID: id, Data: slices.Clone(data), UpdatedAt: m.now().UTC()}
	m.mu.Unlock()
	m.hub.notify(collection)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	_, existed := m.cols[collection][id]
	delete(m.cols[collection], id)
	m.mu.Unlock()
	if existed {
		m.hub.notify(collection)
	}
	return nil
}

// List returns the documents newest first.
func (m *Memory) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Document, 0, len(m.cols[collection]))
	for _, d := range m.cols[collection] {
		d.Data = slices.Clone(d.Data)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Subscribe(collection string, l Listener) (Subscription, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	return m.hub.subscribe(collection, l), nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close ends all subscriptions. It is safe to call more than once.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.hub.closeAll()
	return nil
}
