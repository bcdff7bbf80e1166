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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// listTimeout bounds the re-read behind each delivered snapshot.
const listTimeout = 10 * time.Second

// hub fans change signals out to subscriptions. Each subscription owns a
// goroutine that re-reads the collection; pending signals collapse into one
// read.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
	list func(ctx context.Context, collection string) ([]Document, error)
	log  *slog.Logger
}

func newHub(list func(ctx context.Context, collection string) ([]Document, error), l *slog.Logger) *hub {
	return &hub{subs: make(map[string]map[*subscription]struct{}), list: list, log: l}
}

func (h *hub) subscribe(collection string, l Listener) *subscription {
	s := &subscription{
		h:          h,
		collection: collection,
		l:          l,
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*subscription]struct{})
	}
	h.subs[collection][s] = struct{}{}
	h.mu.Unlock()
	s.signal()
	go s.run()
	return s
}

func (h *hub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[collection] {
		s.signal()
	}
}

func (h *hub) notifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for s := range set {
			s.signal()
		}
	}
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.subs[s.collection]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.collection)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()
	for _, s := range all {
		s.Unsubscribe()
	}
}

type subscription struct {
	h          *hub
	collection string
	l          Listener
	kick       chan struct{}
	done       chan struct{}
	once       sync.Once
	stopped    atomic.Bool
}

func (s *subscription) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.kick:
		}
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		docs, err := s.h.list(ctx, s.collection)
		cancel()
		if s.stopped.Load() {
			return
		}
		if err != nil {
			s.h.log.Warn("snapshot read failed", slog.String("collection", s.collection), slog.Any("err", err))
			s.l.OnError(err)
			continue
		}
		s.l.OnSnapshot(docs)
	}
}

// Unsubscribe stops deliveries. It does not wait for a delivery already in
// progress, so it is safe to call from inside a listener.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.stopped.Store(true)
		s.h.remove(s)
		close(s.done)
	})
}
