/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"slices"
	"sync"

	"socialstudio/internal/domain"
	"socialstudio/internal/scene"
	"socialstudio/internal/vector"
)

// MemoryOption configures a MemoryEngine.
type MemoryOption func(*MemoryEngine)

// Deferred keeps the engine not-ready until MarkReady is called.
func Deferred() MemoryOption { return func(e *MemoryEngine) { e.deferred = true } }

// WithMeasurer sizes text objects for hit testing.
func WithMeasurer(m vector.TextMeasurer) MemoryOption {
	return func(e *MemoryEngine) { e.measure = m }
}

// MemoryEngine keeps the scene in memory and turns pointer input into
// selection events. It backs headless sessions and tests.
type MemoryEngine struct {
	mu         sync.Mutex
	ready      chan struct{}
	readyOnce  sync.Once
	deferred   bool
	disposed   bool
	width      int
	height     int
	background string
	objects    []domain.SceneObject
	active     string
	listeners  map[int]scene.Listener
	nextSub    int
	codec      JSONCodec
	measure    vector.TextMeasurer
}

var _ Engine = (*MemoryEngine)(nil)

// NewMemoryEngine creates an engine. It is ready at once unless Deferred.
func NewMemoryEngine(opts ...MemoryOption) *MemoryEngine {
	e := &MemoryEngine{ready: make(chan struct{}), listeners: map[int]scene.Listener{}}
	for _, o := range opts {
		o(e)
	}
	if !e.deferred {
		e.MarkReady()
	}
	return e
}

// MarkReady resolves the readiness signal. Extra calls are ignored.
func (e *MemoryEngine) MarkReady() { e.readyOnce.Do(func() { close(e.ready) }) }

func (e *MemoryEngine) Ready() <-chan struct{} { return e.ready }

func (e *MemoryEngine) SetCanvas(width, height int, background string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	e.width, e.height, e.background = width, height, background
	return nil
}

// Canvas returns the current canvas size and background.
func (e *MemoryEngine) Canvas() (w, h int, background string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, e.background
}

func (e *MemoryEngine) Add(o domain.SceneObject) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	if e.index(o.ID) >= 0 {
		return fmt.Errorf("engine already holds %s", o.ID)
	}
	e.objects = append(e.objects, o)
	return nil
}

func (e *MemoryEngine) Remove(id string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	i := e.index(id)
	if i >= 0 {
		e.objects = slices.Delete(e.objects, i, i+1)
	}
	cleared := i >= 0 && e.active == id
	if cleared {
		e.active = ""
	}
	e.mu.Unlock()
	if cleared {
		e.emit(scene.Event{Kind: scene.SelectionCleared})
	}
	return nil
}

func (e *MemoryEngine) Update(o domain.SceneObject) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	i := e.index(o.ID)
	if i < 0 {
		return fmt.Errorf("engine has no object %s", o.ID)
	}
	e.objects[i] = o
	return nil
}

func (e *MemoryEngine) Load(doc Document) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.objects = slices.Clone(doc.Objects)
	e.background = doc.Background
	hadActive := e.active != ""
	e.active = ""
	e.mu.Unlock()
	if hadActive {
		e.emit(scene.Event{Kind: scene.SelectionCleared})
	}
	return nil
}

// Snapshot returns the current document.
func (e *MemoryEngine) Snapshot() Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Document{Version: DocumentVersion, Background: e.background, Objects: slices.Clone(e.objects)}
}

func (e *MemoryEngine) Serialize() (string, error) {
	if e.isDisposed() {
		return "", ErrDisposed
	}
	return e.codec.Encode(e.Snapshot())
}

func (e *MemoryEngine) Deserialize(data string) (Document, error) {
	doc, err := e.codec.Decode(data)
	if err != nil {
		return Document{}, err
	}
	if err := e.Load(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (e *MemoryEngine) SetActive(id string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if id != "" && e.index(id) < 0 {
		e.mu.Unlock()
		return fmt.Errorf("engine has no object %s", id)
	}
	prev := e.active
	e.active = id
	e.mu.Unlock()
	switch {
	case id == "" && prev != "":
		e.emit(scene.Event{Kind: scene.SelectionCleared})
	case id != "" && prev == "":
		e.emit(scene.Event{Kind: scene.SelectionCreated, IDs: []string{id}})
	case id != "" && prev != id:
		e.emit(scene.Event{Kind: scene.SelectionUpdated, IDs: []string{id}})
	}
	return nil
}

// Active returns the engine's selected object id.
func (e *MemoryEngine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *MemoryEngine) Object(id string) (domain.SceneObject, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(id); i >= 0 {
		return e.objects[i], true
	}
	return domain.SceneObject{}, false
}

// Click selects the topmost object under p, or clears the selection when
// p hits nothing.
func (e *MemoryEngine) Click(p vector.Pt) error {
	e.mu.Lock()
	layer := vector.LayerOf(e.objects, e.measure)
	e.mu.Unlock()
	id, _ := layer.At(p)
	return e.SetActive(id)
}

// SelectIDs mimics a marquee selection over several objects.
func (e *MemoryEngine) SelectIDs(ids ...string) error {
	if len(ids) == 0 {
		return e.SetActive("")
	}
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	prev := e.active
	e.active = ids[0]
	e.mu.Unlock()
	kind := scene.SelectionUpdated
	if prev == "" {
		kind = scene.SelectionCreated
	}
	e.emit(scene.Event{Kind: kind, IDs: slices.Clone(ids)})
	return nil
}

// Modify applies a direct manipulation (drag, resize, inline edit) and
// reports it as ObjectModified.
func (e *MemoryEngine) Modify(id string, edit func(o *domain.SceneObject)) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	i := e.index(id)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("engine has no object %s", id)
	}
	edit(&e.objects[i])
	e.objects[i].ID = id
	e.mu.Unlock()
	e.emit(scene.Event{Kind: scene.ObjectModified, IDs: []string{id}})
	return nil
}

func (e *MemoryEngine) Subscribe(l scene.Listener) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.listeners[id] = l
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Dispose releases the scene and drops every listener.
func (e *MemoryEngine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	e.disposed = true
	e.objects = nil
	e.active = ""
	clear(e.listeners)
	return nil
}

func (e *MemoryEngine) isDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

func (e *MemoryEngine) emit(ev scene.Event) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	keys := make([]int, 0, len(e.listeners))
	for k := range e.listeners {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	ls := make([]scene.Listener, 0, len(keys))
	for _, k := range keys {
		ls = append(ls, e.listeners[k])
	}
	e.mu.Unlock()
	for _, l := range ls {
		l.HandleEvent(ev)
	}
}

func (e *MemoryEngine) index(id string) int {
	return slices.IndexFunc(e.objects, func(o domain.SceneObject) bool { return o.ID == id })
}
