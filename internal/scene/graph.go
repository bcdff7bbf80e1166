/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene implements the in-memory design: an ordered list of scene
// objects, the canvas preset and background, and the selection tracker that
// follows render engine events.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"socialstudio/internal/domain"
	"socialstudio/internal/preset"
)

// ErrDuplicateID is returned when an added object reuses a live id.
var ErrDuplicateID = errors.New("duplicate object id")

// ErrNotFound is returned by operations addressing a missing object.
var ErrNotFound = errors.New("object not found")

// State is the serializable content of a graph.
type State struct {
	PresetID   string               `json:"presetId"`
	Background string               `json:"background"`
	Objects    []domain.SceneObject `json:"objects"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	var out State
	if err := copier.CopyWithOption(&out, &s, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched types
		panic(err)
	}
	if out.Objects == nil {
		out.Objects = []domain.SceneObject{}
	}
	return out
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDs replaces the uuid generator used for new objects.
func WithIDs(next func() string) Option { return func(g *Graph) { g.newID = next } }

// WithRefresher routes selection transitions to r.
func WithRefresher(r Refresher) Option { return func(g *Graph) { g.sel.refresh = r } }

// Graph is the live design. It is not safe for concurrent use; the editing
// session serialises access.
type Graph struct {
	presets *preset.Registry
	brand   preset.Brand

	objects    []domain.SceneObject
	background string
	preset     domain.Preset

	sel   *Tracker
	newID func() string
}

// New returns an empty graph on the default preset.
func New(presets *preset.Registry, brand preset.Brand, opts ...Option) *Graph {
	g := &Graph{
		presets:    presets,
		brand:      brand,
		background: brand.Background(),
		preset:     presets.Default(),
		newID:      uuid.NewString,
	}
	g.sel = newTracker(g.has, nil)
	for _, o := range opts {
		o(g)
	}
	return g
}

// Presets returns the registry the graph resolves preset ids against.
func (g *Graph) Presets() *preset.Registry { return g.presets }

// Brand returns the injected brand kit.
func (g *Graph) Brand() preset.Brand { return g.brand }

// Selection returns the tracker of the active object.
func (g *Graph) Selection() *Tracker { return g.sel }

// Add validates o, assigns an id when missing, appends it on top and makes
// it the active object.
func (g *Graph) Add(o domain.SceneObject) (domain.SceneObject, error) {
	if o.ID == "" {
		o.ID = g.newID()
	}
	if g.has(o.ID) {
		return domain.SceneObject{}, fmt.Errorf("%w: %s", ErrDuplicateID, o.ID)
	}
	if err := o.Validate(); err != nil {
		return domain.SceneObject{}, err
	}
	g.objects = append(g.objects, o)
	g.sel.set(o.ID)
	return o, nil
}

// Remove deletes the object with id. It reports whether anything was
// removed; a missing id is not an error.
func (g *Graph) Remove(id string) bool {
	i := g.index(id)
	if i < 0 {
		return false
	}
	g.objects = slices.Delete(g.objects, i, i+1)
	g.sel.forget(id)
	return true
}

// Clear drops every object and resets the background. The preset stays.
func (g *Graph) Clear() {
	g.objects = nil
	g.background = g.brand.Background()
	g.sel.set("")
}

// SetPreset switches the canvas size. Objects are left where they are, even
// if they now fall outside the canvas.
func (g *Graph) SetPreset(id string) error {
	p, err := g.presets.Lookup(id)
	if err != nil {
		return err
	}
	g.preset = p
	return nil
}

// Preset returns the active preset.
func (g *Graph) Preset() domain.Preset { return g.preset }

// Size returns the canvas size in pixels.
func (g *Graph) Size() (w, h int) { return g.preset.Width, g.preset.Height }

// Background returns the canvas background color.
func (g *Graph) Background() string { return g.background }

// SetBackground changes the background color.
func (g *Graph) SetBackground(hex string) error {
	if _, err := domain.ParseColor(hex); err != nil {
		return err
	}
	g.background = hex
	return nil
}

// Len returns the number of objects.
func (g *Graph) Len() int { return len(g.objects) }

// Objects returns the objects bottom to top.
func (g *Graph) Objects() []domain.SceneObject { return slices.Clone(g.objects) }

// Object returns the object with id.
func (g *Graph) Object(id string) (domain.SceneObject, bool) {
	if i := g.index(id); i >= 0 {
		return g.objects[i], true
	}
	return domain.SceneObject{}, false
}

// Active returns the active object, if any.
func (g *Graph) Active() (domain.SceneObject, bool) {
	if id := g.sel.Active(); id != "" {
		return g.Object(id)
	}
	return domain.SceneObject{}, false
}

// Update edits the object with id in place. The edit is discarded when the
// result violates an object invariant. The id and kind cannot change.
func (g *Graph) Update(id string, edit func(o *domain.SceneObject)) (domain.SceneObject, error) {
	i := g.index(id)
	if i < 0 {
		return domain.SceneObject{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := g.objects[i]
	edit(&next)
	next.ID, next.Kind = g.objects[i].ID, g.objects[i].Kind
	if err := next.Validate(); err != nil {
		return g.objects[i], err
	}
	g.objects[i] = next
	return next, nil
}

// BringToFront moves id to the top of the z-order.
func (g *Graph) BringToFront(id string) bool {
	i := g.index(id)
	if i < 0 {
		return false
	}
	o := g.objects[i]
	g.objects = append(slices.Delete(g.objects, i, i+1), o)
	return true
}

// SendToBack moves id to the bottom of the z-order.
func (g *Graph) SendToBack(id string) bool {
	i := g.index(id)
	if i < 0 {
		return false
	}
	o := g.objects[i]
	g.objects = slices.Insert(slices.Delete(g.objects, i, i+1), 0, o)
	return true
}

// State captures the graph content.
func (g *Graph) State() State {
	return State{PresetID: g.preset.ID, Background: g.background, Objects: g.Objects()}.Clone()
}

// Load replaces the content with s. Nothing changes if s holds an invalid
// object, a duplicate id or an unknown preset.
func (g *Graph) Load(s State) error {
	p, err := g.presets.Lookup(s.PresetID)
	if err != nil {
		return err
	}
	bg := s.Background
	if bg == "" {
		bg = g.brand.Background()
	} else if _, err := domain.ParseColor(bg); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Objects))
	for _, o := range s.Objects {
		if o.ID == "" {
			return fmt.Errorf("%w: object without id", domain.ErrInvalidObject)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, o.ID)
		}
		seen[o.ID] = struct{}{}
		if err := o.Validate(); err != nil {
			return err
		}
	}
	g.objects = s.Clone().Objects
	g.background = bg
	g.preset = p
	g.sel.set("")
	return nil
}

// Clone returns an independent graph with the same content and no
// selection.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		presets:    g.presets,
		brand:      g.brand,
		background: g.background,
		preset:     g.preset,
		newID:      g.newID,
	}
	c.objects = State{Objects: g.objects}.Clone().Objects
	c.sel = newTracker(c.has, g.sel.refresh)
	return c
}

func (g *Graph) has(id string) bool { return g.index(id) >= 0 }

func (g *Graph) index(id string) int {
	return slices.IndexFunc(g.objects, func(o domain.SceneObject) bool { return o.ID == id })
}
