/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preset holds the immutable table of canvas sizes and the brand
// kit. Both are built once and injected into the components that need them.
package preset

import (
	"fmt"

	"socialstudio/internal/domain"
)

// Built-in preset identifiers.
const (
	LinkedInPost   = "linkedin-post"
	LinkedInBanner = "linkedin-banner"
	InstagramStory = "ig-story"
)

// Registry maps preset ids to canvas dimensions. It is read-only after New.
type Registry struct {
	order []string
	byID  map[string]domain.Preset
	def   string
}

// New builds a registry. The default id must be one of the presets.
func New(defaultID string, presets ...domain.Preset) (*Registry, error) {
	r := &Registry{byID: make(map[string]domain.Preset, len(presets)), def: defaultID}
	for _, p := range presets {
		if p.ID == "" {
			return nil, fmt.Errorf("preset without id")
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("preset %q: dimensions must be positive", p.ID)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("preset %q declared twice", p.ID)
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	if _, ok := r.byID[defaultID]; !ok {
		return nil, &domain.UnknownPresetError{ID: defaultID}
	}
	return r, nil
}

// Builtin returns the registry of social formats shipped with the tool.
func Builtin() *Registry {
	r, err := New(LinkedInPost,
		domain.Preset{ID: LinkedInPost, Name: "LinkedIn Post (Feed)", Width: 1080, Height: 1080},
		domain.Preset{ID: LinkedInBanner, Name: "LinkedIn Banner", Width: 1584, Height: 396},
		domain.Preset{ID: InstagramStory, Name: "Instagram Story", Width: 1080, Height: 1920},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup resolves id or returns *domain.UnknownPresetError.
func (r *Registry) Lookup(id string) (domain.Preset, error) {
	p, ok := r.byID[id]
	if !ok {
		return domain.Preset{}, &domain.UnknownPresetError{ID: id}
	}
	return p, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Default returns the default preset.
func (r *Registry) Default() domain.Preset { return r.byID[r.def] }

// DefaultID returns the id of the default preset.
func (r *Registry) DefaultID() string { return r.def }

// All returns the presets in declaration order.
func (r *Registry) All() []domain.Preset {
	out := make([]domain.Preset, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
