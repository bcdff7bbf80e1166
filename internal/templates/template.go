/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package templates builds pre-populated designs. The job-opening layout is
// built in; further templates come from TOML packs.
package templates

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"socialstudio/internal/domain"
)

// JobOpening is the built-in hiring post; "vaga" is its alias.
const JobOpening = "job-opening"

// Text slots a caller may override without touching the layout.
const (
	SlotTag   = "tag"
	SlotTitle = "title"
	SlotBody  = "body"
	SlotCTA   = "cta"
)

// Element is one object of a template in pack form.
type Element struct {
	Slot         string      `toml:"slot,omitempty"`
	Kind         domain.Kind `toml:"kind"`
	X            float64     `toml:"x"`
	Y            float64     `toml:"y"`
	Width        float64     `toml:"width,omitempty"`
	Height       float64     `toml:"height,omitempty"`
	Radius       float64     `toml:"radius,omitempty"`
	Fill         string      `toml:"fill,omitempty"`
	FontFamily   string      `toml:"font_family,omitempty"`
	FontSize     float64     `toml:"font_size,omitempty"`
	Bold         bool        `toml:"bold,omitempty"`
	LineHeight   float64     `toml:"line_height,omitempty"`
	CharSpacing  float64     `toml:"char_spacing,omitempty"`
	CornerRadius float64     `toml:"corner_radius,omitempty"`
	Opacity      *float64    `toml:"opacity,omitempty"`
	Text         string      `toml:"text,omitempty"`
	Src          string      `toml:"src,omitempty"`
}

// Object converts e, using text in place of e.Text when non-empty.
func (e Element) Object(text string) domain.SceneObject {
	o := domain.SceneObject{
		Kind:     e.Kind,
		Position: domain.Point{X: e.X, Y: e.Y},
		Geometry: domain.Geometry{Width: e.Width, Height: e.Height, Radius: e.Radius},
		Style: domain.Style{
			Fill:         e.Fill,
			FontFamily:   e.FontFamily,
			FontSize:     e.FontSize,
			LineHeight:   e.LineHeight,
			CharSpacing:  e.CharSpacing,
			CornerRadius: e.CornerRadius,
			Opacity:      1,
		},
		Text: e.Text,
		Src:  e.Src,
	}
	if e.Opacity != nil {
		o.Style.Opacity = *e.Opacity
	}
	if e.Kind.IsText() {
		o.Style.FontWeight = domain.WeightNormal
		if e.Bold {
			o.Style.FontWeight = domain.WeightBold
		}
		if text != "" {
			o.Text = text
		}
	}
	return o
}

// Template is a named, ordered object list.
type Template struct {
	Name       string    `toml:"name"`
	Aliases    []string  `toml:"aliases,omitempty"`
	Title      string    `toml:"title,omitempty"`
	Background string    `toml:"background,omitempty"`
	Elements   []Element `toml:"element"`
}

// Objects builds the object list, applying text overrides by slot.
func (t Template) Objects(overrides map[string]string) []domain.SceneObject {
	out := make([]domain.SceneObject, 0, len(t.Elements))
	for _, e := range t.Elements {
		var text string
		if e.Slot != "" {
			text = overrides[e.Slot]
		}
		out = append(out, e.Object(text))
	}
	return out
}

// Validate checks name, background and every element.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("template name is required")
	}
	if t.Background != "" {
		if _, err := domain.ParseColor(t.Background); err != nil {
			return fmt.Errorf("template %s: %w", t.Name, err)
		}
	}
	for i, o := range t.Objects(nil) {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("template %s element %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// jobOpening is the hiring post on the square preset.
func jobOpening() Template {
	return Template{
		Name:       JobOpening,
		Aliases:    []string{"vaga"},
		Title:      "Vaga de Emprego",
		Background: "#f8fafc",
		Elements: []Element{
			{Kind: domain.KindRect, X: 0, Y: 0, Width: 1080, Height: 250, Fill: "#0a1f44"},
			{Slot: SlotTag, Kind: domain.KindText, X: 80, Y: 90, Fill: "#64748b", FontFamily: "Helvetica", FontSize: 32, Bold: true, CharSpacing: 200, Text: "ESTAMOS A CONTRATAR"},
			{Slot: SlotTitle, Kind: domain.KindText, X: 80, Y: 140, Fill: "#ffffff", FontFamily: "Helvetica", FontSize: 64, Bold: true, Text: "Consultor Sénior"},
			{Slot: SlotBody, Kind: domain.KindText, X: 80, Y: 400, Fill: "#1e3a8a", FontFamily: "Helvetica", FontSize: 42, LineHeight: 1.4, Text: "Junte-se à equipa da ASC Consulting e\ntransforme desafios em resultados."},
			{Kind: domain.KindRect, X: 80, Y: 800, Width: 350, Height: 90, Fill: "#e11d48", CornerRadius: 45},
			{Slot: SlotCTA, Kind: domain.KindText, X: 130, Y: 825, Fill: "#ffffff", FontFamily: "Helvetica", FontSize: 32, Bold: true, Text: "Candidatar-me"},
		},
	}
}

// Registry resolves template names and aliases. Templates from packs are
// grouped by source so a reloaded file replaces its own entries only.
type Registry struct {
	mu      sync.RWMutex
	builtin map[string]Template
	packs   map[string][]Template
}

// NewRegistry returns a registry holding the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{builtin: map[string]Template{}, packs: map[string][]Template{}}
	t := jobOpening()
	r.builtin[t.Name] = t
	return r
}

// SetPack replaces the templates loaded from source. An empty list removes
// the source.
func (r *Registry) SetPack(source string, ts []Template) error {
	for _, t := range ts {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ts) == 0 {
		delete(r.packs, source)
		return nil
	}
	r.packs[source] = slices.Clone(ts)
	return nil
}

// Lookup finds a template by name or alias, case-insensitively. Pack
// templates shadow built-ins; among packs the lexically last source wins.
func (r *Registry) Lookup(name string) (Template, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Template{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sources := make([]string, 0, len(r.packs))
	for s := range r.packs {
		sources = append(sources, s)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(sources)))
	for _, s := range sources {
		for _, t := range r.packs[s] {
			if matches(t, key) {
				return t, true
			}
		}
	}
	for _, t := range r.builtin {
		if matches(t, key) {
			return t, true
		}
	}
	return Template{}, false
}

func matches(t Template, key string) bool {
	if strings.ToLower(t.Name) == key {
		return true
	}
	for _, a := range t.Aliases {
		if strings.ToLower(a) == key {
			return true
		}
	}
	return false
}

// All returns one entry per distinct name, sorted by name.
func (r *Registry) All() []Template {
	seen := map[string]bool{}
	var out []Template
	r.mu.RLock()
	var names []string
	for _, ts := range r.packs {
		for _, t := range ts {
			names = append(names, t.Name)
		}
	}
	for n := range r.builtin {
		names = append(names, n)
	}
	r.mu.RUnlock()
	for _, n := range names {
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		if t, ok := r.Lookup(n); ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
