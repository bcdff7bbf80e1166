/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"socialstudio/internal/domain"
	"socialstudio/internal/preset"
	"socialstudio/internal/scene"
)

func newSerializer(t *testing.T) *Serializer {
	t.Helper()
	s, err := NewSerializer(preset.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSerializer: %v", err)
	}
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return s
}

func sampleGraph(t *testing.T) *scene.Graph {
	t.Helper()
	g := scene.New(preset.Builtin(), preset.DefaultBrand())
	objs := []domain.SceneObject{
		{
			Kind:     domain.KindText,
			Position: domain.Point{X: 100, Y: 100},
			Style:    domain.Style{Fill: "#0a1f44", FontFamily: "Helvetica", FontSize: 60, FontWeight: domain.WeightBold, Opacity: 1},
			Text:     "Insira o seu título",
		},
		{
			Kind:     domain.KindRect,
			Position: domain.Point{X: 80, Y: 800},
			Geometry: domain.Geometry{Width: 350, Height: 90},
			Style:    domain.Style{Fill: "#e11d48", Opacity: 0.85, CornerRadius: 45},
		},
		{
			Kind:     domain.KindImage,
			Position: domain.Point{X: 50, Y: 50},
			Geometry: domain.Geometry{Width: 1200, Height: 800, ScaleX: 0.72, ScaleY: 0.72},
			Style:    domain.Style{Opacity: 1},
			Src:      "https://example.com/a.png",
		},
	}
	for _, o := range objs {
		if _, err := g.Add(o); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := g.SetPreset(preset.InstagramStory); err != nil {
		t.Fatalf("SetPreset: %v", err)
	}
	return g
}

func TestRoundTripPreservesObjects(t *testing.T) {
	s := newSerializer(t)
	g := sampleGraph(t)
	rec, err := s.Serialize(g, Meta{ID: NewID()})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if rec.PresetID != preset.InstagramStory || rec.Name != DefaultName {
		t.Fatalf("unexpected record meta: %+v", rec)
	}
	if !rec.Date.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", rec.Date)
	}

	back := scene.New(preset.Builtin(), preset.DefaultBrand())
	r, err := s.Restore(back, rec)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Fallback != nil {
		t.Fatalf("unexpected fallback: %v", r.Fallback)
	}
	if !reflect.DeepEqual(back.Objects(), g.Objects()) {
		t.Fatalf("objects differ\n got %+v\nwant %+v", back.Objects(), g.Objects())
	}
	if back.Preset().ID != preset.InstagramStory {
		t.Fatalf("preset = %s", back.Preset().ID)
	}
	if _, ok := back.Active(); ok {
		t.Fatalf("a restored graph starts without selection")
	}
}

// Every value the graph accepts must come back from a save unchanged; the
// rest must be turned away before it reaches the graph.
func TestHostileValuesRejectedOrPreserved(t *testing.T) {
	base := domain.SceneObject{
		Kind:     domain.KindTextbox,
		Position: domain.Point{X: 100, Y: 100},
		Geometry: domain.Geometry{Width: 880},
		Style:    domain.Style{Fill: "#0a1f44", FontFamily: "Helvetica", FontSize: 48, LineHeight: 1.3, Opacity: 1},
		Text:     "Olá",
	}
	cases := []struct {
		name   string
		edit   func(o *domain.SceneObject)
		reject bool
	}{
		{"inf x", func(o *domain.SceneObject) { o.Position.X = math.Inf(1) }, true},
		{"-inf y", func(o *domain.SceneObject) { o.Position.Y = math.Inf(-1) }, true},
		{"nan width", func(o *domain.SceneObject) { o.Geometry.Width = math.NaN() }, true},
		{"inf font size", func(o *domain.SceneObject) { o.Style.FontSize = math.Inf(1) }, true},
		{"inf line height", func(o *domain.SceneObject) { o.Style.LineHeight = math.Inf(1) }, true},
		{"nan spacing", func(o *domain.SceneObject) { o.Style.CharSpacing = math.NaN() }, true},
		{"invalid utf8", func(o *domain.SceneObject) { o.Text = "ok \xff\xfe bytes" }, true},
		{"huge position", func(o *domain.SceneObject) { o.Position = domain.Point{X: -1e300, Y: 1e300} }, false},
		{"tiny scale", func(o *domain.SceneObject) { o.Geometry.Height = 1e-9; o.Style.CharSpacing = -0.125 }, false},
		{"markup and controls", func(o *domain.SceneObject) { o.Text = "<b>&amp;</b> \"x\"\n\t\x00\u2028 fim" }, false},
		{"astral plane", func(o *domain.SceneObject) { o.Text = "Vagas abertas \U0001F680\U0001F1E7\U0001F1F7" }, false},
	}
	s := newSerializer(t)
	for _, c := range cases {
		for _, path := range []string{"add", "update"} {
			g := scene.New(preset.Builtin(), preset.DefaultBrand())
			o := base
			var err error
			if path == "add" {
				c.edit(&o)
				o, err = g.Add(o)
			} else {
				if o, err = g.Add(o); err != nil {
					t.Fatalf("%s: add base: %v", c.name, err)
				}
				o, err = g.Update(o.ID, c.edit)
			}
			if c.reject {
				if !errors.Is(err, domain.ErrInvalidObject) {
					t.Fatalf("%s/%s: err = %v", c.name, path, err)
				}
				if path == "update" && g.Objects()[0] != o {
					t.Fatalf("%s/update: rejected edit reached the graph", c.name)
				}
			} else if err != nil {
				t.Fatalf("%s/%s: unexpected error %v", c.name, path, err)
			}

			rec, err := s.Serialize(g, Meta{ID: "p1"})
			if err != nil {
				t.Fatalf("%s/%s: Serialize: %v", c.name, path, err)
			}
			back := scene.New(preset.Builtin(), preset.DefaultBrand())
			if _, err := s.Restore(back, rec); err != nil {
				t.Fatalf("%s/%s: Restore: %v", c.name, path, err)
			}
			if !slices.Equal(back.Objects(), g.Objects()) {
				t.Fatalf("%s/%s: objects differ\n got %+v\nwant %+v", c.name, path, back.Objects(), g.Objects())
			}
		}
	}
}

func TestSaveThreeObjectsAndReload(t *testing.T) {
	s := newSerializer(t)
	g := sampleGraph(t)
	rec, err := s.Serialize(g, Meta{ID: NewID(), Name: "  Campanha  "})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.HasPrefix(rec.ID, IDPrefix) || len(rec.ID) <= len(IDPrefix) {
		t.Fatalf("generated id = %q", rec.ID)
	}
	if rec.Name != "Campanha" {
		t.Fatalf("name = %q", rec.Name)
	}
	r, err := s.Deserialize(rec)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(r.State.Objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(r.State.Objects))
	}
	for i, o := range g.Objects() {
		if r.State.Objects[i] != o {
			t.Fatalf("object %d differs: %+v vs %+v", i, r.State.Objects[i], o)
		}
	}
}

func TestUnknownPresetFallsBack(t *testing.T) {
	s := newSerializer(t)
	rec, err := s.Serialize(sampleGraph(t), Meta{ID: "p1"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	rec.PresetID = "tiktok-video"
	r, err := s.Deserialize(rec)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if r.Fallback == nil || r.Fallback.ID != "tiktok-video" {
		t.Fatalf("expected fallback for unknown preset, got %+v", r.Fallback)
	}
	if r.State.PresetID != preset.LinkedInPost {
		t.Fatalf("fallback preset = %s", r.State.PresetID)
	}
	if len(r.State.Objects) != 3 {
		t.Fatalf("objects dropped on fallback")
	}
}

func TestCorruptSnapshotLeavesGraphUntouched(t *testing.T) {
	s := newSerializer(t)
	g := sampleGraph(t)
	before := g.State()

	cases := map[string]string{
		"not json":       "{{{",
		"wrong kind":     `{"version":1,"background":"#ffffff","objects":[{"id":"a","kind":"star","position":{"x":0,"y":0},"geometry":{},"style":{"opacity":1}}]}`,
		"opacity range":  `{"version":1,"background":"#ffffff","objects":[{"id":"a","kind":"rect","position":{"x":0,"y":0},"geometry":{},"style":{"opacity":2}}]}`,
		"duplicate ids":  `{"version":1,"background":"#ffffff","objects":[{"id":"a","kind":"rect","position":{"x":0,"y":0},"geometry":{},"style":{"opacity":1}},{"id":"a","kind":"rect","position":{"x":0,"y":0},"geometry":{},"style":{"opacity":1}}]}`,
		"future version": `{"version":99,"background":"#ffffff","objects":[]}`,
	}
	for name, data := range cases {
		rec := domain.ProjectRecord{ID: "p", Name: "x", PresetID: preset.LinkedInPost, SerializedScene: data}
		_, err := s.Restore(g, rec)
		var se *domain.SerializationError
		if !errors.As(err, &se) {
			t.Fatalf("%s: expected SerializationError, got %v", name, err)
		}
		if !reflect.DeepEqual(g.State(), before) {
			t.Fatalf("%s: graph modified by failed load", name)
		}
	}
}

func TestParseRecordChecksSchema(t *testing.T) {
	s := newSerializer(t)
	good := `{"id":"proj_1","name":"A","date":"2026-03-01T12:00:00Z","presetId":"linkedin-post","serializedScene":"{\"version\":1,\"background\":\"\",\"objects\":[]}"}`
	rec, err := s.ParseRecord([]byte(good))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.ID != "proj_1" || rec.PresetID != preset.LinkedInPost {
		t.Fatalf("unexpected record %+v", rec)
	}
	for _, bad := range []string{
		`{"name":"A","presetId":"linkedin-post"}`,
		`{"name":"A","presetId":"linkedin-post","serializedScene":"{}","owner":"x"}`,
		`{"name":"A","date":"yesterday","presetId":"linkedin-post","serializedScene":"{}"}`,
	} {
		if _, err := s.ParseRecord([]byte(bad)); err == nil {
			t.Fatalf("expected schema error for %s", bad)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
