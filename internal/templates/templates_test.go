/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package templates

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"socialstudio/internal/domain"
	"socialstudio/internal/preset"
	"socialstudio/internal/scene"
)

const webinarPack = `
[[template]]
name = "webinar"
aliases = ["evento"]
title = "Webinar"
background = "#ffffff"

[[template.element]]
kind = "rect"
x = 0.0
y = 0.0
width = 1080.0
height = 1080.0
fill = "#1e3a8a"

[[template.element]]
slot = "title"
kind = "textbox"
x = 80.0
y = 120.0
width = 920.0
fill = "#ffffff"
font_family = "Georgia"
font_size = 72.0
bold = true
text = "Webinar ESG"
`

func newGraph() *scene.Graph { return scene.New(preset.Builtin(), preset.DefaultBrand()) }

func TestApplyJobOpening(t *testing.T) {
	g := newGraph()
	if err := g.SetPreset(preset.InstagramStory); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add(domain.SceneObject{Kind: domain.KindCircle, Geometry: domain.Geometry{Radius: 10}, Style: domain.Style{Opacity: 1}}); err != nil {
		t.Fatal(err)
	}

	res, err := Apply(g, NewRegistry(), "vaga", nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Applied || res.ProjectName != "Novo Design (vaga)" {
		t.Fatalf("unexpected result %+v", res)
	}
	if g.Preset().ID != preset.LinkedInPost {
		t.Fatalf("preset not reset: %s", g.Preset().ID)
	}
	if g.Background() != "#f8fafc" {
		t.Fatalf("background = %s", g.Background())
	}
	objs := g.Objects()
	wantKinds := []domain.Kind{domain.KindRect, domain.KindText, domain.KindText, domain.KindText, domain.KindRect, domain.KindText}
	wantPos := []domain.Point{{X: 0, Y: 0}, {X: 80, Y: 90}, {X: 80, Y: 140}, {X: 80, Y: 400}, {X: 80, Y: 800}, {X: 130, Y: 825}}
	if len(objs) != len(wantKinds) {
		t.Fatalf("expected %d objects, got %d", len(wantKinds), len(objs))
	}
	for i, o := range objs {
		if o.Kind != wantKinds[i] || o.Position != wantPos[i] {
			t.Fatalf("object %d: %s at %+v", i, o.Kind, o.Position)
		}
	}
	if objs[1].Style.CharSpacing != 200 || objs[3].Style.LineHeight != 1.4 || objs[4].Style.CornerRadius != 45 {
		t.Fatalf("template styles not carried over")
	}
	if objs[2].Text != "Consultor Sénior" || objs[2].Style.FontWeight != domain.WeightBold {
		t.Fatalf("title = %q %s", objs[2].Text, objs[2].Style.FontWeight)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	reg := NewRegistry()
	a, b := newGraph(), newGraph()
	if _, err := Apply(a, reg, JobOpening, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Apply(b, reg, JobOpening, map[string]string{SlotTitle: "Auditor Júnior", SlotCTA: "Saber mais"}); err != nil {
		t.Fatal(err)
	}
	oa, ob := a.Objects(), b.Objects()
	if len(oa) != len(ob) {
		t.Fatalf("object counts differ: %d vs %d", len(oa), len(ob))
	}
	for i := range oa {
		if oa[i].Kind != ob[i].Kind || oa[i].Position != ob[i].Position || oa[i].Geometry != ob[i].Geometry {
			t.Fatalf("structure differs at %d", i)
		}
	}
	if ob[2].Text != "Auditor Júnior" || ob[5].Text != "Saber mais" || ob[1].Text != oa[1].Text {
		t.Fatalf("overrides not applied per slot")
	}
}

func TestApplyUnknownTemplate(t *testing.T) {
	g := newGraph()
	_ = g.SetPreset(preset.LinkedInBanner)
	_ = g.SetBackground("#000000")
	if _, err := g.Add(domain.SceneObject{Kind: domain.KindRect, Geometry: domain.Geometry{Width: 1, Height: 1}, Style: domain.Style{Opacity: 1}}); err != nil {
		t.Fatal(err)
	}
	res, err := Apply(g, NewRegistry(), "newsletter", nil)
	if err != nil {
		t.Fatalf("unknown template should not fail: %v", err)
	}
	if res.Applied {
		t.Fatalf("unknown template reported as applied")
	}
	if g.Len() != 0 || g.Preset().ID != preset.LinkedInPost || g.Background() != preset.DefaultBrand().Background() {
		t.Fatalf("unknown template must still clear and reset")
	}
	if res.ProjectName != "Novo Design (newsletter)" {
		t.Fatalf("project name = %q", res.ProjectName)
	}
}

func TestPackLoadAndShadow(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "webinar.toml"), []byte(webinarPack), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("[[template]]\nname = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry()
	n, err := LoadDir(reg, dir)
	if err == nil {
		t.Fatalf("broken pack should be reported")
	}
	if n != 1 {
		t.Fatalf("loaded %d templates", n)
	}
	tpl, ok := reg.Lookup("EVENTO")
	if !ok || tpl.Name != "webinar" || len(tpl.Elements) != 2 {
		t.Fatalf("alias lookup failed: %+v", tpl)
	}
	if _, ok := reg.Lookup(JobOpening); !ok {
		t.Fatalf("built-in lost after loading packs")
	}
	if got := len(reg.All()); got != 2 {
		t.Fatalf("All() = %d templates", got)
	}

	g := newGraph()
	res, err := Apply(g, reg, "webinar", map[string]string{SlotTitle: "Webinar Auditoria"})
	if err != nil || !res.Applied {
		t.Fatalf("apply pack template: %v %+v", err, res)
	}
	if objs := g.Objects(); objs[1].Kind != domain.KindTextbox || objs[1].Text != "Webinar Auditoria" {
		t.Fatalf("pack objects wrong: %+v", objs[1])
	}

	if _, err := LoadDir(NewRegistry(), filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("missing dir should be empty, got %v", err)
	}
}

func TestParsePackRejectsInvalid(t *testing.T) {
	bad := []string{
		"[[template]]\nname = \"x\"\nbackground = \"blue\"\n",
		"[[template]]\nname = \"x\"\n[[template.element]]\nkind = \"star\"\n",
		"[[template]]\nname = \"x\"\n[[template.element]]\nkind = \"text\"\ntext = \"no size\"\n",
		"[[template]]\nname = \"x\"\ncolour = \"#fff\"\n",
	}
	for _, b := range bad {
		if _, err := ParsePack([]byte(b)); err == nil {
			t.Fatalf("expected error for %q", b)
		}
	}
	out, err := EncodePack([]Template{jobOpening()})
	if err != nil {
		t.Fatalf("EncodePack: %v", err)
	}
	back, err := ParsePack(out)
	if err != nil || len(back) != 1 || len(back[0].Elements) != 6 {
		t.Fatalf("encoded pack does not parse back: %v", err)
	}
}

func TestZipExportImport(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "webinar.toml"), []byte(webinarPack), 0o644); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "packs.zip")
	n, err := ExportZip(src, zipPath)
	if err != nil || n != 1 {
		t.Fatalf("ExportZip: %d %v", n, err)
	}
	dst := t.TempDir()
	installed, err := ImportZip(zipPath, dst)
	if err != nil || installed != 1 {
		t.Fatalf("ImportZip: %d %v", installed, err)
	}
	if _, err := os.Stat(filepath.Join(dst, "webinar.toml")); err != nil {
		t.Fatalf("pack not installed: %v", err)
	}
	again, err := ImportZip(zipPath, dst)
	if err != nil || again != 0 {
		t.Fatalf("existing files must be kept: %d %v", again, err)
	}
	if _, err := os.Stat(filepath.Join(dst, manifestName)); !os.IsNotExist(err) {
		t.Fatalf("manifest should not be installed")
	}
}

func waitReload(t *testing.T, w *Watcher, ok func(Reload) bool) Reload {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-w.Reloads:
			if ok(r) {
				return r
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
			return Reload{}
		}
	}
}

func TestWatcherReloadsPacks(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	w, err := NewWatcher(reg, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	file := filepath.Join(dir, "webinar.toml")
	if err := os.WriteFile(file, []byte(webinarPack), 0o644); err != nil {
		t.Fatal(err)
	}
	waitReload(t, w, func(r Reload) bool { return r.File == file && r.Templates == 1 })
	if _, ok := reg.Lookup("webinar"); !ok {
		t.Fatalf("template not registered after write")
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	waitReload(t, w, func(r Reload) bool { return r.Removed })
	if _, ok := reg.Lookup("webinar"); ok {
		t.Fatalf("template still registered after remove")
	}
}
