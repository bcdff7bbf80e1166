/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"testing"

	"socialstudio/internal/domain"
)

func TestLayoutWrapsAtMaxWidth(t *testing.T) {
	l := NewLayouter(BasicProvider{})
	// 7px per glyph: "Hello world" is 77px, "Hello" 35px.
	box := l.Layout("Hello world from Go", Params{Font: FontSpec{Size: 10}, MaxWidth: 80, LineHeight: 1})
	if len(box.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", box.Lines)
	}
	if box.Lines[0].Text != "Hello world" || box.Lines[1].Text != "from Go" {
		t.Fatalf("unexpected breaks %+v", box.Lines)
	}
	if box.Width != 80 || box.Height != 20 {
		t.Fatalf("box %vx%v", box.Width, box.Height)
	}
}

func TestLayoutKeepsExplicitNewlines(t *testing.T) {
	l := NewLayouter(nil)
	box := l.Layout("Junte-se\n\ntransforme", Params{Font: FontSpec{Size: 42}, LineHeight: 1.4})
	if len(box.Lines) != 3 || box.Lines[1].Text != "" {
		t.Fatalf("lines %+v", box.Lines)
	}
	if box.Width != 70 {
		t.Fatalf("width = %v, want widest line 70", box.Width)
	}
	size, lh := 42.0, 1.4
	if got, want := box.Height, 3*(size*lh); got != want {
		t.Fatalf("height = %v, want %v", got, want)
	}
}

func TestLayoutLongWordOwnLine(t *testing.T) {
	l := NewLayouter(nil)
	box := l.Layout("a Supercalifragilistic b", Params{Font: FontSpec{Size: 10}, MaxWidth: 30})
	if len(box.Lines) != 3 || box.Lines[1].Text != "Supercalifragilistic" {
		t.Fatalf("lines %+v", box.Lines)
	}
}

func TestMeasureCharSpacing(t *testing.T) {
	l := NewLayouter(nil)
	plain := l.Measure("ABC", FontSpec{Size: 32}, 0)
	spaced := l.Measure("ABC", FontSpec{Size: 32}, 200)
	if plain != 21 {
		t.Fatalf("plain width = %v", plain)
	}
	if spaced != plain+2*32*0.2 {
		t.Fatalf("spaced width = %v", spaced)
	}
}

func TestBuiltinLibraryFallbacks(t *testing.T) {
	lib := BuiltinLibrary()
	if lib.Data(FontSpec{Family: "Helvetica", Bold: true}) == nil {
		t.Fatalf("missing Helvetica bold")
	}
	if lib.Data(FontSpec{Family: "Wingdings"}) == nil {
		t.Fatalf("unknown family should fall back to the default")
	}
	p := OTProvider{Lib: lib}
	l := NewLayouter(p)
	narrow := l.Measure("Consultor", FontSpec{Family: "Helvetica", Size: 32}, 0)
	wide := l.Measure("Consultor", FontSpec{Family: "Helvetica", Size: 64}, 0)
	if narrow <= 0 || wide <= narrow*1.5 {
		t.Fatalf("measurements do not scale with size: %v vs %v", narrow, wide)
	}
}

func TestTextSizeForTextbox(t *testing.T) {
	l := NewLayouter(nil)
	o := domain.SceneObject{
		Kind:     domain.KindTextbox,
		Geometry: domain.Geometry{Width: 880},
		Style:    domain.Style{FontSize: 48, LineHeight: 1.3},
		Text:     "Junte-se à equipa",
	}
	w, h := l.TextSize(o)
	if w != 880 {
		t.Fatalf("textbox width = %v", w)
	}
	size, lh := 48.0, 1.3
	if h != size*lh {
		t.Fatalf("textbox height = %v", h)
	}
}
