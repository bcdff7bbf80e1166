/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Line breaking and measurement for text objects. Text runs grow with their
// content; text blocks wrap words at a fixed width the way the editor shows
// them.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// DefaultLineHeight is the line height multiplier used when a style leaves
// it unset.
const DefaultLineHeight = 1.16

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	Size   float64 // pixels
	Bold   bool
}

// Metrics are font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses basicfont.Face7x13 for deterministic tests. Every
// glyph advances 7 pixels regardless of the requested size.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Params control a layout pass.
type Params struct {
	Font FontSpec
	// MaxWidth wraps words when positive.
	MaxWidth float64
	// LineHeight is a multiplier of the font size.
	LineHeight float64
	// CharSpacing is extra tracking in 1/1000 em.
	CharSpacing float64
}

// Line is one laid out line.
type Line struct {
	Text  string
	Width float64
}

// Box is the result of a layout pass.
type Box struct {
	Lines []Line
	Width float64
	// Height is lines * font size * line height.
	Height float64
	// Advance is the distance between two baselines.
	Advance float64
	Metrics Metrics
}

// Layouter breaks text into lines.
type Layouter struct{ Provider Provider }

// NewLayouter returns a layouter; a nil provider means BasicProvider.
func NewLayouter(p Provider) *Layouter {
	if p == nil {
		p = BasicProvider{}
	}
	return &Layouter{Provider: p}
}

// Layout splits text on newlines and, when MaxWidth is set, greedily wraps
// words. A single word wider than MaxWidth keeps its own line.
func (l *Layouter) Layout(text string, p Params) Box {
	face, met := l.Provider.Resolve(p.Font)
	lh := p.LineHeight
	if lh <= 0 {
		lh = DefaultLineHeight
	}
	box := Box{Metrics: met, Advance: p.Font.Size * lh}
	measure := func(s string) float64 { return width(face, s, p.Font.Size, p.CharSpacing) }

	add := func(s string) {
		w := measure(s)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		if w > box.Width {
			box.Width = w
		}
	}
	for _, para := range strings.Split(text, "\n") {
		if p.MaxWidth <= 0 {
			add(para)
			continue
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			add("")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			next := cur + " " + w
			if measure(next) > p.MaxWidth {
				add(cur)
				cur = w
				continue
			}
			cur = next
		}
		add(cur)
	}
	if p.MaxWidth > 0 {
		box.Width = p.MaxWidth
	}
	box.Height = float64(len(box.Lines)) * box.Advance
	return box
}

// Measure returns the single line width of s.
func (l *Layouter) Measure(s string, f FontSpec, charSpacing float64) float64 {
	face, _ := l.Provider.Resolve(f)
	return width(face, s, f.Size, charSpacing)
}

func width(face font.Face, s string, size, charSpacing float64) float64 {
	w := float64(font.MeasureString(face, s)) / 64
	if n := len([]rune(s)); n > 1 && charSpacing != 0 {
		w += float64(n-1) * size * charSpacing / 1000
	}
	return w
}
