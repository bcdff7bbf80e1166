/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores OpenType fonts by family and weight. The raw font data
// is kept alongside the parsed font so raster backends can build their own
// faces from it.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]fontEntry
}

type fontKey struct {
	family string
	bold   bool
}

type fontEntry struct {
	data []byte
	font *opentype.Font
}

// NewFontLibrary returns an empty library.
func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]fontEntry)} }

// BuiltinLibrary maps the brand families onto the Go fonts. Monospace
// families use Go Mono; everything else uses Go Regular/Bold.
func BuiltinLibrary() *FontLibrary {
	fl := NewFontLibrary()
	sans := []string{"", "Helvetica", "Arial", "Times New Roman", "Georgia"}
	for _, fam := range sans {
		must(fl.Add(fam, false, goregular.TTF))
		must(fl.Add(fam, true, gobold.TTF))
	}
	must(fl.Add("Courier New", false, gomono.TTF))
	must(fl.Add("Courier New", true, gomonobold.TTF))
	return fl
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Add parses data and registers it for family.
func (fl *FontLibrary) Add(family string, bold bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[fontKey{family: strings.ToLower(family), bold: bold}] = fontEntry{data: data, font: f}
	return nil
}

// LoadTTF reads a font file and registers it for family.
func (fl *FontLibrary) LoadTTF(family string, bold bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Add(family, bold, data)
}

// Data returns the raw font bytes best matching spec, or nil.
func (fl *FontLibrary) Data(spec FontSpec) []byte {
	e, ok := fl.find(spec)
	if !ok {
		return nil
	}
	return e.data
}

// find tries the exact family and weight, then the family in any weight,
// then the default family.
func (fl *FontLibrary) find(spec FontSpec) (fontEntry, bool) {
	if fl == nil {
		return fontEntry{}, false
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	fam := strings.ToLower(spec.Family)
	for _, k := range []fontKey{{fam, spec.Bold}, {fam, !spec.Bold}, {"", spec.Bold}, {"", !spec.Bold}} {
		if e, ok := fl.fonts[k]; ok {
			return e, true
		}
	}
	return fontEntry{}, false
}

// OTProvider resolves FontSpec through a FontLibrary and falls back to
// another Provider when nothing matches.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 if zero, so sizes are pixels
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.Size <= 0 {
		spec.Size = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if e, ok := p.Lib.find(spec); ok {
		face, err := opentype.NewFace(e.font, &opentype.FaceOptions{Size: spec.Size, DPI: dpi, Hinting: font.HintingNone})
		if err == nil {
			m := face.Metrics()
			return face, Metrics{
				Ascent:  float64(m.Ascent) / 64,
				Descent: float64(m.Descent) / 64,
				LineGap: float64(m.Height-m.Ascent-m.Descent) / 64,
			}
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
