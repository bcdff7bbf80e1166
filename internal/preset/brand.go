/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preset

import "slices"

// Brand is the palette, font list and default background offered to the
// editor. Values are copied on every accessor so callers cannot mutate the
// shared kit.
type Brand struct {
	colors     []string
	fonts      []string
	assets     []string
	background string
}

// NewBrand builds a brand kit from the given lists.
func NewBrand(background string, colors, fonts, assets []string) Brand {
	return Brand{
		colors:     slices.Clone(colors),
		fonts:      slices.Clone(fonts),
		assets:     slices.Clone(assets),
		background: background,
	}
}

// DefaultBrand is the ASC Consulting kit.
func DefaultBrand() Brand {
	return NewBrand("#f8fafc",
		[]string{"#0a1f44", "#1e3a8a", "#64748b", "#f8fafc", "#ffffff", "#e11d48"},
		[]string{"Helvetica", "Arial", "Times New Roman", "Courier New", "Georgia"},
		[]string{
			"https://images.unsplash.com/photo-1497366216548-37526070297c?auto=format&fit=crop&w=800&q=80",
			"https://images.unsplash.com/photo-1522071820081-009f0129c71c?auto=format&fit=crop&w=800&q=80",
			"https://images.unsplash.com/photo-1556761175-5973dc0f32e7?auto=format&fit=crop&w=800&q=80",
		},
	)
}

func (b Brand) Colors() []string   { return slices.Clone(b.colors) }
func (b Brand) Fonts() []string    { return slices.Clone(b.fonts) }
func (b Brand) Assets() []string   { return slices.Clone(b.assets) }
func (b Brand) Background() string { return b.background }

// HasFont reports whether name is part of the kit.
func (b Brand) HasFont(name string) bool { return slices.Contains(b.fonts, name) }

// PrimaryColor is the first palette entry, used for new text.
func (b Brand) PrimaryColor() string {
	if len(b.colors) == 0 {
		return "#000000"
	}
	return b.colors[0]
}
