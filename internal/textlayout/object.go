/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "socialstudio/internal/domain"

// ParamsFor derives layout parameters from a text object's style.
func ParamsFor(o domain.SceneObject) Params {
	p := Params{
		Font: FontSpec{
			Family: o.Style.FontFamily,
			Size:   o.Style.FontSize,
			Bold:   o.Style.FontWeight == domain.WeightBold,
		},
		LineHeight:  o.Style.LineHeight,
		CharSpacing: o.Style.CharSpacing,
	}
	if o.Kind == domain.KindTextbox {
		p.MaxWidth = o.Geometry.Width
	}
	return p
}

// LayoutObject lays out the text of o.
func (l *Layouter) LayoutObject(o domain.SceneObject) Box {
	return l.Layout(o.Text, ParamsFor(o))
}

// TextSize returns the laid out size of a text object.
func (l *Layouter) TextSize(o domain.SceneObject) (w, h float64) {
	b := l.LayoutObject(o)
	return b.Width, b.Height
}
