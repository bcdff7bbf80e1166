/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the drawable elements of a design. Objects are plain
// values; the scene graph owns their order and the selection.

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// Kind tags the drawable type of a SceneObject.
type Kind string

const (
	KindText    Kind = "text"    // single text run, grows with its content
	KindTextbox Kind = "textbox" // editable text block with a fixed wrap width
	KindRect    Kind = "rect"
	KindCircle  Kind = "circle"
	KindImage   Kind = "image"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind { return []Kind{KindText, KindTextbox, KindRect, KindCircle, KindImage} }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTextbox, KindRect, KindCircle, KindImage:
		return true
	}
	return false
}

// IsText reports whether objects of this kind carry text content.
func (k Kind) IsText() bool { return k == KindText || k == KindTextbox }

// Point is a position in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry holds the kind dependent size fields. Rectangles and text blocks
// use Width/Height, circles use Radius, images use Width/Height as their
// intrinsic size together with ScaleX/ScaleY.
type Geometry struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	ScaleX float64 `json:"scaleX,omitempty"`
	ScaleY float64 `json:"scaleY,omitempty"`
}

// Scale returns the effective scale factors; zero means 1.
func (g Geometry) Scale() (sx, sy float64) {
	sx, sy = g.ScaleX, g.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// Font weights understood by the renderers.
const (
	WeightNormal = "normal"
	WeightBold   = "bold"
)

// Style carries the visual attributes of an object. Fields that do not apply
// to a kind are left zero.
type Style struct {
	Fill         string  `json:"fill,omitempty"`
	FontFamily   string  `json:"fontFamily,omitempty"`
	FontSize     float64 `json:"fontSize,omitempty"`
	FontWeight   string  `json:"fontWeight,omitempty"`
	Opacity      float64 `json:"opacity"`
	LineHeight   float64 `json:"lineHeight,omitempty"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`
	CharSpacing  float64 `json:"charSpacing,omitempty"`
}

// SceneObject is a single drawable entity of a design.
type SceneObject struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Position Point    `json:"position"`
	Geometry Geometry `json:"geometry"`
	Style    Style    `json:"style"`
	// Text is the content of text kinds.
	Text string `json:"text,omitempty"`
	// Src references the image source of image kinds.
	Src string `json:"src,omitempty"`
}

// ErrInvalidObject is wrapped by every Validate failure.
var ErrInvalidObject = errors.New("invalid scene object")

// Validate checks the invariants every object must satisfy: a known kind,
// opacity within [0,1], a positive font size for text kinds, finite
// non-negative geometry, a finite position and UTF-8 text. An object that
// passes encodes to a snapshot and decodes back unchanged.
func (o SceneObject) Validate() error {
	if !o.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidObject, o.Kind)
	}
	if math.IsNaN(o.Style.Opacity) || o.Style.Opacity < 0 || o.Style.Opacity > 1 {
		return fmt.Errorf("%w: opacity %v outside [0,1]", ErrInvalidObject, o.Style.Opacity)
	}
	if o.Kind.IsText() && !(o.Style.FontSize > 0) {
		return fmt.Errorf("%w: font size must be positive, got %v", ErrInvalidObject, o.Style.FontSize)
	}
	if !finite(o.Position.X) || !finite(o.Position.Y) {
		return fmt.Errorf("%w: position (%v, %v) is not finite", ErrInvalidObject, o.Position.X, o.Position.Y)
	}
	if !finite(o.Style.CharSpacing) {
		return fmt.Errorf("%w: charSpacing %v is not finite", ErrInvalidObject, o.Style.CharSpacing)
	}
	g := o.Geometry
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"width", g.Width}, {"height", g.Height}, {"radius", g.Radius},
		{"scaleX", g.ScaleX}, {"scaleY", g.ScaleY},
		{"fontSize", o.Style.FontSize}, {"lineHeight", o.Style.LineHeight},
		{"cornerRadius", o.Style.CornerRadius},
	} {
		if !finite(f.v) || f.v < 0 {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %v", ErrInvalidObject, f.name, f.v)
		}
	}
	if !utf8.ValidString(o.Text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidObject)
	}
	if !utf8.ValidString(o.Src) {
		return fmt.Errorf("%w: src is not valid UTF-8", ErrInvalidObject)
	}
	if o.Style.Fill != "" {
		if _, err := ParseColor(o.Style.Fill); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidObject, err)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Size returns the unscaled-by-transform bounding size of the object as it
// is laid out on the canvas. Text kinds without an explicit size report
// zero; callers measure those with a text layouter.
func (o SceneObject) Size() (w, h float64) {
	switch o.Kind {
	case KindCircle:
		return 2 * o.Geometry.Radius, 2 * o.Geometry.Radius
	case KindImage:
		sx, sy := o.Geometry.Scale()
		return o.Geometry.Width * sx, o.Geometry.Height * sy
	default:
		return o.Geometry.Width, o.Geometry.Height
	}
}
