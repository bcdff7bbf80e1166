/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"

	"socialstudio/internal/domain"
)

// Shape is the outline of a scene object in canvas space.
type Shape interface {
	ID() string
	Bounds() Rect
	Hit(p Pt) bool
}

// TextMeasurer sizes text objects whose geometry does not say how large
// they are.
type TextMeasurer interface {
	TextSize(o domain.SceneObject) (w, h float64)
}

type base struct {
	id string
	xf Affine2D
	r  Rect // local, before xf
}

func (b base) ID() string    { return b.id }
func (b base) Bounds() Rect  { return b.xf.TransformRect(b.r) }
func (b base) local(p Pt) Pt { return b.xf.Invert().Apply(p) }

// BoxShape is a rectangle with optional rounded corners.
type BoxShape struct {
	base
	radius float64
}

// NewBox returns a box at r with corner radius.
func NewBox(id string, r Rect, radius float64, xf Affine2D) *BoxShape {
	return &BoxShape{base: base{id: id, xf: xf, r: r}, radius: math.Min(radius, math.Min(r.W, r.H)/2)}
}

func (s *BoxShape) Hit(p Pt) bool {
	q := s.local(p)
	if !s.r.Contains(q) {
		return false
	}
	if s.radius <= 0 {
		return true
	}
	core := s.r.Inset(s.radius, s.radius)
	if core.W >= 0 && (q.X >= core.X && q.X <= core.X+core.W || q.Y >= core.Y && q.Y <= core.Y+core.H) {
		return true
	}
	// one of the four corner discs
	cx := core.X
	if q.X > core.X+core.W {
		cx = core.X + core.W
	}
	cy := core.Y
	if q.Y > core.Y+core.H {
		cy = core.Y + core.H
	}
	dx, dy := q.X-cx, q.Y-cy
	return dx*dx+dy*dy <= s.radius*s.radius
}

// EllipseShape is an ellipse inscribed in its rect.
type EllipseShape struct{ base }

func NewEllipse(id string, r Rect, xf Affine2D) *EllipseShape {
	return &EllipseShape{base: base{id: id, xf: xf, r: r}}
}

func (s *EllipseShape) Hit(p Pt) bool {
	q := s.local(p)
	rx, ry := s.r.W/2, s.r.H/2
	if rx == 0 || ry == 0 {
		return false
	}
	c := s.r.Center()
	dx, dy := (q.X-c.X)/rx, (q.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

// ShapeOf builds the outline of o. Text objects without explicit size are
// measured with m; a nil measurer gives them an empty box.
func ShapeOf(o domain.SceneObject, m TextMeasurer) Shape {
	at := Translate(o.Position.X, o.Position.Y)
	switch o.Kind {
	case domain.KindCircle:
		d := 2 * o.Geometry.Radius
		return NewEllipse(o.ID, R(0, 0, d, d), at)
	case domain.KindImage:
		sx, sy := o.Geometry.Scale()
		return NewBox(o.ID, R(0, 0, o.Geometry.Width, o.Geometry.Height), 0, at.Mul(Scale(sx, sy)))
	case domain.KindText, domain.KindTextbox:
		w, h := o.Size()
		if m != nil {
			mw, mh := m.TextSize(o)
			if o.Kind == domain.KindText || w == 0 {
				w = mw
			}
			h = math.Max(h, mh)
		}
		return NewBox(o.ID, R(0, 0, w, h), 0, at)
	default:
		return NewBox(o.ID, R(0, 0, o.Geometry.Width, o.Geometry.Height), o.Style.CornerRadius, at)
	}
}

// Layer is a z-ordered list of shapes, bottom first.
type Layer []Shape

// LayerOf outlines objects in z-order.
func LayerOf(objs []domain.SceneObject, m TextMeasurer) Layer {
	l := make(Layer, 0, len(objs))
	for _, o := range objs {
		l = append(l, ShapeOf(o, m))
	}
	return l
}

// At returns the id of the topmost shape under p.
func (l Layer) At(p Pt) (string, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Hit(p) {
			return l[i].ID(), true
		}
	}
	return "", false
}

// Bounds returns the union of all shapes.
func (l Layer) Bounds() Rect {
	var b Rect
	for i, s := range l {
		if i == 0 {
			b = s.Bounds()
			continue
		}
		b = b.Union(s.Bounds())
	}
	return b
}
