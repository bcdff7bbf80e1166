/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"testing"

	"socialstudio/internal/domain"
)

func TestRectBasics(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("edge points should be contained")
	}
	in := r.Inset(5, 5)
	if in != R(15, 25, 90, 40) {
		t.Fatalf("unexpected inset %+v", in)
	}
	if !r.Intersects(R(100, 60, 20, 20)) || r.Intersects(R(200, 200, 5, 5)) {
		t.Fatalf("Intersects mismatch")
	}
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 4))
	p := m.Apply(Pt{1, 1})
	if p != (Pt{12, 9}) {
		t.Fatalf("apply = %+v", p)
	}
	if q := m.Invert().Apply(p); q != (Pt{1, 1}) {
		t.Fatalf("invert = %+v", q)
	}
	if Scale(0, 1).Invert() != Identity {
		t.Fatalf("singular matrix should invert to identity")
	}
}

type fixedMeasure struct{ w, h float64 }

func (f fixedMeasure) TextSize(domain.SceneObject) (float64, float64) { return f.w, f.h }

func TestShapeOfKinds(t *testing.T) {
	circle := ShapeOf(domain.SceneObject{ID: "c", Kind: domain.KindCircle, Position: domain.Point{X: 100, Y: 100}, Geometry: domain.Geometry{Radius: 100}}, nil)
	if b := circle.Bounds(); b != R(100, 100, 200, 200) {
		t.Fatalf("circle bounds %+v", b)
	}
	if !circle.Hit(Pt{200, 200}) || circle.Hit(Pt{105, 105}) {
		t.Fatalf("circle hit test mismatch")
	}

	img := ShapeOf(domain.SceneObject{ID: "i", Kind: domain.KindImage, Position: domain.Point{X: 50, Y: 50},
		Geometry: domain.Geometry{Width: 1000, Height: 500, ScaleX: 0.5, ScaleY: 0.5}}, nil)
	if b := img.Bounds(); b != R(50, 50, 500, 250) {
		t.Fatalf("image bounds %+v", b)
	}

	txt := ShapeOf(domain.SceneObject{ID: "t", Kind: domain.KindText, Position: domain.Point{X: 80, Y: 140}}, fixedMeasure{300, 70})
	if b := txt.Bounds(); b != R(80, 140, 300, 70) {
		t.Fatalf("text bounds %+v", b)
	}
}

func TestRoundedBoxCorners(t *testing.T) {
	s := NewBox("b", R(0, 0, 100, 100), 20, Identity)
	if !s.Hit(Pt{10, 10}) {
		t.Fatalf("point inside the corner arc should hit")
	}
	if s.Hit(Pt{1, 1}) {
		t.Fatalf("point outside the corner arc should miss")
	}
	if !s.Hit(Pt{50, 1}) {
		t.Fatalf("point on the straight top edge should hit")
	}
}

func TestLayerAtPicksTopmost(t *testing.T) {
	objs := []domain.SceneObject{
		{ID: "bottom", Kind: domain.KindRect, Geometry: domain.Geometry{Width: 1080, Height: 250}},
		{ID: "top", Kind: domain.KindRect, Position: domain.Point{X: 80, Y: 80}, Geometry: domain.Geometry{Width: 100, Height: 100}},
	}
	l := LayerOf(objs, nil)
	if id, ok := l.At(Pt{100, 100}); !ok || id != "top" {
		t.Fatalf("At = %q %v", id, ok)
	}
	if id, _ := l.At(Pt{500, 10}); id != "bottom" {
		t.Fatalf("At = %q", id)
	}
	if _, ok := l.At(Pt{500, 900}); ok {
		t.Fatalf("empty area should not hit")
	}
	if b := l.Bounds(); b != R(0, 0, 1080, 250) {
		t.Fatalf("layer bounds %+v", b)
	}
}

func TestSnapToCanvasEdges(t *testing.T) {
	moving := R(3, 4, 80, 40)
	snapped, guides := Snap(moving, []Anchor{CanvasAnchor(1080, 1080)}, SnapOptions{Threshold: 6, Edges: true})
	if snapped.X != 0 || snapped.Y != 0 {
		t.Fatalf("expected snap to origin, got %+v", snapped)
	}
	var v, h bool
	for _, g := range guides {
		v = v || (g.Orientation == Vertical && g.Position == 0)
		h = h || (g.Orientation == Horizontal && g.Position == 0)
	}
	if !v || !h {
		t.Fatalf("missing guides: %+v", guides)
	}
}

func TestSnapToCenters(t *testing.T) {
	moving := R(1080/2-50-2, 1080/2-30+3, 100, 60)
	snapped, guides := Snap(moving, []Anchor{CanvasAnchor(1080, 1080)}, SnapOptions{Threshold: 5, Centers: true})
	if snapped.X != 490 || snapped.Y != 510 {
		t.Fatalf("expected centered rect, got %+v", snapped)
	}
	for _, g := range guides {
		if g.Kind != "center" || g.Position != 540 {
			t.Fatalf("unexpected guide %+v", g)
		}
	}
}

func TestSnapThresholdAndAxisIndependence(t *testing.T) {
	anchors := []Anchor{{Rect: R(0, 0, 100, 100), Weight: 1}, {Rect: R(300, 0, 100, 100), Weight: 1}}
	if s, g := Snap(R(10, 200, 50, 20), anchors, SnapOptions{Threshold: 5, Edges: true}); s != R(10, 200, 50, 20) || len(g) != 0 {
		t.Fatalf("nothing in range should leave rect alone: %+v %+v", s, g)
	}
	s, _ := Snap(R(2, 97, 80, 80), anchors, SnapOptions{Threshold: 5, Edges: true})
	if s.X != 0 || s.Y != 100 {
		t.Fatalf("expected (0,100), got %+v", s)
	}
}
