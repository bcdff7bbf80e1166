/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
)

func validText() SceneObject {
	return SceneObject{
		ID:       "t1",
		Kind:     KindText,
		Position: Point{X: 100, Y: 100},
		Style:    Style{Fill: "#0a1f44", FontFamily: "Helvetica", FontSize: 60, FontWeight: WeightBold, Opacity: 1},
		Text:     "Hello",
	}
}

func TestValidateAcceptsWellFormedObjects(t *testing.T) {
	objs := []SceneObject{
		validText(),
		{ID: "r", Kind: KindRect, Geometry: Geometry{Width: 300, Height: 100}, Style: Style{Fill: "#1e3a8a", Opacity: 1, CornerRadius: 8}},
		{ID: "c", Kind: KindCircle, Geometry: Geometry{Radius: 100}, Style: Style{Fill: "#e11d48", Opacity: 0.5}},
		{ID: "i", Kind: KindImage, Geometry: Geometry{Width: 800, Height: 600, ScaleX: 0.5, ScaleY: 0.5}, Style: Style{Opacity: 0}, Src: "file:///a.png"},
	}
	for _, o := range objs {
		if err := o.Validate(); err != nil {
			t.Fatalf("%s: unexpected error %v", o.ID, err)
		}
	}
}

func TestValidateRejectsBrokenInvariants(t *testing.T) {
	cases := map[string]func(o *SceneObject){
		"kind":          func(o *SceneObject) { o.Kind = "triangle" },
		"opacity high":  func(o *SceneObject) { o.Style.Opacity = 1.01 },
		"opacity low":   func(o *SceneObject) { o.Style.Opacity = -0.1 },
		"font size":     func(o *SceneObject) { o.Style.FontSize = 0 },
		"neg width":     func(o *SceneObject) { o.Geometry.Width = -1 },
		"neg radius":    func(o *SceneObject) { o.Geometry.Radius = -5 },
		"bad fill":      func(o *SceneObject) { o.Style.Fill = "navy" },
		"corner radius": func(o *SceneObject) { o.Style.CornerRadius = -2 },
		"inf x":         func(o *SceneObject) { o.Position.X = math.Inf(1) },
		"nan y":         func(o *SceneObject) { o.Position.Y = math.NaN() },
		"inf width":     func(o *SceneObject) { o.Geometry.Width = math.Inf(1) },
		"inf scale":     func(o *SceneObject) { o.Geometry.ScaleY = math.Inf(1) },
		"inf font size": func(o *SceneObject) { o.Style.FontSize = math.Inf(1) },
		"inf line":      func(o *SceneObject) { o.Style.LineHeight = math.Inf(1) },
		"nan spacing":   func(o *SceneObject) { o.Style.CharSpacing = math.NaN() },
		"inf spacing":   func(o *SceneObject) { o.Style.CharSpacing = math.Inf(-1) },
		"inf corner":    func(o *SceneObject) { o.Style.CornerRadius = math.Inf(1) },
		"bad utf8 text": func(o *SceneObject) { o.Text = "ok \xff\xfe bytes" },
		"bad utf8 src":  func(o *SceneObject) { o.Src = "file:///\xc3(.png" },
	}
	for name, mutate := range cases {
		o := validText()
		mutate(&o)
		err := o.Validate()
		if !errors.Is(err, ErrInvalidObject) {
			t.Fatalf("%s: expected ErrInvalidObject, got %v", name, err)
		}
	}
}

// Objects that pass Validate must survive a JSON round trip unchanged.
func TestValidObjectsRoundTrip(t *testing.T) {
	objs := []SceneObject{
		validText(),
		{ID: "big", Kind: KindRect, Position: Point{X: -1e300, Y: math.MaxFloat64}, Geometry: Geometry{Width: math.MaxFloat64, Height: 1e-300}, Style: Style{Opacity: 1}},
		{ID: "uni", Kind: KindTextbox, Geometry: Geometry{Width: 880}, Style: Style{FontSize: 48, LineHeight: 1.3, CharSpacing: -20, Opacity: 0.25}, Text: "Governança \u2728 <b>&amp;</b> \"quoted\"\n\tlinha"},
	}
	for _, o := range objs {
		if err := o.Validate(); err != nil {
			t.Fatalf("%s: unexpected error %v", o.ID, err)
		}
		b, err := json.Marshal(o)
		if err != nil {
			t.Fatalf("%s: marshal: %v", o.ID, err)
		}
		var back SceneObject
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("%s: unmarshal: %v", o.ID, err)
		}
		if back != o {
			t.Fatalf("%s: round trip changed object\nbefore %+v\nafter  %+v", o.ID, o, back)
		}
	}
}

func TestSizeByKind(t *testing.T) {
	c := SceneObject{Kind: KindCircle, Geometry: Geometry{Radius: 100}}
	if w, h := c.Size(); w != 200 || h != 200 {
		t.Fatalf("circle size = %v,%v", w, h)
	}
	img := SceneObject{Kind: KindImage, Geometry: Geometry{Width: 1000, Height: 500, ScaleX: 0.5}}
	if w, h := img.Size(); w != 500 || h != 500 {
		t.Fatalf("image size = %v,%v", w, h)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#e11d48")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != (Color{R: 0xe1, G: 0x1d, B: 0x48, A: 0xff}) {
		t.Fatalf("unexpected color %+v", c)
	}
	if c.Hex() != "#e11d48" {
		t.Fatalf("hex round trip: %s", c.Hex())
	}
	short, err := ParseColor("#fff")
	if err != nil || short.Hex() != "#ffffff" {
		t.Fatalf("short form: %v %s", err, short.Hex())
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatalf("expected error for 5 digit color")
	}
}

func TestErrorTaxonomyUnwraps(t *testing.T) {
	cause := fmt.Errorf("disk full")
	errs := []error{
		&SerializationError{Op: "decode", Err: cause},
		&SyncWriteError{Op: "put", Collection: "projects", ID: "p1", Err: cause},
		&UploadError{Name: "a.png", Stage: "transfer", Err: cause},
		&GenerationError{Reason: "request", Err: cause},
	}
	for _, e := range errs {
		if !errors.Is(e, cause) {
			t.Fatalf("%T does not unwrap to its cause", e)
		}
	}
	var up *UnknownPresetError
	if !errors.As(fmt.Errorf("load: %w", &UnknownPresetError{ID: "x"}), &up) || up.ID != "x" {
		t.Fatalf("UnknownPresetError not recoverable with errors.As")
	}
}
