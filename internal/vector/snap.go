/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Orientation of a guide line.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// SnapOptions controls which features align and how close they must be.
type SnapOptions struct {
	// Threshold is the maximum distance in pixels at which snapping occurs.
	Threshold float64
	Edges     bool
	Centers   bool
}

// DefaultSnap is what the editor uses while dragging.
var DefaultSnap = SnapOptions{Threshold: 6, Edges: true, Centers: true}

// Anchor is a static reference rect. Higher weight wins ties.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// CanvasAnchor makes the canvas itself a snap target, preferred over
// other objects.
func CanvasAnchor(w, h int) Anchor {
	return Anchor{Rect: R(0, 0, float64(w), float64(h)), Weight: 2}
}

// Guide is a line drawn while an alignment is active. Kind is "edge" or
// "center"; Position is x for vertical and y for horizontal guides.
type Guide struct {
	Orientation Orientation
	Kind        string
	Position    float64
	From, To    Pt
}

// axisBest tracks the best candidate on one axis.
type axisBest struct {
	delta, dist float64
	guide       Guide
	ok          bool
}

func (b *axisBest) consider(delta, threshold, weight float64, g Guide) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	if b.ok && dist/math.Max(1, weight) >= b.dist {
		return
	}
	b.delta, b.dist, b.guide, b.ok = delta, dist/math.Max(1, weight), g, true
}

// Snap moves the rect onto the closest anchor feature within the threshold.
// X and Y snap independently; the returned guides describe what aligned.
func Snap(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []Guide) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	var bx, by axisBest
	mL, mR, mCX := moving.X, moving.X+moving.W, moving.X+moving.W/2
	mT, mB, mCY := moving.Y, moving.Y+moving.H, moving.Y+moving.H/2

	for _, a := range anchors {
		aL, aR, aCX := a.Rect.X, a.Rect.X+a.Rect.W, a.Rect.X+a.Rect.W/2
		aT, aB, aCY := a.Rect.Y, a.Rect.Y+a.Rect.H, a.Rect.Y+a.Rect.H/2
		v := func(x float64, kind string) Guide { return vertical(x, moving, a.Rect, kind) }
		h := func(y float64, kind string) Guide { return horizontal(y, moving, a.Rect, kind) }
		if opts.Edges {
			for _, c := range [][2]float64{{mL, aL}, {mR, aR}, {mL, aR}, {mR, aL}} {
				bx.consider(c[0]-c[1], opts.Threshold, a.Weight, v(c[1], "edge"))
			}
			for _, c := range [][2]float64{{mT, aT}, {mB, aB}, {mT, aB}, {mB, aT}} {
				by.consider(c[0]-c[1], opts.Threshold, a.Weight, h(c[1], "edge"))
			}
		}
		if opts.Centers {
			bx.consider(mCX-aCX, opts.Threshold, a.Weight, v(aCX, "center"))
			by.consider(mCY-aCY, opts.Threshold, a.Weight, h(aCY, "center"))
		}
	}

	var guides []Guide
	out := moving
	if bx.ok {
		out.X = FloatRound(moving.X-bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.ok {
		out.Y = FloatRound(moving.Y-by.delta, 3)
		guides = append(guides, by.guide)
	}
	return out, guides
}

func vertical(x float64, a, b Rect, kind string) Guide {
	x = FloatRound(x, 3)
	return Guide{
		Orientation: Vertical,
		Kind:        kind,
		Position:    x,
		From:        Pt{x, math.Min(a.Y, b.Y)},
		To:          Pt{x, math.Max(a.Y+a.H, b.Y+b.H)},
	}
}

func horizontal(y float64, a, b Rect, kind string) Guide {
	y = FloatRound(y, 3)
	return Guide{
		Orientation: Horizontal,
		Kind:        kind,
		Position:    y,
		From:        Pt{math.Min(a.X, b.X), y},
		To:          Pt{math.Max(a.X+a.W, b.X+b.W), y},
	}
}
