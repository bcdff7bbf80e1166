/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewport derives the on-screen scale of the canvas.
package viewport

import "math"

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

// DefaultPadding is the margin kept around the canvas in the editor.
const DefaultPadding = 60

// ComputeScale fits canvas into viewport minus padding without upscaling
// past 1:1. Degenerate canvases yield 1 and an exhausted viewport yields 0.
func ComputeScale(vp, canvas Size, padding float64) float64 {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return 1
	}
	s := math.Min((vp.Width-padding)/canvas.Width, (vp.Height-padding)/canvas.Height)
	return math.Max(0, math.Min(s, 1))
}

// Fit returns the displayed canvas size at scale s.
func Fit(canvas Size, s float64) Size {
	return Size{Width: canvas.Width * s, Height: canvas.Height * s}
}
