/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"socialstudio/internal/domain"
	"socialstudio/internal/scene"
	"socialstudio/internal/vector"
	"socialstudio/internal/viewport"
)

// Font size bounds of the property panel.
const (
	MinFontSize = 12
	MaxFontSize = 300
)

var hexFill = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ErrNotText is returned for text properties on shapes and images.
var ErrNotText = errors.New("active object is not text")

// AddText places the default title text and selects it.
func (s *Session) AddText() (domain.SceneObject, error) {
	return s.add(domain.SceneObject{
		Kind:     domain.KindText,
		Position: domain.Point{X: 100, Y: 100},
		Style: domain.Style{
			Fill: "#0a1f44", FontFamily: "Helvetica", FontSize: 60,
			FontWeight: domain.WeightBold, Opacity: 1,
		},
		Text: "Insira o seu título",
	})
}

// AddRect places the default rounded rectangle.
func (s *Session) AddRect() (domain.SceneObject, error) {
	return s.add(domain.SceneObject{
		Kind:     domain.KindRect,
		Position: domain.Point{X: 100, Y: 100},
		Geometry: domain.Geometry{Width: 300, Height: 100},
		Style:    domain.Style{Fill: "#1e3a8a", CornerRadius: 8, Opacity: 1},
	})
}

// AddCircle places the default circle.
func (s *Session) AddCircle() (domain.SceneObject, error) {
	return s.add(domain.SceneObject{
		Kind:     domain.KindCircle,
		Position: domain.Point{X: 100, Y: 100},
		Geometry: domain.Geometry{Radius: 100},
		Style:    domain.Style{Fill: "#e11d48", Opacity: 1},
	})
}

// AddImage places the image at src, scaled uniformly to fit 80% of the
// canvas. width and height are its intrinsic pixel size.
func (s *Session) AddImage(src string, width, height int) (domain.SceneObject, error) {
	if src == "" || width <= 0 || height <= 0 {
		return domain.SceneObject{}, fmt.Errorf("%w: image needs a source and a size", domain.ErrInvalidObject)
	}
	if err := s.lock(); err != nil {
		return domain.SceneObject{}, err
	}
	cw, ch := s.graph.Size()
	s.unlock()
	scale := math.Min(float64(cw)*0.8/float64(width), float64(ch)*0.8/float64(height))
	return s.add(domain.SceneObject{
		Kind:     domain.KindImage,
		Position: domain.Point{X: 50, Y: 50},
		Geometry: domain.Geometry{Width: float64(width), Height: float64(height), ScaleX: scale, ScaleY: scale},
		Style:    domain.Style{Opacity: 1},
		Src:      src,
	})
}

// InsertGeneratedText adds text as a wrapping text block spanning the
// canvas minus 100 px on each side. Invalid UTF-8 sequences are replaced
// with U+FFFD.
func (s *Session) InsertGeneratedText(text string) (domain.SceneObject, error) {
	text = strings.ToValidUTF8(text, "\uFFFD")
	if text == "" {
		return domain.SceneObject{}, fmt.Errorf("%w: empty text", domain.ErrInvalidObject)
	}
	if err := s.lock(); err != nil {
		return domain.SceneObject{}, err
	}
	cw, _ := s.graph.Size()
	s.unlock()
	return s.add(domain.SceneObject{
		Kind:     domain.KindTextbox,
		Position: domain.Point{X: 100, Y: 100},
		Geometry: domain.Geometry{Width: math.Max(0, float64(cw)-200)},
		Style: domain.Style{
			Fill: "#0a1f44", FontFamily: "Helvetica", FontSize: 48,
			FontWeight: domain.WeightBold, LineHeight: 1.3, Opacity: 1,
		},
		Text: text,
	})
}

func (s *Session) add(o domain.SceneObject) (domain.SceneObject, error) {
	if err := s.lock(); err != nil {
		return domain.SceneObject{}, err
	}
	defer s.unlock()
	if err := s.readyLocked(); err != nil {
		return domain.SceneObject{}, err
	}
	before := s.encodeLocked()
	added, err := s.graph.Add(o)
	if err != nil {
		return domain.SceneObject{}, err
	}
	if err := s.engine.Add(added); err != nil {
		s.graph.Remove(added.ID)
		return domain.SceneObject{}, fmt.Errorf("engine add: %w", err)
	}
	if err := s.engine.SetActive(added.ID); err != nil {
		s.log.Warn("engine select failed", slog.String("id", added.ID), slog.Any("err", err))
	}
	s.recordLocked(before)
	return added, nil
}

// Select makes id the active object; "" clears the selection.
func (s *Session) Select(id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if id != "" {
		if _, ok := s.graph.Object(id); !ok {
			return fmt.Errorf("%w: %s", scene.ErrNotFound, id)
		}
	}
	s.graph.Selection().Select(id)
	return s.engine.SetActive(id)
}

// Remove deletes id. A missing id is a no-op.
func (s *Session) Remove(id string) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	return s.removeLocked(id)
}

// DeleteActive removes the active object and clears the selection.
func (s *Session) DeleteActive() (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	id := s.graph.Selection().Active()
	if id == "" {
		return false, nil
	}
	return s.removeLocked(id)
}

// removeLocked keeps graph and engine in step: when the engine refuses the
// removal the graph gets the object back.
func (s *Session) removeLocked(id string) (bool, error) {
	before := s.encodeLocked()
	prev := s.graph.State()
	active := s.graph.Selection().Active()
	if !s.graph.Remove(id) {
		return false, nil
	}
	if err := s.engine.Remove(id); err != nil {
		s.restoreLocked(prev, active)
		return false, fmt.Errorf("engine remove: %w", err)
	}
	s.recordLocked(before)
	return true, nil
}

// BringToFront raises the active object to the top.
func (s *Session) BringToFront() error {
	return s.reorder(func(id string) bool { return s.graph.BringToFront(id) })
}

// SendToBack lowers the active object to the bottom.
func (s *Session) SendToBack() error {
	return s.reorder(func(id string) bool { return s.graph.SendToBack(id) })
}

func (s *Session) reorder(move func(id string) bool) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	id := s.graph.Selection().Active()
	if id == "" {
		return ErrNoSelection
	}
	before := s.encodeLocked()
	if !move(id) {
		return nil
	}
	s.recordLocked(before)
	return s.syncEngineLocked()
}

// Move places id at (x, y). With snap set, the object's bounds are pulled
// onto nearby canvas edges, canvas centres and other objects; the guides
// that engaged are returned.
func (s *Session) Move(id string, x, y float64, snap bool) (domain.SceneObject, []vector.Guide, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return domain.SceneObject{}, nil, fmt.Errorf("%w: position (%v, %v) is not finite", domain.ErrInvalidObject, x, y)
	}
	if err := s.lock(); err != nil {
		return domain.SceneObject{}, nil, err
	}
	defer s.unlock()
	o, ok := s.graph.Object(id)
	if !ok {
		return domain.SceneObject{}, nil, fmt.Errorf("%w: %s", scene.ErrNotFound, id)
	}
	var guides []vector.Guide
	if snap {
		o.Position = domain.Point{X: x, Y: y}
		b := vector.ShapeOf(o, s.measure).Bounds()
		w, h := s.graph.Size()
		anchors := []vector.Anchor{vector.CanvasAnchor(w, h)}
		for _, other := range s.graph.Objects() {
			if other.ID != id {
				anchors = append(anchors, vector.Anchor{Rect: vector.ShapeOf(other, s.measure).Bounds(), Weight: 1})
			}
		}
		var snapped vector.Rect
		snapped, guides = vector.Snap(b, anchors, s.snap)
		x += snapped.X - b.X
		y += snapped.Y - b.Y
	}
	out, err := s.editLocked(id, func(o *domain.SceneObject) { o.Position = domain.Point{X: x, Y: y} })
	return out, guides, err
}

// SetFontFamily changes the font of the active text object. Only brand
// fonts are accepted.
func (s *Session) SetFontFamily(family string) error {
	if !s.graph.Brand().HasFont(family) {
		return fmt.Errorf("%w: font %q is not in the brand kit", domain.ErrInvalidObject, family)
	}
	return s.editText(func(o *domain.SceneObject) { o.Style.FontFamily = family })
}

// SetFontSize changes the size of the active text object, clamped to
// [MinFontSize, MaxFontSize].
func (s *Session) SetFontSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return fmt.Errorf("%w: font size %v", domain.ErrInvalidObject, size)
	}
	size = math.Max(MinFontSize, math.Min(MaxFontSize, size))
	return s.editText(func(o *domain.SceneObject) { o.Style.FontSize = size })
}

// SetFill colors the active object. fill must be #rrggbb.
func (s *Session) SetFill(fill string) error {
	if !hexFill.MatchString(fill) {
		return fmt.Errorf("%w: fill %q is not #rrggbb", domain.ErrInvalidObject, fill)
	}
	return s.editActive(func(o *domain.SceneObject) { o.Style.Fill = fill })
}

// SetOpacity changes the opacity of the active object.
func (s *Session) SetOpacity(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: opacity %v outside [0,1]", domain.ErrInvalidObject, v)
	}
	return s.editActive(func(o *domain.SceneObject) { o.Style.Opacity = v })
}

// SetBackground changes the canvas background.
func (s *Session) SetBackground(hex string) error {
	if !hexFill.MatchString(hex) {
		return fmt.Errorf("%w: background %q is not #rrggbb", domain.ErrInvalidObject, hex)
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	before := s.encodeLocked()
	if err := s.graph.SetBackground(hex); err != nil {
		return err
	}
	s.recordLocked(before)
	w, h := s.graph.Size()
	if err := s.engine.SetCanvas(w, h, hex); err != nil {
		return err
	}
	s.graph.Selection().HandleEvent(scene.Event{Kind: scene.ObjectModified})
	return nil
}

// SetPreset resizes the canvas. Objects stay where they are.
func (s *Session) SetPreset(id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	before := s.encodeLocked()
	prev := s.graph.Preset().ID
	if err := s.graph.SetPreset(id); err != nil {
		return err
	}
	w, h := s.graph.Size()
	if err := s.engine.SetCanvas(w, h, s.graph.Background()); err != nil {
		if rerr := s.graph.SetPreset(prev); rerr != nil {
			s.log.Error("preset rollback failed", slog.String("preset", prev), slog.Any("err", rerr))
		}
		return fmt.Errorf("engine canvas: %w", err)
	}
	s.recordLocked(before)
	return nil
}

// restoreLocked puts st back into the graph after an engine failure and
// re-syncs the engine from it.
func (s *Session) restoreLocked(st scene.State, active string) {
	if err := s.graph.Load(st); err != nil {
		s.log.Error("graph rollback failed", slog.Any("err", err))
		return
	}
	s.graph.Selection().Select(active)
	if err := s.syncEngineLocked(); err != nil {
		s.log.Warn("engine resync failed", slog.Any("err", err))
	}
}

// Scale is the display scale of the canvas inside a viewport.
func (s *Session) Scale(vp viewport.Size, padding float64) float64 {
	p := s.Preset()
	return viewport.ComputeScale(vp, viewport.Size{Width: float64(p.Width), Height: float64(p.Height)}, padding)
}

func (s *Session) editText(edit func(o *domain.SceneObject)) error {
	return s.editActive(edit, func(o domain.SceneObject) error {
		if !o.Kind.IsText() {
			return ErrNotText
		}
		return nil
	})
}

func (s *Session) editActive(edit func(o *domain.SceneObject), checks ...func(domain.SceneObject) error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	o, ok := s.graph.Active()
	if !ok {
		return ErrNoSelection
	}
	for _, c := range checks {
		if err := c(o); err != nil {
			return err
		}
	}
	_, err := s.editLocked(o.ID, edit)
	return err
}

// editLocked updates the graph and the engine and reports the change as
// ObjectModified. Invalid results leave the object unchanged.
func (s *Session) editLocked(id string, edit func(o *domain.SceneObject)) (domain.SceneObject, error) {
	before := s.encodeLocked()
	out, err := s.graph.Update(id, edit)
	if err != nil {
		return out, err
	}
	if err := s.engine.Update(out); err != nil {
		return out, fmt.Errorf("engine update: %w", err)
	}
	s.recordLocked(before)
	s.emitLocked(scene.Event{Kind: scene.ObjectModified, IDs: []string{id}})
	return out, nil
}

// Undo restores the state before the last edit.
func (s *Session) Undo() (bool, error) {
	return s.step(s.history.Undo)
}

// Redo reapplies the last undone edit.
func (s *Session) Redo() (bool, error) {
	return s.step(s.history.Redo)
}

// CanUndo reports whether Undo has a step.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo(s.histKey)
}

// CanRedo reports whether Redo has a step.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo(s.histKey)
}

func (s *Session) step(pop func(key string, current []byte) ([]byte, bool)) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	blob, ok := pop(s.histKey, s.encodeLocked())
	if !ok {
		return false, nil
	}
	var st scene.State
	if err := json.Unmarshal(blob, &st); err != nil {
		return false, fmt.Errorf("decode undo state: %w", err)
	}
	if err := s.graph.Load(st); err != nil {
		return false, err
	}
	return true, s.syncEngineLocked()
}
