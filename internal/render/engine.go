/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render is the boundary to the drawing engine. Engine is the
// contract the editor drives; MemoryEngine is the in-process
// implementation and Rasterizer paints a document to pixels.
package render

import (
	"errors"

	"socialstudio/internal/domain"
	"socialstudio/internal/scene"
)

// ErrDisposed is returned by every call on a disposed engine.
var ErrDisposed = errors.New("render engine disposed")

// DocumentVersion is the version written by the JSON codec.
const DocumentVersion = 1

// Document is the engine's whole-scene snapshot. It carries the objects and
// background but not the preset, which the project record stores apart.
type Document struct {
	Version    int                  `json:"version"`
	Background string               `json:"background"`
	Objects    []domain.SceneObject `json:"objects"`
}

// DocumentOf converts graph state to a document.
func DocumentOf(s scene.State) Document {
	return Document{Version: DocumentVersion, Background: s.Background, Objects: s.Objects}
}

// State converts the document back to graph state on preset.
func (d Document) State(presetID string) scene.State {
	return scene.State{PresetID: presetID, Background: d.Background, Objects: d.Objects}
}

// Engine is a live drawing surface that mirrors the scene graph and
// reports user interaction as scene events.
type Engine interface {
	// Ready is closed once the engine accepts scene operations.
	Ready() <-chan struct{}
	SetCanvas(width, height int, background string) error
	Add(o domain.SceneObject) error
	Remove(id string) error
	Update(o domain.SceneObject) error
	// Load replaces the whole scene.
	Load(doc Document) error
	// SetActive selects id; "" discards the selection.
	SetActive(id string) error
	Object(id string) (domain.SceneObject, bool)
	Serialize() (string, error)
	Deserialize(data string) (Document, error)
	Subscribe(l scene.Listener) (cancel func())
	Dispose() error
}
