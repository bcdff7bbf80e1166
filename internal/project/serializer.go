/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package project converts a scene graph to and from the persisted project
// record and mints project identities.
package project

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	"socialstudio/internal/domain"
	"socialstudio/internal/preset"
	"socialstudio/internal/render"
	"socialstudio/internal/scene"
)

// DefaultName is used when a project is saved without a name.
const DefaultName = "Novo Design ASC"

// IDPrefix starts every project id.
const IDPrefix = "proj_"

//go:embed schema/*.json
var schemaFS embed.FS

// NewID returns a time-ordered project id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return IDPrefix + id.String()
}

// Codec is the render engine's native snapshot format.
type Codec interface {
	Encode(doc render.Document) (string, error)
	Decode(data string) (render.Document, error)
}

// Meta is the identity written next to a snapshot.
type Meta struct {
	ID   string
	Name string
}

// Restored is a decoded record. Fallback is set when the record named a
// preset the registry does not know and the state was placed on the
// default preset instead.
type Restored struct {
	State    scene.State
	Fallback *domain.UnknownPresetError
}

// Serializer writes and reads project records.
type Serializer struct {
	presets *preset.Registry
	codec   Codec
	scene   *gojsonschema.Schema
	record  *gojsonschema.Schema
	now     func() time.Time
}

// NewSerializer compiles the embedded schemas. A nil codec selects the
// render package's JSON codec.
func NewSerializer(presets *preset.Registry, codec Codec) (*Serializer, error) {
	if presets == nil {
		return nil, fmt.Errorf("serializer: preset registry is required")
	}
	if codec == nil {
		codec = render.JSONCodec{}
	}
	sc, err := loadSchema("schema/scene.schema.json")
	if err != nil {
		return nil, err
	}
	rc, err := loadSchema("schema/record.schema.json")
	if err != nil {
		return nil, err
	}
	return &Serializer{presets: presets, codec: codec, scene: sc, record: rc, now: time.Now}, nil
}

func loadSchema(name string) (*gojsonschema.Schema, error) {
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return s, nil
}

// SetClock replaces the time source used for record dates.
func (s *Serializer) SetClock(now func() time.Time) { s.now = now }

// Serialize snapshots g into a record dated now.
func (s *Serializer) Serialize(g *scene.Graph, meta Meta) (domain.ProjectRecord, error) {
	return s.SerializeState(g.State(), meta)
}

// SerializeState is Serialize over an already captured state.
func (s *Serializer) SerializeState(st scene.State, meta Meta) (domain.ProjectRecord, error) {
	data, err := s.codec.Encode(render.DocumentOf(st))
	if err != nil {
		return domain.ProjectRecord{}, &domain.SerializationError{Op: "encode", Err: err}
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = DefaultName
	}
	return domain.ProjectRecord{
		ID:              meta.ID,
		Name:            name,
		Date:            s.now().UTC(),
		PresetID:        st.PresetID,
		SerializedScene: data,
	}, nil
}

// Deserialize reads the scene of rec. Malformed snapshots are reported as
// *domain.SerializationError. An unknown preset is not an error: the state
// lands on the default preset and Restored.Fallback says so.
func (s *Serializer) Deserialize(rec domain.ProjectRecord) (Restored, error) {
	if err := validate(s.scene, gojsonschema.NewStringLoader(rec.SerializedScene)); err != nil {
		return Restored{}, &domain.SerializationError{Op: "decode", Err: err}
	}
	doc, err := s.codec.Decode(rec.SerializedScene)
	if err != nil {
		return Restored{}, &domain.SerializationError{Op: "decode", Err: err}
	}
	seen := make(map[string]struct{}, len(doc.Objects))
	for i, o := range doc.Objects {
		if err := o.Validate(); err != nil {
			return Restored{}, &domain.SerializationError{Op: "decode", Err: fmt.Errorf("object %d: %w", i, err)}
		}
		if _, dup := seen[o.ID]; dup {
			return Restored{}, &domain.SerializationError{Op: "decode", Err: fmt.Errorf("object %d: %w: %s", i, scene.ErrDuplicateID, o.ID)}
		}
		seen[o.ID] = struct{}{}
	}
	if doc.Objects == nil {
		doc.Objects = []domain.SceneObject{}
	}
	out := Restored{State: doc.State(rec.PresetID)}
	if _, err := s.presets.Lookup(rec.PresetID); err != nil {
		out.Fallback = &domain.UnknownPresetError{ID: rec.PresetID}
		out.State.PresetID = s.presets.DefaultID()
	}
	return out, nil
}

// Restore deserializes rec into g. g is untouched on error.
func (s *Serializer) Restore(g *scene.Graph, rec domain.ProjectRecord) (Restored, error) {
	r, err := s.Deserialize(rec)
	if err != nil {
		return Restored{}, err
	}
	if err := g.Load(r.State); err != nil {
		return Restored{}, &domain.SerializationError{Op: "decode", Err: err}
	}
	return r, nil
}

// ParseRecord decodes a record received from outside the process, checking
// it against the record schema first.
func (s *Serializer) ParseRecord(data []byte) (domain.ProjectRecord, error) {
	if err := validate(s.record, gojsonschema.NewBytesLoader(data)); err != nil {
		return domain.ProjectRecord{}, &domain.SerializationError{Op: "decode", Err: err}
	}
	var rec domain.ProjectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.ProjectRecord{}, &domain.SerializationError{Op: "decode", Err: err}
	}
	return rec, nil
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) error {
	res, err := schema.Validate(doc)
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
}
