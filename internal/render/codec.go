/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"socialstudio/internal/domain"
)

// JSONCodec is the engine's native snapshot format.
type JSONCodec struct{}

// Encode writes doc as compact JSON.
func (JSONCodec) Encode(doc Document) (string, error) {
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Objects == nil {
		doc.Objects = []domain.SceneObject{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a snapshot. Unknown fields are rejected so corrupt data is
// not half-read.
func (JSONCodec) Decode(data string) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return Document{}, err
	}
	if dec.More() {
		return Document{}, fmt.Errorf("trailing data after snapshot")
	}
	if doc.Version > DocumentVersion {
		return Document{}, fmt.Errorf("snapshot version %d is newer than supported %d", doc.Version, DocumentVersion)
	}
	return doc, nil
}
