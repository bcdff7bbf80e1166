/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// UnknownPresetError reports a preset id missing from the registry.
type UnknownPresetError struct {
	ID string
}

func (e *UnknownPresetError) Error() string { return fmt.Sprintf("unknown preset %q", e.ID) }

// SerializationError reports a snapshot that could not be produced or read.
type SerializationError struct {
	Op  string // "encode" or "decode"
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("scene %s: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// SyncWriteError reports a failed write against the remote store.
type SyncWriteError struct {
	Op         string // "put" or "delete"
	Collection string
	ID         string
	Err        error
}

func (e *SyncWriteError) Error() string {
	return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *SyncWriteError) Unwrap() error { return e.Err }

// UploadError reports a failed upload chain. Stage names the step that
// failed: "transfer", "record" or "insert".
type UploadError struct {
	Name  string
	Stage string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q failed at %s: %v", e.Name, e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// GenerationError reports a failed or empty generative text request.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "text generation: " + e.Reason
	}
	return fmt.Sprintf("text generation: %s: %v", e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
