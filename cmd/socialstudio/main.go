/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"os"
	"sync/atomic"

	"socialstudio/internal/crash"
	"socialstudio/internal/editor"
)

// live is the session whose design is autosaved on a crash.
var live atomic.Pointer[editor.Session]

// crashes is completed once the config is loaded.
var crashes = &crash.Handler{Autosave: autosave}

func autosave() ([]byte, error) {
	s := live.Load()
	if s == nil {
		return nil, errors.New("no open design")
	}
	rec, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return marshalRecord(rec)
}

func main() {
	defer crash.Recover(crashes)
	os.Exit(Execute())
}
