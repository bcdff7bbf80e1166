/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

// Tracker holds the single active object of the graph. It never points at
// an object the graph no longer contains.
type Tracker struct {
	active   string
	contains func(id string) bool
	refresh  Refresher
}

func newTracker(contains func(string) bool, r Refresher) *Tracker {
	return &Tracker{contains: contains, refresh: r}
}

// Active returns the id of the active object or "" for none.
func (t *Tracker) Active() string { return t.active }

// HandleEvent applies a render engine notification. A selection event makes
// the first of its ids that the graph contains active; ids the graph does
// not contain are skipped, and none left clears the selection.
func (t *Tracker) HandleEvent(e Event) {
	switch e.Kind {
	case SelectionCreated, SelectionUpdated:
		next := ""
		for _, id := range e.IDs {
			if t.contains(id) {
				next = id
				break
			}
		}
		t.set(next)
	case SelectionCleared:
		t.set("")
	case ObjectModified:
		t.signal()
	}
}

// Select makes id active. Unknown ids clear the selection.
func (t *Tracker) Select(id string) {
	if id != "" && !t.contains(id) {
		id = ""
	}
	t.set(id)
}

// forget drops the selection if it points at id.
func (t *Tracker) forget(id string) {
	if t.active == id {
		t.set("")
	}
}

func (t *Tracker) set(id string) {
	t.active = id
	t.signal()
}

func (t *Tracker) signal() {
	if t.refresh != nil {
		t.refresh.RequestRefresh()
	}
}
