/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

// EventKind enumerates render engine notifications.
type EventKind int

const (
	SelectionCreated EventKind = iota
	SelectionUpdated
	SelectionCleared
	ObjectModified
)

func (k EventKind) String() string {
	switch k {
	case SelectionCreated:
		return "selection:created"
	case SelectionUpdated:
		return "selection:updated"
	case SelectionCleared:
		return "selection:cleared"
	case ObjectModified:
		return "object:modified"
	default:
		return "unknown"
	}
}

// Event is a typed notification from the render engine. IDs lists the
// selected objects in engine order, or the modified object.
type Event struct {
	Kind EventKind
	IDs  []string
}

// Listener receives render engine events.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(e Event) { f(e) }

// Refresher is asked to redraw the property panel after a transition.
type Refresher interface {
	RequestRefresh()
}
