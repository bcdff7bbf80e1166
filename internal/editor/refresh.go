/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"sync"
	"time"
)

// DefaultFrame is one display frame at 60 Hz.
const DefaultFrame = 16 * time.Millisecond

// RefreshCoalescer turns bursts of refresh requests into at most one
// refresh per frame.
type RefreshCoalescer struct {
	frame time.Duration
	fire  func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
	fired   int
}

// NewRefreshCoalescer calls fire at most once per frame. A frame <= 0 uses
// DefaultFrame.
func NewRefreshCoalescer(frame time.Duration, fire func()) *RefreshCoalescer {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &RefreshCoalescer{frame: frame, fire: fire}
}

// RequestRefresh schedules a refresh at the end of the current frame.
func (c *RefreshCoalescer) RequestRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.pending {
		return
	}
	c.pending = true
	c.timer = time.AfterFunc(c.frame, c.flush)
}

// Flush emits a pending refresh now.
func (c *RefreshCoalescer) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.flush()
}

// Fired returns how many refreshes were emitted.
func (c *RefreshCoalescer) Fired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Stop drops any pending refresh and ignores later requests.
func (c *RefreshCoalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *RefreshCoalescer) flush() {
	c.mu.Lock()
	if c.stopped || !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.fired++
	fire := c.fire
	c.mu.Unlock()
	if fire != nil {
		fire()
	}
}
