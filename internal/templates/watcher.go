/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package templates

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "socialstudio/internal/log"
)

// Reload reports one pack file that was re-read after a change.
type Reload struct {
	File      string
	Templates int
	Removed   bool
	Err       error
}

// Watcher keeps a registry in step with the pack files of a directory.
type Watcher struct {
	Dir     string
	Reloads <-chan Reload

	reloads chan Reload
	reg     *Registry
	done    chan struct{}
	watcher *fsnotify.Watcher
	stop    sync.Once
	log     *slog.Logger
}

// NewWatcher creates a watcher for dir that updates reg.
func NewWatcher(reg *Registry, dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Reload, 16)
	return &Watcher{
		Dir:     dir,
		Reloads: ch,
		reloads: ch,
		reg:     reg,
		done:    make(chan struct{}),
		watcher: fw,
		log:     applog.WithComponent("templates").With(slog.String("dir", dir)),
	}, nil
}

// Start begins watching. The directory is created when missing.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Reloads channel.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		_ = w.watcher.Close()
		<-w.done
		close(w.reloads)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	const debounce = 100 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					w.reload(file)
				}
				return
			}
			if !isPack(filepath.Base(event.Name)) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					w.reload(file)
					delete(pending, file)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.Any("err", err))
		}
	}
}

func (w *Watcher) reload(file string) {
	r := Reload{File: file}
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		_ = w.reg.SetPack(file, nil)
		r.Removed = true
	} else {
		r.Templates, r.Err = LoadFile(w.reg, file)
	}
	if r.Err != nil {
		w.log.Warn("pack reload failed", slog.String("file", file), slog.Any("err", r.Err))
	} else {
		w.log.Info("pack reloaded", slog.String("file", file), slog.Int("templates", r.Templates), slog.Bool("removed", r.Removed))
	}
	select {
	case w.reloads <- r:
	default:
	}
}
