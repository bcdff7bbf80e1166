/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and an autosave of the
// live design.
package crash

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"socialstudio/internal/fsx"
	applog "socialstudio/internal/log"
	"socialstudio/internal/version"
)

// exitFn lets tests run Recover without terminating the process.
var exitFn = os.Exit

// autosaveTimeout bounds the autosave; the panicking goroutine may hold
// the editor lock.
const autosaveTimeout = 2 * time.Second

var errAutosaveTimeout = errors.New("autosave timed out")

// Uploader sends a crash report. *telemetry.Client implements it.
type Uploader interface {
	UploadCrash(report []byte) error
}

// Handler says where reports go and how to save the live design.
type Handler struct {
	// Dir receives crash-<stamp>.log and autosave-<stamp>.json. Empty
	// means the OS temp dir.
	Dir string
	// Autosave returns the encoded design. Nil skips the autosave.
	Autosave func() ([]byte, error)
	Upload   Uploader
	Now      func() time.Time
}

// Recover captures a panic, logs it with its stack, writes a report,
// autosaves the design and exits with code 2.
//
// Usage: defer crash.Recover(h)
func Recover(h *Handler) {
	r := recover()
	if r == nil {
		return
	}
	if h == nil {
		h = &Handler{}
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	report, reportPath, err := h.writeReport(r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if path, err := h.autosave(); err != nil {
		l.Error("crash autosave failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("crash autosave written", slog.String("path", path))
	}
	if h.Upload != nil {
		if err := h.Upload.UploadCrash(report); err != nil {
			l.Warn("crash upload failed", slog.Any("err", err))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func (h *Handler) dir() string {
	if h.Dir == "" {
		return os.TempDir()
	}
	return h.Dir
}

func (h *Handler) stamp() string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().Format("20060102-150405")
}

func (h *Handler) writeReport(panicVal any, stack []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Social Studio Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	dir := h.dir()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", h.stamp()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return buf.Bytes(), path, err
	}
	return buf.Bytes(), path, fsx.WriteFileAtomic(path, buf.Bytes())
}

func (h *Handler) autosave() (string, error) {
	if h.Autosave == nil {
		return "", nil
	}
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("autosave panicked: %v", r)}
			}
		}()
		data, err := h.Autosave()
		ch <- result{data, err}
	}()
	var res result
	select {
	case res = <-ch:
	case <-time.After(autosaveTimeout):
		return "", errAutosaveTimeout
	}
	if res.err != nil {
		return "", res.err
	}
	path := filepath.Join(h.dir(), fmt.Sprintf("autosave-%s.json", h.stamp()))
	return path, fsx.WriteFileAtomic(path, res.data)
}
