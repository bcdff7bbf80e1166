/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type uploads struct{ got [][]byte }

func (u *uploads) UploadCrash(b []byte) error {
	u.got = append(u.got, b)
	return nil
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	go func() { _, _ = io.Copy(io.Discard, r) }()
	t.Cleanup(func() {
		os.Stderr = old
		_ = w.Close()
	})
}

func trapExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func fixedNow() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	silenceStderr(t)
	code := trapExit(t)
	dir := t.TempDir()
	up := &uploads{}
	h := &Handler{
		Dir:      dir,
		Autosave: func() ([]byte, error) { return []byte(`{"id":"p1"}`), nil },
		Upload:   up,
		Now:      fixedNow,
	}

	func() {
		defer Recover(h)
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	report, err := os.ReadFile(filepath.Join(dir, "crash-20260304-050607.log"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), "Social Studio Crash Report") || !strings.Contains(string(report), "Panic: boom") {
		t.Fatalf("report = %s", report)
	}
	saved, err := os.ReadFile(filepath.Join(dir, "autosave-20260304-050607.json"))
	if err != nil || string(saved) != `{"id":"p1"}` {
		t.Fatalf("autosave = %q, %v", saved, err)
	}
	if len(up.got) != 1 || string(up.got[0]) != string(report) {
		t.Fatalf("uploaded %d reports", len(up.got))
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	code := trapExit(t)
	func() {
		defer Recover(&Handler{Dir: t.TempDir()})
	}()
	if *code != -1 {
		t.Fatalf("exit called with %d", *code)
	}
}

func TestAutosaveFailureStillReports(t *testing.T) {
	silenceStderr(t)
	code := trapExit(t)
	dir := t.TempDir()
	h := &Handler{Dir: dir, Now: fixedNow, Autosave: func() ([]byte, error) { return nil, errors.New("locked") }}
	func() {
		defer Recover(h)
		panic("kaboom")
	}()
	if *code != 2 {
		t.Fatalf("exit code = %d", *code)
	}
	if _, err := os.Stat(filepath.Join(dir, "crash-20260304-050607.log")); err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "autosave-20260304-050607.json")); !os.IsNotExist(err) {
		t.Fatalf("autosave should not exist: %v", err)
	}
}

func TestNilHandlerUsesTempDir(t *testing.T) {
	h := &Handler{}
	_, path, err := h.writeReport("x", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("path = %s", path)
	}
}
