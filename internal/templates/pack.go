/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package templates

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"socialstudio/internal/fsx"
	applog "socialstudio/internal/log"
)

// PackExt is the extension of template pack files.
const PackExt = ".toml"

const manifestName = "templatepack.manifest.txt"

type packFile struct {
	Templates []Template `toml:"template"`
}

// ParsePack decodes one pack document and validates its templates.
func ParsePack(data []byte) ([]Template, error) {
	var pf packFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return nil, err
	}
	for _, t := range pf.Templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return pf.Templates, nil
}

// EncodePack writes templates in pack form.
func EncodePack(ts []Template) ([]byte, error) {
	return toml.Marshal(packFile{Templates: ts})
}

// LoadFile registers the templates of one pack file under its path.
func LoadFile(reg *Registry, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	ts, err := ParsePack(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := reg.SetPack(path, ts); err != nil {
		return 0, err
	}
	return len(ts), nil
}

// LoadDir registers every pack file in dir. A broken file is logged and
// skipped; the first such error is returned after all files were tried.
func LoadDir(reg *Registry, dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("templates"), "load").With(slog.String("dir", dir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var (
		total    int
		firstErr error
	)
	for _, e := range entries {
		if e.IsDir() || !isPack(e.Name()) {
			continue
		}
		n, err := LoadFile(reg, filepath.Join(dir, e.Name()))
		if err != nil {
			l.Warn("pack skipped", slog.String("file", e.Name()), slog.Any("err", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	l.Info("packs loaded", slog.Int("templates", total))
	return total, firstErr
}

func isPack(name string) bool {
	return strings.EqualFold(filepath.Ext(name), PackExt) && !strings.HasPrefix(name, ".")
}

// ExportZip archives the pack files of dir into dest, with a short
// manifest at the root.
func ExportZip(dir, dest string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("templates"), "export").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(dest) == "" {
		return 0, errors.New("dir and dest are required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isPack(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	err = fsx.WriteAtomic(dest, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		mw, err := zw.Create(manifestName)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(mw, "SocialStudio Template Pack\nCreated: %s\nFiles: %s\n",
			time.Now().Format(time.RFC3339), strings.Join(names, ", ")); err != nil {
			return err
		}
		for _, n := range names {
			b, err := os.ReadFile(filepath.Join(dir, n))
			if err != nil {
				return err
			}
			fw, err := zw.Create(n)
			if err != nil {
				return err
			}
			if _, err := fw.Write(b); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return 0, fmt.Errorf("build zip: %w", err)
	}
	l.Info("template pack exported", slog.Int("files", len(names)), slog.String("zip", dest))
	return len(names), nil
}

// ImportZip extracts the pack files of an archive into dir. Existing files
// are kept, entries that do not parse are skipped and nothing is written
// outside dir. It returns the number of files installed.
func ImportZip(src, dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("templates"), "import").With(slog.String("dir", dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure templates dir: %w", err)
	}
	r, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()
	installed := 0
	for _, f := range r.File {
		name := filepath.Base(filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() || !isPack(name) {
			continue
		}
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return installed, err
		}
		data, err := io.ReadAll(io.LimitReader(rc, 1<<20))
		_ = rc.Close()
		if err != nil {
			return installed, err
		}
		if _, err := ParsePack(data); err != nil {
			l.Warn("skip invalid pack", slog.String("entry", f.Name), slog.Any("err", err))
			continue
		}
		if err := fsx.WriteFileAtomic(target, data); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("template pack installed", slog.Int("files", installed))
	return installed, nil
}
