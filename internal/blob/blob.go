/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package blob stores uploaded images and hands out the URL they are
// retrievable at.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/h2non/filetype"

	"socialstudio/internal/domain"
	"socialstudio/internal/fsx"
	applog "socialstudio/internal/log"
)

// sniffLen is the header size the content matchers look at.
const sniffLen = 262

var (
	// ErrNotImage rejects uploads whose content is not a known image type.
	ErrNotImage = errors.New("content is not an image")
	// ErrTooLarge rejects uploads over the configured limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// Progress reports transferred bytes. total is -1 when unknown.
type Progress func(transferred, total int64)

// Store receives uploads.
type Store interface {
	// Upload transfers r under key and returns its URL. Failures are
	// *domain.UploadError with Stage "transfer".
	Upload(ctx context.Context, key string, r io.Reader, size int64, progress Progress) (string, error)
}

// Key builds the object key uploads/<uid>/<unix millis>_<name>.
func Key(uid, name string, now time.Time) string {
	return path.Join("uploads", cleanSegment(uid), fmt.Sprintf("%d_%s", now.UnixMilli(), cleanSegment(name)))
}

func cleanSegment(s string) string {
	s = strings.TrimSpace(path.Base(filepath.ToSlash(s)))
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, s)
	if s == "" || s == "." || s == ".." {
		return "file"
	}
	return s
}

// FSStore keeps uploads below a directory.
type FSStore struct {
	dir      string
	baseURL  string
	maxBytes int64
	log      *slog.Logger
}

// NewFSStore serves files from dir. With an empty baseURL the returned URLs
// are file:// URLs; maxBytes <= 0 disables the size limit.
func NewFSStore(dir, baseURL string, maxBytes int64) (*FSStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blob dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes, log: applog.WithComponent("blob")}, nil
}

// Dir returns the storage root.
func (s *FSStore) Dir() string { return s.dir }

func (s *FSStore) Upload(ctx context.Context, key string, r io.Reader, size int64, progress Progress) (string, error) {
	fail := func(err error) (string, error) {
		s.log.Warn("upload failed", slog.String("key", key), slog.Any("err", err))
		return "", &domain.UploadError{Name: path.Base(key), Stage: "transfer", Err: err}
	}
	target, err := s.path(key)
	if err != nil {
		return fail(err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return fail(ErrTooLarge)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fail(err)
	}
	head = head[:n]
	if !filetype.IsImage(head) {
		return fail(ErrNotImage)
	}
	kind, _ := filetype.Match(head)

	if size <= 0 {
		size = -1
	}
	pw := &progressWriter{ctx: ctx, total: size, limit: s.maxBytes, fn: progress}
	err = fsx.WriteAtomic(target, func(w io.Writer) error {
		pw.w = w
		_, err := io.Copy(pw, io.MultiReader(bytes.NewReader(head), r))
		return err
	})
	if err != nil {
		return fail(err)
	}
	s.log.Info("upload stored", slog.String("key", key), slog.Int64("bytes", pw.n), slog.String("type", kind.MIME.Value))
	return s.url(key, target), nil
}

// Open returns the stored content of key.
func (s *FSStore) Open(key string) (*os.File, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *FSStore) path(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", errors.New("empty blob key")
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *FSStore) url(key, target string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + strings.TrimPrefix(path.Clean("/"+key), "/")
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String()
}

type progressWriter struct {
	ctx   context.Context
	w     io.Writer
	n     int64
	total int64
	limit int64
	fn    Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	if p.limit > 0 && p.n+int64(len(b)) > p.limit {
		return 0, ErrTooLarge
	}
	n, err := p.w.Write(b)
	p.n += int64(n)
	if p.fn != nil {
		p.fn(p.n, p.total)
	}
	return n, err
}
