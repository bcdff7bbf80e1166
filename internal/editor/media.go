/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"socialstudio/internal/blob"
	"socialstudio/internal/domain"
	"socialstudio/internal/export"
	"socialstudio/internal/genai"
	"socialstudio/internal/project"
	"socialstudio/internal/render"
	"socialstudio/internal/telemetry"
)

// Fallback texts shown instead of a generated answer.
const (
	NoAnswerText      = "Não foi possível gerar uma resposta. Tente novamente."
	RequestFailedText = "Erro ao contactar a IA. Verifique a sua Chave de API."
)

// headerLimit bounds how much of an upload is kept to read its pixel size.
const headerLimit = 1 << 20

// Upload runs the whole upload chain: transfer to the blob store, upload
// record, then image insertion. A failed transfer stops the chain before
// any record or object exists, and a failed insertion removes the record
// again. Failures are *domain.UploadError and are also surfaced as notices.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader, size int64, progress blob.Progress) (domain.Upload, domain.SceneObject, error) {
	if s.closed.Load() {
		return domain.Upload{}, domain.SceneObject{}, ErrClosed
	}
	fail := func(stage string, err error) (domain.Upload, domain.SceneObject, error) {
		var ue *domain.UploadError
		if !errors.As(err, &ue) {
			ue = &domain.UploadError{Name: name, Stage: stage, Err: err}
		}
		s.notice(Error, "upload", "Erro ao carregar a imagem para a nuvem.", ue)
		return domain.Upload{}, domain.SceneObject{}, ue
	}
	if s.blobs == nil {
		return fail("transfer", errors.New("no blob store configured"))
	}

	head := &headBuffer{max: headerLimit}
	url, err := s.blobs.Upload(ctx, blob.Key(s.uid, name, s.now()), io.TeeReader(r, head), size, progress)
	if err != nil {
		return fail("transfer", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(head.buf))
	if err != nil {
		return fail("insert", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fail("insert", fmt.Errorf("%w: image size %dx%d", domain.ErrInvalidObject, cfg.Width, cfg.Height))
	}
	if err := s.lock(); err != nil {
		return fail("insert", err)
	}
	err = s.readyLocked()
	s.unlock()
	if err != nil {
		return fail("insert", err)
	}
	up, err := s.sync.AddUpload(ctx, domain.Upload{URL: url, Name: name, CreatedAt: s.now().UTC()})
	if err != nil {
		return fail("record", err)
	}
	obj, err := s.AddImage(url, cfg.Width, cfg.Height)
	if err != nil {
		if derr := s.sync.DeleteUpload(context.WithoutCancel(ctx), up.ID); derr != nil {
			s.log.Error("orphaned upload record", slog.String("id", up.ID), slog.String("url", url), slog.Any("err", derr))
		}
		return fail("insert", err)
	}
	s.log.Info("upload inserted", slog.String("url", url), slog.String("format", format),
		slog.Int("width", cfg.Width), slog.Int("height", cfg.Height))
	return up, obj, nil
}

type headBuffer struct {
	buf []byte
	max int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := h.max - len(h.buf); room > 0 {
		h.buf = append(h.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

// Generate asks the text generator for marketing copy. It never returns an
// error: an empty answer and a failed request yield the fallback texts,
// ok is false and a notice is raised. A blank prompt does nothing.
func (s *Session) Generate(ctx context.Context, prompt string) (text string, ok bool) {
	if strings.TrimSpace(prompt) == "" || s.closed.Load() {
		return "", false
	}
	if s.gen == nil {
		s.notice(Error, "generate", RequestFailedText, &domain.GenerationError{Reason: "no generator configured"})
		return RequestFailedText, false
	}
	text, err := s.gen.Generate(ctx, prompt)
	switch {
	case err == nil && strings.TrimSpace(text) != "":
		return strings.TrimSpace(text), true
	case err == nil || errors.Is(err, genai.ErrEmptyResponse):
		s.notice(Warning, "generate", NoAnswerText, err)
		return NoAnswerText, false
	default:
		s.notice(Error, "generate", RequestFailedText, err)
		return RequestFailedText, false
	}
}

// Export writes the design in each format into dir and returns the paths.
func (s *Session) Export(ctx context.Context, dir string, formats ...export.Format) ([]string, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	doc := render.DocumentOf(s.graph.State())
	p := s.graph.Preset()
	name := s.ident.Name
	s.unlock()
	if name == "" {
		name = project.DefaultName
	}
	paths, err := s.exporter.WriteFiles(ctx, dir, name, formats, doc, p, s.now())
	if err != nil {
		s.notice(Error, "export", "Erro ao exportar o design.", err)
		return paths, err
	}
	for _, f := range formats {
		s.usage.Event(telemetry.EventExported, map[string]any{"format": string(f), "preset": p.ID})
	}
	return paths, nil
}

// WriteExport encodes the design as f into w.
func (s *Session) WriteExport(ctx context.Context, w io.Writer, f export.Format) error {
	if err := s.lock(); err != nil {
		return err
	}
	doc := render.DocumentOf(s.graph.State())
	p := s.graph.Preset()
	s.unlock()
	return s.exporter.Write(ctx, w, f, doc, p)
}
