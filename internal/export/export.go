/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns a scene document into downloadable PNG, JPEG or PDF
// files.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"socialstudio/internal/domain"
	"socialstudio/internal/fsx"
	applog "socialstudio/internal/log"
	"socialstudio/internal/render"
)

// Format is an output file type.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	PDF  Format = "pdf"
)

// ParseFormat accepts the format names and the "jpg" spelling.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "pdf":
		return PDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	default:
		return "application/pdf"
	}
}

// Options tune the output. Zero fields take the defaults.
type Options struct {
	// Multiplier enlarges PNG and JPEG output.
	Multiplier float64
	// JPEGQuality applies to JPEG files.
	JPEGQuality int
	// PDFImageQuality is the JPEG quality of the page image in PDFs.
	PDFImageQuality int
	// FilePrefix starts every file name.
	FilePrefix string
}

// DefaultOptions are 2x raster output, JPEG at full quality, PDF pages at
// quality 90 and the "ASC" prefix.
func DefaultOptions() Options {
	return Options{Multiplier: 2, JPEGQuality: 100, PDFImageQuality: 90, FilePrefix: "ASC"}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Multiplier <= 0 {
		o.Multiplier = d.Multiplier
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.PDFImageQuality <= 0 || o.PDFImageQuality > 100 {
		o.PDFImageQuality = d.PDFImageQuality
	}
	if o.FilePrefix == "" {
		o.FilePrefix = d.FilePrefix
	}
	return o
}

var spaces = regexp.MustCompile(`\s+`)

// FileName is <prefix>_<name with whitespace runs as _>_<unix millis>.<ext>.
func FileName(prefix, projectName string, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d.%s", prefix, spaces.ReplaceAllString(projectName, "_"), now.UnixMilli(), f)
}

// Exporter renders documents with a rasterizer.
type Exporter struct {
	raster *render.Rasterizer
	opts   Options
	log    *slog.Logger
}

// New returns an exporter; zero option fields take the defaults.
func New(r *render.Rasterizer, opts Options) *Exporter {
	return &Exporter{raster: r, opts: opts.withDefaults(), log: applog.WithComponent("export")}
}

// Options returns the effective options.
func (e *Exporter) Options() Options { return e.opts }

// Write encodes doc on preset p as f.
func (e *Exporter) Write(ctx context.Context, w io.Writer, f Format, doc render.Document, p domain.Preset) error {
	switch f {
	case PNG, JPEG:
		return e.writeRaster(ctx, w, f, doc, p)
	case PDF:
		return e.writePDF(ctx, w, doc, p)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// WriteFile writes doc into dir under FileName and returns the path.
func (e *Exporter) WriteFile(ctx context.Context, dir, projectName string, f Format, doc render.Document, p domain.Preset, now time.Time) (string, error) {
	path := filepath.Join(dir, FileName(e.opts.FilePrefix, projectName, f, now))
	start := time.Now()
	err := fsx.WriteAtomic(path, func(w io.Writer) error { return e.Write(ctx, w, f, doc, p) })
	if err != nil {
		e.log.Error("export failed", slog.String("format", string(f)), slog.Any("err", err))
		return "", fmt.Errorf("export %s: %w", f, err)
	}
	e.log.Info("exported", slog.String("format", string(f)), slog.String("path", path), slog.Duration("took", time.Since(start)))
	return path, nil
}

// WriteFiles exports doc once per format, stopping at the first failure.
func (e *Exporter) WriteFiles(ctx context.Context, dir, projectName string, formats []Format, doc render.Document, p domain.Preset, now time.Time) ([]string, error) {
	var out []string
	for _, f := range formats {
		path, err := e.WriteFile(ctx, dir, projectName, f, doc, p, now)
		if err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}

func (e *Exporter) writeRaster(ctx context.Context, w io.Writer, f Format, doc render.Document, p domain.Preset) error {
	c, err := e.raster.Render(ctx, doc, p.Width, p.Height, e.opts.Multiplier)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	if f == JPEG {
		return c.EncodeJPEG(w, e.opts.JPEGQuality)
	}
	return c.EncodePNG(w)
}
