/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"socialstudio/internal/domain"
	applog "socialstudio/internal/log"
	"socialstudio/internal/textlayout"
)

// Rasterizer paints documents with gg. It is safe for concurrent use.
type Rasterizer struct {
	fonts  *textlayout.FontLibrary
	images ImageLoader
	layout *textlayout.Layouter
	log    *slog.Logger

	mu      sync.Mutex
	sources map[*byte]*text.FontSource
}

// NewRasterizer builds a rasterizer. A nil font library means the built-in
// Go fonts; a nil loader skips image objects.
func NewRasterizer(fonts *textlayout.FontLibrary, images ImageLoader) *Rasterizer {
	if fonts == nil {
		fonts = textlayout.BuiltinLibrary()
	}
	return &Rasterizer{
		fonts:   fonts,
		images:  images,
		layout:  textlayout.NewLayouter(textlayout.OTProvider{Lib: fonts}),
		log:     applog.WithComponent("raster"),
		sources: map[*byte]*text.FontSource{},
	}
}

// Layouter returns the text layouter matching the rasterizer's fonts.
func (r *Rasterizer) Layouter() *textlayout.Layouter { return r.layout }

// Canvas is a painted bitmap.
type Canvas struct{ dc *gg.Context }

func (c *Canvas) Image() image.Image { return c.dc.Image() }
func (c *Canvas) Width() int         { return c.dc.Width() }
func (c *Canvas) Height() int        { return c.dc.Height() }

// EncodePNG writes the bitmap as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error { return c.dc.EncodePNG(w) }

// EncodeJPEG writes the bitmap as JPEG with quality 1..100.
func (c *Canvas) EncodeJPEG(w io.Writer, quality int) error { return c.dc.EncodeJPEG(w, quality) }

func (c *Canvas) Close() error { return c.dc.Close() }

// Render paints doc on a width x height canvas enlarged by multiplier.
// Images that fail to load are skipped with a warning.
func (r *Rasterizer) Render(ctx context.Context, doc Document, width, height int, multiplier float64) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas %dx%d is empty", width, height)
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	m := multiplier
	dc := gg.NewContext(int(float64(width)*m+0.5), int(float64(height)*m+0.5))

	bg := doc.Background
	if bg == "" {
		bg = "#ffffff"
	}
	dc.SetHexColor(bg)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	if err := dc.Fill(); err != nil {
		dc.Close()
		return nil, fmt.Errorf("paint background: %w", err)
	}

	for _, o := range doc.Objects {
		if err := ctx.Err(); err != nil {
			dc.Close()
			return nil, err
		}
		if o.Style.Opacity <= 0 {
			continue
		}
		layered := o.Style.Opacity < 1
		if layered {
			dc.PushLayer(gg.BlendNormal, o.Style.Opacity)
		}
		err := r.paint(ctx, dc, o, m)
		if layered {
			dc.PopLayer()
		}
		if err != nil {
			dc.Close()
			return nil, fmt.Errorf("paint %s %s: %w", o.Kind, o.ID, err)
		}
	}
	return &Canvas{dc: dc}, nil
}

func (r *Rasterizer) paint(ctx context.Context, dc *gg.Context, o domain.SceneObject, m float64) error {
	x, y := o.Position.X*m, o.Position.Y*m
	switch o.Kind {
	case domain.KindRect:
		dc.SetHexColor(fillOr(o.Style.Fill, "#000000"))
		w, h := o.Geometry.Width*m, o.Geometry.Height*m
		if rad := o.Style.CornerRadius * m; rad > 0 {
			dc.DrawRoundedRectangle(x, y, w, h, rad)
		} else {
			dc.DrawRectangle(x, y, w, h)
		}
		return dc.Fill()
	case domain.KindCircle:
		dc.SetHexColor(fillOr(o.Style.Fill, "#000000"))
		rad := o.Geometry.Radius * m
		dc.DrawCircle(x+rad, y+rad, rad)
		return dc.Fill()
	case domain.KindImage:
		return r.paintImage(ctx, dc, o, m)
	case domain.KindText, domain.KindTextbox:
		return r.paintText(dc, o, m)
	}
	return fmt.Errorf("unsupported kind %q", o.Kind)
}

func (r *Rasterizer) paintImage(ctx context.Context, dc *gg.Context, o domain.SceneObject, m float64) error {
	if r.images == nil || o.Src == "" {
		return nil
	}
	img, err := r.images.Load(ctx, o.Src)
	if err != nil {
		r.log.Warn("image skipped", slog.String("id", o.ID), slog.String("src", o.Src), slog.Any("err", err))
		return nil
	}
	w, h := o.Size()
	if w == 0 || h == 0 {
		b := img.Bounds()
		sx, sy := o.Geometry.Scale()
		w, h = float64(b.Dx())*sx, float64(b.Dy())*sy
	}
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:         o.Position.X * m,
		Y:         o.Position.Y * m,
		DstWidth:  w * m,
		DstHeight: h * m,
		Opacity:   1,
	})
	return nil
}

func (r *Rasterizer) paintText(dc *gg.Context, o domain.SceneObject, m float64) error {
	params := textlayout.ParamsFor(o)
	box := r.layout.Layout(o.Text, params)
	src, err := r.source(params.Font)
	if err != nil {
		return err
	}
	dc.SetFont(src.Face(params.Font.Size * m))
	dc.SetHexColor(fillOr(o.Style.Fill, "#000000"))
	spacing := o.Style.CharSpacing * params.Font.Size / 1000 * m
	for i, line := range box.Lines {
		baseline := (o.Position.Y + float64(i)*box.Advance + box.Metrics.Ascent) * m
		x := o.Position.X * m
		if spacing == 0 {
			dc.DrawString(line.Text, x, baseline)
			continue
		}
		for _, ch := range line.Text {
			s := string(ch)
			dc.DrawString(s, x, baseline)
			w, _ := dc.MeasureString(s)
			x += w + spacing
		}
	}
	return nil
}

func (r *Rasterizer) source(f textlayout.FontSpec) (*text.FontSource, error) {
	data := r.fonts.Data(f)
	if len(data) == 0 {
		return nil, fmt.Errorf("no font for %q", f.Family)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sources[&data[0]]; ok {
		return s, nil
	}
	s, err := text.NewFontSource(data)
	if err != nil {
		return nil, fmt.Errorf("load font %q: %w", f.Family, err)
	}
	r.sources[&data[0]] = s
	return s, nil
}

func fillOr(fill, def string) string {
	if fill == "" {
		return def
	}
	return fill
}
