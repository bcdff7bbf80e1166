/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"socialstudio/internal/domain"
	"socialstudio/internal/render"
	"socialstudio/internal/version"
)

// PageFormat returns the gofpdf orientation and size for a w x h pixel
// canvas mapped 1 px to 1 pt. gofpdf swaps the size for "L", so the size is
// always given short side first.
func PageFormat(w, h int) (string, gofpdf.SizeType) {
	short, long := float64(min(w, h)), float64(max(w, h))
	if w > h {
		return "L", gofpdf.SizeType{Wd: short, Ht: long}
	}
	return "P", gofpdf.SizeType{Wd: short, Ht: long}
}

func (e *Exporter) writePDF(ctx context.Context, w io.Writer, doc render.Document, p domain.Preset) error {
	c, err := e.raster.Render(ctx, doc, p.Width, p.Height, 1)
	if err != nil {
		return err
	}
	var img bytes.Buffer
	err = c.EncodeJPEG(&img, e.opts.PDFImageQuality)
	_ = c.Close()
	if err != nil {
		return fmt.Errorf("encode page image: %w", err)
	}

	orient, size := PageFormat(p.Width, p.Height)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orient,
		UnitStr:        "pt",
		Size:           size,
	})
	pdf.SetCreator(version.String(), false)
	pdf.SetTitle(p.Name, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("scene", opts, &img)
	pdf.ImageOptions("scene", 0, 0, float64(p.Width), float64(p.Height), false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
