// Copyright 2025 CreativeGHQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements DocumentExtractor for PDF catalogs.
type PDFExtractor struct {
	logger *slog.Logger
}

var _ DocumentExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() DocumentExtractor {
	return &PDFExtractor{
		logger: slog.Default().With("component", "pdf-extractor"),
	}
}

func (e *PDFExtractor) Probe(_ context.Context, data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	pages := reader.NumPage()
	if pages == 0 {
		return 0, ErrEmptyDocument
	}
	return pages, nil
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return nil, ErrEmptyDocument
	}

	doc := &Document{PageCount: pageCount}
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, PageText{Page: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font tables still count; the chunking
			// stage drops empty text later.
			e.logger.Warn("page text extraction failed",
				"page", i, "error", err)
			text = ""
		}
		doc.Pages = append(doc.Pages, PageText{Page: i, Text: text})

		doc.Images = append(doc.Images, e.pageImages(page, i)...)
	}

	return doc, nil
}

// pageImages pulls JPEG image XObjects out of a page's resources.
// Only DCTDecode streams are passed through; other encodings would need a
// raster decode step and are skipped.
func (e *PDFExtractor) pageImages(page pdf.Page, pageNum int) []PageImage {
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return nil
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return nil
	}

	var images []PageImage
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		if obj.IsNull() || obj.Key("Subtype").Name() != "Image" {
			continue
		}
		if !isJPEG(obj.Key("Filter")) {
			continue
		}

		data, err := readStream(obj)
		if err != nil {
			e.logger.Warn("image stream read failed",
				"page", pageNum, "xobject", name, "error", err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		images = append(images, PageImage{
			Page:     pageNum,
			MimeType: "image/jpeg",
			Data:     data,
		})
	}
	return images
}

// isJPEG reports whether a Filter entry names DCTDecode, either directly
// or as the final element of a filter chain.
func isJPEG(filter pdf.Value) bool {
	switch filter.Kind() {
	case pdf.Name:
		return filter.Name() == "DCTDecode"
	case pdf.Array:
		n := filter.Len()
		if n == 0 {
			return false
		}
		return filter.Index(n - 1).Name() == "DCTDecode"
	}
	return false
}

func readStream(obj pdf.Value) ([]byte, error) {
	reader := obj.Reader()
	defer reader.Close()
	return io.ReadAll(reader)
}
