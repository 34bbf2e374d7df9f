package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/kart-io/evidence-x/internal/model"
)

// PDFExtractor extracts one page of text per PDF page.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extensions implements Extractor.
func (*PDFExtractor) Extensions() []string { return []string{".pdf"} }

// Extract implements Extractor. A page that fails to decode is skipped
// rather than failing the whole document.
func (*PDFExtractor) Extract(ctx context.Context, data []byte) (pages []model.Page, err error) {
	// ledongthuc/pdf 遇到损坏的文件会 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages = make([]model.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, model.Page{Number: i, Text: text})
	}
	return pages, nil
}
