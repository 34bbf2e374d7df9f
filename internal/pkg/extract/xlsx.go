package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kart-io/evidence-x/internal/model"
)

// XLSXExtractor extracts one page per worksheet, one line per row with
// cells joined by tabs.
type XLSXExtractor struct{}

// NewXLSXExtractor creates an XLSX extractor.
func NewXLSXExtractor() *XLSXExtractor { return &XLSXExtractor{} }

// Extensions implements Extractor.
func (*XLSXExtractor) Extensions() []string { return []string{".xlsx"} }

// Extract implements Extractor.
func (*XLSXExtractor) Extract(ctx context.Context, data []byte) ([]model.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	pages := make([]model.Page, 0, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		// 每行单独成段，避免相邻行被拼成一个句子
		var sb strings.Builder
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n\n")
		}
		pages = append(pages, model.Page{Number: i + 1, Text: sb.String()})
	}
	return pages, nil
}
