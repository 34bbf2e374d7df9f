package extract

import (
	"bytes"
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/kart-io/evidence-x/internal/model"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br[^>]*/>|<w:cr[^>]*/>`)
	docxTab          = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// DocxExtractor extracts the body text of a Word document as a single page.
type DocxExtractor struct{}

// NewDocxExtractor creates a DOCX extractor.
func NewDocxExtractor() *DocxExtractor { return &DocxExtractor{} }

// Extensions implements Extractor.
func (*DocxExtractor) Extensions() []string { return []string{".docx"} }

// Extract implements Extractor.
func (*DocxExtractor) Extract(_ context.Context, data []byte) ([]model.Page, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// GetContent 返回 document.xml 原文，这里去掉标签只保留文本
	return []model.Page{{Number: 1, Text: docxText(r.Editable().GetContent())}}, nil
}

func docxText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content))
}
