// Package extract converts uploaded document bytes into per-page plain text.
//
// Every format is handled by an Extractor registered by file extension.
// Pages whose text is empty after trimming are omitted.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kart-io/evidence-x/internal/model"
)

// ErrUnsupportedFormat is returned for file extensions with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extractor 将单一格式的文档转为分页文本。
type Extractor interface {
	// Extract returns pages in document order. Page numbers are 1-based.
	Extract(ctx context.Context, data []byte) ([]model.Page, error)

	// Extensions lists the lower-case file extensions handled, with the dot.
	Extensions() []string
}

// Registry dispatches to an Extractor by file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry from the given extractors.
// A later extractor overrides an earlier one for the same extension.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			r.byExt[strings.ToLower(ext)] = e
		}
	}
	return r
}

// Default returns a registry with every built-in format.
func Default() *Registry {
	return NewRegistry(
		NewPDFExtractor(),
		NewDocxExtractor(),
		NewXLSXExtractor(),
		NewMarkdownExtractor(),
		NewTextExtractor(),
	)
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract converts data into a Document named filename.
func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (*model.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages, err := e.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	return &model.Document{Filename: filename, Pages: compact(pages)}, nil
}

// compact 去掉空白页。
func compact(pages []model.Page) []model.Page {
	out := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// TextExtractor handles plain text. Form feeds separate pages.
type TextExtractor struct{}

// NewTextExtractor creates a plain text extractor.
func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

// Extensions implements Extractor.
func (*TextExtractor) Extensions() []string { return []string{".txt", ".text"} }

// Extract implements Extractor.
func (*TextExtractor) Extract(_ context.Context, data []byte) ([]model.Page, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	parts := strings.Split(string(data), "\f")
	pages := make([]model.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, model.Page{Number: i + 1, Text: part})
	}
	return pages, nil
}
