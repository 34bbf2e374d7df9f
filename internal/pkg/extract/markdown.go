package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kart-io/evidence-x/internal/model"
)

// MarkdownExtractor renders Markdown to plain text through the goldmark AST.
// Block elements are separated by blank lines; markup is dropped.
type MarkdownExtractor struct {
	md goldmark.Markdown
}

// NewMarkdownExtractor creates a Markdown extractor with GFM enabled.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Extensions implements Extractor.
func (*MarkdownExtractor) Extensions() []string { return []string{".md", ".markdown"} }

// Extract implements Extractor.
func (e *MarkdownExtractor) Extract(_ context.Context, data []byte) ([]model.Page, error) {
	doc := e.md.Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch {
			case n.Kind() == extast.KindTableCell:
				sb.WriteByte('\t')
			case n.Type() == ast.TypeBlock:
				sb.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(data))
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			sb.Write(node.URL(data))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return []model.Page{{Number: 1, Text: sb.String()}}, nil
}
