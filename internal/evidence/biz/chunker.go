package biz

import (
	"strings"
	"unicode/utf8"

	"github.com/kart-io/evidence-x/internal/model"
	"github.com/kart-io/evidence-x/internal/pkg/textutil"
)

// Chunker splits document pages into sentence-level chunks.
type Chunker struct {
	minLength int
}

// NewChunker creates a chunker. A sentence becomes a chunk only when its
// trimmed length in characters is strictly greater than minLength.
func NewChunker(minLength int) *Chunker {
	if minLength < 0 {
		minLength = 0
	}
	return &Chunker{minLength: minLength}
}

// Chunk returns the chunks of doc in page and sentence order.
func (c *Chunker) Chunk(doc *model.Document) []model.Chunk {
	var chunks []model.Chunk
	for _, page := range doc.Pages {
		for _, sentence := range textutil.SplitSentences(page.Text) {
			sentence = strings.TrimSpace(sentence)
			if utf8.RuneCountInString(sentence) <= c.minLength {
				continue
			}
			chunks = append(chunks, model.Chunk{
				Text:     sentence,
				Document: doc.Filename,
				Page:     page.Number,
			})
		}
	}
	return chunks
}
