package biz

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/evidence-x/internal/model"
)

const defaultAnswerPrompt = `You are an evidence-grounded document analyst. Answer the user's query using ONLY the retrieved context chunks below. Each chunk is labelled with its source document and page.

Rules:
- Do not use outside knowledge. If the context does not contain the answer, say so plainly.
- Cite every claim with its source in the form (Source: <document>, Page: <page>).
- Quote figures, dates and names exactly as they appear in the context.

OUTPUT FORMAT:
ANSWER:
<a direct answer in two to five sentences>

KEY EVIDENCE:
- <supporting fact> (Source: <document>, Page: <page>)

GAPS:
<information the query asks for that the context does not provide, or "None">`

const defaultVerifyPrompt = `You are a strict fact-checking auditor. Compare the answer below against the context it was generated from.

For each factual claim in the answer, decide whether the context supports it. Do not use outside knowledge.

Respond in this format:
VERDICT: SUPPORTED | PARTIALLY SUPPORTED | NOT SUPPORTED
UNSUPPORTED CLAIMS: <list each unsupported claim, or "None">
NOTES: <one or two sentences>`

// Prompts holds the instruction templates sent to the language model.
// Templates are passed through unmodified.
type Prompts struct {
	Answer string `yaml:"answer"`
	Verify string `yaml:"verify"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{Answer: defaultAnswerPrompt, Verify: defaultVerifyPrompt}
}

// PromptSource supplies the templates in effect for one model call.
type PromptSource interface {
	Current() *Prompts
}

// Current implements PromptSource. A nil receiver yields the built-in templates.
func (p *Prompts) Current() *Prompts {
	if p == nil {
		return DefaultPrompts()
	}
	return p
}

// PromptStore is a PromptSource whose templates can be swapped while
// requests are in flight. Each call sees one consistent pair.
type PromptStore struct {
	current atomic.Pointer[Prompts]
}

// NewPromptStore creates a store holding initial, or the defaults when nil.
func NewPromptStore(initial *Prompts) *PromptStore {
	s := &PromptStore{}
	s.current.Store(initial.Current())
	return s
}

// Current implements PromptSource.
func (s *PromptStore) Current() *Prompts {
	return s.current.Load()
}

// Reload re-reads path and swaps the templates in. On error the previous
// templates stay in effect.
func (s *PromptStore) Reload(path string) error {
	p, err := LoadPrompts(path)
	if err != nil {
		return err
	}
	s.current.Store(p)
	return nil
}

// LoadPrompts reads templates from a YAML file with keys answer and verify.
// An empty path or a missing key uses the built-in template.
func LoadPrompts(path string) (*Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var loaded Prompts
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
	}
	if strings.TrimSpace(loaded.Answer) != "" {
		p.Answer = loaded.Answer
	}
	if strings.TrimSpace(loaded.Verify) != "" {
		p.Verify = loaded.Verify
	}
	return p, nil
}

// RenderContext renders evidence in ranked order, one block per item:
//
//	Source: <document>, Page: <page>
//	Content: <text>
//
// Blocks are separated by a blank line.
func RenderContext(items []model.EvidenceItem) string {
	blocks := make([]string, len(items))
	for i, item := range items {
		blocks[i] = fmt.Sprintf("Source: %s, Page: %d\nContent: %s", item.Document, item.Page, item.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// AnswerPrompt builds the generation prompt.
func (p *Prompts) AnswerPrompt(question, contextText string) string {
	var sb strings.Builder
	sb.WriteString(p.Answer)
	sb.WriteString("\n\nUSER QUERY: ")
	sb.WriteString(question)
	sb.WriteString("\n\nRETRIEVED CONTEXT CHUNKS:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nStrictly follow the requested OUTPUT FORMAT.")
	return sb.String()
}

// VerifyPrompt builds the audit prompt from the same context string used
// for generation.
func (p *Prompts) VerifyPrompt(question, answer, contextText string) string {
	var sb strings.Builder
	sb.WriteString(p.Verify)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer: ")
	sb.WriteString(answer)
	sb.WriteString("\nContext: ")
	sb.WriteString(contextText)
	return sb.String()
}
