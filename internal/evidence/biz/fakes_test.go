package biz

import (
	"context"
	"math"
	"sync"

	"github.com/kart-io/evidence-x/pkg/llm"
)

// fakeEmbedder is an llm.EmbeddingProvider whose vectors come from a function.
type fakeEmbedder struct {
	mu     sync.Mutex
	vector func(text string) []float32
	err    error
	short  bool
	calls  int
	inputs [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.inputs = append(f.inputs, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vector(t))
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embed" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type chatCall struct {
	prompt string
	opts   llm.GenerateOptions
}

// fakeChat is an llm.ChatProvider answering through respond; n is the
// zero-based call index.
type fakeChat struct {
	mu      sync.Mutex
	calls   []chatCall
	respond func(n int, prompt string) (string, error)
}

func (f *fakeChat) Generate(ctx context.Context, prompt, _ string, opts ...llm.GenerateOption) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, chatCall{prompt: prompt, opts: llm.ApplyGenerateOptions(opts...)})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := f.respond(n, prompt)
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{Content: content}, nil
}

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	resp, err := f.Generate(ctx, messages[len(messages)-1].Content, "", opts...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

func (f *fakeChat) recorded() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.calls...)
}

// unitAt returns a 2-d unit vector whose cosine with [1, 0] is s.
func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}
