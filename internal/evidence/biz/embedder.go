package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/internal/model"
	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/infra/tracing"
	"github.com/kart-io/evidence-x/pkg/llm"
)

// Embedder runs chunk and query embedding through one session-cached provider,
// so queries and chunks always share a vector space.
type Embedder struct {
	provider *llm.CachedEmbeddingProvider
}

// NewEmbedder creates an embedder. timeout bounds each backend request, that
// is one batch, not the whole upload. A nil provider means no embedding
// backend is configured; every call then fails with ErrModelNotConfigured.
func NewEmbedder(provider *llm.CachedEmbeddingProvider, timeout time.Duration) *Embedder {
	if provider != nil && timeout > 0 {
		provider.WithCallTimeout(timeout)
	}
	return &Embedder{provider: provider}
}

// EmbedChunks embeds chunks in one batched call and pairs them with their vectors.
func (e *Embedder) EmbedChunks(ctx context.Context, session string, chunks []model.Chunk) ([]model.EmbeddedChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := e.embed(ctx, "evidence.embed_chunks", session, texts)
	if err != nil {
		return nil, err
	}

	out := make([]model.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		out[i] = model.EmbeddedChunk{Chunk: c, Vector: vectors[i]}
	}
	return out, nil
}

// EmbedQuery embeds a question with the same provider used for chunks.
func (e *Embedder) EmbedQuery(ctx context.Context, session, question string) ([]float32, error) {
	vectors, err := e.embed(ctx, "evidence.embed_query", session, []string{question})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Invalidate drops every cached vector of session.
func (e *Embedder) Invalidate(ctx context.Context, session string) (int, error) {
	if e.provider == nil {
		return 0, nil
	}
	return e.provider.Invalidate(ctx, session)
}

// Configured reports whether an embedding backend is available.
func (e *Embedder) Configured() bool {
	return e.provider != nil
}

func (e *Embedder) embed(ctx context.Context, spanName, session string, texts []string) ([][]float32, error) {
	if e.provider == nil {
		return nil, errors.ErrModelNotConfigured.WithMessage("Embedding provider is not configured")
	}

	ctx, span := tracing.StartSpan(ctx, spanName,
		tracing.String(tracing.AttrSessionID, session),
		tracing.String(tracing.AttrProvider, e.provider.Name()),
		tracing.Int(tracing.AttrInputCount, len(texts)),
	)
	defer span.End()

	start := time.Now()
	vectors, err := e.provider.EmbedSession(ctx, session, texts)
	if err == nil && len(vectors) != len(texts) {
		err = errors.ErrEmbeddingUnavailable.WithMessagef("Embedding backend returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		// 调用方取消或请求整体超时，原样返回
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Errorw("embedding failed",
			"provider", e.provider.Name(),
			"inputs", len(texts),
			"error", err.Error(),
		)
		if errors.IsCode(err, errors.ErrEmbeddingUnavailable.Code) {
			return nil, err
		}
		return nil, errors.ErrEmbeddingUnavailable.WithCause(err)
	}

	logger.Debugw("embedding completed",
		"provider", e.provider.Name(),
		"inputs", len(texts),
		"duration", time.Since(start).String(),
	)
	return vectors, nil
}
