package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/evidence-x/internal/evidence/metrics"
	"github.com/kart-io/evidence-x/internal/evidence/store"
	"github.com/kart-io/evidence-x/internal/model"
	"github.com/kart-io/evidence-x/internal/pkg/extract"
	apierrors "github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/infra/pool"
	"github.com/kart-io/evidence-x/pkg/llm"
)

// keywordVector embeds text by keyword presence: rent, deposit, pets, bias.
func keywordVector(text string) []float32 {
	t := strings.ToLower(text)
	v := []float32{0, 0, 0, 0.1}
	for i, kw := range []string{"rent", "deposit", "pet"} {
		if strings.Contains(t, kw) {
			v[i] = 1
		}
	}
	return v
}

const leaseText = "The monthly rent is 1200 dollars and due on the first. " +
	"A security deposit of two months is required at signing. " +
	"Pets are allowed only with written consent from the landlord. " +
	"Too short."

const feesText = "Late rent incurs a fee of fifty dollars per week.\fThe deposit is returned within thirty days after move out."

func newTestService(t *testing.T, emb llm.EmbeddingProvider, chat llm.ChatProvider, cfg *ServiceConfig) (*EvidenceService, *store.Corpus) {
	t.Helper()

	workers, err := pool.NewPool("upload-test", pool.DefaultConfig(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = workers.Release(time.Second) })

	var cached *llm.CachedEmbeddingProvider
	if emb != nil {
		cached = llm.NewCachedEmbeddingProvider(emb, llm.NewMemoryEmbeddingCache(), 0)
	}
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}

	corpus := store.NewCorpus()
	return NewEvidenceService(corpus, extract.Default(), workers, cached, chat, cfg), corpus
}

func okChat() *fakeChat {
	return &fakeChat{respond: func(n int, _ string) (string, error) {
		if n%2 == 0 {
			return "ANSWER: Rent is 1200 dollars.", nil
		}
		return "VERDICT: SUPPORTED", nil
	}}
}

func uploadLease(t *testing.T, svc *EvidenceService) *model.UploadResult {
	t.Helper()
	res, err := svc.Upload(context.Background(), []model.UploadFile{
		{Filename: "lease.txt", Data: []byte(leaseText)},
		{Filename: "fees.txt", Data: []byte(feesText)},
	})
	require.NoError(t, err)
	return res
}

func TestService_UploadThenAsk(t *testing.T) {
	emb := &fakeEmbedder{vector: keywordVector}
	chat := okChat()
	cfg := DefaultServiceConfig()
	cfg.TopK = 3
	svc, _ := newTestService(t, emb, chat, cfg)

	up := uploadLease(t, svc)
	assert.Equal(t, "success", up.Status)
	assert.Equal(t, []string{"lease.txt", "fees.txt"}, up.ProcessedFiles)
	assert.Equal(t, 5, up.ChunksAdded)
	assert.Equal(t, 5, up.TotalChunks)
	assert.Empty(t, up.SkippedFiles)
	assert.Equal(t, 1, emb.callCount(), "chunks embedded in one batch")

	res, err := svc.Ask(context.Background(), "  What is the rent?  ")
	require.NoError(t, err)

	assert.Equal(t, "What is the rent?", res.Question)
	assert.Equal(t, "ANSWER: Rent is 1200 dollars.", res.Answer)
	assert.Equal(t, "VERDICT: SUPPORTED", res.Verification)
	assert.Equal(t, up.SessionID, res.SessionID)
	require.Len(t, res.Evidence, 3)

	// 两条含 rent 的句子并列第一，保持语料顺序
	assert.Equal(t, "lease.txt", res.Evidence[0].Document)
	assert.Equal(t, 1, res.Evidence[0].Page)
	assert.Equal(t, "fees.txt", res.Evidence[1].Document)
	assert.Equal(t, 1, res.Evidence[1].Page)
	assert.InDelta(t, res.Evidence[0].Score, res.Evidence[1].Score, 1e-12)
	assert.Equal(t, model.MatchHigh, res.Evidence[0].Label)
	assert.Equal(t, "High Match", res.Evidence[0].Status)
	for i := 1; i < len(res.Evidence); i++ {
		assert.GreaterOrEqual(t, res.Evidence[i-1].Score, res.Evidence[i].Score)
	}

	var sum float64
	for _, e := range res.Evidence {
		sum += e.Score
	}
	assert.InDelta(t, sum/3*100, res.Confidence.Score, 1e-6)
	assert.True(t, res.Confidence.HasEvidence)

	calls := chat.recorded()
	require.Len(t, calls, 2)
	ctxText := RenderContext(res.Evidence)
	assert.Contains(t, calls[0].prompt, "USER QUERY: What is the rent?")
	assert.Contains(t, calls[0].prompt, ctxText)
	assert.True(t, strings.HasSuffix(calls[1].prompt, "Context: "+ctxText))
	assert.Contains(t, calls[1].prompt, "Answer: ANSWER: Rent is 1200 dollars.")
}

func TestService_EvidenceLengthIsMinOfTopKAndChunks(t *testing.T) {
	for _, topK := range []int{1, 2, 5, 7, 50} {
		cfg := DefaultServiceConfig()
		cfg.TopK = topK
		svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, okChat(), cfg)
		up := uploadLease(t, svc)

		res, err := svc.Ask(context.Background(), "deposit?")
		require.NoError(t, err)
		assert.Len(t, res.Evidence, min(topK, up.TotalChunks), "top_k=%d", topK)
	}
}

func TestService_TopTwoOfThreeScenario(t *testing.T) {
	emb := &fakeEmbedder{vector: func(text string) []float32 {
		switch {
		case strings.HasPrefix(text, "Alpha"):
			return unitAt(0.9)
		case strings.HasPrefix(text, "Bravo"):
			return unitAt(0.6)
		case strings.HasPrefix(text, "Charlie"):
			return unitAt(0.3)
		}
		return []float32{1, 0}
	}}
	cfg := DefaultServiceConfig()
	cfg.TopK = 2
	svc, _ := newTestService(t, emb, okChat(), cfg)

	_, err := svc.Upload(context.Background(), []model.UploadFile{{
		Filename: "abc.txt",
		Data:     []byte("Charlie sentence is long enough. Alpha sentence is long enough. Bravo sentence is long enough."),
	}})
	require.NoError(t, err)

	res, err := svc.Ask(context.Background(), "which one?")
	require.NoError(t, err)
	require.Len(t, res.Evidence, 2)
	assert.True(t, strings.HasPrefix(res.Evidence[0].Text, "Alpha"))
	assert.InDelta(t, 0.9, res.Evidence[0].Score, 1e-6)
	assert.True(t, strings.HasPrefix(res.Evidence[1].Text, "Bravo"))
	assert.InDelta(t, 0.6, res.Evidence[1].Score, 1e-6)
	assert.InDelta(t, 75.0, res.Confidence.Score, 1e-4)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence.Label)
}

func TestService_ClearEmptiesCorpus(t *testing.T) {
	emb := &fakeEmbedder{vector: keywordVector}
	svc, _ := newTestService(t, emb, okChat(), nil)
	up := uploadLease(t, svc)

	files, err := svc.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fees.txt", "lease.txt"}, files)

	cleared, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, up.SessionID, cleared.PreviousSessionID)
	assert.NotEqual(t, up.SessionID, cleared.SessionID)
	assert.Equal(t, 5, cleared.InvalidatedCache)

	_, err = svc.Ask(context.Background(), "What is the rent?")
	assert.ErrorIs(t, err, apierrors.ErrEmptyCorpus)

	files, err = svc.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Chunks)
	assert.Equal(t, cleared.SessionID, stats.SessionID)

	// 清空后重新上传需要重新向量化
	before := emb.callCount()
	uploadLease(t, svc)
	assert.Equal(t, before+1, emb.callCount())
}

func TestService_FilenamesAccumulate(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, okChat(), nil)
	uploadLease(t, svc)
	res, err := svc.Upload(context.Background(), []model.UploadFile{
		{Filename: "lease.txt", Data: []byte("The rent increases by three percent every year.")},
		{Filename: "notes.md", Data: []byte("# Notes\n\nThe landlord prefers email for rent questions.")},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.TotalChunks)

	files, _ := svc.ListFiles(context.Background())
	assert.Equal(t, []string{"fees.txt", "lease.txt", "notes.md"}, files)

	stats, _ := svc.Stats(context.Background())
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 7, stats.Chunks)
	assert.Equal(t, 4, stats.EmbeddingDim)
}

func TestService_AskErrors(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, okChat(), nil)

	_, err := svc.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, apierrors.ErrInvalidQuestion)

	_, err = svc.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, apierrors.ErrEmptyCorpus)
}

func TestService_EmbeddingFailureMidQuery(t *testing.T) {
	emb := &fakeEmbedder{vector: keywordVector}
	chat := okChat()
	svc, _ := newTestService(t, emb, chat, nil)
	uploadLease(t, svc)

	emb.setErr(errors.New("embedding service unreachable"))
	res, err := svc.Ask(context.Background(), "What is the rent?")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apierrors.ErrEmbeddingUnavailable)
	assert.Empty(t, chat.recorded(), "no generation without retrieval")
}

func TestService_VerificationFailureStillSucceeds(t *testing.T) {
	chat := &fakeChat{respond: func(n int, _ string) (string, error) {
		if n == 0 {
			return "ANSWER: 1200 dollars.", nil
		}
		return "", errors.New("verifier backend down")
	}}
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, chat, nil)
	uploadLease(t, svc)

	res, err := svc.Ask(context.Background(), "What is the rent?")
	require.NoError(t, err)
	assert.Equal(t, "ANSWER: 1200 dollars.", res.Answer)
	assert.Equal(t, "Verification unavailable: verifier backend down", res.Verification)
}

func TestService_GenerationFailureIsFatal(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "", errors.New("model overloaded") }}
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, chat, nil)
	uploadLease(t, svc)

	res, err := svc.Ask(context.Background(), "What is the rent?")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apierrors.ErrGenerationFailed)
	assert.Len(t, chat.recorded(), 1, "verification skipped")
}

func TestService_NoChatProvider(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, nil, nil)
	uploadLease(t, svc)
	assert.Error(t, svc.Ready())

	_, err := svc.Ask(context.Background(), "What is the rent?")
	assert.ErrorIs(t, err, apierrors.ErrModelNotConfigured)
}

func TestService_CancelledAsk(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, okChat(), nil)
	uploadLease(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Ask(ctx, "What is the rent?")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_UploadErrors(t *testing.T) {
	svc, corpus := newTestService(t, &fakeEmbedder{vector: keywordVector}, okChat(), nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, nil)
	assert.ErrorIs(t, err, apierrors.ErrNoFiles)

	_, err = svc.Upload(ctx, []model.UploadFile{{Filename: "a.png", Data: []byte{1}}, {Filename: "b.exe"}})
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedFile)

	_, err = svc.Upload(ctx, []model.UploadFile{
		{Filename: "blank.txt", Data: []byte("   \f  ")},
		{Filename: "tiny.md", Data: []byte("# Hi\n\nok.")},
		{Filename: "a.png", Data: []byte{1}},
	})
	assert.ErrorIs(t, err, apierrors.ErrNoExtractableText)
	assert.Zero(t, corpus.Len())
}

func TestService_PartialExtractionFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, okChat(), nil)

	res, err := svc.Upload(context.Background(), []model.UploadFile{
		{Filename: "broken.pdf", Data: []byte("not a pdf")},
		{Filename: "photo.png", Data: []byte{1, 2}},
		{Filename: "lease.txt", Data: []byte(leaseText)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lease.txt"}, res.ProcessedFiles)
	require.Len(t, res.SkippedFiles, 2)
	assert.Equal(t, "broken.pdf", res.SkippedFiles[0].Filename)
	assert.Equal(t, model.FileIssue{Filename: "photo.png", Reason: "unsupported file format"}, res.SkippedFiles[1])
}

func TestService_UploadEmbeddingFailure(t *testing.T) {
	emb := &fakeEmbedder{vector: keywordVector, err: errors.New("401 unauthorized")}
	svc, corpus := newTestService(t, emb, okChat(), nil)

	_, err := svc.Upload(context.Background(), []model.UploadFile{{Filename: "lease.txt", Data: []byte(leaseText)}})
	assert.ErrorIs(t, err, apierrors.ErrEmbeddingUnavailable)
	assert.Zero(t, corpus.Len())
	assert.Empty(t, corpus.Files())
}

// blockingEmbedder parks Embed until release is closed.
type blockingEmbedder struct {
	*fakeEmbedder
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.fakeEmbedder.Embed(ctx, texts)
}

func TestService_ClearDuringUpload(t *testing.T) {
	emb := &blockingEmbedder{
		fakeEmbedder: &fakeEmbedder{vector: keywordVector},
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc, corpus := newTestService(t, emb, okChat(), nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Upload(context.Background(), []model.UploadFile{{Filename: "lease.txt", Data: []byte(leaseText)}})
		errCh <- err
	}()

	<-emb.started
	_, err := svc.Clear(context.Background())
	require.NoError(t, err)
	close(emb.release)

	assert.ErrorIs(t, <-errCh, apierrors.ErrCorpusCleared)
	assert.Zero(t, corpus.Len())
	assert.Empty(t, corpus.Files())
	// 旧会话的向量不能残留在缓存中
	assert.Zero(t, cacheLen(t, svc))
}

func cacheLen(t *testing.T, svc *EvidenceService) int {
	t.Helper()
	mem, ok := svc.embedder.provider.Cache().(*llm.MemoryEmbeddingCache)
	require.True(t, ok)
	return mem.Len()
}

// gatedEmbedder blocks the first call made after arm until release is closed.
type gatedEmbedder struct {
	*fakeEmbedder
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.fakeEmbedder.Embed(ctx, texts)
}

func TestService_ClearDuringAsk(t *testing.T) {
	emb := &gatedEmbedder{
		fakeEmbedder: &fakeEmbedder{vector: keywordVector},
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc, _ := newTestService(t, emb, okChat(), nil)
	uploadLease(t, svc)

	emb.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := svc.Ask(context.Background(), "What is the rent?")
		done <- err
	}()

	<-emb.entered
	_, err := svc.Clear(context.Background())
	require.NoError(t, err)
	require.Zero(t, cacheLen(t, svc))
	close(emb.release)

	require.NoError(t, <-done)
	assert.Zero(t, cacheLen(t, svc))
}

func TestService_RecordsMetrics(t *testing.T) {
	chat := &fakeChat{respond: func(n int, _ string) (string, error) {
		if n%2 == 0 {
			return "ANSWER: Rent is 1200 dollars.", nil
		}
		return "", errors.New("verifier backend down")
	}}
	svc, _ := newTestService(t, &fakeEmbedder{vector: keywordVector}, chat, nil)
	reg := prometheus.NewRegistry()
	svc.WithMetrics(metrics.New(reg, "evidence"))

	uploadLease(t, svc)
	_, err := svc.Upload(context.Background(), []model.UploadFile{{Filename: "a.png", Data: []byte("x")}})
	require.Error(t, err)

	_, err = svc.Ask(context.Background(), "What is the rent?")
	require.NoError(t, err)
	_, err = svc.Ask(context.Background(), " ")
	require.Error(t, err)

	_, err = svc.Clear(context.Background())
	require.NoError(t, err)

	expected := `
# HELP evidence_asks_total Questions by result.
# TYPE evidence_asks_total counter
evidence_asks_total{result="error"} 1
evidence_asks_total{result="ok"} 1
# HELP evidence_chunks_indexed_total Chunks embedded and added to the corpus.
# TYPE evidence_chunks_indexed_total counter
evidence_chunks_indexed_total 5
# HELP evidence_corpus_chunks Chunks in the current corpus session.
# TYPE evidence_corpus_chunks gauge
evidence_corpus_chunks 0
# HELP evidence_uploads_total Upload batches by result.
# TYPE evidence_uploads_total counter
evidence_uploads_total{result="error"} 1
evidence_uploads_total{result="ok"} 1
# HELP evidence_verification_unavailable_total Answers returned with a verification placeholder.
# TYPE evidence_verification_unavailable_total counter
evidence_verification_unavailable_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"evidence_asks_total", "evidence_chunks_indexed_total", "evidence_corpus_chunks",
		"evidence_uploads_total", "evidence_verification_unavailable_total"))
}
