package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/internal/evidence/metrics"
	"github.com/kart-io/evidence-x/internal/evidence/store"
	"github.com/kart-io/evidence-x/internal/model"
	"github.com/kart-io/evidence-x/internal/pkg/extract"
	"github.com/kart-io/evidence-x/internal/pkg/textutil"
	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/infra/pool"
	"github.com/kart-io/evidence-x/pkg/infra/tracing"
	"github.com/kart-io/evidence-x/pkg/llm"
)

// Service 定义证据问答服务接口。
type Service interface {
	// Upload 解析、分块并向量化一批文档，整体追加到当前会话的语料库。
	Upload(ctx context.Context, files []model.UploadFile) (*model.UploadResult, error)
	// Ask 检索证据并生成、校验答案。
	Ask(ctx context.Context, question string) (*model.AskResult, error)
	// Clear 清空语料库并开始新会话。
	Clear(ctx context.Context) (*model.ClearResult, error)
	// ListFiles 返回已索引的文件名。
	ListFiles(ctx context.Context) ([]string, error)
	// Stats 返回语料库统计信息。
	Stats(ctx context.Context) (*model.CorpusStats, error)
}

// ServiceConfig 证据服务配置。
type ServiceConfig struct {
	TopK            int
	MinChunkLength  int
	HighThreshold   float64
	MediumThreshold float64
	EmbedTimeout    time.Duration
	Generate        CallConfig
	Verify          CallConfig
	Prompts         PromptSource
}

// DefaultServiceConfig returns the default pipeline configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		TopK:            5,
		MinChunkLength:  20,
		HighThreshold:   DefaultHighThreshold,
		MediumThreshold: DefaultMediumThreshold,
		EmbedTimeout:    60 * time.Second,
		Generate:        DefaultGenerateConfig(),
		Verify:          DefaultVerifyConfig(),
		Prompts:         DefaultPrompts(),
	}
}

// EvidenceService implements Service over an explicitly owned corpus.
type EvidenceService struct {
	corpus     *store.Corpus
	extractors *extract.Registry
	workers    *pool.Pool
	chunker    *Chunker
	embedder   *Embedder
	scorer     *Scorer
	generator  *Generator
	verifier   *Verifier
	metrics    *metrics.EvidenceMetrics
	topK       int
}

var _ Service = (*EvidenceService)(nil)

// NewEvidenceService creates the service. embed and chat may be nil when no
// credentials are configured; the affected operations then report it.
func NewEvidenceService(
	corpus *store.Corpus,
	extractors *extract.Registry,
	workers *pool.Pool,
	embed *llm.CachedEmbeddingProvider,
	chat llm.ChatProvider,
	config *ServiceConfig,
) *EvidenceService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	topK := config.TopK
	if topK < 1 {
		topK = 1
	}

	return &EvidenceService{
		corpus:     corpus,
		extractors: extractors,
		workers:    workers,
		chunker:    NewChunker(config.MinChunkLength),
		embedder:   NewEmbedder(embed, config.EmbedTimeout),
		scorer:     NewScorer(config.HighThreshold, config.MediumThreshold),
		generator:  NewGenerator(chat, config.Prompts, config.Generate),
		verifier:   NewVerifier(chat, config.Prompts, config.Verify),
		topK:       topK,
	}
}

// WithMetrics sets the business metrics recorder.
func (s *EvidenceService) WithMetrics(m *metrics.EvidenceMetrics) *EvidenceService {
	s.metrics = m
	return s
}

// fileOutcome 单个文件的解析结果。
type fileOutcome struct {
	chunks      []model.Chunk
	reason      string
	unsupported bool
}

// Upload extracts files in parallel, chunks and embeds them, then appends
// the whole batch to the corpus at once. Files that yield no chunks are
// reported in SkippedFiles; only a batch with no chunks at all fails.
func (s *EvidenceService) Upload(ctx context.Context, files []model.UploadFile) (*model.UploadResult, error) {
	start := time.Now()
	result, err := s.upload(ctx, files)
	s.metrics.ObserveStage(metrics.StageIndex, start)
	if err != nil {
		s.metrics.RecordUpload(0, 0, 0, err)
		return nil, err
	}
	s.metrics.RecordUpload(len(result.SkippedFiles), result.ChunksAdded, result.TotalChunks, nil)
	return result, nil
}

func (s *EvidenceService) upload(ctx context.Context, files []model.UploadFile) (*model.UploadResult, error) {
	if len(files) == 0 {
		return nil, errors.ErrNoFiles
	}

	session := s.corpus.SessionID()
	ctx, span := tracing.StartSpan(ctx, "evidence.upload",
		tracing.String(tracing.AttrSessionID, session),
		tracing.Int(tracing.AttrInputCount, len(files)),
	)
	defer span.End()

	outcomes := make([]fileOutcome, len(files))
	errs := s.workers.Map(ctx, len(files), func(ctx context.Context, i int) error {
		outcomes[i] = s.processFile(ctx, files[i])
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &model.UploadResult{Status: "success", SessionID: session}
	var chunks []model.Chunk
	var processed []string
	unsupported := 0
	for i, f := range files {
		out := outcomes[i]
		if errs[i] != nil {
			out = fileOutcome{reason: errs[i].Error()}
		}
		if out.unsupported {
			unsupported++
		}
		if len(out.chunks) == 0 {
			result.SkippedFiles = append(result.SkippedFiles, model.FileIssue{Filename: f.Filename, Reason: out.reason})
			continue
		}
		chunks = append(chunks, out.chunks...)
		processed = append(processed, f.Filename)
	}

	if unsupported == len(files) {
		return nil, errors.ErrUnsupportedFile.WithMessagef("Unsupported file type; supported: %s",
			strings.Join(s.extractors.Extensions(), ", "))
	}
	if len(chunks) == 0 {
		return nil, errors.ErrNoExtractableText
	}

	embedded, err := s.embedder.EmbedChunks(ctx, session, chunks)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	total, err := s.corpus.Append(session, processed, embedded)
	if err != nil {
		if stderrors.Is(err, store.ErrSessionChanged) {
			// Clear 已先于本次写缓存执行失效
			s.dropSession(ctx, session)
			return nil, errors.ErrCorpusCleared
		}
		return nil, err
	}

	result.ProcessedFiles = processed
	result.ChunksAdded = len(embedded)
	result.TotalChunks = total

	tracing.AddSpanAttributes(ctx, tracing.Int(tracing.AttrCorpusSize, total))
	logger.Infow("documents indexed",
		"session", session,
		"files", len(processed),
		"skipped", len(result.SkippedFiles),
		"chunks", len(embedded),
		"total_chunks", total,
	)
	return result, nil
}

func (s *EvidenceService) processFile(ctx context.Context, f model.UploadFile) fileOutcome {
	if !s.extractors.Supports(f.Filename) {
		return fileOutcome{reason: "unsupported file format", unsupported: true}
	}

	doc, err := s.extractors.Extract(ctx, f.Filename, f.Data)
	if err != nil {
		logger.Warnw("document extraction failed", "file", f.Filename, "error", err.Error())
		return fileOutcome{reason: err.Error()}
	}

	chunks := s.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return fileOutcome{reason: "no extractable text"}
	}
	return fileOutcome{chunks: chunks}
}

// Ask answers question from the current corpus. The pipeline is sequential:
// embed, rank, score, generate, verify. Nothing is returned on error or
// cancellation.
func (s *EvidenceService) Ask(ctx context.Context, question string) (*model.AskResult, error) {
	result, err := s.ask(ctx, question)
	if err != nil {
		s.metrics.RecordAsk(0, false, err)
		return nil, err
	}
	s.metrics.RecordAsk(result.Confidence.Score, strings.HasPrefix(result.Verification, VerificationUnavailablePrefix), nil)
	return result, nil
}

func (s *EvidenceService) ask(ctx context.Context, question string) (*model.AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.ErrInvalidQuestion
	}

	session, chunks := s.corpus.Snapshot()
	if len(chunks) == 0 {
		return nil, errors.ErrEmptyCorpus
	}

	ctx, span := tracing.StartSpan(ctx, "evidence.ask",
		tracing.String(tracing.AttrSessionID, session),
		tracing.Int(tracing.AttrCorpusSize, len(chunks)),
		tracing.Int(tracing.AttrTopK, s.topK),
	)
	defer span.End()

	start := time.Now()
	queryVector, err := s.embedder.EmbedQuery(ctx, session, question)
	s.metrics.ObserveStage(metrics.StageQuery, start)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if s.corpus.SessionID() != session {
		s.dropSession(ctx, session)
	}

	evidence := Rank(queryVector, chunks, s.topK)
	s.scorer.Annotate(evidence)
	confidence := s.scorer.Score(evidence)
	tracing.AddSpanAttributes(ctx, tracing.Float64(tracing.AttrConfidence, confidence.Score))

	contextText := RenderContext(evidence)
	start = time.Now()
	answer, err := s.generator.Generate(ctx, question, contextText)
	s.metrics.ObserveStage(metrics.StageGenerate, start)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	start = time.Now()
	verification := s.verifier.Verify(ctx, question, answer, contextText)
	s.metrics.ObserveStage(metrics.StageVerify, start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Infow("question answered",
		"session", session,
		"question", textutil.TruncateString(question, 80),
		"evidence", len(evidence),
		"confidence", confidence.Score,
	)
	return &model.AskResult{
		Question:     question,
		Answer:       answer,
		Evidence:     evidence,
		Confidence:   confidence,
		Verification: verification,
		SessionID:    session,
	}, nil
}

// Clear empties the corpus and drops the cached vectors of the old session.
// A cache failure is logged; the corpus is cleared regardless.
func (s *EvidenceService) Clear(ctx context.Context) (*model.ClearResult, error) {
	previous, current := s.corpus.Clear()

	n, err := s.embedder.Invalidate(ctx, previous)
	if err != nil {
		logger.Warnw("failed to invalidate embedding cache", "session", previous, "error", err.Error())
	}

	s.metrics.RecordClear(n)
	logger.Infow("corpus cleared", "previous_session", previous, "session", current, "cache_entries", n)
	return &model.ClearResult{
		Status:            "cleared",
		PreviousSessionID: previous,
		SessionID:         current,
		InvalidatedCache:  n,
	}, nil
}

// dropSession invalidates vectors written under a session that a concurrent
// Clear already retired. The corpus switches session before Clear
// invalidates, so a writer that still sees its session is covered by Clear.
func (s *EvidenceService) dropSession(ctx context.Context, session string) {
	n, err := s.embedder.Invalidate(context.WithoutCancel(ctx), session)
	if err != nil {
		logger.Warnw("failed to invalidate embedding cache", "session", session, "error", err.Error())
		return
	}
	if n > 0 {
		logger.Debugw("dropped embeddings of a cleared session", "session", session, "count", n)
	}
}

// ListFiles returns the indexed filenames of the current session.
func (s *EvidenceService) ListFiles(_ context.Context) ([]string, error) {
	return s.corpus.Files(), nil
}

// Stats returns corpus statistics.
func (s *EvidenceService) Stats(_ context.Context) (*model.CorpusStats, error) {
	stats := s.corpus.Stats()
	return &stats, nil
}

// Ready reports whether both model backends are configured.
func (s *EvidenceService) Ready() error {
	var missing []string
	if !s.embedder.Configured() {
		missing = append(missing, "embedding")
	}
	if s.generator.chat == nil {
		missing = append(missing, "chat")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s provider not configured", strings.Join(missing, " and "))
	}
	return nil
}
