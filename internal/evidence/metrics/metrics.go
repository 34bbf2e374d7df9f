// Package metrics 提供证据服务的业务指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages observed by ObserveStage.
const (
	StageIndex    = "index"
	StageQuery    = "query"
	StageGenerate = "generate"
	StageVerify   = "verify"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// EvidenceMetrics 证据服务业务指标。所有方法在 nil 接收者上为空操作。
type EvidenceMetrics struct {
	uploadsTotal     *prometheus.CounterVec
	filesSkipped     prometheus.Counter
	chunksIndexed    prometheus.Counter
	asksTotal        *prometheus.CounterVec
	confidence       prometheus.Histogram
	stageDuration    *prometheus.HistogramVec
	verifyFallbacks  prometheus.Counter
	clearsTotal      prometheus.Counter
	cacheInvalidated prometheus.Counter
	corpusChunks     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, namespace string) *EvidenceMetrics {
	m := &EvidenceMetrics{
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload batches by result.",
		}, []string{"result"}),
		filesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Uploaded files that yielded no chunks.",
		}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and added to the corpus.",
		}),
		asksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asks_total",
			Help:      "Questions by result.",
		}, []string{"result"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_confidence",
			Help:      "Confidence score of answered questions (0-100).",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100},
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		verifyFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_unavailable_total",
			Help:      "Answers returned with a verification placeholder.",
		}),
		clearsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clears_total",
			Help:      "Corpus clears.",
		}),
		cacheInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_total",
			Help:      "Embedding cache entries dropped by clears.",
		}),
		corpusChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_chunks",
			Help:      "Chunks in the current corpus session.",
		}),
	}
	reg.MustRegister(
		m.uploadsTotal, m.filesSkipped, m.chunksIndexed,
		m.asksTotal, m.confidence, m.stageDuration,
		m.verifyFallbacks, m.clearsTotal, m.cacheInvalidated, m.corpusChunks,
	)
	return m
}

// RecordUpload 记录一次上传。
func (m *EvidenceMetrics) RecordUpload(skipped, chunks, total int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploadsTotal.WithLabelValues(resultError).Inc()
		return
	}
	m.uploadsTotal.WithLabelValues(resultOK).Inc()
	m.filesSkipped.Add(float64(skipped))
	m.chunksIndexed.Add(float64(chunks))
	m.corpusChunks.Set(float64(total))
}

// RecordAsk 记录一次问答。
func (m *EvidenceMetrics) RecordAsk(confidence float64, verificationUnavailable bool, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.asksTotal.WithLabelValues(resultError).Inc()
		return
	}
	m.asksTotal.WithLabelValues(resultOK).Inc()
	m.confidence.Observe(confidence)
	if verificationUnavailable {
		m.verifyFallbacks.Inc()
	}
}

// RecordClear 记录一次清空。
func (m *EvidenceMetrics) RecordClear(invalidated int) {
	if m == nil {
		return
	}
	m.clearsTotal.Inc()
	m.cacheInvalidated.Add(float64(invalidated))
	m.corpusChunks.Set(0)
}

// ObserveStage records how long stage took since start.
func (m *EvidenceMetrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
