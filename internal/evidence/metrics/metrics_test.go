package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvidenceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "evidence")

	m.RecordUpload(1, 5, 5, nil)
	m.RecordUpload(0, 0, 0, errors.New("boom"))
	m.RecordAsk(75, false, nil)
	m.RecordAsk(90, true, nil)
	m.RecordAsk(0, false, errors.New("boom"))
	m.ObserveStage(StageGenerate, time.Now().Add(-time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.chunksIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesSkipped))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.corpusChunks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.asksTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifyFallbacks))

	m.RecordClear(6)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.corpusChunks))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.cacheInvalidated))

	n, err := testutil.GatherAndCount(reg, "evidence_stage_duration_seconds", "evidence_answer_confidence")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expected := `
# HELP evidence_asks_total Questions by result.
# TYPE evidence_asks_total counter
evidence_asks_total{result="error"} 1
evidence_asks_total{result="ok"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "evidence_asks_total"))
}

func TestEvidenceMetrics_NilIsNoop(t *testing.T) {
	var m *EvidenceMetrics
	assert.NotPanics(t, func() {
		m.RecordUpload(0, 1, 1, nil)
		m.RecordAsk(50, true, nil)
		m.RecordClear(1)
		m.ObserveStage(StageQuery, time.Now())
	})
}
