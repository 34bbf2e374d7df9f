package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/evidence-x/internal/model"
)

func embedded(doc string, n int) []model.EmbeddedChunk {
	out := make([]model.EmbeddedChunk, n)
	for i := range out {
		out[i] = model.EmbeddedChunk{
			Chunk:  model.Chunk{Text: fmt.Sprintf("%s sentence %d", doc, i), Document: doc, Page: 1},
			Vector: []float32{float32(i), 1, 0},
		}
	}
	return out
}

func TestCorpus_AppendAndSnapshot(t *testing.T) {
	c := NewCorpus()
	session := c.SessionID()
	assert.Len(t, session, 26)

	total, err := c.Append(session, []string{"b.pdf", "a.txt"}, embedded("a.txt", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	total, err = c.Append(session, []string{"a.txt"}, embedded("c.md", 3))
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	id, chunks := c.Snapshot()
	assert.Equal(t, session, id)
	require.Len(t, chunks, 5)
	assert.Equal(t, "a.txt sentence 0", chunks[0].Text)
	assert.Equal(t, "c.md sentence 2", chunks[4].Text)

	assert.Equal(t, []string{"a.txt", "b.pdf"}, c.Files())
	assert.Equal(t, model.CorpusStats{SessionID: session, Files: 2, Chunks: 5, EmbeddingDim: 3}, c.Stats())
}

func TestCorpus_SnapshotIsolatedFromAppend(t *testing.T) {
	c := NewCorpus()
	session := c.SessionID()
	_, err := c.Append(session, []string{"a"}, embedded("a", 1))
	require.NoError(t, err)

	_, snap := c.Snapshot()
	_, err = c.Append(session, []string{"b"}, embedded("b", 4))
	require.NoError(t, err)

	assert.Len(t, snap, 1)
	assert.Equal(t, 5, c.Len())
}

func TestCorpus_Clear(t *testing.T) {
	c := NewCorpus()
	old := c.SessionID()
	_, err := c.Append(old, []string{"a.txt"}, embedded("a.txt", 2))
	require.NoError(t, err)

	prev, cur := c.Clear()
	assert.Equal(t, old, prev)
	assert.NotEqual(t, old, cur)
	assert.Equal(t, cur, c.SessionID())
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Files())
	assert.Zero(t, c.Stats().EmbeddingDim)

	// 清空前开始的上传不能写入新会话
	_, err = c.Append(old, []string{"late.txt"}, embedded("late.txt", 1))
	assert.ErrorIs(t, err, ErrSessionChanged)
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Files())
}

func TestCorpus_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	c := NewCorpus()
	session := c.SessionID()

	const uploads, perUpload = 20, 15
	var wg sync.WaitGroup
	for u := 0; u < uploads; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			doc := fmt.Sprintf("doc-%02d", u)
			_, err := c.Append(session, []string{doc}, embedded(doc, perUpload))
			assert.NoError(t, err)
		}(u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Snapshot()
			_ = c.Files()
		}()
	}
	wg.Wait()

	_, chunks := c.Snapshot()
	require.Len(t, chunks, uploads*perUpload)
	for start := 0; start < len(chunks); start += perUpload {
		doc := chunks[start].Document
		for i := 0; i < perUpload; i++ {
			assert.Equal(t, doc, chunks[start+i].Document)
			assert.Equal(t, fmt.Sprintf("%s sentence %d", doc, i), chunks[start+i].Text)
		}
	}
	assert.Len(t, c.Files(), uploads)
}
