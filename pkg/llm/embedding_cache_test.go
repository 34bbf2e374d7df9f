package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 辅助函数：创建测试用 Redis 客户端
func setupTestRedis(t *testing.T) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}
	client.FlushDB(ctx)
	return client
}

// countingEmbedder 记录每次调用的输入。
type countingEmbedder struct {
	batches [][]string
	err     error
	short   bool
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	n := len(texts)
	if c.short {
		n--
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) embedded() int {
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	assert.Len(t, ContentHash(""), 64)
}

func TestCachedEmbeddingProvider_OnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	p := NewCachedEmbeddingProvider(inner, NewMemoryEmbeddingCache(), 0)

	first, err := p.EmbedSession(ctx, "s1", []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 2, inner.embedded())

	second, err := p.EmbedSession(ctx, "s1", []string{"beta", "gamma!", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.embedded())
	assert.Equal(t, []string{"gamma!"}, inner.batches[1])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, []float32{6, 1}, second[1])
}

func TestCachedEmbeddingProvider_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	p := NewCachedEmbeddingProvider(inner, nil, 0)

	_, err := p.EmbedSession(ctx, "s1", []string{"alpha"})
	require.NoError(t, err)
	_, err = p.EmbedSession(ctx, "s2", []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.embedded())
}

func TestCachedEmbeddingProvider_InvalidateForcesRecompute(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	mem := NewMemoryEmbeddingCache()
	p := NewCachedEmbeddingProvider(inner, mem, 0)

	_, err := p.EmbedSession(ctx, "s1", []string{"alpha", "beta"})
	require.NoError(t, err)
	_, err = p.EmbedSession(ctx, "s2", []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, 3, mem.Len())

	n, err := p.Invalidate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, mem.Len())

	_, err = p.EmbedSession(ctx, "s1", []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.embedded())
}

func TestCachedEmbeddingProvider_Batches(t *testing.T) {
	inner := &countingEmbedder{}
	p := NewCachedEmbeddingProvider(inner, nil, 2)

	out, err := p.EmbedSession(context.Background(), "s", []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, inner.batches, 3)
	assert.Equal(t, []string{"eeeee"}, inner.batches[2])
	for i, v := range out {
		assert.Equal(t, float32(i+1), v[0])
	}
}

func TestCachedEmbeddingProvider_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")

	p := NewCachedEmbeddingProvider(&countingEmbedder{err: boom}, nil, 0)
	_, err := p.EmbedSession(ctx, "s", []string{"x"})
	assert.ErrorIs(t, err, boom)

	p = NewCachedEmbeddingProvider(&countingEmbedder{short: true}, nil, 0)
	_, err = p.EmbedSession(ctx, "s", []string{"x", "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 embeddings for 2 inputs")

	out, err := p.EmbedSession(ctx, "s", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMemoryEmbeddingCache_SetLengthMismatch(t *testing.T) {
	c := NewMemoryEmbeddingCache()
	err := c.Set(context.Background(), "s", []string{"a"}, nil)
	assert.Error(t, err)
}

func TestRedisEmbeddingCache_RoundTripAndInvalidate(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	c := NewRedisEmbeddingCache(client, &EmbeddingCacheConfig{TTL: time.Minute, KeyPrefix: "test:emb:"})
	assert.Equal(t, "redis", c.Name())

	hashes := []string{ContentHash("a"), ContentHash("b")}
	require.NoError(t, c.Set(ctx, "s1", hashes, [][]float32{{1, 2}, {3, 4}}))
	require.NoError(t, c.Set(ctx, "s2", hashes[:1], [][]float32{{9, 9}}))

	got, err := c.Get(ctx, "s1", append(hashes, ContentHash("missing")))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got[0])
	assert.Equal(t, []float32{3, 4}, got[1])
	assert.Nil(t, got[2])

	n, err := c.Invalidate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = c.Get(ctx, "s1", hashes)
	require.NoError(t, err)
	assert.Nil(t, got[0])

	got, err = c.Get(ctx, "s2", hashes[:1])
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9}, got[0])
}

func TestRedisEmbeddingCache_CorruptEntryIsMiss(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	c := NewRedisEmbeddingCache(client, &EmbeddingCacheConfig{KeyPrefix: "test:emb:"})
	require.NoError(t, client.Set(ctx, c.key("s", "h"), "not-json", 0).Err())

	got, err := c.Get(ctx, "s", []string{"h"})
	require.NoError(t, err)
	assert.Nil(t, got[0])
	assert.Equal(t, int64(0), client.Exists(ctx, c.key("s", "h")).Val())
}

// slowEmbedder takes delay per request and honours cancellation.
type slowEmbedder struct {
	countingEmbedder
	delay time.Duration
}

func (s *slowEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.countingEmbedder.Embed(ctx, texts)
}

func TestCachedEmbeddingProvider_CallTimeoutIsPerBatch(t *testing.T) {
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}

	// 每批 30ms，共 3 批，总耗时超过单批超时也应成功
	slow := &slowEmbedder{delay: 30 * time.Millisecond}
	p := NewCachedEmbeddingProvider(slow, NewMemoryEmbeddingCache(), 2).WithCallTimeout(60 * time.Millisecond)
	vectors, err := p.EmbedSession(context.Background(), "s1", texts)
	require.NoError(t, err)
	assert.Len(t, vectors, len(texts))
	assert.Len(t, slow.batches, 3)

	// 单批超过超时则失败
	stuck := &slowEmbedder{delay: time.Second}
	p = NewCachedEmbeddingProvider(stuck, NewMemoryEmbeddingCache(), 2).WithCallTimeout(20 * time.Millisecond)
	_, err = p.EmbedSession(context.Background(), "s1", texts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
