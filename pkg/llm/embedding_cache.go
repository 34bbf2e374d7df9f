package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/evidence-x/pkg/cache"
	"github.com/kart-io/evidence-x/pkg/utils/json"
)

// EmbeddingCache 按 (session, 内容哈希) 缓存向量。
// 会话被清空时调用 Invalidate 丢弃该会话的全部条目。
type EmbeddingCache interface {
	// Get 返回与 hashes 等长的结果，未命中的位置为 nil。
	Get(ctx context.Context, session string, hashes []string) ([][]float32, error)

	// Set 写入向量，hashes 与 vectors 一一对应。
	Set(ctx context.Context, session string, hashes []string, vectors [][]float32) error

	// Invalidate 删除会话下的全部条目，返回删除数量。
	Invalidate(ctx context.Context, session string) (int, error)

	// Name 返回缓存后端名称。
	Name() string
}

// ContentHash 返回文本内容的 SHA256 十六进制摘要。
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// TTL 缓存过期时间，0 表示不过期。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "evidence:emb:",
	}
}

// RedisEmbeddingCache 基于 Redis 的会话向量缓存。
type RedisEmbeddingCache struct {
	redis  *goredis.Client
	config *EmbeddingCacheConfig
}

// NewRedisEmbeddingCache 创建 Redis 缓存。
func NewRedisEmbeddingCache(client *goredis.Client, config *EmbeddingCacheConfig) *RedisEmbeddingCache {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &RedisEmbeddingCache{redis: client, config: config}
}

func (c *RedisEmbeddingCache) key(session, hash string) string {
	return c.config.KeyPrefix + session + ":" + hash
}

// Name 返回缓存后端名称。
func (c *RedisEmbeddingCache) Name() string { return "redis" }

// Get 使用 MGET 批量读取。
func (c *RedisEmbeddingCache) Get(ctx context.Context, session string, hashes []string) ([][]float32, error) {
	out := make([][]float32, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = c.key(session, h)
	}

	vals, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var corrupt []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			corrupt = append(corrupt, keys[i])
			continue
		}
		out[i] = vec
	}

	if len(corrupt) > 0 {
		// 反序列化失败，删除损坏的缓存
		logger.Warnw("deleting corrupt embedding cache entries", "count", len(corrupt))
		_ = c.redis.Del(ctx, corrupt...).Err()
	}
	return out, nil
}

// Set 使用 pipeline 批量写入。
func (c *RedisEmbeddingCache) Set(ctx context.Context, session string, hashes []string, vectors [][]float32) error {
	if len(hashes) != len(vectors) {
		return fmt.Errorf("embedding cache: %d hashes for %d vectors", len(hashes), len(vectors))
	}
	if len(hashes) == 0 {
		return nil
	}

	pipe := c.redis.Pipeline()
	for i, h := range hashes {
		data, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("embedding cache: marshal vector: %w", err)
		}
		pipe.Set(ctx, c.key(session, h), data, c.config.TTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate 通过 SCAN 查找会话下的键并删除。
func (c *RedisEmbeddingCache) Invalidate(ctx context.Context, session string) (int, error) {
	iter := c.redis.Scan(ctx, 0, c.key(session, "*"), 256).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

type memoryEntry struct {
	session string
	vector  []float32
}

// MemoryEmbeddingCache 进程内会话向量缓存，未配置 Redis 时使用。
type MemoryEmbeddingCache struct {
	store *cache.MemoryCache[string, memoryEntry]
}

// NewMemoryEmbeddingCache 创建进程内缓存。
func NewMemoryEmbeddingCache() *MemoryEmbeddingCache {
	store := cache.NewMemoryCache[string, memoryEntry]()
	store.AddIndex("session", func(e memoryEntry) any { return e.session })
	return &MemoryEmbeddingCache{store: store}
}

// Name 返回缓存后端名称。
func (c *MemoryEmbeddingCache) Name() string { return "memory" }

// Get 读取向量。
func (c *MemoryEmbeddingCache) Get(_ context.Context, session string, hashes []string) ([][]float32, error) {
	out := make([][]float32, len(hashes))
	for i, h := range hashes {
		if e, ok := c.store.Get(session + ":" + h); ok {
			out[i] = e.vector
		}
	}
	return out, nil
}

// Set 写入向量。
func (c *MemoryEmbeddingCache) Set(_ context.Context, session string, hashes []string, vectors [][]float32) error {
	if len(hashes) != len(vectors) {
		return fmt.Errorf("embedding cache: %d hashes for %d vectors", len(hashes), len(vectors))
	}
	for i, h := range hashes {
		c.store.Set(session+":"+h, memoryEntry{session: session, vector: vectors[i]})
	}
	return nil
}

// Invalidate 删除会话下的全部条目。
func (c *MemoryEmbeddingCache) Invalidate(_ context.Context, session string) (int, error) {
	return c.store.DeleteByIndex("session", session)
}

// Len 返回条目总数。
func (c *MemoryEmbeddingCache) Len() int {
	return c.store.Len()
}

// CachedEmbeddingProvider 为 Embedding 供应商增加会话级缓存和分批调用。
type CachedEmbeddingProvider struct {
	provider    EmbeddingProvider
	cache       EmbeddingCache
	batchSize   int
	callTimeout time.Duration
}

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。
// batchSize <= 0 表示所有未命中文本一次请求。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, c EmbeddingCache, batchSize int) *CachedEmbeddingProvider {
	if c == nil {
		c = NewMemoryEmbeddingCache()
	}
	return &CachedEmbeddingProvider{provider: provider, cache: c, batchSize: batchSize}
}

// WithCallTimeout 设置单次后端请求（一个批次）的超时，0 表示不限制。
func (c *CachedEmbeddingProvider) WithCallTimeout(d time.Duration) *CachedEmbeddingProvider {
	c.callTimeout = d
	return c
}

// Name 返回底层 provider 的名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name()
}

// Cache 返回缓存后端。
func (c *CachedEmbeddingProvider) Cache() EmbeddingCache {
	return c.cache
}

// EmbedSession 为 session 下的文本生成向量。
// 命中缓存的文本不再请求后端；缓存读写失败只记录日志。
// 后端返回数量与输入不一致时返回错误，不会用零向量补位。
func (c *CachedEmbeddingProvider) EmbedSession(ctx context.Context, session string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	hashes := make([]string, len(texts))
	for i, t := range texts {
		hashes[i] = ContentHash(t)
	}

	embeddings, err := c.cache.Get(ctx, session, hashes)
	if err != nil {
		logger.Warnw("embedding cache read failed, falling back to provider", "error", err.Error())
		embeddings = make([][]float32, len(texts))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range embeddings {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}

	logger.Debugw("embedding cache lookup",
		"session", session,
		"total", len(texts),
		"misses", len(missTexts),
	)
	if len(missTexts) == 0 {
		return embeddings, nil
	}

	vectors, err := c.embedBatched(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	missHashes := make([]string, len(missIdx))
	for j, idx := range missIdx {
		embeddings[idx] = vectors[j]
		missHashes[j] = hashes[idx]
	}

	if err := c.cache.Set(ctx, session, missHashes, vectors); err != nil {
		logger.Warnw("failed to cache embeddings", "error", err.Error(), "count", len(vectors))
	}
	return embeddings, nil
}

func (c *CachedEmbeddingProvider) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	size := c.batchSize
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch := texts[start:end]

		vectors, err := c.embedOnce(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", c.provider.Name(), len(vectors), len(batch))
		}
		for i, v := range vectors {
			if len(v) == 0 {
				return nil, fmt.Errorf("%s returned an empty embedding at index %d", c.provider.Name(), start+i)
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *CachedEmbeddingProvider) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.provider.Embed(ctx, batch)
}

// Invalidate 丢弃 session 的缓存。
func (c *CachedEmbeddingProvider) Invalidate(ctx context.Context, session string) (int, error) {
	return c.cache.Invalidate(ctx, session)
}

var (
	_ EmbeddingCache = (*RedisEmbeddingCache)(nil)
	_ EmbeddingCache = (*MemoryEmbeddingCache)(nil)
)
