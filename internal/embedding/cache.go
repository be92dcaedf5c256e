package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VectorCache stores embedding vectors by key. GetMany returns a slice
// aligned with keys holding nil for every miss.
type VectorCache interface {
	GetMany(ctx context.Context, keys []string) ([][]float64, error)
	SetMany(ctx context.Context, keys []string, vectors [][]float64) error
}

// RedisCache keeps vectors in Redis as JSON arrays
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps a Redis client. Keys are namespaced by prefix.
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "ats:emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient parses url and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// GetMany implements VectorCache
func (c *RedisCache) GetMany(ctx context.Context, keys []string) ([][]float64, error) {
	out := make([][]float64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	values, err := c.client.MGet(ctx, full...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis MGET failed: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float64
		if json.Unmarshal([]byte(s), &vec) == nil && len(vec) > 0 {
			out[i] = vec
		}
	}
	return out, nil
}

// SetMany implements VectorCache
func (c *RedisCache) SetMany(ctx context.Context, keys []string, vectors [][]float64) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("cache set: %d keys for %d vectors", len(keys), len(vectors))
	}
	pipe := c.client.Pipeline()
	for i, k := range keys {
		data, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("failed to encode vector: %w", err)
		}
		pipe.Set(ctx, c.prefix+k, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// CachedProvider serves embeddings from a VectorCache and only sends misses
// to the wrapped provider. Cache failures degrade to uncached calls.
type CachedProvider struct {
	inner     Provider
	cache     VectorCache
	namespace string
	logger    *zap.Logger
}

// NewCachedProvider decorates inner with cache. Keys include the provider
// name and, for Modeled providers, the model, so switching models never
// serves stale vectors.
func NewCachedProvider(inner Provider, cache VectorCache, logger *zap.Logger) *CachedProvider {
	namespace := inner.Name()
	if m, ok := inner.(Modeled); ok && m.Model() != "" {
		namespace += "/" + m.Model()
	}
	return &CachedProvider{
		inner:     inner,
		cache:     cache,
		namespace: namespace,
		logger:    logging.WithFields(logger, zap.String(logging.FieldProvider, inner.Name())),
	}
}

// Name reports the wrapped provider's name
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Embed implements Provider
func (p *CachedProvider) Embed(ctx context.Context, texts []string, kind Kind) ([][]float64, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = cacheKey(p.namespace, kind, t)
	}

	cached, err := p.cache.GetMany(ctx, keys)
	if err != nil {
		p.logger.Warn("embedding cache read failed", zap.Error(err))
		cached = make([][]float64, len(texts))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range cached {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missIdx) == 0 {
		p.logger.Debug("embedding cache hit", zap.Int("count", len(texts)))
		return cached, nil
	}

	fresh, err := p.inner.Embed(ctx, missTexts, kind)
	if err != nil {
		return nil, err
	}
	if _, err := CheckVectors(p.inner.Name(), fresh, len(missTexts)); err != nil {
		return nil, err
	}

	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		cached[i] = fresh[j]
		missKeys[j] = keys[i]
	}
	if err := p.cache.SetMany(ctx, missKeys, fresh); err != nil {
		p.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	p.logger.Debug("embedding cache filled",
		zap.Int("hits", len(texts)-len(missIdx)),
		zap.Int("misses", len(missIdx)))
	return cached, nil
}

func cacheKey(namespace string, kind Kind, text string) string {
	sum := sha256.Sum256([]byte(text))
	return namespace + ":" + string(kind) + ":" + hex.EncodeToString(sum[:])
}
