// Package cache кэширует эмбеддинги в Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"bezbot/metrics"
	"bezbot/model"
)

const sharedEmbedTimeout = 30 * time.Second

// ErrMiss is returned by a KV when the key is absent.
var ErrMiss = errors.New("cache miss")

// KV is the minimal key/value surface the cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV адаптирует go-redis клиент к KV.
type RedisKV struct {
	rdb *redis.Client
}

func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Embedder оборачивает model.Embedder кэшем. Ошибки кэша только логируются.
type Embedder struct {
	next   model.Embedder
	kv     KV
	model  string
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewEmbedder(next model.Embedder, kv KV, modelName string, ttl time.Duration) *Embedder {
	return &Embedder{
		next:   next,
		kv:     kv,
		model:  modelName,
		ttl:    ttl,
		logger: slog.Default(),
	}
}

func (e *Embedder) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + e.model + ":" + hex.EncodeToString(sum[:])
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.Key(text)

	if vec, ok := e.lookup(ctx, key); ok {
		return vec, nil
	}

	// общий вызов не зависит от отмены контекста первого запроса
	ch := e.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedEmbedTimeout)
		defer cancel()
		vec, err := e.next.Embed(shared, text)
		if err != nil {
			return nil, err
		}
		e.store(shared, key, vec)
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

func (e *Embedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := e.kv.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		e.logger.Warn("embedding cache read failed", "error", err)
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) == 0 {
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		e.logger.Warn("embedding cache entry is corrupt", "key", key)
		return nil, false
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
	return vec, true
}

func (e *Embedder) store(ctx context.Context, key string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.kv.Set(ctx, key, data, e.ttl); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
}
