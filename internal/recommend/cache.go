package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/pkg/models"
)

// envelopeVersion guards the cached payload layout. Entries written by an
// older build deserialize into an envelope with a different version and are
// discarded as a miss instead of being served.
const envelopeVersion = 1

const cacheKeyPrefix = "rec:v1:"

// ResultCacheStore is the storage side of the result cache. Get reports a
// missing entry as ErrCacheMiss; any other error means the store itself is
// unavailable.
type ResultCacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisResultStore backs the result cache with Redis.
type RedisResultStore struct {
	client *redis.Client
}

func NewRedisResultStore(client *redis.Client) *RedisResultStore {
	return &RedisResultStore{client: client}
}

func (s *RedisResultStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return data, nil
}

func (s *RedisResultStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// DeletePrefix removes every key under the prefix with SCAN rather than
// KEYS so invalidation does not block the server.
func (s *RedisResultStore) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache delete: %w", err)
		}
	}
	return nil
}

type cacheEnvelope struct {
	Version   int                          `json:"version"`
	CreatedAt time.Time                    `json:"created_at"`
	Result    *models.RecommendationResult `json:"result"`
}

// Recommender is the computation the cache wraps.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, limit int, sig models.ContextSignature) (*models.RecommendationResult, error)
}

// Explainer renders the reason one product appeared in a user's last
// recommendation set.
type Explainer interface {
	Explain(userID, productID int64) (string, error)
}

// CachedRecommender places a versioned Redis cache in front of a
// Recommender. Concurrent requests for the same key are collapsed into a
// single computation, a failing store degrades to direct computation
// instead of failing the request, and every request runs under the
// configured request timeout.
type CachedRecommender struct {
	next    Recommender
	store   ResultCacheStore
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	logger  *logrus.Logger
}

func NewCachedRecommender(next Recommender, store ResultCacheStore, cfg *config.RecommendationConfig, logger *logrus.Logger) *CachedRecommender {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &CachedRecommender{
		next:    next,
		store:   store,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
	}
}

// cacheKey identifies one cached result by user, requested count and the
// canonical context signature, so the same user sees distinct entries per
// device, season and time bucket.
func cacheKey(userID int64, limit int, sig models.ContextSignature) string {
	return fmt.Sprintf("%s%d:%d:%s", cacheKeyPrefix, userID, limit, sig.Canonical())
}

func userKeyPrefix(userID int64) string {
	return fmt.Sprintf("%s%d:", cacheKeyPrefix, userID)
}

func (c *CachedRecommender) Recommend(ctx context.Context, userID int64, limit int, sig models.ContextSignature) (*models.RecommendationResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer, got %d", ErrInvalidArgument, limit)
	}

	// Cache lookup and recomputation both run under the configured request
	// deadline so a slow store or blend cannot hold the caller open.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := cacheKey(userID, limit, sig)
	if result, ok := c.lookup(ctx, key); ok {
		cacheHits.Inc()
		return result, nil
	}
	cacheMisses.Inc()

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have populated the entry while this one
		// waited on the flight group.
		if result, ok := c.lookup(ctx, key); ok {
			return result, nil
		}
		result, err := c.next.Recommend(ctx, userID, limit, sig)
		if err != nil {
			return nil, err
		}
		c.put(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*models.RecommendationResult), nil
}

func (c *CachedRecommender) lookup(ctx context.Context, key string) (*models.RecommendationResult, bool) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		cacheErrors.Inc()
		c.logger.WithError(err).Warn("Result cache unavailable, computing directly")
		return nil, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Version != envelopeVersion || env.Result == nil {
		return nil, false
	}
	return env.Result, true
}

func (c *CachedRecommender) put(ctx context.Context, key string, result *models.RecommendationResult) {
	env := cacheEnvelope{
		Version:   envelopeVersion,
		CreatedAt: time.Now(),
		Result:    result,
	}
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode cached result")
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		cacheErrors.Inc()
		c.logger.WithError(err).Warn("Failed to store recommendation result in cache")
	}
}

// Invalidate drops every cached entry for one user across all limits and
// context signatures. Invalidating an absent user is a no-op.
func (c *CachedRecommender) Invalidate(ctx context.Context, userID int64) error {
	if err := c.store.DeletePrefix(ctx, userKeyPrefix(userID)); err != nil {
		cacheErrors.Inc()
		return err
	}
	return nil
}

// InvalidateAll clears the whole result cache, typically after a model
// retrain swaps the snapshot.
func (c *CachedRecommender) InvalidateAll(ctx context.Context) error {
	if err := c.store.DeletePrefix(ctx, cacheKeyPrefix); err != nil {
		cacheErrors.Inc()
		return err
	}
	return nil
}
