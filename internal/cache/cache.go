// Package cache caches solve and sensitivity results in Redis, keyed by
// config fingerprint, so that re-submitting an identical request returns
// instantly instead of re-running the MILP. Adapted closely from the
// teacher's pkg/cache.OptimizationCacheService: same JSON-marshal-into-Redis-
// with-TTL shape, same key-prefix convention, same retry-with-backoff helper.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/sensitivity"
)

const (
	solutionPrefix   = "solution:"
	sensitivityPrefix = "sensitivity:"
)

// SolutionCache caches domain.Solution and sensitivity.Summary values in
// Redis, keyed by a config fingerprint (see config.Config.Fingerprint).
type SolutionCache struct {
	client *redis.Client
	logger *logrus.Logger
}

// New creates a SolutionCache over an already-connected redis.Client.
func New(client *redis.Client, logger *logrus.Logger) *SolutionCache {
	return &SolutionCache{client: client, logger: logger}
}

// SetSolution stores a solve result under fingerprint for the given ttl.
func (c *SolutionCache) SetSolution(ctx context.Context, fingerprint string, sol *domain.Solution, ttl time.Duration) error {
	data, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("cache: marshal solution: %w", err)
	}

	key := solutionPrefix + fingerprint
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set solution: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": key,
		"ttl":       ttl,
		"plans":     len(sol.Plans),
	}).Debug("cache: stored solution")
	return nil
}

// GetSolution retrieves a previously cached solve result. A cache miss
// returns (nil, nil), distinguishing "not cached" from a real error.
func (c *SolutionCache) GetSolution(ctx context.Context, fingerprint string) (*domain.Solution, error) {
	key := solutionPrefix + fingerprint
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: get solution: %w", err)
	}

	var sol domain.Solution
	if err := json.Unmarshal([]byte(data), &sol); err != nil {
		return nil, fmt.Errorf("cache: unmarshal solution: %w", err)
	}

	c.logger.WithField("cache_key", key).Debug("cache: hit for solution")
	return &sol, nil
}

// SetSensitivity stores a sensitivity summary under fingerprint.
func (c *SolutionCache) SetSensitivity(ctx context.Context, fingerprint string, summary *sensitivity.Summary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("cache: marshal sensitivity summary: %w", err)
	}

	key := sensitivityPrefix + fingerprint
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set sensitivity summary: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": key,
		"ttl":       ttl,
		"draws":     summary.Draws,
	}).Debug("cache: stored sensitivity summary")
	return nil
}

// GetSensitivity retrieves a previously cached sensitivity summary. A cache
// miss returns (nil, nil).
func (c *SolutionCache) GetSensitivity(ctx context.Context, fingerprint string) (*sensitivity.Summary, error) {
	key := sensitivityPrefix + fingerprint
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: get sensitivity summary: %w", err)
	}

	var summary sensitivity.Summary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("cache: unmarshal sensitivity summary: %w", err)
	}
	return &summary, nil
}

// Invalidate removes any cached solution and sensitivity summary for
// fingerprint, used when the underlying projections data changes.
func (c *SolutionCache) Invalidate(ctx context.Context, fingerprint string) error {
	keys := []string{solutionPrefix + fingerprint, sensitivityPrefix + fingerprint}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", fingerprint, err)
	}
	return nil
}

// Status reports coarse cache occupancy, mirroring the teacher's
// GetStatus admin endpoint.
func (c *SolutionCache) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service":   "solution-cache",
		"timestamp": time.Now(),
	}

	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		status["db_size"] = dbSize
	}

	if keys, err := c.client.Keys(ctx, solutionPrefix+"*").Result(); err == nil {
		status["solution_keys"] = len(keys)
	}
	if keys, err := c.client.Keys(ctx, sensitivityPrefix+"*").Result(); err == nil {
		status["sensitivity_keys"] = len(keys)
	}

	return status
}

// SetWithRetry stores an arbitrary value with a linearly growing delay
// (100ms, 200ms, ...) between attempts, for callers writing to cache off the hot path (e.g. background
// warm-up jobs) where a transient Redis hiccup shouldn't fail the request.
func SetWithRetry(ctx context.Context, client *redis.Client, key string, value interface{}, ttl time.Duration, maxRetries int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
			continue
		}
		return nil
	}
	return fmt.Errorf("cache: set %q after %d retries: %w", key, maxRetries, lastErr)
}
