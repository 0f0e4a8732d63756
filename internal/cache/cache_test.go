package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
)

// unreachableClient returns a redis.Client pointed at a closed local port
// with a short dial timeout, so every call fails fast with a connection
// error -- enough to exercise the error-wrapping paths without a live Redis.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
}

func TestSetSolution_WrapsConnectionErrors(t *testing.T) {
	c := New(unreachableClient(), logrus.New())
	sol := &domain.Solution{RunID: "run-1", Score: 42}

	err := c.SetSolution(context.Background(), "fp-1", sol, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: set solution")
}

func TestGetSolution_WrapsConnectionErrors(t *testing.T) {
	c := New(unreachableClient(), logrus.New())

	_, err := c.GetSolution(context.Background(), "fp-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: get solution")
}

func TestInvalidate_WrapsConnectionErrorsWithFingerprint(t *testing.T) {
	c := New(unreachableClient(), logrus.New())

	err := c.Invalidate(context.Background(), "fp-xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fp-xyz")
}

func TestStatus_DegradesGracefullyWhenRedisIsUnreachable(t *testing.T) {
	c := New(unreachableClient(), logrus.New())

	status := c.Status(context.Background())
	assert.Equal(t, "solution-cache", status["service"])
	_, hasDBSize := status["db_size"]
	assert.False(t, hasDBSize, "db_size should be omitted, not zero-valued, when Redis is unreachable")
}

func TestSetWithRetry_ExhaustsRetriesAndWrapsLastError(t *testing.T) {
	client := unreachableClient()
	err := SetWithRetry(context.Background(), client, "some-key", map[string]int{"a": 1}, time.Minute, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
}
