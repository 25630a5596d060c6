package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_AllowsUpToCapacity(t *testing.T) {
	bucket := NewTokenBucket(3, 0.0001) // Negligible refill during the test

	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow(), "the burst capacity is exhausted")
}

func TestTokenBucket_Refills(t *testing.T) {
	bucket := NewTokenBucket(1, 100) // 100 tokens/sec for a fast test

	require.True(t, bucket.Allow())
	require.False(t, bucket.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, bucket.Allow(), "tokens refill over time")
}

func TestTokenBucket_RefillCapsAtCapacity(t *testing.T) {
	bucket := NewTokenBucket(2, 1000)
	time.Sleep(20 * time.Millisecond)

	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow(), "refill never exceeds capacity")
}

func TestTokenBucket_WaitSucceedsWithinDeadline(t *testing.T) {
	bucket := NewTokenBucket(1, 50)
	require.True(t, bucket.Allow())

	ok := bucket.Wait(time.Now().Add(time.Second))
	assert.True(t, ok)
}

func TestTokenBucket_WaitGivesUpPastDeadline(t *testing.T) {
	bucket := NewTokenBucket(1, 0.001)
	require.True(t, bucket.Allow())

	start := time.Now()
	ok := bucket.Wait(time.Now().Add(50 * time.Millisecond))
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLimiter_IsolatesClients(t *testing.T) {
	limiter := NewLimiter(1, 0.0001)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "first client is exhausted")
	assert.True(t, limiter.Allow("10.0.0.2"), "second client has its own bucket")
}
