// Package ratelimit provides rate limiting functionality using the token
// bucket algorithm. It throttles both the HTTP API (per client) and the
// external semantic-judgment calls (one shared bucket).
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket allows a certain number of requests (tokens) per time window,
// with tokens refilling at a steady rate.
type TokenBucket struct {
	capacity   int     // Maximum tokens (burst capacity)
	refillRate float64 // Tokens per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a bucket with the specified capacity and refill rate.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity), // Start with full bucket
		lastRefill: time.Now(),
	}
}

// Allow checks if a token is available and consumes it if so.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait blocks until a token is available or the deadline passes. Returns
// false when it gave up waiting.
func (tb *TokenBucket) Wait(deadline time.Time) bool {
	for {
		if tb.Allow() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(tb.retryInterval())
	}
}

func (tb *TokenBucket) retryInterval() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.refillRate <= 0 {
		return 100 * time.Millisecond
	}
	interval := time.Duration(float64(time.Second) / tb.refillRate)
	if interval > time.Second {
		interval = time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// refill must be called with the mutex held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	tb.lastRefill = now
}

// Limiter manages rate limiting for multiple clients using token buckets.
type Limiter struct {
	buckets    map[string]*TokenBucket
	mu         sync.Mutex
	capacity   int
	refillRate float64
}

// NewLimiter creates a per-key limiter where each key gets its own bucket.
func NewLimiter(capacity int, refillRate float64) *Limiter {
	return &Limiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Allow consumes a token from the key's bucket, creating it on first use.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewTokenBucket(l.capacity, l.refillRate)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}
