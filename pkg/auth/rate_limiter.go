package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter limits request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter implements token bucket rate limiting. Compiles
// are the expensive operation, so the bucket size should reflect how
// many back-to-back submissions a caller may burst.
type TokenBucketLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucketLimiter creates a token bucket limiter that refills one
// token per refillRate up to maxTokens.
func NewTokenBucketLimiter(maxTokens int, refillRate time.Duration) *TokenBucketLimiter {
	limiter := &TokenBucketLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
	}
	go limiter.cleanup()
	return limiter
}

// Allow takes one token for key, reporting whether one was available.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: l.maxTokens, lastRefill: time.Now()}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	refilled := int(now.Sub(b.lastRefill) / l.refillRate)
	if refilled > 0 {
		b.tokens = min(b.tokens+refilled, l.maxTokens)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Reset drops the bucket for a key.
func (l *TokenBucketLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// cleanup drops buckets idle for over an hour.
func (l *TokenBucketLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, b := range l.buckets {
			b.mu.Lock()
			if now.Sub(b.lastRefill) > time.Hour {
				delete(l.buckets, key)
			}
			b.mu.Unlock()
		}
		l.mu.Unlock()
	}
}

// UserRateLimiter limits compile submissions per authenticated user.
type UserRateLimiter struct {
	limiter RateLimiter
}

// NewUserRateLimiter creates a per-user limiter allowing the given
// number of submissions per minute.
func NewUserRateLimiter(submissionsPerMinute int) *UserRateLimiter {
	if submissionsPerMinute <= 0 {
		submissionsPerMinute = 30
	}
	return &UserRateLimiter{
		limiter: NewTokenBucketLimiter(submissionsPerMinute, time.Minute/time.Duration(submissionsPerMinute)),
	}
}

// Allow checks whether a submission from a user is allowed.
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("user:%s", userID))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
