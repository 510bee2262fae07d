// Package ratelimit provides token bucket limiters built on golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/cache"
)

// Limiter wraps rate.Limiter with per-minute construction.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute, with a burst of 10% of that.
// A non-positive rate disables limiting.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(perMinute(requestsPerMinute), burst),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// RetryAfter reports how long until the next token, without consuming it.
func (l *Limiter) RetryAfter() time.Duration {
	r := l.limiter.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}

// KeyedLimiter keeps an independent Limiter per key, e.g. per client IP.
// Limiters idle for longer than the idle TTL are dropped.
type KeyedLimiter struct {
	rpm     int
	idleTTL time.Duration
	buckets *cache.Cache[string, *Limiter]
}

// NewKeyed creates a KeyedLimiter. Call Close to stop its janitor.
func NewKeyed(requestsPerMinute int, idleTTL time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		rpm:     requestsPerMinute,
		idleTTL: idleTTL,
		buckets: cache.New[string, *Limiter](idleTTL),
	}
}

// Allow consumes a token for key.
func (k *KeyedLimiter) Allow(ctx context.Context, key string) bool {
	return k.get(ctx, key).Allow()
}

// RetryAfter reports the wait before key gets its next token.
func (k *KeyedLimiter) RetryAfter(ctx context.Context, key string) time.Duration {
	return k.get(ctx, key).RetryAfter()
}

// Close stops background eviction.
func (k *KeyedLimiter) Close() {
	k.buckets.Close()
}

func (k *KeyedLimiter) get(ctx context.Context, key string) *Limiter {
	l, ok := k.buckets.Get(ctx, key)
	if !ok {
		l = New(k.rpm)
		if !k.buckets.SetIfAbsent(ctx, key, l, k.idleTTL) {
			if existing, found := k.buckets.Get(ctx, key); found {
				l = existing
			}
		}
	}
	// Refresh idle deadline.
	k.buckets.Set(ctx, key, l, k.idleTTL)
	return l
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}
