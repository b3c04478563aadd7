package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

type Logger interface {
	Error(msg string, args ...interface{})
}

// Algorithm selects the limiting strategy.
type Algorithm string

const (
	// AlgorithmTokenBucket smooths bursts; used for the router-wide default.
	AlgorithmTokenBucket Algorithm = "token_bucket"
	// AlgorithmFixedWindow counts requests against discrete window boundaries;
	// used for signup intake where the contract is "N requests per window".
	AlgorithmFixedWindow Algorithm = "fixed_window"
)

// RateLimiter is the keyed-counter capability injected into route handlers.
// Implementations decide where the counters live (process memory or Redis).
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(key string) (bool, error)
	Close() error
}

// TokenBucketRateLimiter implements per-key token bucket limiting for single instances.
type TokenBucketRateLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	ops      uint64
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewTokenBucketRateLimiter(requests int, window time.Duration) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*keyedLimiter),
	}
}

func (r *TokenBucketRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *TokenBucketRateLimiter) IsLimited(key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.limiters[key]
	if !ok {
		rps := float64(r.requests) / r.window.Seconds()
		k = &keyedLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rps), r.requests),
			lastSeen: now,
		}
		r.limiters[key] = k
	} else {
		k.lastSeen = now
	}

	r.ops++
	if r.ops%1024 == 0 {
		r.evictStale(now.Add(-2 * r.window))
	}

	return !k.limiter.Allow(), nil
}

func (r *TokenBucketRateLimiter) evictStale(cutoff time.Time) {
	for key, k := range r.limiters {
		if k.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
}

func (r *TokenBucketRateLimiter) Close() error {
	return nil
}

// FixedWindowRateLimiter counts requests per key against discrete windows.
// On the first request for a key, or after the window expires, the count
// resets to 1 and a new window opens. A request at the limit is rejected
// without incrementing, so rejected requests never extend the block.
type FixedWindowRateLimiter struct {
	requests int
	window   time.Duration

	mu      sync.Mutex
	records map[string]*windowRecord
	ops     uint64

	// now is swappable so tests can step across window boundaries.
	now func() time.Time
}

type windowRecord struct {
	count     int
	resetTime time.Time
}

func NewFixedWindowRateLimiter(requests int, window time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		requests: requests,
		window:   window,
		records:  make(map[string]*windowRecord),
		now:      time.Now,
	}
}

func (r *FixedWindowRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *FixedWindowRateLimiter) IsLimited(key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok || now.After(rec.resetTime) {
		r.records[key] = &windowRecord{count: 1, resetTime: now.Add(r.window)}
	} else if rec.count >= r.requests {
		return true, nil
	} else {
		rec.count++
	}

	// Opportunistic eviction of expired windows so the key set does not grow
	// unbounded over the process lifetime.
	r.ops++
	if r.ops%1024 == 0 {
		for k, v := range r.records {
			if now.After(v.resetTime) {
				delete(r.records, k)
			}
		}
	}

	return false, nil
}

func (r *FixedWindowRateLimiter) Close() error {
	return nil
}

// RedisFixedWindowRateLimiter shares one fixed-window counter per key across
// instances, so the effective limit stays N rather than N x instance count.
type RedisFixedWindowRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
}

// NewRedisFixedWindowRateLimiter builds a Redis-backed limiter whose counters
// live under "ratelimit:<scope>:". Several limiters see the same client key
// (the router passes one derived address to whichever limiter it selects), so
// the scope keeps their counters and window TTLs from colliding.
func NewRedisFixedWindowRateLimiter(client *redis.Client, requests int, window time.Duration, scope string, logger Logger) *RedisFixedWindowRateLimiter {
	keyPrefix := "ratelimit:"
	if scope != "" {
		keyPrefix = "ratelimit:" + scope + ":"
	}

	return &RedisFixedWindowRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

func (r *RedisFixedWindowRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisFixedWindowRateLimiter) IsLimited(key string) (bool, error) {
	ctx := context.Background()
	fullKey := r.keyPrefix + key

	// Atomic fixed-window counter. The window opens when the key is first
	// incremented and closes when the TTL expires; a request at the limit is
	// rejected without incrementing.
	script := `
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local count = tonumber(redis.call('GET', key) or '0')
		if count >= limit then
			return 1 -- Rate limited
		end

		count = redis.call('INCR', key)
		if count == 1 then
			redis.call('PEXPIRE', key, window)
		end

		return 0 -- Not rate limited
	`

	result, err := r.client.Eval(ctx, script, []string{fullKey}, r.requests, r.window.Milliseconds()).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		// Return error instead of silently allowing: limiting is a security control.
		return false, fmt.Errorf("rate limiter Redis error: %w", err)
	}
	return result.(int64) == 1, nil
}

// The Redis client is owned by the ApplicationConfig and closed there
func (r *RedisFixedWindowRateLimiter) Close() error {
	return nil
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	Algorithm Algorithm     // Defaults to token bucket
	Redis     *redis.Client // Optional, if nil uses in-memory
	Scope     string        // Namespaces Redis counters; in-memory limiters isolate per instance
	Logger    Logger        // Optional logger for Redis operations
}

// NewRateLimiter creates a rate limiter based on configuration
func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Algorithm == AlgorithmFixedWindow {
		if config.Redis != nil {
			return NewRedisFixedWindowRateLimiter(config.Redis, config.Requests, config.Window, config.Scope, config.Logger)
		}
		return NewFixedWindowRateLimiter(config.Requests, config.Window)
	}

	if config.Redis != nil {
		return NewRedisFixedWindowRateLimiter(config.Redis, config.Requests, config.Window, config.Scope, config.Logger)
	}
	return NewTokenBucketRateLimiter(config.Requests, config.Window)
}
