package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-invitations/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-invitations/pkg/redis"
	"github.com/prohmpiriya/event-invitations/pkg/response"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Tokens refilled per second per client IP
	RequestsPerSecond int
	// Token bucket capacity
	BurstSize int
	// RedisClient enables the distributed limiter when non-nil
	RedisClient     *pkgredis.Client
	KeyPrefix       string
	CleanupInterval time.Duration
	EntryTTL        time.Duration
}

// DefaultRateLimitConfig returns defaults suited to credential endpoints
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		KeyPrefix:         "ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	}
}

type rateLimitEntry struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// LocalRateLimiter is an in-memory token bucket per key
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	stop    chan struct{}
	now     func() time.Time
}

// NewLocalRateLimiter starts the stale-entry cleanup goroutine
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = time.Minute
	}
	rl := &LocalRateLimiter{config: config, stop: make(chan struct{}), now: time.Now}
	go rl.cleanup()
	return rl
}

// Allow consumes one token for key if available
func (rl *LocalRateLimiter) Allow(key string) bool {
	now := rl.now()
	v, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	e := v.(*rateLimitEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastUpdate).Seconds()
	e.tokens = min(float64(rl.config.BurstSize), e.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	e.lastUpdate = now

	if e.tokens >= 1 {
		e.tokens--
		return true
	}
	return false
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value interface{}) bool {
				e := value.(*rateLimitEntry)
				e.mu.Lock()
				if e.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				e.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	close(rl.stop)
}

const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

tokens = math.min(burst, tokens + (now - last_update) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return allowed
`

// RedisRateLimiter shares buckets across instances through a Lua script
type RedisRateLimiter struct {
	config RateLimitConfig
}

func NewRedisRateLimiter(config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{config: config}
}

// Allow consumes one token for key in Redis
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := rl.config.RedisClient.Eval(ctx, tokenBucketScript,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond, rl.config.BurstSize, now,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}
	return res == 1, nil
}

// RateLimiter limits requests per client IP; Redis failures fail open
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	var (
		local  *LocalRateLimiter
		remote *RedisRateLimiter
	)
	if config.RedisClient != nil {
		remote = NewRedisRateLimiter(config)
	} else {
		local = NewLocalRateLimiter(config)
	}

	return func(c *gin.Context) {
		key := c.ClientIP()

		var allowed bool
		if remote != nil {
			var err error
			allowed, err = remote.Allow(c.Request.Context(), key)
			if err != nil {
				logger.Get().WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
				allowed = true
			}
		} else {
			allowed = local.Allow(key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerSecond))
		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.TooManyRequests(""))
			return
		}

		c.Next()
	}
}
