package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitAlgorithm selects the limiter implementation
type RateLimitAlgorithm string

const (
	TokenBucket RateLimitAlgorithm = "token_bucket"
	FixedWindow RateLimitAlgorithm = "fixed_window"
)

// RateLimitType selects what the limit is keyed on
type RateLimitType string

const (
	RateLimitByIP   RateLimitType = "ip"
	RateLimitByUser RateLimitType = "user"
)

// RateLimitConfig configures one limiter rule
type RateLimitConfig struct {
	Limit     int
	Window    int // seconds
	Algorithm RateLimitAlgorithm
	Type      RateLimitType
	KeyFunc   func(*gin.Context) string
}

// RateLimitResult is the outcome of one limiter check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   int64
	Limit     int
}

// RateLimiter checks whether a request may pass
type RateLimiter interface {
	Allow(ctx context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error)
}

// Counting runs inside Redis so it stays atomic across API replicas.
var (
	tokenBucketScript = redis.NewScript(`
		local state = redis.call('HMGET', KEYS[1], 't', 'ts')
		local capacity = tonumber(ARGV[1])
		local rate = tonumber(ARGV[2])
		local now = tonumber(ARGV[3])

		local tokens = tonumber(state[1]) or capacity
		local last = tonumber(state[2]) or now
		tokens = math.min(capacity, tokens + (now - last) * rate)

		local ok = 0
		if tokens >= 1 then
			ok = 1
			tokens = tokens - 1
		end

		redis.call('HMSET', KEYS[1], 't', tokens, 'ts', now)
		redis.call('EXPIRE', KEYS[1], math.ceil(capacity / rate) + 1)
		return {ok, math.floor(tokens)}
	`)

	fixedWindowScript = redis.NewScript(`
		local limit = tonumber(ARGV[1])
		local n = redis.call('INCR', KEYS[1])
		if n == 1 then
			redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
		end
		if n > limit then
			return {0, -1}
		end
		return {1, limit - n}
	`)
)

// RedisRateLimiter evaluates the limiter scripts against Redis.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter creates a Redis-backed limiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Allow checks the request against the configured algorithm
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error) {
	now := time.Now().Unix()

	var raw interface{}
	var err error
	var resetAt int64

	if config.Algorithm == FixedWindow {
		window := now / int64(config.Window)
		redisKey := fmt.Sprintf("tour:rl:win:%s:%d", key, window)
		raw, err = fixedWindowScript.Run(ctx, rl.client, []string{redisKey},
			config.Limit, config.Window+1).Result()
		resetAt = (window + 1) * int64(config.Window)
	} else {
		redisKey := "tour:rl:bucket:" + key
		rate := float64(config.Limit) / float64(config.Window)
		raw, err = tokenBucketScript.Run(ctx, rl.client, []string{redisKey},
			config.Limit, rate, now).Result()
		resetAt = now + int64(config.Window)
	}
	if err != nil {
		return nil, err
	}

	reply := raw.([]interface{})
	return &RateLimitResult{
		Allowed:   reply[0].(int64) == 1,
		Remaining: int(reply[1].(int64)),
		ResetAt:   resetAt,
		Limit:     config.Limit,
	}, nil
}

// RateLimitGroup applies per-path limiter rules with a shared default
type RateLimitGroup struct {
	limiter  RateLimiter
	fallback *RateLimitConfig
	byPath   map[string]*RateLimitConfig
}

// NewRateLimitGroup creates a limiter group with a default rule
func NewRateLimitGroup(limiter RateLimiter, fallback *RateLimitConfig) *RateLimitGroup {
	return &RateLimitGroup{
		limiter:  limiter,
		fallback: fallback,
		byPath:   make(map[string]*RateLimitConfig),
	}
}

// AddSpecificConfig registers a rule for an exact path
func (g *RateLimitGroup) AddSpecificConfig(path string, config *RateLimitConfig) {
	g.byPath[path] = config
}

// Middleware returns the gin middleware applying the group's rules.
// With a nil fallback only the registered paths are limited, so a group
// can sit on an inner route chain without touching the other routes.
// A Redis failure lets the request through: availability over limiting.
func (g *RateLimitGroup) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		config := g.fallback
		if rule, ok := g.byPath[c.Request.URL.Path]; ok {
			config = rule
		}
		if config == nil {
			c.Next()
			return
		}

		result, err := g.limiter.Allow(c.Request.Context(), g.limitKey(c, config), config)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": result.ResetAt - time.Now().Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (g *RateLimitGroup) limitKey(c *gin.Context, config *RateLimitConfig) string {
	if config.KeyFunc != nil {
		return config.KeyFunc(c)
	}

	if config.Type == RateLimitByUser {
		if userID, ok := c.Get(ContextUserID); ok {
			return fmt.Sprintf("user:%v", userID)
		}
		// anonymous callers fall back to IP keying
	}
	return "ip:" + c.ClientIP()
}
