package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
)

// TokenBucket is a simple token bucket
type TokenBucket struct {
	rate       float64 // tokens added per second
	capacity   int
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// Allow takes one token if available
func (tb *TokenBucket) Allow() bool {
	return tb.allowAt(time.Now())
}

func (tb *TokenBucket) allowAt(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.lastRefill = now
		tb.tokens += elapsed * tb.rate
		if tb.tokens > float64(tb.capacity) {
			tb.tokens = float64(tb.capacity)
		}
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// idle reports whether the bucket has been unused for at least d
func (tb *TokenBucket) idle(now time.Time, d time.Duration) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return now.Sub(tb.lastRefill) >= d
}

// RateLimiterConfig configures a rate limiter
type RateLimiterConfig struct {
	Rate       float64                   // requests per second
	Burst      int                       // bucket size
	ExpiryTime time.Duration             // idle buckets are dropped after this
	KeyFunc    func(*gin.Context) string // bucket key, client IP by default
	OnLimit    gin.HandlerFunc           // answers rejected requests, 429 by default
}

// DefaultRateLimiterConfig is used for zero fields
var DefaultRateLimiterConfig = RateLimiterConfig{
	Rate:       1,
	Burst:      5,
	ExpiryTime: 10 * time.Minute,
}

// limiterSet holds the buckets of one middleware instance
type limiterSet struct {
	cfg     RateLimiterConfig
	mu      sync.Mutex
	buckets map[string]*TokenBucket
	sweptAt time.Time
}

func (s *limiterSet) bucket(key string, now time.Time) *TokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.sweptAt) >= s.cfg.ExpiryTime {
		for k, b := range s.buckets {
			if b.idle(now, s.cfg.ExpiryTime) {
				delete(s.buckets, k)
			}
		}
		s.sweptAt = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = NewTokenBucket(s.cfg.Rate, s.cfg.Burst)
		s.buckets[key] = b
	}
	return b
}

// RateLimiter returns a middleware with its own set of buckets. Rejected
// requests get 429 and a Retry-After hint.
func RateLimiter(config ...RateLimiterConfig) gin.HandlerFunc {
	cfg := DefaultRateLimiterConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRateLimiterConfig.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimiterConfig.Burst
	}
	if cfg.ExpiryTime <= 0 {
		cfg.ExpiryTime = DefaultRateLimiterConfig.ExpiryTime
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	set := &limiterSet{
		cfg:     cfg,
		buckets: make(map[string]*TokenBucket),
		sweptAt: time.Now(),
	}
	retryAfter := strconv.Itoa(int(1/cfg.Rate) + 1)

	return func(c *gin.Context) {
		if !set.bucket(cfg.KeyFunc(c), time.Now()).Allow() {
			c.Header("Retry-After", retryAfter)
			if cfg.OnLimit != nil {
				cfg.OnLimit(c)
			} else {
				response.Fail(c, code.ErrTooManyRequests, nil)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// IPRateLimiter limits by client IP
func IPRateLimiter(rate float64, burst int) gin.HandlerFunc {
	return RateLimiter(RateLimiterConfig{
		Rate:  rate,
		Burst: burst,
	})
}

// CombinedRateLimiter limits by client IP and path
func CombinedRateLimiter(rate float64, burst int) gin.HandlerFunc {
	return RateLimiter(RateLimiterConfig{
		Rate:  rate,
		Burst: burst,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP() + ":" + c.FullPath()
		},
	})
}

// SenderRateLimiter limits webhook calls by the From form value. Providers
// relay many senders through a few addresses, so the client IP is only the
// fallback key.
func SenderRateLimiter(rate float64, burst int, onLimit gin.HandlerFunc) gin.HandlerFunc {
	return RateLimiter(RateLimiterConfig{
		Rate:  rate,
		Burst: burst,
		KeyFunc: func(c *gin.Context) string {
			if from := strings.TrimSpace(c.PostForm("From")); from != "" {
				return "from:" + from
			}
			return "ip:" + c.ClientIP()
		},
		OnLimit: onLimit,
	})
}
