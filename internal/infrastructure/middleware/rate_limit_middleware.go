package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"experiencehub/pkg/config"
)

// rateLimiterStore keeps per-key limiters; idle keys expire.
type rateLimiterStore struct {
	limiters  *cache.Cache
	rate      rate.Limit
	burstSize int
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  cache.New(10*time.Minute, 5*time.Minute),
		rate:      r,
		burstSize: burst,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	if v, found := s.limiters.Get(key); found {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(s.rate, s.burstSize)
	if err := s.limiters.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// lost the race; use the winner
		if v, found := s.limiters.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func passThrough(c *gin.Context) {
	c.Next()
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	store := newRateLimiterStore(rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond), cfg.RateLimiting.HTTP.Burst)

	var globalSem chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		globalSem = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if globalSem != nil {
			select {
			case globalSem <- struct{}{}:
				defer func() { <-globalSem }()
			default:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "too many concurrent requests",
				})
				return
			}
		}

		if !store.getLimiter(clientIP(c.Request)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 1,
			})
			return
		}
		c.Next()
	}
}

// NewWebSocketRateLimitMiddleware limits connection attempts per IP and the
// number of sockets open at once. The socket handler blocks for the life of
// the connection, so the concurrency slot is held until disconnect.
func NewWebSocketRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	var store *rateLimiterStore
	if perMinute := cfg.RateLimiting.WebSocket.ConnectionsPerMinute; perMinute > 0 {
		store = newRateLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}

	var connSem chan struct{}
	if cfg.RateLimiting.WebSocket.MaxConcurrent > 0 {
		connSem = make(chan struct{}, cfg.RateLimiting.WebSocket.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if store != nil && !store.getLimiter(clientIP(c.Request)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many connection attempts",
			})
			return
		}

		if connSem != nil {
			select {
			case connSem <- struct{}{}:
				defer func() { <-connSem }()
			default:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "too many open connections",
				})
				return
			}
		}
		c.Next()
	}
}
