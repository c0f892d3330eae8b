package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/metrics"
)

const (
	AdminTokenHeader = "X-Admin-Token"

	maxTrackedClients = 1000
	limiterIdleTTL    = 5 * time.Minute
	unmatchedRoute    = "unmatched"
)

// rateLimiter keeps one token bucket per client; idle buckets expire.
type rateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// newRateLimiter returns nil when requestsPerMin is not positive, which disables limiting.
func newRateLimiter(requestsPerMin int) *rateLimiter {
	if requestsPerMin <= 0 {
		return nil
	}
	burst := requestsPerMin / 10
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, limiterIdleTTL),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
	}
}

func (rl *rateLimiter) Allow(key string) error {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters.Add(key, limiter)
	}
	if !limiter.Allow() {
		return appErrors.NewRateLimitedError(key)
	}
	return nil
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		if err := s.limiter.Allow(c.ClientIP()); err != nil {
			c.Header("Retry-After", "60")
			s.abort(c, err)
			return
		}
		c.Next()
	}
}

// observe records request metrics and logs failures.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(elapsed.Seconds())

		if status >= http.StatusInternalServerError {
			s.logger.Error("request failed", map[string]interface{}{
				"route":    route,
				"method":   c.Request.Method,
				"status":   status,
				"duration": elapsed.String(),
				"errors":   c.Errors.String(),
			})
		}
	}
}

func (s *Server) timeout() gin.HandlerFunc {
	d := millisOr(s.cfg.RequestTimeout, 0)
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// adminAuth guards the quotation admin routes when an admin token is configured.
func (s *Server) adminAuth() gin.HandlerFunc {
	token := []byte(s.cfg.AdminToken)
	return func(c *gin.Context) {
		if len(token) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(AdminTokenHeader))
		if subtle.ConstantTimeCompare(got, token) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Admin token required",
			}})
			return
		}
		c.Next()
	}
}
