package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/ventil-api/internal/observability"
	"github.com/ksred/ventil-api/pkg/response"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-ID"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client and route. Reads get ten
// times the budget of writes.
type RateLimiter struct {
	mu         sync.Mutex
	visitors   map[string]*visitor
	writeLimit rate.Limit
	readLimit  rate.Limit
	burst      int
	idleAfter  time.Duration
}

// NewRateLimiter allows perMinute writes per client and route. Zero disables
// limiting.
func NewRateLimiter(perMinute float64) *RateLimiter {
	writeLimit := rate.Limit(perMinute / 60.0)
	readLimit := rate.Limit(10 * perMinute / 60.0)
	if perMinute == 0 {
		writeLimit = rate.Inf
		readLimit = rate.Inf
	}
	return &RateLimiter{
		visitors:   make(map[string]*visitor),
		writeLimit: writeLimit,
		readLimit:  readLimit,
		burst:      5,
		idleAfter:  3 * time.Minute,
	}
}

func (rl *RateLimiter) getLimiter(method, path, clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := clientID + ":" + method + ":" + path
	v, exists := rl.visitors[key]

	if !exists {
		limit := rl.writeLimit
		if method == http.MethodGet {
			limit = rl.readLimit
		}

		v = &visitor{
			limiter:  rate.NewLimiter(limit, rl.burst),
			lastSeen: time.Now(),
		}
		rl.visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup forgets idle visitors every minute until ctx is cancelled
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleAfter {
			delete(rl.visitors, key)
		}
	}
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter(c.Request.Method, c.FullPath(), c.ClientIP())
		if !limiter.Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestID propagates the caller's X-Request-ID or mints a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// AccessLog logs each request and records HTTP metrics
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		observability.RecordHTTPRequest(c.Request.Method, path, status, duration)

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("request_id", c.GetString("requestID")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", duration).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
