package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/metrics"
	"github.com/fonsecaaso/tinylink/internal/model"
)

// RateLimiter caps how many links each client may create or delete per window.
// Reads are never limited so dashboards can list and refresh freely.
type RateLimiter struct {
	mu       sync.RWMutex
	clients  map[string]*mutationWindow
	limit    int
	period   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

type mutationWindow struct {
	used    int
	resetAt time.Time
}

// NewRateLimiter allows limit link mutations per client in every period
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*mutationWindow),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
		logger:  zap.L().With(zap.String("component", "RateLimiter")),
	}

	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects a client's create and delete calls once its budget is spent,
// answering 429 with the API error body and a Retry-After header.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLinkMutation(c.Request.Method) {
			c.Next()
			return
		}

		client := c.ClientIP()
		remaining, wait, ok := rl.take(client)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			seconds := int(math.Ceil(wait.Seconds()))
			metrics.RateLimitedTotal.WithLabelValues(c.Request.Method).Inc()
			rl.logger.Warn("Link mutation rate limited",
				zap.String("ip", client),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("retry_after", seconds),
			)

			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Error: fmt.Sprintf("Too many link changes. Try again in %ds.", seconds),
			})
			return
		}

		c.Next()
	}
}

func isLinkMutation(method string) bool {
	return method == http.MethodPost || method == http.MethodDelete
}

// take spends one unit of client's budget. It returns the budget left and, when
// nothing is left, how long until the window resets.
func (rl *RateLimiter) take(client string) (int, time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[client]
	if !ok || !now.Before(w.resetAt) {
		w = &mutationWindow{resetAt: now.Add(rl.period)}
		rl.clients[client] = w
	}

	if w.used >= rl.limit {
		return 0, w.resetAt.Sub(now), false
	}
	w.used++
	return rl.limit - w.used, 0, true
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.period)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops windows that have already reset
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for client, w := range rl.clients {
		if !now.Before(w.resetAt) {
			delete(rl.clients, client)
		}
	}
}
