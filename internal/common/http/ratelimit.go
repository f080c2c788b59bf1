package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

// Policy is a fixed counting window: at most Limit requests per Window, the
// window resetting as a whole rather than sliding. Counters are partitioned
// by client address and the two policies are fully independent.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	// PolicyFixed throttles the general resource surface.
	PolicyFixed = Policy{Name: "fixed", Limit: constants.RateLimitFixedRequests, Window: constants.RateLimitFixedWindow}
	// PolicyBlock throttles credential endpoints much harder.
	PolicyBlock = Policy{Name: "block", Limit: constants.RateLimitBlockRequests, Window: constants.RateLimitBlockWindow}
)

type window struct {
	start time.Time
	count int
}

type RateLimiter struct {
	policy  Policy
	clock   clock.Clock
	windows map[string]*window
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// NewRateLimiter builds a limiter for one policy. Construct at startup and
// pass down; tests substitute a fresh instance with a mock clock.
func NewRateLimiter(policy Policy, clk clock.Clock) *RateLimiter {
	rl := &RateLimiter{
		policy:  policy,
		clock:   clk,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(constants.RateLimitCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropExpired()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) dropExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.policy.Window {
			delete(rl.windows, key)
		}
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.policy.Window {
		rl.windows[key] = &window{start: now, count: 1}
		return true
	}

	w.count++
	return w.count <= rl.policy.Limit
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetClientIP(r)

			if !rl.Allow(key) {
				metrics.RateLimitBlocked.WithLabelValues(r.URL.Path, rl.policy.Name).Inc()
				WriteErrorEnvelope(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", nil, TraceIDFromContext(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RouteRateLimiter picks the active policy per route: credential endpoints
// get the block policy, everything else under /api the fixed policy; health
// and metrics are never throttled.
type RouteRateLimiter struct {
	fixed *RateLimiter
	block *RateLimiter
}

func NewRouteRateLimiter(clk clock.Clock) *RouteRateLimiter {
	return &RouteRateLimiter{
		fixed: NewRateLimiter(PolicyFixed, clk),
		block: NewRateLimiter(PolicyBlock, clk),
	}
}

func (rrl *RouteRateLimiter) Stop() {
	rrl.fixed.Stop()
	rrl.block.Stop()
}

func (rrl *RouteRateLimiter) limiterForPath(path string) *RateLimiter {
	switch path {
	case "/api/auth/register", "/api/auth/login", "/api/auth/refresh", "/api/auth/logout":
		return rrl.block
	case "/health", "/metrics":
		return nil
	default:
		return rrl.fixed
	}
}

func (rrl *RouteRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rrl.limiterForPath(r.URL.Path)
		if limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		limiter.Middleware()(next).ServeHTTP(w, r)
	})
}
