package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
)

func newFixedLimiter(t *testing.T) (*RateLimiter, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(PolicyFixed, clk)
	t.Cleanup(rl.Stop)
	return rl, clk
}

func TestFixedWindowAllowsLimitThenBlocks(t *testing.T) {
	rl, _ := newFixedLimiter(t)

	for i := 0; i < PolicyFixed.Limit; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("request over the limit must be blocked")
	}
}

func TestFixedWindowResets(t *testing.T) {
	rl, clk := newFixedLimiter(t)

	for i := 0; i < PolicyFixed.Limit+3; i++ {
		rl.Allow("1.2.3.4")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("still inside the window")
	}

	clk.Advance(PolicyFixed.Window)

	if !rl.Allow("1.2.3.4") {
		t.Fatal("a fresh window must admit requests again")
	}
}

func TestClientsAreIndependent(t *testing.T) {
	rl, _ := newFixedLimiter(t)

	for i := 0; i < PolicyFixed.Limit; i++ {
		rl.Allow("1.2.3.4")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("first client should be blocked")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("second client must be unaffected")
	}
}

func TestBlockPolicyIsStricter(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(PolicyBlock, clk)
	defer rl.Stop()

	for i := 0; i < PolicyBlock.Limit; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("sixth credential attempt must be blocked")
	}

	// Still blocked just before the window ends.
	clk.Advance(PolicyBlock.Window - time.Second)
	if rl.Allow("1.2.3.4") {
		t.Fatal("window has not elapsed yet")
	}

	clk.Advance(2 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("block must lift after the window")
	}
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	rl, _ := newFixedLimiter(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.Middleware()(next)

	var last int
	for i := 0; i < PolicyFixed.Limit+1; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("final status = %d, want 429", last)
	}
}

func TestRoutePolicySelection(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rrl := NewRouteRateLimiter(clk)
	defer rrl.Stop()

	cases := []struct {
		path string
		want *RateLimiter
	}{
		{"/api/auth/login", rrl.block},
		{"/api/auth/register", rrl.block},
		{"/api/auth/refresh", rrl.block},
		{"/api/auth/logout", rrl.block},
		{"/api/cards", rrl.fixed},
		{"/api/boards", rrl.fixed},
		{"/health", nil},
		{"/metrics", nil},
	}
	for _, c := range cases {
		if got := rrl.limiterForPath(c.path); got != c.want {
			t.Errorf("limiterForPath(%q) picked the wrong policy", c.path)
		}
	}
}
