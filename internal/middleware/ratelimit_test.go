package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerMinute != 200 {
		t.Errorf("RequestsPerMinute = %d, want 200", cfg.RequestsPerMinute)
	}
	if cfg.BurstSize != 50 {
		t.Errorf("BurstSize = %d, want 50", cfg.BurstSize)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}

func TestPushRateLimitConfig(t *testing.T) {
	cfg := PushRateLimitConfig()
	if cfg.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", cfg.RequestsPerMinute)
	}
	if cfg.BurstSize != 5 {
		t.Errorf("BurstSize = %d, want 5", cfg.BurstSize)
	}
}

func newTestLimiter(rpm, burst int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: rpm,
		BurstSize:         burst,
		CleanupInterval:   time.Hour, // don't clean up during tests
	})
}

func TestRateLimiter_NewClientGetsFullBurst(t *testing.T) {
	rl := newTestLimiter(60, 5)
	defer rl.Stop()

	if !rl.Allow("client-a") {
		t.Error("Allow() = false for new client, want true")
	}
}

func TestRateLimiter_AllowsUpToBurstSize(t *testing.T) {
	burst := 3
	rl := newTestLimiter(1, burst) // negligible refill during the test
	defer rl.Stop()

	key := "burst-test"
	for i := 0; i < burst; i++ {
		if !rl.Allow(key) {
			t.Fatalf("Allow() call %d = false, want true within burst", i+1)
		}
	}
	if rl.Allow(key) {
		t.Error("Allow() = true after burst exhausted, want false")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(1, 1)
	defer rl.Stop()

	if !rl.Allow("client-a") {
		t.Fatal("Allow(client-a) = false, want true")
	}
	if rl.Allow("client-a") {
		t.Error("Allow(client-a) = true after exhaustion, want false")
	}
	if !rl.Allow("client-b") {
		t.Error("Allow(client-b) = false, want true (separate bucket)")
	}
}

func TestRateLimiter_RemainingTokensForNewKey(t *testing.T) {
	rl := newTestLimiter(60, 7)
	defer rl.Stop()

	if got := rl.RemainingTokens("never-seen"); got != 7 {
		t.Errorf("RemainingTokens() = %d, want full burst 7", got)
	}
}

func newRateLimitRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit_AllowsAndThenRejects(t *testing.T) {
	rl := newTestLimiter(1, 1)
	defer rl.Stop()
	r := newRateLimitRouter(rl)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header on allowed response")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want %q", w.Header().Get("Retry-After"), "60")
	}
}

func TestRateLimitKey_PrefersUserID(t *testing.T) {
	rl := newTestLimiter(1, 1)
	defer rl.Stop()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "u-123")
	})
	r.Use(RateLimit(rl))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if rl.RemainingTokens("user:u-123") != 0 {
		t.Error("expected the user-keyed bucket to be consumed")
	}
}
