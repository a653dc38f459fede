package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merchant-dashboard/internal/config"
)

type stubLimiter struct {
	allowed   bool
	remaining int64
	resetAt   time.Time
	err       error

	used     int64
	usageErr error
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, int64, time.Time, error) {
	return s.allowed, s.remaining, s.resetAt, s.err
}

func (s *stubLimiter) Enabled() bool { return true }

func (s *stubLimiter) Limit() int64 { return 100 }

func (s *stubLimiter) Usage(ctx context.Context, key string) (int64, int64, *time.Time, error) {
	if s.usageErr != nil {
		return 0, 0, nil, s.usageErr
	}
	reset := s.resetAt
	return s.used, s.remaining, &reset, nil
}

func TestRateLimitMiddleware_Allowed(t *testing.T) {
	limiter := &stubLimiter{allowed: true, remaining: 42, resetAt: time.Now().Add(time.Minute)}

	called := false
	handler := RateLimitMiddleware(limiter, newHandlerTestLogger(), func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	if !called || rr.Code != http.StatusOK {
		t.Fatalf("expected request passed through, got code=%d called=%v", rr.Code, called)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "100" || rr.Header().Get("X-RateLimit-Remaining") != "42" {
		t.Fatalf("missing rate limit headers: %v", rr.Header())
	}
}

func TestRateLimitMiddleware_Blocked(t *testing.T) {
	limiter := &stubLimiter{allowed: false, remaining: 0, resetAt: time.Now().Add(time.Minute)}

	handler := RateLimitMiddleware(limiter, newHandlerTestLogger(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called when blocked")
	})

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	called := false
	handler := RateLimitMiddleware(nil, newHandlerTestLogger(), func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	if !called {
		t.Fatal("expected handler called without limiter")
	}
}

func TestRateLimitMiddleware_LimiterError(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}

	handler := RateLimitMiddleware(limiter, newHandlerTestLogger(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called on limiter failure")
	})

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRateLimitHandler_Status(t *testing.T) {
	limiter := &stubLimiter{used: 7, remaining: 93, resetAt: time.Now().Add(time.Minute)}
	cfg := &config.RateLimitConfig{Enabled: true, Requests: 100, WindowSeconds: 60}
	h := NewRateLimitHandler(limiter, newHandlerTestLogger(), cfg)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rate-limit/status", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")

	h.Status(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["enabled"] != true || resp["used"] != float64(7) || resp["key"] != "203.0.113.7" {
		t.Fatalf("unexpected status response: %+v", resp)
	}
}

func TestRateLimitHandler_Status_Disabled(t *testing.T) {
	h := NewRateLimitHandler(nil, newHandlerTestLogger(), &config.RateLimitConfig{Enabled: false})

	rr := httptest.NewRecorder()
	h.Status(rr, httptest.NewRequest(http.MethodGet, "/api/rate-limit/status", nil))

	var resp map[string]interface{}
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp["enabled"] != false {
		t.Fatalf("expected disabled status, got %+v", resp)
	}
}
