package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/barqyst/fpl-advisor/internal/platform/ratelimit"
)

func TestRateLimitByClientIP_AllowsThenRejects(t *testing.T) {
	limiter := ratelimit.NewLimiter()
	defer limiter.Close()

	cfg := ratelimit.Config{Name: "test", Max: 2, Window: time.Minute}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitByClientIP(limiter, cfg, next)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/teams/u1", nil)
		req.RemoteAddr = "203.0.113.9:4411"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/teams/u1", nil)
	req.RemoteAddr = "203.0.113.9:4411"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Fatalf("unexpected X-RateLimit-Limit: %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("unexpected X-RateLimit-Remaining: %q", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatalf("expected X-RateLimit-Reset header")
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}

func TestRateLimitByClientIP_IsolatesCallers(t *testing.T) {
	limiter := ratelimit.NewLimiter()
	defer limiter.Close()

	cfg := ratelimit.Config{Name: "test", Max: 1, Window: time.Minute}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitByClientIP(limiter, cfg, next)

	first := httptest.NewRequest(http.MethodGet, "/v1/teams/u1", nil)
	first.RemoteAddr = "203.0.113.9:4411"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first caller: expected 200, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/v1/teams/u1", nil)
	second.Header.Set("X-Forwarded-For", "198.51.100.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second caller: expected 200, got %d", rec.Code)
	}
}

func TestRequireInternalJobToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing configuration", func(t *testing.T) {
		handler := RequireInternalJobToken("", next)
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/resync", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		handler := RequireInternalJobToken("secret", next)
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/resync", nil)
		req.Header.Set("X-Internal-Job-Token", "nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		handler := RequireInternalJobToken("secret", next)
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/resync", nil)
		req.Header.Set("X-Internal-Job-Token", "secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
