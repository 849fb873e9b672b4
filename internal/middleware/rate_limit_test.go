package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sessionRequest(sessionID string) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	session := &models.Session{ID: sessionID, AccountID: "acct-1", TenantID: "tenant-1"}
	return req.WithContext(auth.ContextWithSession(req.Context(), session))
}

// TestRateLimitByIP_EnforcesLimit verifies the login limit of 5 requests per minute
func TestRateLimitByIP_EnforcesLimit(t *testing.T) {
	handler := RateLimitByIP(DefaultAuthRateLimit())(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "192.168.1.1:8080"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Errorf("request %d failed with status %d, expected 200", i+1, recorder.Code)
		}
	}

	// 6th request should be rate limited
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d (too many requests), got %d", http.StatusTooManyRequests, recorder.Code)
	}
}

// TestRateLimitByIP_Returns429JSON verifies the 429 response format
func TestRateLimitByIP_Returns429JSON(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("first request failed with status %d", recorder.Code)
	}

	req = httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", recorder.Code)
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}
	if body := recorder.Body.String(); body != `{"error":"Rate limit exceeded"}` {
		t.Errorf("unexpected response body: %s", body)
	}
}

// TestRateLimitBySession_EnforcesLimit verifies the per-session limit
func TestRateLimitBySession_EnforcesLimit(t *testing.T) {
	handler := RateLimitBySession(RateLimitConfig{RequestsPerMinute: 10})(okHandler())

	for i := 0; i < 10; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, sessionRequest("sess-limit-test"))
		if recorder.Code != http.StatusOK {
			t.Errorf("request %d failed with status %d, expected 200", i+1, recorder.Code)
		}
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, sessionRequest("sess-limit-test"))
	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d (too many requests), got %d", http.StatusTooManyRequests, recorder.Code)
	}
}

// TestRateLimitBySession_IsolatesSessionBuckets verifies separate limits per session
func TestRateLimitBySession_IsolatesSessionBuckets(t *testing.T) {
	handler := RateLimitBySession(RateLimitConfig{RequestsPerMinute: 5})(okHandler())

	// Session A hits its limit
	for i := 0; i < 5; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, sessionRequest("sess-a"))
		if recorder.Code != http.StatusOK {
			t.Errorf("session A request %d failed", i+1)
		}
	}

	// Session B should still be able to make requests (independent bucket)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, sessionRequest("sess-b"))
	if recorder.Code != http.StatusOK {
		t.Errorf("session B should have independent rate limit, got status %d", recorder.Code)
	}
}

// TestRateLimitBySession_FallbackToIPWhenNoSession verifies fallback to IP-based keying
func TestRateLimitBySession_FallbackToIPWhenNoSession(t *testing.T) {
	handler := RateLimitBySession(RateLimitConfig{RequestsPerMinute: 5})(okHandler())

	// No session in context - should fall back to IP
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.Code)
	}
}
