package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MereWhiplash/aria/internal/api"
	"github.com/MereWhiplash/aria/internal/apitypes"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCallerContext(t *testing.T) {
	var capturedUser, capturedOrg string

	handler := api.CallerContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUser = api.GetUserID(r.Context())
		capturedOrg = api.GetOrgID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(apitypes.HeaderUserID, "user-1")
	req.Header.Set(apitypes.HeaderOrgID, " org-9 ")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if capturedUser != "user-1" {
		t.Errorf("expected user 'user-1', got %q", capturedUser)
	}
	if capturedOrg != "org-9" {
		t.Errorf("expected org 'org-9', got %q", capturedOrg)
	}
}

func TestCallerContext_MissingHeaders(t *testing.T) {
	var capturedUser string

	handler := api.CallerContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUser = api.GetUserID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if capturedUser != "" {
		t.Errorf("expected empty user, got %q", capturedUser)
	}
}

func TestRequestID(t *testing.T) {
	var captured string
	handler := api.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = api.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(apitypes.HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured != "abc-123" || rr.Header().Get(apitypes.HeaderRequestID) != "abc-123" {
		t.Errorf("expected incoming ID to be reused, got %q / %q", captured, rr.Header().Get(apitypes.HeaderRequestID))
	}

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(apitypes.HeaderRequestID, strings.Repeat("x", 65))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if len(captured) != 36 {
		t.Errorf("expected generated UUID for oversized ID, got %q", captured)
	}
}

func TestMaxBodySize(t *testing.T) {
	ts := setupTestServer(t)

	body := `{"title":"big","category":"c","content":"` + strings.Repeat("a", api.MaxRequestBytes) + `"}`
	req := httptest.NewRequest("POST", "/rag/ingest", strings.NewReader(body))
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := api.CORSMiddleware([]string{"https://app.example.com"})(okHandler)

	req := httptest.NewRequest("OPTIONS", "/rag/query", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("expected allowed origin, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS headers for unlisted origin")
	}
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	handler := api.CORSMiddleware([]string{"*"})(okHandler)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://any.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://any.example.com" {
		t.Errorf("expected origin echoed, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRateLimiter(t *testing.T) {
	rl := api.NewRateLimiter(2, time.Minute)
	handler := rl.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/rag/query", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)

		if i == 2 && rr.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After on limited response")
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 200,200,429, got %v", codes)
	}

	// a different client has its own bucket
	req := httptest.NewRequest("POST", "/rag/query", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 for second client, got %d", rr.Code)
	}
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	rl := api.NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(okHandler)

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest("GET", "/rag/documents", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 49 {
		t.Errorf("expected 49 of 50 requests limited by connection address, got %d", limited)
	}
}

func TestRateLimiter_TrustProxyHeaders(t *testing.T) {
	rl := api.NewRateLimiter(1, time.Minute)
	rl.TrustProxyHeaders = true
	handler := rl.Middleware(okHandler)

	send := func(xff, realIP string) int {
		req := httptest.NewRequest("GET", "/rag/documents", nil)
		req.RemoteAddr = "192.168.1.1:80"
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		if realIP != "" {
			req.Header.Set("X-Real-IP", realIP)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("1.1.1.1, 10.0.0.1", ""); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if code := send("2.2.2.2", ""); code != http.StatusOK {
		t.Errorf("expected 200 for different forwarded client, got %d", code)
	}
	if code := send("1.1.1.1", ""); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
	if code := send("", "3.3.3.3"); code != http.StatusOK {
		t.Errorf("expected 200 for X-Real-IP client, got %d", code)
	}
	if code := send("", "3.3.3.3"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for repeated X-Real-IP client, got %d", code)
	}
}

func TestRateLimiter_JSONBody(t *testing.T) {
	rl := api.NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(okHandler)

	var rr *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/rag/query", nil)
		req.RemoteAddr = "10.9.9.9:1234"
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	}

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var resp apitypes.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("429 body is not JSON: %v", err)
	}
	if resp.Error != "rate limit exceeded" {
		t.Errorf("unexpected error %q", resp.Error)
	}
}

func TestRateLimiter_HealthExempt(t *testing.T) {
	rl := api.NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(okHandler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 for /health, got %d", i, rr.Code)
		}
	}
}

type failingStore struct{}

func (failingStore) Allow(ctx context.Context, key string) (api.Decision, error) {
	return api.Decision{}, errors.New("connection refused")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl := api.NewRateLimiterWithStore(failingStore{}, nil)
	handler := rl.Middleware(okHandler)

	req := httptest.NewRequest("POST", "/rag/ingest", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected request to pass when store fails, got %d", rr.Code)
	}
}

func TestRouter_RateLimited(t *testing.T) {
	ts := setupTestServer(t, api.RouterConfig{RateLimiter: api.NewRateLimiter(1, time.Minute)})
	h := ts.h

	req := httptest.NewRequest("GET", "/wizard/steps", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("expected limit header, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/wizard/steps", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rr.Code)
	}
}
