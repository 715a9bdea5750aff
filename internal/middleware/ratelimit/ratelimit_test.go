package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(Config{Requests: 2, Period: time.Minute})
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests must pass")
	}
	if l.Allow("a") {
		t.Fatal("third request in the window must be rejected")
	}
	if !l.Allow("b") {
		t.Fatal("clients are limited independently")
	}

	now = now.Add(time.Minute)
	if !l.Allow("a") {
		t.Fatal("a new window must reset the counter")
	}
}

func TestSweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(Config{Requests: 5, Period: time.Minute})
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(30 * time.Second)
	l.Allow("b")
	now = now.Add(40 * time.Second)

	if got := l.Sweep(); got != 1 {
		t.Errorf("Sweep() = %d, want 1", got)
	}
	if got := l.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	l := NewLimiter(Config{Requests: 1, Period: time.Minute})
	h := l.Middleware(func(r *http.Request) string { return "client" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}
