package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowPerClient(t *testing.T) {
	l := New(60, 2)

	if !l.Allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
	if !l.Allow("1.2.3.4") {
		t.Error("second request within burst should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Error("third request should exceed the burst")
	}

	// A different client has its own bucket
	if !l.Allow("5.6.7.8") {
		t.Error("fresh client should be allowed")
	}
}

func TestAllowDisabled(t *testing.T) {
	l := New(0, 0)
	if l != nil {
		t.Fatal("perMinute <= 0 should return a nil limiter")
	}
	for i := 0; i < 100; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatal("nil limiter should allow everything")
		}
	}
}

func TestMiddleware(t *testing.T) {
	l := New(60, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("first request status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}

	// Other clients are unaffected
	other := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusNoContent {
		t.Errorf("other client status = %d, want 204", rec.Code)
	}
}

func TestPruneDropsIdleClients(t *testing.T) {
	l := New(60, 1)
	l.Allow("1.2.3.4")
	l.Allow("5.6.7.8")

	l.mu.Lock()
	l.clients["1.2.3.4"].lastSeen = time.Now().Add(-time.Hour)
	l.prune(time.Now())
	_, stale := l.clients["1.2.3.4"]
	_, fresh := l.clients["5.6.7.8"]
	l.mu.Unlock()

	if stale {
		t.Error("idle client should have been pruned")
	}
	if !fresh {
		t.Error("recent client should survive pruning")
	}
}
