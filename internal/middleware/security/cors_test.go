package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCORSHandler(origins []string) http.Handler {
	m := NewCORSMiddleware(DefaultCORSConfig(origins))
	return m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := newCORSHandler([]string{"https://app.example.com"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	handler := newCORSHandler([]string{"https://app.example.com"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin should be empty, got %q", got)
	}
}

func TestCORSWildcard(t *testing.T) {
	handler := newCORSHandler([]string{"*"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	m := NewCORSMiddleware(DefaultCORSConfig([]string{"*"}))
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/expenses", nil)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if called {
		t.Fatal("preflight should not reach the handler")
	}
}
