package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outlay/internal/log"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(42, "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "user@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	cases := []string{
		"",
		"not-a-jwt",
		"aaa.bbb.ccc",
	}
	for i, tok := range cases {
		if _, err := issuer.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("case %d: expected ErrInvalidToken, got %v", i, err)
		}
	}

	// signed with a different secret
	other := NewTokenIssuer("other-secret", time.Hour)
	tok, err := other.Issue(1, "a@b.c")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	tok, err := issuer.Issue(1, "a@b.c")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	var gotClaims Claims
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	handler := Middleware(issuer, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotClaims = c
		w.WriteHeader(http.StatusOK)
	}))

	// no header
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Fatalf("expected JSON error body, got %q (%v)", rec.Body.String(), err)
	}

	// malformed scheme
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Authorization", "Basic abc")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", rec.Code)
	}

	// valid token
	tok, err := issuer.Issue(7, "u@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if gotClaims.UserID != 7 || gotClaims.Email != "u@example.com" {
		t.Fatalf("unexpected claims %+v", gotClaims)
	}
}
