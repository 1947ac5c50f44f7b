// Package client is the Go client library for the expense service. It
// carries the reusable frontend logic: session lifecycle, authenticated
// transport, debounced list fetching, and bulk entry.
package client

import "sync"

// Session holds the authentication state. The authenticated flag, token
// and user id are always written and cleared together under one lock,
// so observers never see a mismatched state.
type Session struct {
	mu            sync.Mutex
	authenticated bool
	token         string
	userID        int64
}

func NewSession() *Session {
	return &Session{}
}

// Establish records a successful login.
func (s *Session) Establish(userID int64, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.token = token
	s.userID = userID
}

// Clear resets the session to anonymous.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.token = ""
	s.userID = 0
}

// Token returns the current bearer token, empty when anonymous.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// UserID returns the authenticated user's id, zero when anonymous.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Authenticated reports whether a login is active.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Snapshot returns flag and token as one consistent read.
func (s *Session) Snapshot() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated, s.token
}
