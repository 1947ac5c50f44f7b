package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// Identity is the subset of a Google ID token the application cares about.
type Identity struct {
	GoogleID string // "sub" claim
	Email    string
	Name     string
}

// CredentialVerifier exchanges a third-party identity assertion for an
// Identity. The login handler depends on this interface so tests can stub
// the Google round trip.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// GoogleVerifier validates Google ID tokens against a fixed OAuth client id.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return Identity{}, fmt.Errorf("validate id token: %w", err)
	}

	id := Identity{GoogleID: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		id.Name = name
	}
	if id.GoogleID == "" || id.Email == "" {
		return Identity{}, fmt.Errorf("id token missing subject or email")
	}
	return id, nil
}
