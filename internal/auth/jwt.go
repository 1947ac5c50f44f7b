package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// TokenIssuer mints and parses the application's bearer tokens. Tokens are
// HS256 with user_id and email claims; expiry is the only revocation
// mechanism, surfacing as a 401 on the next request.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Claims carries the authenticated principal through the request context.
type Claims struct {
	UserID int64
	Email  string
}

// Issue signs a token for the given user.
func (ti *TokenIssuer) Issue(userID int64, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     now.Add(ti.ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token string and extracts its claims.
func (ti *TokenIssuer) Parse(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	// jwt decodes numbers as float64
	userID, ok1 := mapClaims["user_id"].(float64)
	email, ok2 := mapClaims["email"].(string)
	if !ok1 || !ok2 || userID <= 0 {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: int64(userID), Email: email}, nil
}
