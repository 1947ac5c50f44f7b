package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"outlay/internal/log"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Middleware rejects requests without a valid bearer token and stores the
// parsed claims in the request context for downstream handlers.
func Middleware(issuer *TokenIssuer, logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentAuth)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "Authorization header missing or malformed")
				return
			}

			claims, err := issuer.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "Token rejected",
					log.FieldError, err, log.FieldPath, r.URL.Path)
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims the middleware stored, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
