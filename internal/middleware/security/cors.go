package security

import (
	"net/http"
	"strings"
)

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         string
}

// DefaultCORSConfig allows the methods and headers the API actually
// uses. Origins must still be supplied by the caller.
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         "300",
	}
}

// CORSMiddleware answers preflight requests and stamps allowed origins
// on responses.
type CORSMiddleware struct {
	config   CORSConfig
	allowAll bool
	origins  map[string]struct{}
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	m := &CORSMiddleware{
		config:  config,
		origins: make(map[string]struct{}, len(config.AllowedOrigins)),
	}
	for _, o := range config.AllowedOrigins {
		if o == "*" {
			m.allowAll = true
			continue
		}
		m.origins[o] = struct{}{}
	}
	return m
}

// Middleware returns the HTTP middleware function
func (c *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && c.originAllowed(origin) {
			headers := w.Header()
			if c.allowAll {
				headers.Set("Access-Control-Allow-Origin", "*")
			} else {
				headers.Set("Access-Control-Allow-Origin", origin)
				headers.Add("Vary", "Origin")
			}
			headers.Set("Access-Control-Allow-Methods", strings.Join(c.config.AllowedMethods, ", "))
			headers.Set("Access-Control-Allow-Headers", strings.Join(c.config.AllowedHeaders, ", "))
			if c.config.MaxAge != "" {
				headers.Set("Access-Control-Max-Age", c.config.MaxAge)
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) originAllowed(origin string) bool {
	if c.allowAll {
		return true
	}
	_, ok := c.origins[origin]
	return ok
}
