package http

import (
	"context"
	"net"
	"net/http"
	"sync"

	"outlay/internal/auth"
	"outlay/internal/log"
	"outlay/internal/middleware/ratelimit"
	"outlay/internal/middleware/security"
	"outlay/internal/middleware/trace"
	"outlay/internal/services"
	"outlay/internal/storage"
)

type Server struct {
	http.Server
	service  *services.ExpenseService
	repo     *storage.SQLiteRepository
	verifier auth.CredentialVerifier
	issuer   *auth.TokenIssuer
	logger   *log.Logger

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and the middleware chain, returning a
// ready-to-run http.Server.
func NewServer(addr string, svc *services.ExpenseService, repo *storage.SQLiteRepository, verifier auth.CredentialVerifier, issuer *auth.TokenIssuer, allowedOrigins []string, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		service:     svc,
		repo:        repo,
		verifier:    verifier,
		issuer:      issuer,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	// Public endpoints
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("POST /oauth/google", s.handleGoogleOauth)

	// Protected endpoints, bearer token required
	authed := auth.Middleware(issuer, logger)
	mux.Handle("GET /expenses", authed(http.HandlerFunc(s.handleListExpenses)))
	mux.Handle("POST /expenses", authed(http.HandlerFunc(s.handleCreateExpense)))
	mux.Handle("PUT /expenses/{id}", authed(http.HandlerFunc(s.handleUpdateExpense)))
	mux.Handle("DELETE /expenses/{id}", authed(http.HandlerFunc(s.handleDeleteExpense)))
	mux.Handle("GET /expenses/summary", authed(http.HandlerFunc(s.handleSummary)))
	mux.Handle("GET /users", authed(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("PUT /users", authed(http.HandlerFunc(s.handleUpdateUser)))

	// Outermost first: tracing, security headers, CORS, then rate
	// limiting on mutating methods.
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(extractClientIP, s.onRateLimit)(handler)
	handler = security.NewCORSMiddleware(security.DefaultCORSConfig(allowedOrigins)).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, extractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "rate limit exceeded",
		log.FieldClientIP, extractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// extractClientIP considers proxy headers before the socket address.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "readiness check", log.FieldError, err)
		InternalServerError("Database connection failed").Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Message("pong").Write(w)
}
