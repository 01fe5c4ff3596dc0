package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
	"github.com/jonathan/cv-builder/internal/wizard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Backend is the storage the server runs on: CVs, templates and accounts.
type Backend interface {
	remote.Repository
	DBClient
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	handler      http.Handler
	backend      Backend
	templates    remote.TemplateSource
	templatePath string
	sessions     *wizard.Manager
	rateLimiter  *ratelimit.Limiter
	jwtService   *JWTService
	userService  *UserService
	authHandler  *AuthHandler
	logger       *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port    int
	Backend Backend
	// Templates overrides Backend as the template list source, e.g. with a cache.
	Templates remote.TemplateSource
	// JWT and Password are read from the environment when nil.
	JWT      *config.JWTConfig
	Password *config.PasswordConfig
	// RateLimit is read from the environment when nil.
	RateLimit *ratelimit.Config
	Sessions  wizard.ManagerOptions
	// TemplatePath is a LaTeX template replacing the built-in one.
	TemplatePath string
	Logger       *zap.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("server requires a storage backend")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Templates == nil {
		cfg.Templates = cfg.Backend
	}

	s := &Server{
		backend:      cfg.Backend,
		templates:    cfg.Templates,
		templatePath: cfg.TemplatePath,
		logger:       cfg.Logger,
	}

	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)

	if cfg.Password == nil {
		passwordConfig, err := config.NewPasswordConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create password config: %w", err)
		}
		cfg.Password = passwordConfig
	}
	s.userService = NewUserService(cfg.Backend, cfg.Password)

	if cfg.JWT == nil {
		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT config: %w", err)
		}
		cfg.JWT = jwtConfig
	}
	s.jwtService = NewJWTService(cfg.JWT)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService, s.logger)

	if cfg.Sessions.Logger == nil {
		cfg.Sessions.Logger = s.logger.Named("wizard")
	}
	s.sessions = wizard.NewManager(cfg.Sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", s.authHandler.Login)

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	authed("GET /v1/me", s.authHandler.Me)
	authed("GET /v1/templates", s.handleListTemplates)

	// Dashboard
	authed("GET /v1/cvs", s.handleListCVs)
	authed("GET /v1/cvs/{id}", s.handleGetCV)
	authed("DELETE /v1/cvs/{id}", s.handleDeleteCV)
	authed("GET /v1/cvs/{id}/review", s.handleCVReview)
	authed("GET /v1/cvs/{id}/resume.tex", s.handleCVResumeTex)

	// Wizard sessions
	authed("POST /v1/wizard/sessions", s.handleStartSession)
	authed("GET /v1/wizard/sessions/{sid}", s.handleGetSession)
	authed("DELETE /v1/wizard/sessions/{sid}", s.handleLeaveSession)
	authed("GET /v1/wizard/sessions/{sid}/review", s.handleSessionReview)
	authed("GET /v1/wizard/sessions/{sid}/events", s.handleSessionEvents)

	authed("PUT /v1/wizard/sessions/{sid}/sections/{section}", s.handleReplaceSection)
	authed("POST /v1/wizard/sessions/{sid}/sections/{section}/entries", s.handleAddEntry)
	authed("PATCH /v1/wizard/sessions/{sid}/sections/{section}/entries/{entry_id}", s.handlePatchEntry)
	authed("DELETE /v1/wizard/sessions/{sid}/sections/{section}/entries/{entry_id}", s.handleRemoveEntry)

	authed("POST /v1/wizard/sessions/{sid}/skills", s.handleAddSkill)
	authed("DELETE /v1/wizard/sessions/{sid}/skills/{skill}", s.handleRemoveSkill)

	// Free-text lists: awards and interests
	authed("POST /v1/wizard/sessions/{sid}/{list}", s.handleAddItem)
	authed("PUT /v1/wizard/sessions/{sid}/{list}/{index}", s.handleSetItem)
	authed("DELETE /v1/wizard/sessions/{sid}/{list}/{index}", s.handleRemoveItem)

	authed("POST /v1/wizard/sessions/{sid}/next", s.handleNext)
	authed("POST /v1/wizard/sessions/{sid}/back", s.handleBack)
	authed("POST /v1/wizard/sessions/{sid}/skip", s.handleSkip)
	authed("POST /v1/wizard/sessions/{sid}/save", s.handleSave)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: session event streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions returns the wizard session manager.
func (s *Server) Sessions() *wizard.Manager {
	return s.sessions
}

// Start serves until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves requests and sweeps idle wizard sessions until ctx is done, then shuts
// down gracefully. Open sessions are left, which also ends their event streams.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.sessions.Run(gctx)
	})

	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		defer s.rateLimiter.Stop()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("server stopped")
	return err
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working through the logging middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"wizard_sessions": s.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, s.logger, status, data)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	writeError(w, s.logger, status, message)
}

// fail maps err to its status. Server-side failures are logged and not echoed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			s.errorResponse(w, status, "internal error")
			return
		}
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into v. An empty body is allowed when optional.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.logger.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Int("remaining", info.Remaining),
		zap.Time("reset", info.ResetTime),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
