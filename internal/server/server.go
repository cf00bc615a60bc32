// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and calls New, which creates:
//
//	sqlite.DB → AccountService → AuthHandler
//	TokenService, PasswordService ↗
//	origin.Client → mentor.Client → MentorHandler
//	metrics.Metrics → counters in AccountService and origin.Client
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/pulsepy/internal/auth"
	"github.com/sakif/pulsepy/internal/config"
	"github.com/sakif/pulsepy/internal/handler"
	"github.com/sakif/pulsepy/internal/mentor"
	"github.com/sakif/pulsepy/internal/metrics"
	"github.com/sakif/pulsepy/internal/middleware"
	"github.com/sakif/pulsepy/internal/origin"
	sqliteRepo "github.com/sakif/pulsepy/internal/repository/sqlite"
	"github.com/sakif/pulsepy/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. Run does this during graceful shutdown.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
}

// New creates a Server from cfg.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := ensureDir(filepath.Dir(cfg.DBPath)); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Run calls it on shutdown; tests that never
// call Run call it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST /auth/signup        → create account, set session cookie
// POST /auth/login         → sign in, set session cookie
// POST /auth/logout        → clear session cookie
// GET  /auth/session       → current identity (cookie or bearer)
// /api/auth/*              → same as /auth/* (hosting rewrites use this prefix)
// POST /api/mentorHint     → AI mentor hint
// GET  /api/origins        → candidate backend origins for a client host
// GET  /healthz            → liveness/readiness
// GET  /metrics            → Prometheus
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request ID
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: rejects unknown browser origins before any handler runs
func (s *Server) setupRoutes() error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(cfg.AllowedOrigins, s.logger))

	// === Auth ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(cfg.BcryptCost, cfg.HashWorkers)

	accounts := service.NewAccountService(s.db, tokens, passwords, s.logger,
		service.WithAttemptRecorder(s.metrics))
	authHandler := handler.NewAuthHandler(accounts, auth.NewCookiePolicy(cfg.Mode, tokens.TTL()), s.logger)
	requireAuth := auth.RequireAuth(accounts, handler.Unauthorized(s.logger))

	authRoutes := func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(requireAuth).Get("/session", authHandler.HandleSession)
	}
	s.router.Route("/auth", authRoutes)

	// === Mentor ===
	origins := origin.NewClient(cfg.RequestTimeout, s.logger,
		origin.WithFallbackRecorder(s.metrics))
	mentorClient := mentor.NewClient(mentor.Config{
		APIKey:   cfg.GeminiAPIKey,
		BaseURLs: cfg.GeminiBaseURLs(),
	}, origins, s.logger)
	if !mentorClient.Enabled() {
		s.logger.Warn("GEMINI_API_KEY not set, mentor hints use canned copy")
	}
	mentorHandler := handler.NewMentorHandler(mentorClient, s.logger)

	originsHandler := handler.NewOriginsHandler(
		origin.Defaults{RemoteBases: cfg.RemoteBases}, cfg.APIModeHint())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", authRoutes)
		r.Post("/mentorHint", mentorHandler.HandleHint)
		r.Get("/origins", originsHandler.HandleOrigins)
	})

	// === Operations ===
	s.router.Get("/healthz", handler.NewHealthHandler(s.db, s.logger).HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	return nil
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Run(ctx context.Context) error {
	// Ensure the database is closed when the server stops.
	// This runs AFTER everything else in this function finishes.
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The mentor route waits on the model API, which can take a while.
		WriteTimeout: s.config.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("mode", s.config.Mode.String()),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		// Give in-flight requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// ensureDir creates the directory holding a file-based database.
func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
