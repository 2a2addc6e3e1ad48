// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes (auth only where a user is needed)
// - How the server starts and stops gracefully
//
// Handlers and their services are built by the di package and handed in
// through Handlers, so a test can build a Server from mocks.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bookifyme/internal/auth"
	"github.com/sakif/bookifyme/internal/handler"
	"github.com/sakif/bookifyme/internal/middleware"
)

// ShutdownTimeout bounds how long in-flight requests may take after a
// shutdown signal.
const ShutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port        int
	FrontendURL string
}

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Books     *handler.BookHandler
	Bookshelf *handler.BookshelfHandler
	Community *handler.CommunityHandler
}

// Server represents the HTTP server and its routing table.
//
// RESOURCE MANAGEMENT:
// The server does not own the database or background workers; whoever
// built them registers a cleanup with OnShutdown. Cleanups run in reverse
// registration order after the HTTP server has drained, so the DB closes
// last.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	limiter *middleware.RateLimiter
	authn   auth.Authenticator

	mu       sync.Mutex
	cleanups []func(ctx context.Context) error
}

// New builds the router. authn resolves bearer tokens for protected routes;
// limiter may be nil to disable rate limiting.
func New(cfg Config, h Handlers, authn auth.Authenticator, limiter *middleware.RateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		limiter: limiter,
		authn:   authn,
	}
	s.setupRoutes(h)
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// OnShutdown registers fn to run after the HTTP server stops.
func (s *Server) OnShutdown(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET  /                                  → welcome (no envelope)
// GET  /health                            → liveness
// GET  /metrics                           → Prometheus text
// POST /api/auth/{register,login,forgot-password,reset-password}
// POST /api/auth/logout, GET /api/auth/me                      [auth]
// GET  /api/books/{search,bestsellers,categories/{category},{id}}
// *    /api/bookshelf/...                                       [auth]
// GET  /api/community/groups, /api/community/groups/{id}
// POST /api/community/groups, .../{id}/join, .../{id}/leave     [auth]
// GET  /api/community/groups/joined                            [auth]
// POST /api/community/groups/{id}/members/{user_id}/promote    [auth, group admin]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing) and echoes it as X-Request-Id
// 2. RealIP: extracts real client IP from proxy headers (the rate limiter keys on it)
// 3. Logger and Metrics: see the final status, including recovered panics
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: answers preflights before auth or rate limiting can reject them
// 6. RateLimiter: /api only
func (s *Server) setupRoutes(h Handlers) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.RequestIDHeader)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.FrontendURL))

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	s.router.Get("/", h.Health.HandleRoot)
	s.router.Get("/health", h.Health.HandleHealth)
	s.router.Get("/metrics", middleware.MetricsHandler)

	requireAuth := auth.RequireAuth(s.authn, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Handler)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.HandleRegister)
			r.Post("/login", h.Auth.HandleLogin)
			r.Post("/forgot-password", h.Auth.HandleForgotPassword)
			r.Post("/reset-password", h.Auth.HandleResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", h.Auth.HandleLogout)
				r.Get("/me", h.Auth.HandleMe)
			})
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/search", h.Books.HandleSearch)
			r.Get("/bestsellers", h.Books.HandleBestsellers)
			r.Get("/categories/{category}", h.Books.HandleCategory)
			r.Get("/{id}", h.Books.HandleDetails)
		})

		r.Route("/bookshelf", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.Bookshelf.HandleList)
			r.Get("/stats", h.Bookshelf.HandleStats)
			r.Post("/add", h.Bookshelf.HandleAdd)
			r.Post("/move", h.Bookshelf.HandleMove)
			r.Put("/move", h.Bookshelf.HandleMove)
			r.Post("/remove", h.Bookshelf.HandleRemove)
			r.Delete("/{book_id}", h.Bookshelf.HandleDelete)
		})

		r.Route("/community/groups", func(r chi.Router) {
			r.Get("/", h.Community.HandleList)
			r.Get("/{id}", h.Community.HandleDetails)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", h.Community.HandleCreate)
				r.Get("/joined", h.Community.HandleJoined)
				r.Post("/{id}/join", h.Community.HandleJoin)
				r.Post("/{id}/leave", h.Community.HandleLeave)
				r.Post("/{id}/members/{user_id}/promote", h.Community.HandlePromote)
			})
		})
	})
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (ShutdownTimeout)
// 3. Run the OnShutdown cleanups: scheduler, task queue, database
//
// The cleanups run even when the listener fails, so the DB is always closed.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("graceful shutdown failed: %w", err)
		} else {
			s.logger.Info("server stopped gracefully")
		}
	}

	return errors.Join(runErr, s.runCleanups())
}

// Close runs the registered cleanups without serving. It is for callers
// that built a Server but never ran it.
func (s *Server) Close() error {
	return s.runCleanups()
}

func (s *Server) runCleanups() error {
	s.mu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			s.logger.Error("shutdown cleanup failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
