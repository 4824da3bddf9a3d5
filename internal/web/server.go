// Package web provides the HTTP server, JSON API and HTML pages for the
// student records dashboard.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/config"
	"github.com/JonMunkholm/disha/internal/core"
	mw "github.com/JonMunkholm/disha/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed static
var staticFiles embed.FS

// defaultCookieName is used when the configuration leaves the cookie name empty.
const defaultCookieName = "disha_session"

// Server is the HTTP server for the dashboard. Each request acts as the
// principal named by its own session cookie, never as the Guard's process
// session.
type Server struct {
	service    *core.Service
	guard      *auth.Guard
	cfg        *config.Config
	cookieName string
	router     *chi.Mux
	server     *http.Server
	limiters   []*rateLimiter
}

// NewServer creates a Server with middleware and routes installed.
func NewServer(service *core.Service, guard *auth.Guard, cfg *config.Config) (*Server, error) {
	s := &Server{
		service:    service,
		guard:      guard,
		cfg:        cfg,
		cookieName: cfg.Session.CookieName,
		router:     chi.NewRouter(),
	}
	if s.cookieName == "" {
		s.cookieName = defaultCookieName
	}
	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Authenticate(s.guard, s.cookieName))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages
	s.router.Get("/", s.handleLoginPage)
	s.router.With(mw.RequirePage(false, "/", auth.UserHome)).Get("/dashboard", s.handleDashboard)
	s.router.With(mw.RequirePage(true, "/", auth.UserHome)).Get("/admin", s.handleAdminPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleGetSession)
		r.With(s.strictLimit(s.cfg.Rate.LoginLimit)).Post("/session", s.handleLogin)
		r.Delete("/session", s.handleLogout)

		r.Route("/students", func(r chi.Router) {
			r.Get("/", s.handleListStudents)
			r.Post("/", s.handleAddStudent)
			r.Get("/options", s.handleFilterOptions)
			r.Get("/export", s.handleExport)
			r.With(s.strictLimit(s.cfg.Rate.ImportLimit)).Post("/import", s.handleImport)
			r.Delete("/{id}", s.handleRemoveStudent)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleAddAccount)
			r.Delete("/{id}", s.handleRemoveAccount)
		})
	})
	return nil
}

// strictLimit returns a per-route limiter, or a pass-through when rate
// limiting is disabled.
func (s *Server) strictLimit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newLimiter(perMinute).middleware
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
