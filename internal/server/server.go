// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the "wiring" layer — the composition root where handlers,
// middleware, and routes meet. It also owns the two background concerns the
// rest of the code shouldn't think about: graceful shutdown and the
// re-arming midnight reset timer.
//
// ROUTE STRUCTURE:
//
//	GET    /api/items               → today's items, newest first
//	POST   /api/items               → create item (returns delete token once)
//	DELETE /api/items/{id}          → owner delete (token in body)
//	POST   /api/items/{id}/copy     → bump copy counter
//	POST   /api/items/{id}/report   → abuse report (deduped per reporter)
//	GET    /api/stats               → counters for the countdown display
//	GET    /api/announcement        → active announcement or null
//	POST   /api/admin/announcement  → publish/clear announcement (gated)
//	GET    /api/admin/reports       → reported items (gated)
//	DELETE /api/admin/items/{id}    → delete any item (gated)
//	POST   /api/admin/login|logout  → session cookie (only when configured)
//	GET    /xmg-7f3                 → real admin page
//	GET    /admin, /Admin           → decoy page
//	GET    /*                       → public static files
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/xfsay/xmg-hall/internal/admin"
	"github.com/xfsay/xmg-hall/internal/board"
	"github.com/xfsay/xmg-hall/internal/daycycle"
	"github.com/xfsay/xmg-hall/internal/handler"
	"github.com/xfsay/xmg-hall/internal/middleware"
)

// Config holds the server-level configuration.
type Config struct {
	Port       int
	PublicDir  string
	PrivateDir string
}

// Server ties the router, the board, and the background reset timer together.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	board  *board.Board
}

// New creates a Server and wires every route.
//
// DEPENDENCY CHAIN:
// main.go creates store → board → gate/tokens, and hands them here. Handlers
// get the board (never the store), the router gets the handlers. tokens may
// be nil, which simply leaves the login routes unregistered.
func New(cfg Config, logger *slog.Logger, b *board.Board, gate *admin.Gate, tokens *admin.TokenService) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		board:  b,
	}
	s.setupRoutes(gate, tokens)
	return s
}

func (s *Server) setupRoutes(gate *admin.Gate, tokens *admin.TokenService) {
	// Middleware order matters: request ID and real IP first so the logger
	// sees them, recoverer outermost-but-one so a panicking handler still
	// produces a logged 500.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	boardHandler := handler.NewBoardHandler(s.board, s.logger)
	adminHandler := handler.NewAdminHandler(s.board, gate, tokens, s.logger)
	pageHandler := handler.NewPageHandler(s.config.PublicDir, s.config.PrivateDir, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/items", boardHandler.HandleList)
		r.Post("/items", boardHandler.HandleCreate)
		r.Delete("/items/{id}", boardHandler.HandleDelete)
		r.Post("/items/{id}/copy", boardHandler.HandleCopy)
		r.Post("/items/{id}/report", boardHandler.HandleReport)
		r.Get("/stats", boardHandler.HandleStats)
		r.Get("/announcement", boardHandler.HandleAnnouncement)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/announcement", adminHandler.HandlePublishAnnouncement)
			r.Get("/reports", adminHandler.HandleListReported)
			r.Delete("/items/{id}", adminHandler.HandleAdminDelete)
			if tokens != nil {
				r.Post("/login", adminHandler.HandleLogin)
				r.Post("/logout", adminHandler.HandleLogout)
			}
		})
	})

	// Page routes. The hard 404 on /admin.html must be registered explicitly
	// so the static fallthrough can never serve a file by that name.
	s.router.Get("/xmg-7f3", pageHandler.HandleAdminPage)
	s.router.Get("/xmg-7f3/", pageHandler.HandleAdminPageRedirect)
	s.router.Get("/admin", pageHandler.HandleDecoyPage)
	s.router.Get("/Admin", pageHandler.HandleDecoyPage)
	s.router.Get("/admin/", pageHandler.HandleDecoyRedirect)
	s.router.Get("/Admin/", pageHandler.HandleDecoyRedirect)
	s.router.Get("/admin.html", pageHandler.HandleAdminHTML)
	s.router.Handle("/*", http.HandlerFunc(pageHandler.HandleStatic))
}

// Handler exposes the assembled router, mainly for httptest in integration
// tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and the midnight reset loop until SIGINT or
// SIGTERM, then shuts both down gracefully.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The reset loop keeps the day boundary honest even with zero traffic.
	stop := make(chan struct{})
	go s.runMidnightReset(stop)
	defer close(stop)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// runMidnightReset fires EnsureDay just after each local midnight and
// re-arms itself. The small skew in UntilReset guarantees the firing lands
// on the new day; firing twice is harmless because a matching day key is a
// no-op.
func (s *Server) runMidnightReset(stop <-chan struct{}) {
	for {
		timer := time.NewTimer(daycycle.UntilReset(time.Now()))
		select {
		case <-timer.C:
			if err := s.board.EnsureDay(); err != nil {
				// A failed reset means the snapshot write failed. The next
				// request (or the next firing) retries; nothing else to do
				// from a background goroutine but say so loudly.
				s.logger.Error("scheduled day reset failed", slog.String("error", err.Error()))
			}
		case <-stop:
			timer.Stop()
			return
		}
	}
}
