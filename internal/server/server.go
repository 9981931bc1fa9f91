// Package server exposes the console over HTTP as a JSON API. It owns the
// process-level wiring: the backend client, the console controller, the
// operator audit log, and the router.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avisohq/aviso-console/internal/audit"
	"github.com/avisohq/aviso-console/internal/backend"
	"github.com/avisohq/aviso-console/internal/config"
	"github.com/avisohq/aviso-console/internal/console"
	"github.com/avisohq/aviso-console/internal/metrics"
)

// Server is the console HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	controller *console.Controller
	auditLog   *audit.Log
	cfg        *config.Config
	logger     *slog.Logger
}

// New creates a console server wired to the configured backend
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)

	auditLog, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:     chi.NewRouter(),
		controller: console.New(client, logger),
		auditLog:   auditLog,
		cfg:        cfg,
		logger:     logger,
	}

	s.setupRoutes()
	return s, nil
}

// Controller exposes the console state machine, mainly for tests
func (s *Server) Controller() *console.Controller {
	return s.controller
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.operatorMiddleware)

		r.Get("/state", s.handleState)
		r.Post("/tabs/{tab}", s.handleSelectTab)
		r.Put("/filters", s.handleSetFilters)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/templates", s.handleTemplates)
		r.Get("/history", s.handleHistory)
		r.Get("/history/export/{format}", s.handleExport)

		r.Get("/channels/stats", s.handleChannelStats)

		// Mutating actions are admin-only; the viewer role keeps the
		// read surface.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Route("/templates/editor", func(r chi.Router) {
				r.Post("/", s.handleOpenTemplateEditor)
				r.Delete("/", s.handleCloseTemplateEditor)
				r.Put("/", s.handleSetTemplateFields)
				r.Post("/submit", s.handleSubmitTemplateEditor)
			})

			r.Route("/dispatch", func(r chi.Router) {
				r.Post("/", s.handleOpenComposer)
				r.Delete("/", s.handleCloseComposer)
				r.Put("/", s.handleSetComposerFields)
				r.Post("/template", s.handleSelectComposerTemplate)
				r.Post("/submit", s.handleSubmitComposer)
			})

			r.Route("/config", func(r chi.Router) {
				r.Post("/", s.handleOpenConfigEditor)
				r.Delete("/", s.handleCloseConfigEditor)
				r.Put("/", s.handleSetConfigFields)
				r.Post("/submit", s.handleSubmitConfigEditor)
			})

			r.Post("/channels/{canal}/test", s.handleTestChannel)
			r.Get("/audit", s.handleAuditList)
		})
	})
}

// Handler returns the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.Server.TLS.Enabled {
		s.logger.Info("starting console server with TLS", "addr", s.cfg.Server.ListenAddr)
		return s.httpServer.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
	}

	s.logger.Info("starting console server", "addr", s.cfg.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes the audit log
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down console server")
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if cerr := s.auditLog.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
