package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	ctxKeyOperator contextKey = "operator"
	ctxKeyRole     contextKey = "role"
)

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// operatorMiddleware reads the identity headers injected by the
// authenticating reverse proxy and stashes them in the request context.
// Requests without an operator name are rejected: the console never acts
// anonymously.
func (s *Server) operatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator := r.Header.Get(s.cfg.Auth.OperatorHeader)
		if operator == "" {
			s.logger.Warn("request without operator identity",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			s.sendError(w, http.StatusUnauthorized, "operator identity required")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyOperator, operator)
		ctx = context.WithValue(ctx, ctxKeyRole, r.Header.Get(s.cfg.Auth.RoleHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates configuration and audit routes to the admin role
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if roleFrom(r.Context()) != s.cfg.Auth.AdminRole {
			s.logger.Warn("admin route denied",
				"operator", operatorFrom(r.Context()),
				"path", r.URL.Path,
			)
			s.sendError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func operatorFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyOperator).(string)
	return v
}

func roleFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRole).(string)
	return v
}
