/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for frontend
  4. Request logging via zerolog

ROUTE GROUPS:
  /api/me/pto/*         Self-service (balance, requests, cancel)
  /api/pto/requests/*   Manager decisions (approve, reject)
  /api/holidays         Shared holiday calendar
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware currently. The "current employee" is a
  configured default, optionally overridden per request with the
  override_employee_id query parameter in development.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/pto-service/logger"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(requestLogger(h.Log))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Self-service routes for the current employee
		r.Route("/me/pto", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Route("/requests", func(r chi.Router) {
				r.Get("/", h.ListRequests)
				r.Post("/", h.CreateRequest)
				r.Get("/{id}", h.GetRequest)
				r.Patch("/{id}/cancel", h.CancelRequest)
			})
		})

		// Manager decision routes
		r.Route("/pto/requests", func(r chi.Router) {
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		// Holiday calendar
		r.Get("/holidays", h.ListHolidays)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLogger logs one line per request with method, path, status and
// duration, tagged with the chi request id.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := r.Context()
			if reqID := middleware.GetReqID(ctx); reqID != "" {
				ctx = log.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(ww, r.WithContext(ctx))

			ctx = log.WithField(ctx, "method", r.Method)
			ctx = log.WithField(ctx, "path", r.URL.Path)
			ctx = log.WithField(ctx, "status", ww.Status())
			ctx = log.WithField(ctx, "duration_ms", time.Since(start).Milliseconds())
			log.Info(ctx, "request completed")
		})
	}
}
