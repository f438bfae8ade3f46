// Package plan exposes the planner over HTTP.
package plan

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/saltplan/app"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/infra/logger"
)

// Service is the part of app.Service the handlers need.
type Service interface {
	Plan(ctx context.Context, req app.Request) (app.Outcome, error)
	Report(batches []model.Batch) planner.Report
	Runs(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error)
}

// Options tunes the router.
type Options struct {
	// Token, when set, is required as a Bearer token on /api routes.
	Token string
	// MaxBodyBytes caps request bodies. Zero means no limit.
	MaxBodyBytes int64
	// Metrics is mounted on /metrics when not nil.
	Metrics http.Handler
	Logger  logger.Logger
}

// NewRouter registers every route on a chi router.
func NewRouter(svc Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger{}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(bearer(opts.Token))
		if opts.MaxBodyBytes > 0 {
			r.Use(middleware.RequestSize(opts.MaxBodyBytes))
		}
		r.Post("/plan", NewPlanHandler(svc).ServeHTTP)
		r.Post("/report", NewReportHandler(svc).ServeHTTP)
		r.Get("/runs", NewRunsHandler(svc).ServeHTTP)
	})
	return r
}

// bearer rejects requests without the expected Authorization header. An
// empty token disables the check.
func bearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debugw("request", map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}
