// Package api exposes the advisory pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/monitoring"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/store"
)

// Runner executes one advisory turn. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req model.Request) (*model.Result, error)
}

// StatsSource reports tier health. *monitoring.Collector satisfies it.
type StatsSource interface {
	Collect() *monitoring.MetricsSnapshot
}

// Server holds the handler dependencies.
type Server struct {
	runner         Runner
	store          store.Store
	tiers          []string
	stats          StatsSource
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithStore exposes session checkpoints under /v1/sessions.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithTiers reports the configured advice tiers on /health.
func WithTiers(names []string) Option {
	return func(s *Server) { s.tiers = names }
}

// WithStats exposes tier health under /v1/stats.
func WithStats(src StatsSource) Option {
	return func(s *Server) { s.stats = src }
}

// WithAllowedOrigins sets the CORS origins. Default: any.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates a Server around runner.
func NewServer(runner Runner, opts ...Option) *Server {
	s := &Server{runner: runner, allowedOrigins: []string{"*"}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/advice", s.advise)
		r.Get("/stats", s.getStats)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
