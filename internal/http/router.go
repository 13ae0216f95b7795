// Package http provides the public HTTP surface of the proxy.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-speech-proxy-service/internal/auth"
	"ai-speech-proxy-service/internal/health"
	"ai-speech-proxy-service/internal/observability/metrics"
	"ai-speech-proxy-service/internal/service/audio"
	"ai-speech-proxy-service/internal/service/router"
	"ai-speech-proxy-service/internal/usage"
)

// Server bundles the collaborators the HTTP handlers need.
type Server struct {
	registry     *auth.Registry
	engine       *router.Engine
	monitor      *health.Monitor
	ledger       *usage.Ledger
	recorder     *audio.Recorder
	metrics      *metrics.Metrics
	defaultModel string
	now          func() time.Time
}

// NewServer creates the handler set for the proxy's public API.
func NewServer(registry *auth.Registry, engine *router.Engine, monitor *health.Monitor, ledger *usage.Ledger, recorder *audio.Recorder) *Server {
	return &Server{
		registry:     registry,
		engine:       engine,
		monitor:      monitor,
		ledger:       ledger,
		recorder:     recorder,
		metrics:      metrics.DefaultMetrics,
		defaultModel: "whisper-1",
		now:          time.Now,
	}
}

// NewRouter constructs the HTTP router for the service.
func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.bearerAuth)
			r.Post("/audio/transcriptions", s.handleTranscribe)
			r.Get("/local_service_status", s.handleServiceStatus)
		})
	})

	// Usage reporting is an operator endpoint and takes no bearer token.
	r.Get("/usage", s.handleUsage)

	return r
}
