package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/agentoven/catalog-assistant/internal/api/handlers"
	"github.com/agentoven/catalog-assistant/internal/api/middleware"
)

// Options are the pieces mounted next to the /api handlers.
type Options struct {
	// MCP serves /api/mcp when set.
	MCP http.Handler
	// Frontend receives every non-API request when set.
	Frontend http.Handler
	Tracer   trace.Tracer
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry(tracer))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))

			r.Get("/tracing_experiment", h.TracingExperiment)
			r.Get("/health", h.Health)
			r.Post("/agent", h.Agent)
			r.Post("/log_assessment", h.LogAssessment)
			r.Post("/invoke_endpoint", h.InvokeEndpoint)
			r.Get("/tools", h.ListTools)
		})

		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
		}
	})

	if opts.Frontend != nil {
		r.Handle("/*", opts.Frontend)
	}

	return r
}
