// Package server assembles the catalog assistant: credentials, tools, agent,
// serving passthrough, tracing and the HTTP surface.
//
// Usage:
//
//	cfg, _ := config.Load()
//	srv, err := server.New(ctx, cfg)
//	http.ListenAndServe(srv.Addr, srv.Handler)
//	srv.ShutdownFunc(ctx)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/catalog-assistant/internal/api"
	"github.com/agentoven/catalog-assistant/internal/api/handlers"
	"github.com/agentoven/catalog-assistant/internal/auth"
	"github.com/agentoven/catalog-assistant/internal/catalog"
	"github.com/agentoven/catalog-assistant/internal/config"
	"github.com/agentoven/catalog-assistant/internal/executor"
	"github.com/agentoven/catalog-assistant/internal/integrations/mlflow"
	"github.com/agentoven/catalog-assistant/internal/llm"
	"github.com/agentoven/catalog-assistant/internal/mcpgw"
	"github.com/agentoven/catalog-assistant/internal/serving"
	"github.com/agentoven/catalog-assistant/internal/telemetry"
	"github.com/agentoven/catalog-assistant/internal/tools"
)

// Server holds the initialized catalog assistant.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Addr is the host:port the server should listen on.
	Addr string

	// Tracing is the process-wide tracing context.
	Tracing *telemetry.Tracing

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes every component from cfg. It fails when the frontend
// build directory is missing in production mode.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	resolver := auth.NewResolver(auth.FromConfig(cfg.Databricks))
	log.Info().Str("strategy", string(resolver.Strategy())).Msg("Credential strategy selected")

	var traceOpts []telemetry.Option
	if cfg.Tracing.ExportToMLflow && cfg.Tracing.ExperimentID != "" {
		endpoint := mlflow.TracesURL(resolver.WorkspaceHost(ctx), cfg.Tracing.MLflowTracesPath)
		if endpoint != "" {
			traceOpts = append(traceOpts, telemetry.WithMLflowEndpoint(endpoint, resolver.BearerTokens()))
		}
	}

	tr, err := telemetry.Init(ctx, cfg.Tracing, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	frontend, err := api.Frontend(cfg.Dev, cfg.Frontend.DevServerURL, cfg.Frontend.BuildDir)
	if err != nil {
		_ = tr.Shutdown(ctx)
		return nil, err
	}

	explorer := catalog.NewExplorer(catalog.WorkspaceConnector(resolver))
	registry := tools.NewCatalogRegistry(explorer)
	clients := llm.FromResolver(resolver)

	h := &handlers.Handlers{
		Runner:        executor.NewExecutor(clients, registry, tr, cfg.Agent),
		Endpoints:     serving.NewService(clients, tr),
		Feedback:      mlflow.NewClient(mlflow.ResolverConnector(resolver)),
		Tracing:       tr,
		Tools:         registry,
		WorkspaceHost: resolver.WorkspaceHost,
		Environment:   cfg.Environment(),
	}

	gw := mcpgw.NewGateway(registry, cfg.Version)

	router := api.NewRouter(h, api.Options{
		MCP:      gw.Handler(),
		Frontend: frontend,
		Tracer:   tr.Tracer(),
	})

	log.Info().
		Str("environment", cfg.Environment()).
		Str("agent_endpoint", cfg.Agent.Endpoint).
		Strs("tools", registry.Names()).
		Msg("Catalog assistant initialized")

	return &Server{
		Handler:      router,
		Addr:         cfg.Addr(),
		Tracing:      tr,
		ShutdownFunc: tr.Shutdown,
	}, nil
}
