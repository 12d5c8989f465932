// Catalog Assistant backend.
//
// Serves the tool-calling agent that explores Unity Catalog, a passthrough
// to model serving endpoints, feedback logging and the frontend (built files
// in production, the Vite dev server with --reload).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentoven/catalog-assistant/internal/config"
	"github.com/agentoven/catalog-assistant/pkg/server"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func newRootCmd() *cobra.Command {
	var (
		reload bool
		host   string
		port   int
	)

	cmd := &cobra.Command{
		Use:           "catalog-assistant",
		Short:         "Databricks Unity Catalog assistant backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if reload {
				cfg.Dev = true
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return run(cmd.Context(), cfg)
		},
	}
	// Unknown flags from the launcher are ignored.
	cmd.FParseErrWhitelist.UnknownFlags = true

	cmd.Flags().BoolVar(&reload, "reload", false, "development mode: proxy the frontend to the dev server")
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides UVICORN_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides UVICORN_PORT)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Info().Str("version", cfg.Version).Msg("Catalog assistant starting...")

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.ShutdownFunc(context.Background())

	// Agent requests span several model calls.
	httpServer := &http.Server{
		Addr:         srv.Addr,
		Handler:      srv.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("environment", cfg.Environment()).
		Msg("Catalog assistant is ready")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
