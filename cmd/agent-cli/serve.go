package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagus/weather-supervisor/pkg/assistants"
	"github.com/tagus/weather-supervisor/pkg/microservice"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant team over HTTP",
	Long: `Start the HTTP server:
  GET  /health
  POST /api/v1/chat          {"input", "thread_id", "org_id"}
  POST /api/v1/chat/stream   same body, answered with server-sent events
  GET  /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	shutdown, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	supervisor, cleanup, err := assistants.Build(ctx, cfg, assistants.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	server := microservice.NewHTTPServer(supervisor, addr, microservice.WithLogger(logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down HTTP server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	}
}
