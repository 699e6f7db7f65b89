package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagus/weather-supervisor/pkg/assistants"
	"github.com/tagus/weather-supervisor/pkg/mcp"
)

var (
	mcpTransport string
	mcpAddr      string
	mcpPath      string
)

var weatherMCPCmd = &cobra.Command{
	Use:   "weather-mcp",
	Short: "Serve the weather tools as an MCP server",
	Long: `Start the weather MCP server offering get_weather_warning and
get_daily_forecast.

Supports two transport modes:
  - stdio: standard input/output (default, used when the weather assistant
    starts this binary as a subprocess)
  - http: streamable HTTP on --addr`,
	RunE: runWeatherMCP,
}

func init() {
	weatherMCPCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport type: stdio or http")
	weatherMCPCmd.Flags().StringVar(&mcpAddr, "addr", ":8000", "HTTP listen address")
	weatherMCPCmd.Flags().StringVar(&mcpPath, "path", "/mcp", "HTTP endpoint path for MCP requests")
}

func runWeatherMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	client, err := assistants.NewWeatherClient(cfg, logger)
	if err != nil {
		return err
	}
	server := mcp.NewWeatherServer(client, version, mcp.WithServerLogger(logger))

	ctx, stop := signalContext()
	defer stop()

	switch mcpTransport {
	case "stdio":
		return server.ServeStdio(ctx)
	case "http":
		mux := http.NewServeMux()
		mux.Handle(mcpPath, server.HTTPHandler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		httpServer := &http.Server{Addr: mcpAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		errCh := make(chan error, 1)
		go func() {
			logger.Info(ctx, "Serving weather MCP over HTTP", map[string]interface{}{
				"addr": mcpAddr,
				"path": mcpPath,
			})
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	default:
		return fmt.Errorf("unsupported transport: %s (supported: stdio, http)", mcpTransport)
	}
}
