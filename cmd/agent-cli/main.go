package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tagus/weather-supervisor/pkg/config"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/tracing"
)

const version = "0.1.0"

var (
	configFile string
	logLevel   string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "agent-cli",
	Short: "Weather assistant team",
	Long: `agent-cli runs a supervisor that routes questions to a weather assistant,
a chart assistant and a research assistant.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the configuration")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(weatherMCPCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the environment file and configuration and builds the logger
func setup() (*config.Config, *logging.ZeroLogger, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(
		logging.WithLevel(level),
		logging.WithJSON(strings.EqualFold(cfg.Log.Format, "json")),
	)
	return cfg, logger, nil
}

func setupTracing(ctx context.Context, cfg *config.Config) (tracing.ShutdownFunc, error) {
	return tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		Insecure:    cfg.Tracing.Insecure,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadEnvFile sets the variables of path that are not already in the
// environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
