package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

// Logger is the structured logger used across the module
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}

// ZeroLogger implements Logger on top of zerolog
type ZeroLogger struct {
	logger zerolog.Logger
}

type settings struct {
	writer io.Writer
	level  string
	json   bool
}

// Option configures a ZeroLogger
type Option func(*settings)

// WithWriter sets the output destination
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.writer = w
	}
}

// WithLevel sets the minimum level (debug, info, warn, error)
func WithLevel(level string) Option {
	return func(s *settings) {
		s.level = level
	}
}

// WithJSON switches between JSON and console output
func WithJSON(enabled bool) Option {
	return func(s *settings) {
		s.json = enabled
	}
}

// New creates a logger configured from LOG_LEVEL and LOG_FORMAT / LOG_JSON,
// writing to stderr. Options override the environment.
func New(options ...Option) *ZeroLogger {
	s := &settings{
		writer: os.Stderr,
		level:  os.Getenv("LOG_LEVEL"),
		json:   strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") || os.Getenv("LOG_JSON") == "true",
	}
	for _, option := range options {
		option(s)
	}

	w := s.writer
	if !s.json {
		w = zerolog.ConsoleWriter{Out: s.writer, TimeFormat: time.RFC3339, NoColor: s.writer != os.Stderr}
	}

	return &ZeroLogger{
		logger: zerolog.New(w).Level(parseLevel(s.level)).With().Timestamp().Logger(),
	}
}

// NewNop returns a logger that discards everything
func NewNop() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

// With returns a child logger that always carries the given fields
func (l *ZeroLogger) With(fields map[string]interface{}) *ZeroLogger {
	return &ZeroLogger{logger: l.logger.With().Fields(fields).Logger()}
}

func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Debug(), msg, fields)
}

func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Info(), msg, fields)
}

func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Warn(), msg, fields)
}

func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.write(ctx, l.logger.Error(), msg, fields)
}

func (l *ZeroLogger) write(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	if event == nil {
		return
	}
	if ctx != nil {
		if orgID, err := multitenancy.GetOrgID(ctx); err == nil {
			event = event.Str("org_id", orgID)
		}
	}
	event.Fields(fields).Msg(msg)
}
