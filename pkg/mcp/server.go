package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/tools/qweather"
)

const (
	// WeatherServerName is the implementation name reported to clients
	WeatherServerName = "weather"

	weatherInstructions = "Integrate the qWeather API to provide a weather query tool for LLMs."
)

// WarningInput is the argument of get_weather_warning
type WarningInput struct {
	City string `json:"city" jsonschema:"城市名，例如：北京"`
}

// ForecastInput is the argument of get_daily_forecast
type ForecastInput struct {
	City string `json:"city" jsonschema:"城市名，例如：北京"`
	Days int    `json:"days,omitempty" jsonschema:"查询天数，支持3、7、10、15、30，默认3"`
}

// WeatherServer exposes a qweather.Service as an MCP server
type WeatherServer struct {
	server  *mcp.Server
	service qweather.Service
	logger  logging.Logger
}

// WeatherServerOption configures a WeatherServer
type WeatherServerOption func(*WeatherServer)

// WithServerLogger sets the logger of the weather server
func WithServerLogger(logger logging.Logger) WeatherServerOption {
	return func(s *WeatherServer) {
		s.logger = logger
	}
}

// NewWeatherServer registers the weather tools on a new MCP server
func NewWeatherServer(service qweather.Service, version string, options ...WeatherServerOption) *WeatherServer {
	s := &WeatherServer{
		service: service,
		logger:  logging.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	if version == "" {
		version = clientVersion
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    WeatherServerName,
		Version: version,
	}, &mcp.ServerOptions{Instructions: weatherInstructions})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        qweather.WarningToolName,
		Description: qweather.WarningToolDescription,
	}, s.handleWarning)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        qweather.ForecastToolName,
		Description: qweather.ForecastToolDescription,
	}, s.handleForecast)

	return s
}

// Server returns the underlying SDK server
func (s *WeatherServer) Server() *mcp.Server {
	return s.server
}

// ServeStdio serves MCP on stdin/stdout until ctx is done or the client disconnects
func (s *WeatherServer) ServeStdio(ctx context.Context) error {
	s.logger.Info(ctx, "Serving weather MCP over stdio", nil)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a streamable HTTP handler for the server
func (s *WeatherServer) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *WeatherServer) handleWarning(ctx context.Context, _ *mcp.CallToolRequest, in WarningInput) (*mcp.CallToolResult, any, error) {
	s.logger.Debug(ctx, "MCP weather warning", map[string]interface{}{"city": in.City})
	text, err := s.service.WeatherWarning(ctx, in.City)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(text), nil, nil
}

func (s *WeatherServer) handleForecast(ctx context.Context, _ *mcp.CallToolRequest, in ForecastInput) (*mcp.CallToolResult, any, error) {
	days := in.Days
	if days <= 0 {
		days = qweather.DefaultForecastDays
	}
	s.logger.Debug(ctx, "MCP daily forecast", map[string]interface{}{"city": in.City, "days": days})
	text, err := s.service.DailyForecast(ctx, in.City, days)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(text), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
