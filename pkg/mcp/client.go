// Package mcp connects agents to Model Context Protocol servers and serves the
// weather tools over MCP.
package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/retry"
)

const (
	clientName    = "weather-supervisor"
	clientVersion = "1.0.0"
)

// ServerProtocolType selects the HTTP flavour of an MCP server
type ServerProtocolType string

const (
	StreamableHTTP ServerProtocolType = "streamable"
	SSE            ServerProtocolType = "sse"
)

// ErrEmptyCommand is returned when a stdio server is configured without a command
var ErrEmptyCommand = errors.New("command cannot be empty")

// ServerImpl is the interfaces.MCPServer implementation backed by an SDK client session
type ServerImpl struct {
	session    *mcp.ClientSession
	logger     logging.Logger
	serverName string
}

// NewMCPServer connects to an MCP server over transport
func NewMCPServer(ctx context.Context, transport mcp.Transport, logger logging.Logger) (*ServerImpl, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		logger.Error(ctx, "Failed to connect to MCP server", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	s := &ServerImpl{session: session, logger: logger}
	if initResult := session.InitializeResult(); initResult != nil && initResult.ServerInfo != nil {
		s.serverName = initResult.ServerInfo.Name
		logger.Info(ctx, "Connected to MCP server", map[string]interface{}{
			"server_name":    initResult.ServerInfo.Name,
			"server_version": initResult.ServerInfo.Version,
		})
	}
	return s, nil
}

// ServerName returns the name the server reported during initialization
func (s *ServerImpl) ServerName() string {
	return s.serverName
}

// Initialize is a no-op, the session is initialized on connect
func (s *ServerImpl) Initialize(ctx context.Context) error {
	return nil
}

// ListTools lists the tools available on the MCP server
func (s *ServerImpl) ListTools(ctx context.Context) ([]interfaces.MCPTool, error) {
	resp, err := s.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		s.logger.Error(ctx, "Failed to list MCP tools", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to list MCP tools: %w", err)
	}

	tools := make([]interfaces.MCPTool, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		tools = append(tools, interfaces.MCPTool{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.InputSchema,
		})
	}

	s.logger.Debug(ctx, "Listed MCP tools", map[string]interface{}{
		"tool_count": len(tools),
	})
	return tools, nil
}

// CallTool calls a tool on the MCP server. Text content blocks are joined
// into a single string.
func (s *ServerImpl) CallTool(ctx context.Context, name string, args interface{}) (*interfaces.MCPToolResponse, error) {
	s.logger.Debug(ctx, "Calling MCP tool", map[string]interface{}{
		"tool_name": name,
	})

	resp, err := s.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to call MCP tool", map[string]interface{}{
			"tool_name": name,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("failed to call MCP tool %s: %w", name, err)
	}

	text := ContentText(resp.Content)
	if resp.IsError {
		s.logger.Warn(ctx, "MCP tool returned error", map[string]interface{}{
			"tool_name": name,
			"content":   text,
		})
	}

	return &interfaces.MCPToolResponse{
		Content: text,
		IsError: resp.IsError,
	}, nil
}

// Close closes the session
func (s *ServerImpl) Close() error {
	if err := s.session.Close(); err != nil {
		s.logger.Error(context.Background(), "Failed to close MCP server connection", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// ContentText concatenates the text blocks of an MCP result
func ContentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// StdioServerConfig holds configuration for a stdio MCP server
type StdioServerConfig struct {
	Command string
	Args    []string
	Env     []string
	Logger  logging.Logger
}

// NewStdioServer starts the command and speaks MCP over its stdin/stdout
func NewStdioServer(ctx context.Context, config StdioServerConfig) (*ServerImpl, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if config.Command == "" {
		return nil, ErrEmptyCommand
	}

	commandPath, err := exec.LookPath(config.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", config.Command, err)
	}

	cmd := exec.CommandContext(ctx, commandPath, config.Args...)
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug(ctx, "Starting stdio MCP server", map[string]interface{}{
		"command":   commandPath,
		"args":      config.Args,
		"env_count": len(config.Env),
	})

	server, err := NewMCPServer(ctx, &mcp.CommandTransport{Command: cmd}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return server, nil
}

// HTTPServerConfig holds configuration for an HTTP MCP server
type HTTPServerConfig struct {
	BaseURL      string
	Token        string
	ProtocolType ServerProtocolType
	// MaxAttempts bounds connection attempts, defaults to 3
	MaxAttempts int32
	HTTPClient  *http.Client
	Logger      logging.Logger
}

type bearerRoundTripper struct {
	delegate http.RoundTripper
	token    string
}

func (rt *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+rt.token)
	return rt.delegate.RoundTrip(req)
}

// NewHTTPServer connects to a remote MCP server, retrying the initial
// connection with exponential backoff.
func NewHTTPServer(ctx context.Context, config HTTPServerConfig) (*ServerImpl, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if config.Token != "" {
		delegate := httpClient.Transport
		if delegate == nil {
			delegate = http.DefaultTransport
		}
		httpClient = &http.Client{
			Transport: &bearerRoundTripper{delegate: delegate, token: config.Token},
			Timeout:   httpClient.Timeout,
		}
	}

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	executor := retry.NewExecutor(
		retry.NewPolicy(
			retry.WithMaximumAttempts(attempts),
			retry.WithInitialInterval(500*time.Millisecond),
		),
		retry.WithLogger(logger),
	)

	var server *ServerImpl
	err := executor.Execute(ctx, func() error {
		var transport mcp.Transport
		switch config.ProtocolType {
		case SSE:
			transport = &mcp.SSEClientTransport{Endpoint: config.BaseURL, HTTPClient: httpClient}
		default:
			transport = &mcp.StreamableClientTransport{Endpoint: config.BaseURL, HTTPClient: httpClient}
		}
		s, err := NewMCPServer(ctx, transport, logger)
		if err != nil {
			return err
		}
		server = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return server, nil
}
