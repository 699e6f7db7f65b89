package interfaces

import "context"

// MCPServer is a connection to a Model Context Protocol server
type MCPServer interface {
	// Initialize performs any setup the connection needs
	Initialize(ctx context.Context) error

	// ListTools lists the tools the server offers
	ListTools(ctx context.Context) ([]MCPTool, error)

	// CallTool invokes a tool on the server
	CallTool(ctx context.Context, name string, args interface{}) (*MCPToolResponse, error)

	// Close closes the connection
	Close() error
}

// MCPTool describes a tool offered by an MCP server
type MCPTool struct {
	Name        string
	Description string
	Schema      interface{}
}

// MCPToolResponse is the result of an MCP tool call
type MCPToolResponse struct {
	Content interface{}
	IsError bool
}
