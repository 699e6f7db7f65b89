package interfaces

import "context"

// Tool represents a tool that can be used by an agent
type Tool interface {
	// Name returns the name of the tool
	Name() string

	// DisplayName returns a human-friendly name
	DisplayName() string

	// Description returns a description of what the tool does
	Description() string

	// Internal reports whether the tool is hidden from end users
	Internal() bool

	// Parameters returns the parameters that the tool accepts
	Parameters() map[string]ParameterSpec

	// Run executes the tool with the given input
	Run(ctx context.Context, input string) (string, error)

	// Execute executes the tool with JSON encoded arguments
	Execute(ctx context.Context, args string) (string, error)
}

// ParameterSpec defines the specification for a tool parameter
type ParameterSpec struct {
	Type        string
	Description string
	Required    bool
	Default     interface{}
	Items       *ParameterSpec
	Enum        []interface{}
}

// ToolRegistry is a collection of tools addressable by name
type ToolRegistry interface {
	Register(tool Tool)
	Get(name string) (Tool, bool)
	List() []Tool
}
