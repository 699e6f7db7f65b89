package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
)

// Context keys for sub-agent metadata
type contextKey string

const (
	recursionDepthKey contextKey = "recursion_depth"
	subAgentNameKey   contextKey = "sub_agent_name"

	// MaxRecursionDepth is the maximum allowed recursion depth
	MaxRecursionDepth = 5

	// HandoffPrefix prefixes the tool name under which a sub-agent is offered to a supervisor
	HandoffPrefix = "transfer_to_"
)

// SubAgent is the minimal interface needed for an agent exposed as a tool
type SubAgent interface {
	// Run answers a standalone query
	Run(ctx context.Context, input string) (string, error)
	// Step continues a shared conversation and returns the messages it produced
	Step(ctx context.Context, history []interfaces.Message) ([]interfaces.Message, error)
	GetName() string
	GetDescription() string
}

// AgentTool wraps an agent to make it callable as a tool
type AgentTool struct {
	agent       SubAgent
	name        string
	description string
	timeout     time.Duration
	logger      logging.Logger
	handoff     bool
}

// AgentToolOption configures an AgentTool
type AgentToolOption func(*AgentTool)

// WithToolName overrides the transfer_to_<agent> tool name
func WithToolName(name string) AgentToolOption {
	return func(at *AgentTool) {
		at.name = name
	}
}

// WithTimeout bounds one delegation
func WithTimeout(timeout time.Duration) AgentToolOption {
	return func(at *AgentTool) {
		at.timeout = timeout
	}
}

// AsHandoff offers the tool as a transfer with no arguments; the agent reads
// the shared conversation instead of a query
func AsHandoff() AgentToolOption {
	return func(at *AgentTool) {
		at.handoff = true
	}
}

// WithAgentToolLogger sets the logger
func WithAgentToolLogger(logger logging.Logger) AgentToolOption {
	return func(at *AgentTool) {
		at.logger = logger
	}
}

// WithToolDescription overrides the description shown to the model
func WithToolDescription(description string) AgentToolOption {
	return func(at *AgentTool) {
		at.description = description
	}
}

// NewAgentTool creates a new agent tool wrapper
func NewAgentTool(agent SubAgent, options ...AgentToolOption) *AgentTool {
	at := &AgentTool{
		agent:   agent,
		name:    HandoffPrefix + agent.GetName(),
		timeout: 10 * time.Minute,
		logger:  logging.NewNop(),
	}
	for _, option := range options {
		option(at)
	}
	return at
}

// Agent returns the wrapped agent
func (at *AgentTool) Agent() SubAgent {
	return at.agent
}

// Name returns the name of the tool
func (at *AgentTool) Name() string {
	return at.name
}

// DisplayName returns a human-friendly name
func (at *AgentTool) DisplayName() string {
	return fmt.Sprintf("%s Agent", at.agent.GetName())
}

// Description returns the description of what the tool does
func (at *AgentTool) Description() string {
	if at.description != "" {
		return at.description
	}
	if description := at.agent.GetDescription(); description != "" {
		return fmt.Sprintf("Ask agent '%s' for help. %s", at.agent.GetName(), description)
	}
	return fmt.Sprintf("Ask agent '%s' for help", at.agent.GetName())
}

// Internal reports whether the tool is hidden from end users
func (at *AgentTool) Internal() bool {
	return false
}

// Parameters returns the parameters that the tool accepts
func (at *AgentTool) Parameters() map[string]interfaces.ParameterSpec {
	if at.handoff {
		return map[string]interfaces.ParameterSpec{}
	}
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: fmt.Sprintf("The query or task to send to the %s agent", at.agent.GetName()),
			Required:    true,
		},
		"context": {
			Type:        "object",
			Description: "Optional context information for the sub-agent",
			Required:    false,
		},
	}
}

// Run sends a standalone query to the agent and returns its answer
func (at *AgentTool) Run(ctx context.Context, input string) (string, error) {
	ctx, cancel, err := at.enter(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	start := time.Now()
	result, err := at.agent.Run(ctx, input)
	if err != nil {
		at.logger.Error(ctx, "Sub-agent execution failed", map[string]interface{}{
			"sub_agent": at.agent.GetName(),
			"tool_name": at.name,
			"error":     err.Error(),
			"duration":  time.Since(start).String(),
		})
		return "", fmt.Errorf("sub-agent %s failed: %w", at.agent.GetName(), err)
	}

	at.logger.Info(ctx, "Sub-agent execution completed", map[string]interface{}{
		"sub_agent":       at.agent.GetName(),
		"response_length": len(result),
		"duration":        time.Since(start).String(),
	})
	return result, nil
}

// Handoff hands the shared conversation to the agent and returns the messages it added
func (at *AgentTool) Handoff(ctx context.Context, history []interfaces.Message) ([]interfaces.Message, error) {
	ctx, cancel, err := at.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	at.logger.Debug(ctx, "Handing off conversation", map[string]interface{}{
		"sub_agent":       at.agent.GetName(),
		"history_length":  len(history),
		"recursion_depth": getRecursionDepth(ctx),
	})

	produced, err := at.agent.Step(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("sub-agent %s failed: %w", at.agent.GetName(), err)
	}
	return produced, nil
}

// Execute parses {"query": ..., "context": {...}} and runs the agent
func (at *AgentTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query   string                 `json:"query"`
		Context map[string]interface{} `json:"context,omitempty"`
	}

	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	if params.Query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	input := params.Query
	if len(params.Context) > 0 {
		extra, err := json.Marshal(params.Context)
		if err != nil {
			return "", fmt.Errorf("failed to encode context: %w", err)
		}
		input = fmt.Sprintf("%s\n\nContext: %s", input, extra)
	}

	return at.Run(ctx, input)
}

// enter checks and bumps the recursion depth and applies the timeout
func (at *AgentTool) enter(ctx context.Context) (context.Context, context.CancelFunc, error) {
	depth := getRecursionDepth(ctx)
	if depth >= MaxRecursionDepth {
		at.logger.Error(ctx, "Sub-agent recursion depth exceeded", map[string]interface{}{
			"sub_agent":       at.agent.GetName(),
			"recursion_depth": depth,
			"max_depth":       MaxRecursionDepth,
		})
		return ctx, func() {}, fmt.Errorf("maximum recursion depth %d exceeded (current: %d)", MaxRecursionDepth, depth)
	}

	ctx = context.WithValue(ctx, subAgentNameKey, at.agent.GetName())
	ctx = context.WithValue(ctx, recursionDepthKey, depth+1)
	if at.timeout <= 0 {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, at.timeout)
	return ctx, cancel, nil
}

// getRecursionDepth retrieves the current recursion depth from context
func getRecursionDepth(ctx context.Context) int {
	if depth, ok := ctx.Value(recursionDepthKey).(int); ok {
		return depth
	}
	return 0
}

// SubAgentName returns the name of the agent currently running on ctx, if any
func SubAgentName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(subAgentNameKey).(string)
	return name, ok
}
