package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
	"github.com/tagus/weather-supervisor/pkg/orchestration"
	"github.com/tagus/weather-supervisor/pkg/tools"
)

// DefaultMaxIterations bounds the tool rounds of one Step
const DefaultMaxIterations = 10

// Agent is a react agent: a model with a fixed toolset, called until it
// stops requesting tools
type Agent struct {
	llm           interfaces.LLM
	memory        interfaces.Memory
	tools         []interfaces.Tool
	logger        logging.Logger
	tracer        trace.Tracer
	systemPrompt  string
	name          string
	description   string
	maxIterations int
	usage         *usageTracker
}

// Option represents an option for configuring an agent
type Option func(*Agent)

// WithLLM sets the LLM for the agent
func WithLLM(llm interfaces.LLM) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithMemory sets the memory Run reads the history from and records to
func WithMemory(memory interfaces.Memory) Option {
	return func(a *Agent) {
		a.memory = memory
	}
}

// WithTools appends tools to the agent's tool list, deduplicating by name
func WithTools(tools ...interfaces.Tool) Option {
	return func(a *Agent) {
		a.tools = deduplicateTools(append(a.tools, tools...))
	}
}

// deduplicateTools keeps the first tool registered under each name
func deduplicateTools(tools []interfaces.Tool) []interfaces.Tool {
	seen := make(map[string]bool, len(tools))
	result := make([]interfaces.Tool, 0, len(tools))

	for _, tool := range tools {
		if tool == nil || tool.Name() == "" || seen[tool.Name()] {
			continue
		}
		seen[tool.Name()] = true
		result = append(result, tool)
	}

	return result
}

// WithLogger sets the logger for the agent
func WithLogger(logger logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithTracer sets the tracer for the agent
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Agent) {
		a.tracer = tracer
	}
}

// WithSystemPrompt sets the system prompt for the agent
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithName sets the name of the agent
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithDescription sets the description of the agent
func WithDescription(description string) Option {
	return func(a *Agent) {
		a.description = description
	}
}

// WithMaxIterations sets the maximum number of tool rounds per Step
func WithMaxIterations(maxIterations int) Option {
	return func(a *Agent) {
		a.maxIterations = maxIterations
	}
}

// NewAgent creates a new agent with the given options
func NewAgent(options ...Option) (*Agent, error) {
	agent := &Agent{
		maxIterations: DefaultMaxIterations,
		usage:         &usageTracker{},
	}

	for _, option := range options {
		option(agent)
	}

	if agent.llm == nil {
		return nil, fmt.Errorf("LLM is required for agent")
	}
	if agent.name == "" {
		return nil, fmt.Errorf("name is required for agent")
	}
	if agent.logger == nil {
		agent.logger = logging.NewNop()
	}
	if agent.tracer == nil {
		agent.tracer = otel.Tracer("github.com/tagus/weather-supervisor/pkg/agent")
	}
	if agent.maxIterations <= 0 {
		agent.maxIterations = DefaultMaxIterations
	}

	return agent, nil
}

// Run answers input as a standalone conversation. The agent's memory, when
// set, supplies the history and records the exchange.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	var history []interfaces.Message
	if a.memory != nil {
		stored, err := a.memory.GetMessages(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load memory: %w", err)
		}
		history = stored
	}

	userMsg := interfaces.Message{Role: interfaces.MessageRoleUser, Content: input}
	produced, err := a.Step(ctx, append(history, userMsg))
	if err != nil {
		return "", err
	}

	if a.memory != nil {
		for _, msg := range append([]interfaces.Message{userMsg}, produced...) {
			if err := a.memory.AddMessage(ctx, msg); err != nil {
				return "", fmt.Errorf("failed to save memory: %w", err)
			}
		}
	}

	if len(produced) == 0 {
		return "", nil
	}
	return produced[len(produced)-1].Content, nil
}

// Step continues history and returns the messages the agent produced: its
// tool requests, the tool results and its final message.
func (a *Agent) Step(ctx context.Context, history []interfaces.Message) ([]interfaces.Message, error) {
	ctx, span := a.tracer.Start(ctx, "agent.step", trace.WithAttributes(
		attribute.String("agent", a.name),
		attribute.Int("history_length", len(history)),
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
	))
	defer span.End()

	produced, err := a.step(ctx, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("produced", len(produced)))
	return produced, nil
}

func (a *Agent) step(ctx context.Context, history []interfaces.Message) ([]interfaces.Message, error) {
	conversation := append([]interfaces.Message(nil), history...)
	var produced []interfaces.Message
	options := []interfaces.GenerateOption{interfaces.WithSystemMessage(a.systemPrompt)}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		resp, err := a.llm.Chat(ctx, conversation, a.tools, options...)
		if err != nil {
			return nil, fmt.Errorf("agent %s failed: %w", a.name, err)
		}
		a.usage.addLLMUsage(resp.Usage)

		msg := resp.Message()
		msg.Name = a.name
		conversation = append(conversation, msg)
		produced = append(produced, msg)

		switch orchestration.Route(msg) {
		case orchestration.DecisionCallTool:
			a.logger.Info(ctx, "Processing tool calls", map[string]interface{}{
				"agent":     a.name,
				"count":     len(msg.ToolCalls),
				"iteration": iteration + 1,
			})
			for _, call := range msg.ToolCalls {
				a.usage.addToolCall(call.Name)
			}
			results := tools.ExecuteCalls(ctx, msg.ToolCalls, a.tools, a.logger)
			conversation = append(conversation, results...)
			produced = append(produced, results...)
		default:
			return produced, nil
		}
	}

	a.logger.Warn(ctx, "Max iterations reached, making final call without tools", map[string]interface{}{
		"agent":          a.name,
		"max_iterations": a.maxIterations,
	})
	resp, err := a.llm.Chat(ctx, conversation, nil, options...)
	if err != nil {
		return nil, fmt.Errorf("agent %s failed: %w", a.name, err)
	}
	a.usage.addLLMUsage(resp.Usage)
	msg := resp.Message()
	msg.Name = a.name
	return append(produced, msg), nil
}

// GetName returns the agent's name
func (a *Agent) GetName() string {
	return a.name
}

// GetDescription returns the agent's description
func (a *Agent) GetDescription() string {
	return a.description
}

// GetTools returns the agent's tools
func (a *Agent) GetTools() []interfaces.Tool {
	return a.tools
}

// GetSystemPrompt returns the agent's system prompt
func (a *Agent) GetSystemPrompt() string {
	return a.systemPrompt
}

// GetLLM returns the agent's model
func (a *Agent) GetLLM() interfaces.LLM {
	return a.llm
}

// Usage returns the tokens and tool calls the agent used so far
func (a *Agent) Usage() Usage {
	return a.usage.snapshot()
}
