package interfaces

import "context"

// LLM represents a large language model provider
type LLM interface {
	// Generate generates text based on the provided prompt
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error)

	// GenerateWithTools generates text and runs the requested tools until the model answers
	GenerateWithTools(ctx context.Context, prompt string, tools []Tool, options ...GenerateOption) (string, error)

	// Chat runs a single completion round over the given messages. Tool calls
	// requested by the model are returned, not executed.
	Chat(ctx context.Context, messages []Message, tools []Tool, options ...GenerateOption) (*LLMResponse, error)

	// Name returns the name of the LLM provider
	Name() string
}

// LLMConfig holds sampling parameters
type LLMConfig struct {
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	StopSequences    []string
}

// GenerateOptions contains configuration for LLM generation
type GenerateOptions struct {
	LLMConfig     *LLMConfig
	SystemMessage string
	MaxIterations int
	Memory        Memory
}

// GenerateOption configures a generation call
type GenerateOption func(options *GenerateOptions)

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float64) GenerateOption {
	return func(options *GenerateOptions) {
		if options.LLMConfig == nil {
			options.LLMConfig = &LLMConfig{}
		}
		options.LLMConfig.Temperature = temperature
	}
}

// WithLLMConfig replaces the sampling parameters
func WithLLMConfig(config LLMConfig) GenerateOption {
	return func(options *GenerateOptions) {
		options.LLMConfig = &config
	}
}

// WithSystemMessage sets the system message
func WithSystemMessage(message string) GenerateOption {
	return func(options *GenerateOptions) {
		options.SystemMessage = message
	}
}

// WithMaxIterations bounds the tool-calling loop of GenerateWithTools
func WithMaxIterations(maxIterations int) GenerateOption {
	return func(options *GenerateOptions) {
		options.MaxIterations = maxIterations
	}
}

// WithMemory makes Generate* prepend the conversation history held by memory
func WithMemory(memory Memory) GenerateOption {
	return func(options *GenerateOptions) {
		options.Memory = memory
	}
}

// ApplyGenerateOptions folds options into a GenerateOptions value
func ApplyGenerateOptions(options ...GenerateOption) *GenerateOptions {
	params := &GenerateOptions{}
	for _, option := range options {
		if option != nil {
			option(params)
		}
	}
	return params
}

// TokenUsage represents token usage information for an LLM call
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMResponse is the result of a single completion round
type LLMResponse struct {
	Content    string
	Model      string
	StopReason string
	ToolCalls  []ToolCall
	Usage      *TokenUsage
}

// Message converts the response into an assistant message
func (r *LLMResponse) Message() Message {
	return Message{
		Role:      MessageRoleAssistant,
		Content:   r.Content,
		ToolCalls: r.ToolCalls,
	}
}
