// Package openai implements the LLM interface on OpenAI compatible chat
// completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/llm"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
	"github.com/tagus/weather-supervisor/pkg/retry"
)

const (
	// DefaultModel is the default chat model
	DefaultModel = "gpt-4o"

	// DefaultTemperature is used when the caller sets none
	DefaultTemperature = 0.2
)

// OpenAIClient implements the LLM interface for OpenAI
type OpenAIClient struct {
	Client        openai.Client
	ChatService   openai.ChatService
	Model         string
	Temperature   float64
	apiKey        string
	baseURL       string
	requestOpts   []option.RequestOption
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// Option represents an option for configuring the OpenAI client
type Option func(*OpenAIClient)

// WithModel sets the model for the OpenAI client
func WithModel(model string) Option {
	return func(c *OpenAIClient) {
		c.Model = model
	}
}

// WithTemperature sets the default sampling temperature
func WithTemperature(temperature float64) Option {
	return func(c *OpenAIClient) {
		c.Temperature = temperature
	}
}

// WithBaseURL points the client at an OpenAI compatible endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *OpenAIClient) {
		c.baseURL = baseURL
	}
}

// WithRequestOptions adds raw SDK request options such as a custom HTTP client
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *OpenAIClient) {
		c.requestOpts = append(c.requestOpts, opts...)
	}
}

// WithLogger sets the logger for the OpenAI client
func WithLogger(logger logging.Logger) Option {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// WithRetry configures retry policy for the client
func WithRetry(opts ...retry.Option) Option {
	return func(c *OpenAIClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates a new OpenAI client
func NewClient(apiKey string, options ...Option) *OpenAIClient {
	c := &OpenAIClient{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		apiKey:      apiKey,
		logger:      logging.NewNop(),
	}
	for _, option := range options {
		option(c)
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(c.baseURL))
	}
	requestOpts = append(requestOpts, c.requestOpts...)

	// retries are handled by the retry executor
	requestOpts = append(requestOpts, option.WithMaxRetries(0))

	c.Client = openai.NewClient(requestOpts...)
	c.ChatService = openai.NewChatService(requestOpts...)
	return c
}

// Name returns the name of the LLM provider
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Generate generates text based on the provided prompt
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	params := interfaces.ApplyGenerateOptions(options...)
	messages := llm.BuildMessages(ctx, prompt, params.Memory, c.logger)

	resp, err := c.Chat(ctx, messages, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateWithTools runs the tool calling loop until the model answers
func (c *OpenAIClient) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	resp, err := llm.RunToolLoop(ctx, c.Chat, prompt, tools, c.logger, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Chat performs a single chat completion round
func (c *OpenAIClient) Chat(ctx context.Context, messages []interfaces.Message, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	params := interfaces.ApplyGenerateOptions(options...)

	var history []openai.ChatCompletionMessageParamUnion
	if params.SystemMessage != "" {
		history = append(history, openai.SystemMessage(params.SystemMessage))
	}
	history = append(history, convertMessages(messages)...)

	req := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.Model),
		Messages:    history,
		Temperature: openai.Float(c.Temperature),
	}
	if cfg := params.LLMConfig; cfg != nil {
		req.Temperature = openai.Float(cfg.Temperature)
		if cfg.TopP > 0 {
			req.TopP = openai.Float(cfg.TopP)
		}
		if cfg.FrequencyPenalty != 0 {
			req.FrequencyPenalty = openai.Float(cfg.FrequencyPenalty)
		}
		if cfg.PresencePenalty != 0 {
			req.PresencePenalty = openai.Float(cfg.PresencePenalty)
		}
		if len(cfg.StopSequences) > 0 {
			req.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: cfg.StopSequences}
		}
	}
	if len(tools) > 0 {
		req.Tools = convertTools(tools)
	}
	if orgID, err := multitenancy.GetOrgID(ctx); err == nil {
		req.User = openai.String(orgID)
	}

	c.logger.Debug(ctx, "Executing OpenAI API request", map[string]interface{}{
		"model":    c.Model,
		"messages": len(req.Messages),
		"tools":    len(req.Tools),
	})

	var resp *openai.ChatCompletion
	operation := func() error {
		var err error
		resp, err = c.ChatService.Completions.New(ctx, req)
		if err != nil {
			c.logger.Error(ctx, "Error from OpenAI API", map[string]interface{}{
				"error": err.Error(),
				"model": c.Model,
			})
			return retryable(err)
		}
		return nil
	}

	var err error
	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completions returned")
	}

	choice := resp.Choices[0]
	result := &interfaces.LLMResponse{
		Content:    choice.Message.Content,
		Model:      resp.Model,
		StopReason: string(choice.FinishReason),
		Usage: &interfaces.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, interfaces.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

// retryable marks API errors other than rate limits and server errors as
// permanent
func retryable(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return err
		}
		return retry.Permanent(err)
	}
	return err
}

func convertTools(tools []interfaces.Tool) []openai.ChatCompletionToolUnionParam {
	converted := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		converted[i] = openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name(),
			Description: openai.String(tool.Description()),
			Parameters:  shared.FunctionParameters(llm.ToolSchema(tool)),
		})
	}
	return converted
}
