package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/llm"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
	"github.com/tagus/weather-supervisor/pkg/retry"
)

const (
	// DefaultBaseURL is the default DeepSeek API base URL
	DefaultBaseURL = "https://api.deepseek.com"

	// DefaultModel is the default DeepSeek model (DeepSeek-V3)
	DefaultModel = "deepseek-chat"

	// DefaultTemperature is used when the caller sets none
	DefaultTemperature = 0.2
)

// DeepSeekClient implements the LLM interface for DeepSeek
type DeepSeekClient struct {
	APIKey        string
	Model         string
	BaseURL       string
	Temperature   float64
	HTTPClient    *http.Client
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// Option represents an option for configuring the DeepSeek client
type Option func(*DeepSeekClient)

// WithModel sets the model for the DeepSeek client
func WithModel(model string) Option {
	return func(c *DeepSeekClient) {
		c.Model = model
	}
}

// WithTemperature sets the default sampling temperature
func WithTemperature(temperature float64) Option {
	return func(c *DeepSeekClient) {
		c.Temperature = temperature
	}
}

// WithLogger sets the logger for the DeepSeek client
func WithLogger(logger logging.Logger) Option {
	return func(c *DeepSeekClient) {
		c.logger = logger
	}
}

// WithRetry configures retry policy for the client
func WithRetry(opts ...retry.Option) Option {
	return func(c *DeepSeekClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// WithBaseURL sets the base URL for the DeepSeek client
func WithBaseURL(baseURL string) Option {
	return func(c *DeepSeekClient) {
		c.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *DeepSeekClient) {
		c.HTTPClient = client
	}
}

// NewClient creates a new DeepSeek client
func NewClient(apiKey string, options ...Option) *DeepSeekClient {
	client := &DeepSeekClient{
		APIKey:      apiKey,
		Model:       DefaultModel,
		BaseURL:     DefaultBaseURL,
		Temperature: DefaultTemperature,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logging.NewNop(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Name returns the name of the LLM provider
func (c *DeepSeekClient) Name() string {
	return "deepseek"
}

// ChatCompletionRequest represents a request to the DeepSeek Chat Completion API
type ChatCompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	Tools            []Tool    `json:"tools,omitempty"`
}

// Message represents a message in the chat
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall represents a tool call in the response
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a function call
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool represents a tool/function definition
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef represents a function definition
type FunctionDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// ChatCompletionResponse represents a response from the DeepSeek Chat Completion API
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generate generates text based on the provided prompt
func (c *DeepSeekClient) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	params := interfaces.ApplyGenerateOptions(options...)
	messages := llm.BuildMessages(ctx, prompt, params.Memory, c.logger)

	resp, err := c.Chat(ctx, messages, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateWithTools runs the tool calling loop until the model answers
func (c *DeepSeekClient) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	resp, err := llm.RunToolLoop(ctx, c.Chat, prompt, tools, c.logger, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Chat performs a single chat completion round
func (c *DeepSeekClient) Chat(ctx context.Context, messages []interfaces.Message, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	params := interfaces.ApplyGenerateOptions(options...)
	orgID, _ := multitenancy.GetOrgID(ctx)

	req := ChatCompletionRequest{
		Model:       c.Model,
		Temperature: c.Temperature,
		Tools:       convertTools(tools),
	}
	if params.SystemMessage != "" {
		req.Messages = append(req.Messages, Message{Role: "system", Content: params.SystemMessage})
	}
	req.Messages = append(req.Messages, convertMessages(messages)...)

	if cfg := params.LLMConfig; cfg != nil {
		req.Temperature = cfg.Temperature
		req.TopP = cfg.TopP
		req.FrequencyPenalty = cfg.FrequencyPenalty
		req.PresencePenalty = cfg.PresencePenalty
		if len(cfg.StopSequences) > 0 {
			req.Stop = cfg.StopSequences
		}
	}

	c.logger.Debug(ctx, "Executing DeepSeek API request", map[string]interface{}{
		"model":       c.Model,
		"temperature": req.Temperature,
		"messages":    len(req.Messages),
		"tools":       len(req.Tools),
		"org_id":      orgID,
	})

	var resp *ChatCompletionResponse
	operation := func() error {
		var err error
		resp, err = c.doRequest(ctx, req)
		if err != nil {
			c.logger.Error(ctx, "Error from DeepSeek API", map[string]interface{}{
				"error": err.Error(),
				"model": c.Model,
			})
			return err
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
		return nil, fmt.Errorf("failed to generate text: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from DeepSeek API")
	}

	choice := resp.Choices[0]
	return &interfaces.LLMResponse{
		Content:    choice.Message.Content,
		Model:      resp.Model,
		StopReason: choice.FinishReason,
		ToolCalls:  convertToolCalls(choice.Message.ToolCalls),
		Usage: &interfaces.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// doRequest performs an HTTP request to the DeepSeek API
func (c *DeepSeekClient) doRequest(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Error(ctx, "Failed to close response body", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("DeepSeek API error: status=%d, body=%s", httpResp.StatusCode, string(body))
		// only rate limits and server errors are worth another attempt
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, apiErr
		}
		return nil, retry.Permanent(apiErr)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}

	return &resp, nil
}
