// Package llm holds the provider independent pieces shared by the chat clients.
package llm

import (
	"context"
	"fmt"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/tools"
)

// DefaultMaxIterations is the default number of tool calling rounds
const DefaultMaxIterations = 10

// ChatFunc performs one completion round
type ChatFunc func(ctx context.Context, messages []interfaces.Message, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error)

// BuildMessages returns the memory history followed by the prompt as a user message
func BuildMessages(ctx context.Context, prompt string, memory interfaces.Memory, logger logging.Logger) []interfaces.Message {
	var messages []interfaces.Message
	if memory != nil {
		history, err := memory.GetMessages(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to retrieve memory messages", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			messages = append(messages, history...)
		}
	}
	return append(messages, interfaces.Message{
		Role:    interfaces.MessageRoleUser,
		Content: prompt,
	})
}

// RunToolLoop calls chat until the model stops requesting tools, running the
// requested tools between rounds. When the iteration budget is spent a last
// round is made without tools so the model has to answer.
func RunToolLoop(ctx context.Context, chat ChatFunc, prompt string, available []interfaces.Tool, logger logging.Logger, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	params := interfaces.ApplyGenerateOptions(options...)
	maxIterations := params.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	messages := BuildMessages(ctx, prompt, params.Memory, logger)
	usage := &interfaces.TokenUsage{}

	for iteration := 0; iteration < maxIterations; iteration++ {
		resp, err := chat(ctx, messages, available, options...)
		if err != nil {
			return nil, fmt.Errorf("failed to generate text with tools: %w", err)
		}
		addUsage(usage, resp.Usage)

		if len(resp.ToolCalls) == 0 {
			resp.Usage = usage
			return resp, nil
		}

		logger.Info(ctx, "Processing tool calls", map[string]interface{}{
			"count":     len(resp.ToolCalls),
			"iteration": iteration + 1,
		})
		messages = append(messages, resp.Message())
		messages = append(messages, tools.ExecuteCalls(ctx, resp.ToolCalls, available, logger)...)
	}

	logger.Warn(ctx, "Max iterations reached, making final call without tools", map[string]interface{}{
		"max_iterations": maxIterations,
	})
	resp, err := chat(ctx, messages, nil, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to make final request: %w", err)
	}
	addUsage(usage, resp.Usage)
	resp.Usage = usage
	return resp, nil
}

func addUsage(total, usage *interfaces.TokenUsage) {
	if usage == nil {
		return
	}
	total.InputTokens += usage.InputTokens
	total.OutputTokens += usage.OutputTokens
	total.TotalTokens += usage.TotalTokens
}

// ToolSchema converts a tool's parameters to a JSON schema object
func ToolSchema(tool interfaces.Tool) map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for name, param := range tool.Parameters() {
		properties[name] = paramSchema(param)
		if param.Required {
			required = append(required, name)
		}
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func paramSchema(param interfaces.ParameterSpec) map[string]interface{} {
	def := map[string]interface{}{
		"type": param.Type,
	}
	if param.Description != "" {
		def["description"] = param.Description
	}
	if param.Default != nil {
		def["default"] = param.Default
	}
	if param.Enum != nil {
		def["enum"] = param.Enum
	}
	if param.Items != nil {
		def["items"] = paramSchema(*param.Items)
	}
	return def
}
