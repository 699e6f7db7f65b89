package tools

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
)

// maxParallelCalls bounds how many tools of one round run at once
const maxParallelCalls = 8

// ExecuteCalls runs the requested tool calls concurrently and returns one tool
// message per call, in request order. Missing tools and tool failures are
// reported to the model as message content rather than returned as errors.
func ExecuteCalls(ctx context.Context, calls []interfaces.ToolCall, available []interfaces.Tool, logger logging.Logger) []interfaces.Message {
	if logger == nil {
		logger = logging.NewNop()
	}

	byName := make(map[string]interfaces.Tool, len(available))
	for _, tool := range available {
		byName[tool.Name()] = tool
	}

	results := make([]interfaces.Message, len(calls))
	var g errgroup.Group
	g.SetLimit(maxParallelCalls)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = executeCall(ctx, call, byName[call.Name], logger)
			return nil
		})
	}
	// executeCall never returns an error
	_ = g.Wait()
	return results
}

func executeCall(ctx context.Context, call interfaces.ToolCall, tool interfaces.Tool, logger logging.Logger) interfaces.Message {
	msg := interfaces.Message{
		Role:       interfaces.MessageRoleTool,
		ToolCallID: call.ID,
		Metadata:   map[string]interface{}{"tool_name": call.Name},
	}

	if tool == nil {
		logger.Error(ctx, "Tool not found", map[string]interface{}{
			"tool_name": call.Name,
		})
		msg.Content = fmt.Sprintf("Error: tool '%s' not found", call.Name)
		return msg
	}

	logger.Info(ctx, "Executing tool", map[string]interface{}{
		"tool_name": call.Name,
		"arguments": call.Arguments,
	})

	content, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		logger.Error(ctx, "Tool execution failed", map[string]interface{}{
			"tool_name": call.Name,
			"error":     err.Error(),
		})
		msg.Content = fmt.Sprintf("Error: %v", err)
		return msg
	}

	msg.Content = content
	return msg
}
