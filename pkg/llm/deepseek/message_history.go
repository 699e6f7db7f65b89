package deepseek

import (
	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/llm"
)

// convertMessages converts conversation messages to the DeepSeek wire format
func convertMessages(messages []interfaces.Message) []Message {
	converted := make([]Message, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, convertMessage(msg))
	}
	return converted
}

func convertMessage(msg interfaces.Message) Message {
	message := Message{
		Role:    string(msg.Role),
		Content: msg.Content,
	}

	if msg.Role == interfaces.MessageRoleAssistant && len(msg.ToolCalls) > 0 {
		message.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			message.ToolCalls[i] = ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			}
		}
	}

	if msg.Role == interfaces.MessageRoleTool {
		message.ToolCallID = msg.ToolCallID
	}

	return message
}

func convertToolCalls(calls []ToolCall) []interfaces.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	converted := make([]interfaces.ToolCall, len(calls))
	for i, tc := range calls {
		converted[i] = interfaces.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return converted
}

// convertTools converts tools to DeepSeek function definitions
func convertTools(tools []interfaces.Tool) []Tool {
	if len(tools) == 0 {
		return nil
	}
	converted := make([]Tool, len(tools))
	for i, tool := range tools {
		converted[i] = Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  llm.ToolSchema(tool),
			},
		}
	}
	return converted
}
