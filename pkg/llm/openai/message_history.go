package openai

import (
	"github.com/openai/openai-go/v2"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// convertMessages converts conversation messages to chat completion params
func convertMessages(messages []interfaces.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if param := convertMessage(msg); param != nil {
			converted = append(converted, *param)
		}
	}
	return converted
}

func convertMessage(msg interfaces.Message) *openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case interfaces.MessageRoleUser:
		userMsg := openai.UserMessage(msg.Content)
		return &userMsg

	case interfaces.MessageRoleAssistant:
		if len(msg.ToolCalls) > 0 {
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnion, 0, len(msg.ToolCalls))
			for _, toolCall := range msg.ToolCalls {
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   toolCall.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      toolCall.Name,
						Arguments: toolCall.Arguments,
					},
				})
			}
			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			param := assistantMsg.ToParam()
			return &param
		}
		assistantMsg := openai.AssistantMessage(msg.Content)
		return &assistantMsg

	case interfaces.MessageRoleTool:
		if msg.ToolCallID != "" {
			toolMsg := openai.ToolMessage(msg.Content, msg.ToolCallID)
			return &toolMsg
		}

	case interfaces.MessageRoleSystem:
		systemMsg := openai.SystemMessage(msg.Content)
		return &systemMsg
	}

	return nil
}
