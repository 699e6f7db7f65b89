package orchestration

import (
	"strings"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// Decision is where a conversation goes after a message
type Decision string

const (
	// DecisionCallTool runs the tools the message requested
	DecisionCallTool Decision = "call_tool"
	// DecisionEnd finishes the conversation turn
	DecisionEnd Decision = "__end__"
	// DecisionContinue hands control back to the caller
	DecisionContinue Decision = "continue"

	// FinalAnswerMarker is the prefix collaborating agents put on a finished answer
	FinalAnswerMarker = "FINAL ANSWER"
)

// Route decides the next step from the last message of a conversation. Tool
// calls take precedence over a final answer marker in the same message.
func Route(msg interfaces.Message) Decision {
	if msg.HasToolCalls() {
		return DecisionCallTool
	}
	if strings.Contains(msg.Content, FinalAnswerMarker) {
		return DecisionEnd
	}
	return DecisionContinue
}

// RouteHistory routes on the last message of history; an empty history continues
func RouteHistory(history []interfaces.Message) Decision {
	if len(history) == 0 {
		return DecisionContinue
	}
	return Route(history[len(history)-1])
}

var nameReplacer = strings.NewReplacer(" ", "_", "-", "_")

// SanitizeName turns an agent name into an identifier usable as a message
// name and in tool names
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}
