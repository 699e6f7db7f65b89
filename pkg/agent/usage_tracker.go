package agent

import (
	"sync"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// Usage summarizes what an agent consumed since it was created
type Usage struct {
	Tokens    interfaces.TokenUsage
	LLMCalls  int
	ToolCalls int
	UsedTools []string
}

type usageTracker struct {
	mu    sync.Mutex
	usage Usage
}

func (ut *usageTracker) addLLMUsage(usage *interfaces.TokenUsage) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.usage.LLMCalls++
	if usage == nil {
		return
	}
	ut.usage.Tokens.InputTokens += usage.InputTokens
	ut.usage.Tokens.OutputTokens += usage.OutputTokens
	ut.usage.Tokens.TotalTokens += usage.TotalTokens
}

func (ut *usageTracker) addToolCall(toolName string) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.usage.ToolCalls++
	for _, used := range ut.usage.UsedTools {
		if used == toolName {
			return
		}
	}
	ut.usage.UsedTools = append(ut.usage.UsedTools, toolName)
}

func (ut *usageTracker) snapshot() Usage {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	usage := ut.usage
	usage.UsedTools = append([]string(nil), ut.usage.UsedTools...)
	return usage
}
