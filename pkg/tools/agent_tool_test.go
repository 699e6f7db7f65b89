package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// MockSubAgent is a mock implementation of the SubAgent interface
type MockSubAgent struct {
	name        string
	description string
	runFunc     func(ctx context.Context, input string) (string, error)
	stepFunc    func(ctx context.Context, history []interfaces.Message) ([]interfaces.Message, error)
}

func (m *MockSubAgent) Run(ctx context.Context, input string) (string, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, input)
	}
	return "mock response: " + input, nil
}

func (m *MockSubAgent) Step(ctx context.Context, history []interfaces.Message) ([]interfaces.Message, error) {
	if m.stepFunc != nil {
		return m.stepFunc(ctx, history)
	}
	return []interfaces.Message{{Role: interfaces.MessageRoleAssistant, Content: "done", Name: m.name}}, nil
}

func (m *MockSubAgent) GetName() string        { return m.name }
func (m *MockSubAgent) GetDescription() string { return m.description }

func TestNewAgentTool(t *testing.T) {
	tool := NewAgentTool(&MockSubAgent{name: "weather_assistant", description: "查询天气"})

	assert.Equal(t, "transfer_to_weather_assistant", tool.Name())
	assert.Equal(t, "Ask agent 'weather_assistant' for help. 查询天气", tool.Description())
	assert.False(t, tool.Internal())

	params := tool.Parameters()
	assert.True(t, params["query"].Required)
	assert.False(t, params["context"].Required)
	assert.Equal(t, "object", params["context"].Type)

	handoff := NewAgentTool(&MockSubAgent{name: "weather_assistant"}, AsHandoff())
	assert.Empty(t, handoff.Parameters())

	named := NewAgentTool(&MockSubAgent{name: "x"}, WithToolName("delegate"), WithToolDescription("custom"))
	assert.Equal(t, "delegate", named.Name())
	assert.Equal(t, "custom", named.Description())
}

func TestAgentToolExecute(t *testing.T) {
	var received string
	agent := &MockSubAgent{
		name: "research_assistant",
		runFunc: func(ctx context.Context, input string) (string, error) {
			received = input
			name, ok := SubAgentName(ctx)
			assert.True(t, ok)
			assert.Equal(t, "research_assistant", name)
			return "answer", nil
		},
	}
	tool := NewAgentTool(agent)

	result, err := tool.Execute(context.Background(), `{"query":"what is MCP","context":{"lang":"zh"}}`)
	require.NoError(t, err)
	assert.Equal(t, "answer", result)
	assert.True(t, strings.HasPrefix(received, "what is MCP"))
	assert.Contains(t, received, `Context: {"lang":"zh"}`)

	_, err = tool.Execute(context.Background(), `{"query":""}`)
	assert.EqualError(t, err, "query parameter is required")

	_, err = tool.Execute(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestAgentToolRunError(t *testing.T) {
	boom := errors.New("boom")
	tool := NewAgentTool(&MockSubAgent{
		name:    "chart_assistant",
		runFunc: func(ctx context.Context, input string) (string, error) { return "", boom },
	})

	_, err := tool.Run(context.Background(), "chart")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sub-agent chart_assistant failed")
}

func TestAgentToolHandoff(t *testing.T) {
	history := []interfaces.Message{{Role: interfaces.MessageRoleUser, Content: "北京天气"}}
	agent := &MockSubAgent{
		name: "weather_assistant",
		stepFunc: func(ctx context.Context, got []interfaces.Message) ([]interfaces.Message, error) {
			assert.Equal(t, history, got)
			assert.Equal(t, 1, getRecursionDepth(ctx))
			return []interfaces.Message{{Role: interfaces.MessageRoleAssistant, Content: "FINAL ANSWER 晴"}}, nil
		},
	}

	produced, err := NewAgentTool(agent).Handoff(context.Background(), history)
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, "FINAL ANSWER 晴", produced[0].Content)
}

func TestAgentToolRecursionLimit(t *testing.T) {
	ctx := context.WithValue(context.Background(), recursionDepthKey, MaxRecursionDepth)
	tool := NewAgentTool(&MockSubAgent{name: "loop"})

	_, err := tool.Run(ctx, "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum recursion depth")

	_, err = tool.Handoff(ctx, nil)
	assert.Error(t, err)

	ctx = context.WithValue(context.Background(), recursionDepthKey, MaxRecursionDepth-1)
	_, err = tool.Run(ctx, "last allowed")
	assert.NoError(t, err)
}

func TestAgentToolTimeout(t *testing.T) {
	tool := NewAgentTool(&MockSubAgent{
		name: "slow",
		runFunc: func(ctx context.Context, input string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}, WithTimeout(10*time.Millisecond))

	_, err := tool.Run(context.Background(), "wait")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
