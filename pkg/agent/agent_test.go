package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/memory"
)

// scriptedLLM replays canned responses and records what it was asked
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*interfaces.LLMResponse
	err       error
	calls     [][]interfaces.Message
	toolsSeen [][]interfaces.Tool
	systems   []string
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []interfaces.Message, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]interfaces.Message(nil), messages...))
	s.toolsSeen = append(s.toolsSeen, tools)
	s.systems = append(s.systems, interfaces.ApplyGenerateOptions(options...).SystemMessage)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &interfaces.LLMResponse{Content: "FINAL ANSWER fallback"}, nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func (s *scriptedLLM) Name() string { return "scripted" }

type stubTool struct {
	name   string
	result string
	err    error
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) DisplayName() string { return t.name }
func (t *stubTool) Description() string { return "stub " + t.name }
func (t *stubTool) Internal() bool      { return false }
func (t *stubTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{"city": {Type: "string", Required: true}}
}
func (t *stubTool) Run(ctx context.Context, input string) (string, error) { return t.result, t.err }
func (t *stubTool) Execute(ctx context.Context, args string) (string, error) {
	return t.Run(ctx, args)
}

func TestNewAgentValidation(t *testing.T) {
	_, err := NewAgent(WithName("weather_assistant"))
	assert.EqualError(t, err, "LLM is required for agent")

	_, err = NewAgent(WithLLM(&scriptedLLM{}))
	assert.EqualError(t, err, "name is required for agent")

	a, err := NewAgent(WithLLM(&scriptedLLM{}), WithName("weather_assistant"), WithMaxIterations(0),
		WithTools(&stubTool{name: "a"}, &stubTool{name: "a"}, nil, &stubTool{name: "b"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, a.maxIterations)
	assert.Equal(t, []string{"a", "b"}, ToolNames(a.GetTools()))
}

func TestStepRunsToolsInOrder(t *testing.T) {
	llm := &scriptedLLM{responses: []*interfaces.LLMResponse{
		{ToolCalls: []interfaces.ToolCall{
			{ID: "call_1", Name: "get_daily_forecast", Arguments: `{"city":"北京"}`},
			{ID: "call_2", Name: "missing", Arguments: `{}`},
			{ID: "call_3", Name: "get_weather_warning", Arguments: `{"city":"北京"}`},
		}, Usage: &interfaces.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		{Content: "北京晴 🌤️", Usage: &interfaces.TokenUsage{InputTokens: 20, OutputTokens: 8, TotalTokens: 28}},
	}}
	a, err := NewAgent(
		WithLLM(llm),
		WithName("weather_assistant"),
		WithSystemPrompt("weather prompt"),
		WithTools(
			&stubTool{name: "get_daily_forecast", result: "晴"},
			&stubTool{name: "get_weather_warning", err: errors.New("api down")},
		),
	)
	require.NoError(t, err)

	history := []interfaces.Message{{Role: interfaces.MessageRoleUser, Content: "北京天气"}}
	produced, err := a.Step(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, produced, 5)
	assert.Equal(t, "weather_assistant", produced[0].Name)
	assert.Len(t, produced[0].ToolCalls, 3)
	assert.Equal(t, "call_1", produced[1].ToolCallID)
	assert.Equal(t, "晴", produced[1].Content)
	assert.Equal(t, "Error: tool 'missing' not found", produced[2].Content)
	assert.Equal(t, "Error: api down", produced[3].Content)
	assert.Equal(t, "北京晴 🌤️", produced[4].Content)
	assert.Equal(t, "weather_assistant", produced[4].Name)

	// history is not mutated and the second round sees the tool results
	assert.Len(t, history, 1)
	require.Len(t, llm.calls, 2)
	assert.Len(t, llm.calls[1], 5)
	assert.Equal(t, []string{"weather prompt", "weather prompt"}, llm.systems)

	usage := a.Usage()
	assert.Equal(t, 2, usage.LLMCalls)
	assert.Equal(t, 43, usage.Tokens.TotalTokens)
	assert.Equal(t, 3, usage.ToolCalls)
	assert.Equal(t, []string{"get_daily_forecast", "missing", "get_weather_warning"}, usage.UsedTools)
}

func TestStepStopsOnFinalAnswerOrContinue(t *testing.T) {
	for _, content := range []string{"FINAL ANSWER 完成", "需要图表助手继续"} {
		llm := &scriptedLLM{responses: []*interfaces.LLMResponse{{Content: content}}}
		a, err := NewAgent(WithLLM(llm), WithName("chart_assistant"))
		require.NoError(t, err)

		produced, err := a.Step(context.Background(), []interfaces.Message{{Role: interfaces.MessageRoleUser, Content: "画图"}})
		require.NoError(t, err)
		require.Len(t, produced, 1)
		assert.Equal(t, content, produced[0].Content)
	}
}

func TestStepMaxIterations(t *testing.T) {
	loop := &interfaces.LLMResponse{ToolCalls: []interfaces.ToolCall{{ID: "c", Name: "python_repl", Arguments: `{}`}}}
	llm := &scriptedLLM{responses: []*interfaces.LLMResponse{loop, loop, {Content: "gave up"}}}
	a, err := NewAgent(WithLLM(llm), WithName("chart_assistant"), WithMaxIterations(2),
		WithTools(&stubTool{name: "python_repl", result: "ok"}))
	require.NoError(t, err)

	produced, err := a.Step(context.Background(), nil)
	require.NoError(t, err)

	// two tool rounds, then a final call without tools
	require.Len(t, llm.calls, 3)
	assert.Nil(t, llm.toolsSeen[2])
	require.Len(t, produced, 5)
	assert.Equal(t, "gave up", produced[4].Content)
}

func TestStepLLMError(t *testing.T) {
	a, err := NewAgent(WithLLM(&scriptedLLM{err: errors.New("rate limited")}), WithName("research_assistant"))
	require.NoError(t, err)

	_, err = a.Step(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent research_assistant failed")
}

func TestRunUsesMemory(t *testing.T) {
	llm := &scriptedLLM{responses: []*interfaces.LLMResponse{{Content: "first"}, {Content: "second"}}}
	buffer := memory.NewConversationBuffer()
	a, err := NewAgent(WithLLM(llm), WithName("research_assistant"), WithMemory(buffer))
	require.NoError(t, err)

	ctx := memory.WithConversationID(context.Background(), "thread")
	answer, err := a.Run(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "first", answer)

	answer, err = a.Run(ctx, "q2")
	require.NoError(t, err)
	assert.Equal(t, "second", answer)

	// the second call saw the first exchange
	require.Len(t, llm.calls, 2)
	assert.Len(t, llm.calls[1], 3)

	stored, err := buffer.GetMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestCollaborativePrompt(t *testing.T) {
	prompt := CollaborativePrompt([]string{"python_repl", "tavily_search_results_json"}, "生成图表前先确认数据。", "注意单位")

	assert.Contains(t, prompt, "FINAL ANSWER")
	assert.Contains(t, prompt, "\n注意单位\n")
	assert.Contains(t, prompt, "你有以下工具可以使用: python_repl, tavily_search_results_json.\n生成图表前先确认数据。\n\n")
}
