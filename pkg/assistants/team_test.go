package assistants

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/agent"
	"github.com/tagus/weather-supervisor/pkg/config"
	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/orchestration"
	"github.com/tagus/weather-supervisor/pkg/tools/qweather"
)

type mockWeather struct {
	mock.Mock
}

func (m *mockWeather) WeatherWarning(ctx context.Context, city string) (string, error) {
	args := m.Called(ctx, city)
	return args.String(0), args.Error(1)
}

func (m *mockWeather) DailyForecast(ctx context.Context, city string, days int) (string, error) {
	args := m.Called(ctx, city, days)
	return args.String(0), args.Error(1)
}

// routingLLM answers by the system prompt of the caller
type routingLLM struct {
	mu      sync.Mutex
	respond func(system string, messages []interfaces.Message) *interfaces.LLMResponse
}

func (r *routingLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (r *routingLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (r *routingLLM) Chat(ctx context.Context, messages []interfaces.Message, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.respond(interfaces.ApplyGenerateOptions(options...).SystemMessage, messages), nil
}

func (r *routingLLM) Name() string { return "routing" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromViper(config.NewViper())
	require.NoError(t, err)
	cfg.QWeather.Source = SourceLocal
	cfg.Memory.Backend = "inmemory"
	cfg.Supervisor.AgentsFile = ""
	return cfg
}

func agentOf(t *testing.T, node *orchestration.AgentNode) *agent.Agent {
	t.Helper()
	a, ok := node.Tool().Agent().(*agent.Agent)
	require.True(t, ok)
	return a
}

func toolNames(t *testing.T, node *orchestration.AgentNode) []string {
	return agent.ToolNames(agentOf(t, node).GetTools())
}

func TestBuildDefaultTeam(t *testing.T) {
	supervisor, cleanup, err := Build(context.Background(), testConfig(t), Options{
		LLM:            &routingLLM{},
		WeatherService: &mockWeather{},
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, cleanup()) }()

	assert.Equal(t, "manager", supervisor.Name())
	nodes := supervisor.Agents()
	require.Len(t, nodes, 3)
	assert.Equal(t, ChartAssistant, nodes[0].Name())
	assert.Equal(t, WeatherAssistant, nodes[1].Name())
	assert.Equal(t, ResearchAssistant, nodes[2].Name())

	assert.Equal(t, []string{"python_repl"}, toolNames(t, nodes[0]))
	assert.Equal(t, []string{qweather.WarningToolName, qweather.ForecastToolName}, toolNames(t, nodes[1]))
	assert.Equal(t, []string{"tavily_search_results_json"}, toolNames(t, nodes[2]))

	assert.Contains(t, agentOf(t, nodes[2]).GetSystemPrompt(), "tavily_search_results_json")
	assert.Contains(t, agentOf(t, nodes[1]).GetSystemPrompt(), "🌤️⛈️")
	assert.Equal(t, "transfer_to_weather_assistant", nodes[1].Tool().Name())
}

func TestBuildCollaborativePrompts(t *testing.T) {
	supervisor, _, err := Build(context.Background(), testConfig(t), Options{
		LLM:            &routingLLM{},
		WeatherService: &mockWeather{},
		Collaborative:  true,
	})
	require.NoError(t, err)

	prompt := agentOf(t, supervisor.Agents()[0]).GetSystemPrompt()
	assert.Contains(t, prompt, "FINAL ANSWER")
	assert.Contains(t, prompt, "你有以下工具可以使用: python_repl.")
	assert.Contains(t, prompt, "你是一个专业图表生成专家")
}

func TestBuildAgentOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`agents:
  - name: manager
    prompt: custom manager
  - name: weather_assistant
    prompt: 只回答天气
  - name: research_assistant
    tools: [python_repl, get_daily_forecast]
  - name: poet_assistant
    description: writes poems
    prompt: 写诗
`), 0o600))

	cfg := testConfig(t)
	cfg.Supervisor.AgentsFile = file
	supervisor, _, err := Build(context.Background(), cfg, Options{
		LLM:            &routingLLM{},
		WeatherService: &mockWeather{},
	})
	require.NoError(t, err)

	nodes := supervisor.Agents()
	require.Len(t, nodes, 4)
	assert.Equal(t, "只回答天气", agentOf(t, nodes[1]).GetSystemPrompt())
	assert.Len(t, toolNames(t, nodes[1]), 2)
	assert.Equal(t, []string{"python_repl", "get_daily_forecast"}, toolNames(t, nodes[2]))
	assert.Equal(t, "poet_assistant", nodes[3].Name())
	assert.Empty(t, toolNames(t, nodes[3]))
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown tool in definitions", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "agents.yaml")
		require.NoError(t, os.WriteFile(file, []byte("agents:\n  - name: chart_assistant\n    tools: [crystal_ball]\n"), 0o600))
		cfg := testConfig(t)
		cfg.Supervisor.AgentsFile = file
		_, _, err := Build(context.Background(), cfg, Options{LLM: &routingLLM{}, WeatherService: &mockWeather{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crystal_ball")
	})

	t.Run("missing weather configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.QWeather.APIKey = ""
		_, _, err := Build(context.Background(), cfg, Options{LLM: &routingLLM{}})
		assert.ErrorIs(t, err, config.ErrMissingConfig)
	})

	t.Run("unsupported weather source", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.QWeather.Source = "satellite"
		_, _, err := Build(context.Background(), cfg, Options{LLM: &routingLLM{}})
		assert.Error(t, err)
	})

	t.Run("unsupported memory backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Memory.Backend = "floppy"
		_, _, err := Build(context.Background(), cfg, Options{LLM: &routingLLM{}, WeatherService: &mockWeather{}})
		assert.Error(t, err)
	})
}

func TestTeamAnswersWeatherQuestion(t *testing.T) {
	service := &mockWeather{}
	service.On("DailyForecast", mock.Anything, "北京", 3).Return("2024-05-01: 晴, 12~25°C", nil)

	llm := &routingLLM{respond: func(system string, messages []interfaces.Message) *interfaces.LLMResponse {
		last := messages[len(messages)-1]
		switch {
		case system == supervisorPrompt && last.Role == interfaces.MessageRoleUser:
			return &interfaces.LLMResponse{ToolCalls: []interfaces.ToolCall{{ID: "m1", Name: "transfer_to_weather_assistant", Arguments: "{}"}}}
		case system == supervisorPrompt:
			return &interfaces.LLMResponse{Content: "北京今天晴，12~25°C。"}
		case strings.HasPrefix(system, "你是一个智能天气查询助手") && last.Role == interfaces.MessageRoleTool && last.ToolCallID == "w1":
			return &interfaces.LLMResponse{Content: "🌤️ 北京：晴，12~25°C"}
		default:
			return &interfaces.LLMResponse{ToolCalls: []interfaces.ToolCall{{ID: "w1", Name: qweather.ForecastToolName, Arguments: `{"city":"北京"}`}}}
		}
	}}

	var senders []string
	supervisor, cleanup, err := Build(context.Background(), testConfig(t), Options{
		LLM:            llm,
		WeatherService: service,
		Observer: func(ctx context.Context, event orchestration.Event) {
			senders = append(senders, event.Sender)
		},
	})
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	result, err := supervisor.Invoke(context.Background(), "current_user_id", "北京天气怎么样")
	require.NoError(t, err)
	assert.Equal(t, "北京今天晴，12~25°C。", result.Final.Content)
	assert.Equal(t, "manager", result.Sender)
	assert.Contains(t, senders, WeatherAssistant)
	service.AssertExpectations(t)
}
