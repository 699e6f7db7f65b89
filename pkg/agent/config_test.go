package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

const agentsYAML = `
agents:
  - name: weather_assistant
    description: 天气查询
    prompt: "你是天气助手 ${AGENT_TEST_CITY}"
    tools: [get_daily_forecast]
    max_iterations: 4
  - name: chart_assistant
`

func TestLoadAgentConfigsFromFile(t *testing.T) {
	t.Setenv("AGENT_TEST_CITY", "北京")
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(agentsYAML), 0o600))

	configs, err := LoadAgentConfigsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"chart_assistant", "weather_assistant"}, configs.Names())

	weather := configs["weather_assistant"]
	assert.Equal(t, "你是天气助手 北京", weather.Prompt)
	require.NotNil(t, weather.MaxIterations)
	assert.Equal(t, 4, *weather.MaxIterations)

	available := []interfaces.Tool{&stubTool{name: "get_daily_forecast"}, &stubTool{name: "get_weather_warning"}}
	options, err := weather.Options(available)
	require.NoError(t, err)

	a, err := NewAgent(append(options, WithLLM(&scriptedLLM{}))...)
	require.NoError(t, err)
	assert.Equal(t, "weather_assistant", a.GetName())
	assert.Equal(t, "天气查询", a.GetDescription())
	assert.Equal(t, []string{"get_daily_forecast"}, ToolNames(a.GetTools()))
	assert.Equal(t, 4, a.maxIterations)

	// no tools listed keeps everything available
	options, err = configs["chart_assistant"].Options(available)
	require.NoError(t, err)
	a, err = NewAgent(append(options, WithLLM(&scriptedLLM{}))...)
	require.NoError(t, err)
	assert.Len(t, a.GetTools(), 2)
}

func TestAgentConfigErrors(t *testing.T) {
	_, err := ParseAgentConfigs([]byte("agents:\n  - description: nameless\n"))
	assert.Error(t, err)

	_, err = ParseAgentConfigs([]byte("agents:\n  - name: a\n  - name: a\n"))
	assert.Error(t, err)

	_, err = LoadAgentConfigsFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = AgentConfig{Name: "a", Tools: []string{"nope"}}.Options(nil)
	assert.EqualError(t, err, `agent a: unknown tool "nope"`)
}
