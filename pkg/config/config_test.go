package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.DeepSeek.Model)
	assert.Equal(t, "https://api.deepseek.com", cfg.LLM.DeepSeek.BaseURL)
	assert.InDelta(t, 0.2, cfg.LLM.DeepSeek.Temperature, 1e-9)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.Equal(t, 2, cfg.Tools.Tavily.MaxResults)
	assert.Equal(t, "manager", cfg.Supervisor.Name)
	assert.Equal(t, "full_history", cfg.Supervisor.OutputMode)
	assert.Equal(t, "current_user_id", cfg.Supervisor.ThreadID)
	assert.Equal(t, 24*time.Hour, cfg.Memory.Redis.TTL)
	assert.Equal(t, []string{"weather-mcp"}, cfg.MCP.Args)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")
	t.Setenv("QWEATHER_API_KEY", "qw-key")
	t.Setenv("QWEATHER_BASE_URL", "https://devapi.qweather.com")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("WEATHER_SUPERVISOR_MAX_STEPS", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ds-key", cfg.LLM.DeepSeek.APIKey)
	assert.Equal(t, "qw-key", cfg.QWeather.APIKey)
	assert.Equal(t, "redis:6379", cfg.Memory.Redis.Addr)
	assert.Equal(t, 7, cfg.Supervisor.MaxSteps)
	assert.NoError(t, cfg.ValidateWeather())
	assert.NoError(t, cfg.ValidateProvider("deepseek"))
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  openai:
    api_key: file-key
qweather:
  source: mcp
mcp:
  transport: streamable
  url: http://localhost:8000/mcp
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "file-key", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "mcp", cfg.QWeather.Source)
	assert.Equal(t, "http://localhost:8000/mcp", cfg.MCP.URL)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Setenv("QWEATHER_API_KEY", "")
	t.Setenv("QWEATHER_BASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.ValidateWeather(), ErrMissingConfig)
	assert.ErrorIs(t, cfg.ValidateProvider("openai"), ErrMissingConfig)

	_, err = cfg.Provider("bedrock")
	assert.Error(t, err)
}
