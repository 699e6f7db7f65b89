package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/config"
)

func TestNewLLM(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "deepseek"
	cfg.LLM.DeepSeek = config.ProviderConfig{APIKey: "sk-ds", Model: "deepseek-chat", Temperature: 0.2}
	cfg.LLM.OpenAI = config.ProviderConfig{APIKey: "sk-oa", Model: "gpt-4o", BaseURL: "https://opnai-api.top/v1"}

	llm, err := NewLLM(cfg, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", llm.Name())

	llm, err = NewLLM(cfg, "OpenAI", nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", llm.Name())

	_, err = NewLLM(cfg, "anthropic", nil)
	assert.Error(t, err)

	cfg.LLM.DeepSeek.APIKey = ""
	_, err = NewLLM(cfg, "deepseek", nil)
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}
