package agent

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2/option"

	"github.com/tagus/weather-supervisor/pkg/config"
	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/llm/deepseek"
	"github.com/tagus/weather-supervisor/pkg/llm/openai"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/retry"
)

// NewLLM creates the chat client for provider (deepseek or openai) from the configuration
func NewLLM(cfg *config.Config, provider string, logger logging.Logger) (interfaces.LLM, error) {
	if provider == "" {
		provider = cfg.LLM.Provider
	}
	provider = strings.ToLower(provider)

	if err := cfg.ValidateProvider(provider); err != nil {
		return nil, err
	}
	providerCfg, err := cfg.Provider(provider)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	switch provider {
	case "deepseek":
		return createDeepSeekClient(providerCfg, logger), nil
	case "openai":
		return createOpenAIClient(providerCfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: deepseek, openai)", provider)
	}
}

func createDeepSeekClient(cfg config.ProviderConfig, logger logging.Logger) interfaces.LLM {
	options := []deepseek.Option{
		deepseek.WithLogger(logger),
		deepseek.WithRetry(retry.WithMaximumAttempts(3)),
	}
	if cfg.Model != "" {
		options = append(options, deepseek.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		options = append(options, deepseek.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Temperature > 0 {
		options = append(options, deepseek.WithTemperature(cfg.Temperature))
	}
	if cfg.Timeout > 0 {
		options = append(options, deepseek.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return deepseek.NewClient(cfg.APIKey, options...)
}

func createOpenAIClient(cfg config.ProviderConfig, logger logging.Logger) interfaces.LLM {
	options := []openai.Option{
		openai.WithLogger(logger),
		openai.WithRetry(retry.WithMaximumAttempts(3)),
	}
	if cfg.Model != "" {
		options = append(options, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		options = append(options, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Temperature > 0 {
		options = append(options, openai.WithTemperature(cfg.Temperature))
	}
	if cfg.Timeout > 0 {
		options = append(options, openai.WithRequestOptions(option.WithRequestTimeout(cfg.Timeout)))
	}
	return openai.NewClient(cfg.APIKey, options...)
}
