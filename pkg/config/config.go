package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingConfig is returned when a component is started without a required setting
var ErrMissingConfig = errors.New("missing required configuration")

// Config represents the configuration of the assistant team
type Config struct {
	// LLM configuration
	LLM struct {
		// Provider used by the supervisor and the specialists (deepseek or openai)
		Provider string `mapstructure:"provider"`

		DeepSeek ProviderConfig `mapstructure:"deepseek"`
		OpenAI   ProviderConfig `mapstructure:"openai"`
	} `mapstructure:"llm"`

	// Weather API configuration
	QWeather struct {
		APIKey  string        `mapstructure:"api_key"`
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
		// Source selects where the weather assistant gets its tools: local or mcp
		Source string `mapstructure:"source"`
	} `mapstructure:"qweather"`

	// Weather MCP server the weather assistant connects to when Source is mcp
	MCP struct {
		Transport string   `mapstructure:"transport"`
		Command   string   `mapstructure:"command"`
		Args      []string `mapstructure:"args"`
		URL       string   `mapstructure:"url"`
	} `mapstructure:"mcp"`

	// Tools configuration
	Tools struct {
		Tavily struct {
			APIKey     string        `mapstructure:"api_key"`
			BaseURL    string        `mapstructure:"base_url"`
			MaxResults int           `mapstructure:"max_results"`
			CacheTTL   time.Duration `mapstructure:"cache_ttl"`
		} `mapstructure:"tavily"`

		Python struct {
			Interpreter string        `mapstructure:"interpreter"`
			Timeout     time.Duration `mapstructure:"timeout"`
		} `mapstructure:"python"`
	} `mapstructure:"tools"`

	// Memory configuration
	Memory struct {
		// Backend is inmemory or redis
		Backend string `mapstructure:"backend"`
		MaxSize int    `mapstructure:"max_size"`

		Redis struct {
			Addr      string        `mapstructure:"addr"`
			Password  string        `mapstructure:"password"`
			DB        int           `mapstructure:"db"`
			TTL       time.Duration `mapstructure:"ttl"`
			KeyPrefix string        `mapstructure:"key_prefix"`
		} `mapstructure:"redis"`
	} `mapstructure:"memory"`

	// Supervisor configuration
	Supervisor struct {
		Name       string `mapstructure:"name"`
		OutputMode string `mapstructure:"output_mode"`
		MaxSteps   int    `mapstructure:"max_steps"`
		ThreadID   string `mapstructure:"thread_id"`
		// AgentsFile optionally points at YAML agent definitions
		AgentsFile string `mapstructure:"agents_file"`
	} `mapstructure:"supervisor"`

	// Tracing configuration
	Tracing struct {
		Enabled     bool   `mapstructure:"enabled"`
		Endpoint    string `mapstructure:"endpoint"`
		Protocol    string `mapstructure:"protocol"`
		ServiceName string `mapstructure:"service_name"`
		Insecure    bool   `mapstructure:"insecure"`
	} `mapstructure:"tracing"`

	// HTTP server configuration
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	// Logging configuration
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// ProviderConfig configures a hosted chat model
type ProviderConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// envBindings maps well-known environment variables onto config keys
var envBindings = map[string][]string{
	"llm.provider":             {"LLM_PROVIDER"},
	"llm.deepseek.api_key":     {"DEEPSEEK_API_KEY"},
	"llm.deepseek.base_url":    {"DEEPSEEK_BASE_URL"},
	"llm.deepseek.model":       {"DEEPSEEK_MODEL"},
	"llm.openai.api_key":       {"OPENAI_API_KEY"},
	"llm.openai.base_url":      {"OPENAI_BASE_URL"},
	"llm.openai.model":         {"OPENAI_MODEL"},
	"qweather.api_key":         {"QWEATHER_API_KEY"},
	"qweather.base_url":        {"QWEATHER_BASE_URL"},
	"qweather.source":          {"WEATHER_TOOL_SOURCE"},
	"mcp.transport":            {"WEATHER_MCP_TRANSPORT"},
	"mcp.url":                  {"WEATHER_MCP_URL"},
	"tools.tavily.api_key":     {"TAVILY_API_KEY"},
	"tools.python.interpreter": {"PYTHON_INTERPRETER"},
	"memory.backend":           {"MEMORY_BACKEND"},
	"memory.redis.addr":        {"REDIS_ADDR", "REDIS_URL"},
	"memory.redis.password":    {"REDIS_PASSWORD"},
	"memory.redis.db":          {"REDIS_DB"},
	"tracing.enabled":          {"TRACING_ENABLED"},
	"tracing.endpoint":         {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"tracing.service_name":     {"OTEL_SERVICE_NAME"},
	"server.addr":              {"SERVER_ADDR"},
	"log.level":                {"LOG_LEVEL"},
	"log.format":               {"LOG_FORMAT"},
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("llm.deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.deepseek.model", "deepseek-chat")
	v.SetDefault("llm.deepseek.temperature", 0.2)
	v.SetDefault("llm.deepseek.timeout", 120*time.Second)
	v.SetDefault("llm.deepseek.api_key", "")
	v.SetDefault("llm.openai.base_url", "https://opnai-api.top/v1")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.temperature", 0.2)
	v.SetDefault("llm.openai.timeout", 120*time.Second)
	v.SetDefault("llm.openai.api_key", "")

	v.SetDefault("qweather.api_key", "")
	v.SetDefault("qweather.base_url", "")
	v.SetDefault("qweather.timeout", 10*time.Second)
	v.SetDefault("qweather.source", "local")

	v.SetDefault("mcp.transport", "stdio")
	v.SetDefault("mcp.command", "")
	v.SetDefault("mcp.args", []string{"weather-mcp"})
	v.SetDefault("mcp.url", "")

	v.SetDefault("tools.tavily.api_key", "")
	v.SetDefault("tools.tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tools.tavily.max_results", 2)
	v.SetDefault("tools.tavily.cache_ttl", time.Hour)
	v.SetDefault("tools.python.interpreter", "python3")
	v.SetDefault("tools.python.timeout", 30*time.Second)

	v.SetDefault("memory.backend", "inmemory")
	v.SetDefault("memory.max_size", 100)
	v.SetDefault("memory.redis.addr", "localhost:6379")
	v.SetDefault("memory.redis.password", "")
	v.SetDefault("memory.redis.db", 0)
	v.SetDefault("memory.redis.ttl", 24*time.Hour)
	v.SetDefault("memory.redis.key_prefix", "agent:memory:")

	v.SetDefault("supervisor.name", "manager")
	v.SetDefault("supervisor.output_mode", "full_history")
	v.SetDefault("supervisor.max_steps", 25)
	v.SetDefault("supervisor.thread_id", "current_user_id")
	v.SetDefault("supervisor.agents_file", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.protocol", "grpc")
	v.SetDefault("tracing.service_name", "weather-supervisor")
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// NewViper creates a viper instance with defaults and environment bindings.
// Any key can also be set as WEATHER_<KEY> with dots replaced by underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("WEATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, envs := range envBindings {
		// BindEnv only fails when no key is given
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Load reads the optional config file and the environment into a Config
func Load(configFile string) (*Config, error) {
	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes the settings held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Provider returns the configuration of the named LLM provider
func (c *Config) Provider(name string) (ProviderConfig, error) {
	switch strings.ToLower(name) {
	case "deepseek":
		return c.LLM.DeepSeek, nil
	case "openai":
		return c.LLM.OpenAI, nil
	default:
		return ProviderConfig{}, fmt.Errorf("unsupported llm provider %q", name)
	}
}

// ValidateWeather checks that the weather API settings are present
func (c *Config) ValidateWeather() error {
	if c.QWeather.APIKey == "" || c.QWeather.BaseURL == "" {
		return fmt.Errorf("%w: QWEATHER_API_KEY and QWEATHER_BASE_URL must be set", ErrMissingConfig)
	}
	return nil
}

// ValidateProvider checks that the named provider has an API key
func (c *Config) ValidateProvider(name string) error {
	p, err := c.Provider(name)
	if err != nil {
		return err
	}
	if p.APIKey == "" {
		return fmt.Errorf("%w: api key for llm provider %s", ErrMissingConfig, name)
	}
	return nil
}
