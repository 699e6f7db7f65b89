// Package assistants assembles the weather, chart and research assistants
// under a supervisor.
package assistants

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/tagus/weather-supervisor/pkg/agent"
	"github.com/tagus/weather-supervisor/pkg/config"
	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/mcp"
	"github.com/tagus/weather-supervisor/pkg/memory"
	"github.com/tagus/weather-supervisor/pkg/orchestration"
	"github.com/tagus/weather-supervisor/pkg/retry"
	"github.com/tagus/weather-supervisor/pkg/tools"
	"github.com/tagus/weather-supervisor/pkg/tools/pyrepl"
	"github.com/tagus/weather-supervisor/pkg/tools/qweather"
	"github.com/tagus/weather-supervisor/pkg/tools/websearch"
	"github.com/tagus/weather-supervisor/pkg/tracing"
)

const (
	SourceLocal = "local"
	SourceMCP   = "mcp"
)

// Options supply collaborators that would otherwise be built from the configuration
type Options struct {
	Logger logging.Logger
	// LLM is shared by the supervisor and every assistant
	LLM interfaces.LLM
	// WeatherService backs the local weather tools
	WeatherService qweather.Service
	// PythonRunner executes chart code
	PythonRunner pyrepl.Runner
	// SearchHTTPClient is used for Tavily requests
	SearchHTTPClient *http.Client
	// Checkpointer replaces the configured memory backend
	Checkpointer interfaces.Memory
	Observer     orchestration.Observer
	// Collaborative wraps every assistant prompt in the shared FINAL ANSWER prompt
	Collaborative bool
}

type cleanup struct {
	funcs []func() error
}

func (c *cleanup) add(f func() error) {
	c.funcs = append(c.funcs, f)
}

func (c *cleanup) run() error {
	var errs []error
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if err := c.funcs[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build creates the supervisor and its assistants. The returned func closes
// the connections opened for them.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*orchestration.Supervisor, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &cleanup{}
	fail := func(err error) (*orchestration.Supervisor, func() error, error) {
		_ = c.run()
		return nil, func() error { return nil }, err
	}

	llm := opts.LLM
	if llm == nil {
		created, err := agent.NewLLM(cfg, cfg.LLM.Provider, logger)
		if err != nil {
			return fail(fmt.Errorf("failed to create LLM: %w", err))
		}
		llm = created
	}
	llm = tracing.NewTracedLLM(llm, nil)

	checkpointer := opts.Checkpointer
	if checkpointer == nil {
		mem, closeMem, err := memory.New(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("failed to create checkpointer: %w", err))
		}
		c.add(closeMem)
		checkpointer = tracing.NewTracedMemory(mem, nil)
	}

	weatherTools, err := buildWeatherTools(ctx, cfg, opts, logger, c)
	if err != nil {
		return fail(err)
	}

	if cfg.Tools.Tavily.APIKey == "" {
		logger.Warn(ctx, "TAVILY_API_KEY is not set, web search will fail", nil)
	}
	searchOptions := []websearch.Option{
		websearch.WithBaseURL(cfg.Tools.Tavily.BaseURL),
		websearch.WithMaxResults(cfg.Tools.Tavily.MaxResults),
		websearch.WithCacheTTL(cfg.Tools.Tavily.CacheTTL),
		websearch.WithLogger(logger),
	}
	if opts.SearchHTTPClient != nil {
		searchOptions = append(searchOptions, websearch.WithHTTPClient(opts.SearchHTTPClient))
	}
	search := websearch.New(cfg.Tools.Tavily.APIKey, searchOptions...)

	pythonOptions := []pyrepl.Option{pyrepl.WithLogger(logger)}
	if opts.PythonRunner != nil {
		pythonOptions = append(pythonOptions, pyrepl.WithRunner(opts.PythonRunner))
	}
	python := pyrepl.New(cfg.Tools.Python.Interpreter, cfg.Tools.Python.Timeout, pythonOptions...)

	registry := tools.NewRegistry()
	for _, tool := range append([]interfaces.Tool{search, python}, weatherTools...) {
		registry.Register(tool)
	}

	members := []member{
		{name: ChartAssistant, description: chartDescription, prompt: chartPrompt(python.Name()), tools: []interfaces.Tool{python}},
		{name: WeatherAssistant, description: weatherDescription, prompt: weatherPrompt, tools: weatherTools},
		{name: ResearchAssistant, description: researchDescription, prompt: researchPrompt(search.Name()), tools: []interfaces.Tool{search}},
	}

	prompt := supervisorPrompt
	var overrides agent.AgentConfigs
	if cfg.Supervisor.AgentsFile != "" {
		overrides, err = agent.LoadAgentConfigsFromFile(cfg.Supervisor.AgentsFile)
		if err != nil {
			return fail(err)
		}
		if sup, ok := overrides[cfg.Supervisor.Name]; ok {
			if sup.Prompt != "" {
				prompt = sup.Prompt
			}
			delete(overrides, cfg.Supervisor.Name)
		}
		logger.Info(ctx, "Loaded agent definitions", map[string]interface{}{
			"file":   cfg.Supervisor.AgentsFile,
			"agents": overrides.Names(),
		})
	}

	nodes, err := buildNodes(members, overrides, registry.List(), llm, logger, opts.Collaborative)
	if err != nil {
		return fail(err)
	}

	supervisorOptions := []orchestration.SupervisorOption{
		orchestration.WithName(cfg.Supervisor.Name),
		orchestration.WithPrompt(prompt),
		orchestration.WithAgents(nodes...),
		orchestration.WithCheckpointer(checkpointer),
		orchestration.WithLogger(logger),
	}
	if cfg.Supervisor.OutputMode != "" {
		supervisorOptions = append(supervisorOptions, orchestration.WithOutputMode(orchestration.OutputMode(cfg.Supervisor.OutputMode)))
	}
	if cfg.Supervisor.MaxSteps > 0 {
		supervisorOptions = append(supervisorOptions, orchestration.WithMaxSteps(cfg.Supervisor.MaxSteps))
	}
	if opts.Observer != nil {
		supervisorOptions = append(supervisorOptions, orchestration.WithObserver(opts.Observer))
	}

	supervisor, err := orchestration.NewSupervisor(llm, supervisorOptions...)
	if err != nil {
		return fail(fmt.Errorf("failed to create supervisor: %w", err))
	}
	return supervisor, c.run, nil
}

type member struct {
	name        string
	description string
	prompt      string
	tools       []interfaces.Tool
}

// buildNodes applies the YAML definitions over the built-in assistants. A
// definition for an unknown name adds a new assistant.
func buildNodes(members []member, overrides agent.AgentConfigs, all []interfaces.Tool, llm interfaces.LLM, logger logging.Logger, collaborative bool) ([]*orchestration.AgentNode, error) {
	seen := make(map[string]bool, len(members))
	nodes := make([]*orchestration.AgentNode, 0, len(members)+len(overrides))

	build := func(s member, override *agent.AgentConfig) error {
		options := []agent.Option{
			agent.WithName(s.name),
			agent.WithDescription(s.description),
			agent.WithSystemPrompt(s.prompt),
			agent.WithLLM(llm),
			agent.WithLogger(logger),
		}
		if override == nil {
			options = append(options, agent.WithTools(s.tools...))
		} else {
			// listed tools may come from any assistant's toolset
			available := s.tools
			if len(override.Tools) > 0 {
				available = all
			}
			extra, err := override.Options(available)
			if err != nil {
				return err
			}
			options = append(options, extra...)
		}

		a, err := agent.NewAgent(options...)
		if err == nil && collaborative {
			options = append(options, agent.WithSystemPrompt(
				agent.CollaborativePrompt(agent.ToolNames(a.GetTools()), "", a.GetSystemPrompt()),
			))
			a, err = agent.NewAgent(options...)
		}
		if err != nil {
			return fmt.Errorf("failed to create agent %s: %w", s.name, err)
		}
		nodes = append(nodes, orchestration.NewAgentNode(a, tools.WithAgentToolLogger(logger)))
		return nil
	}

	for _, s := range members {
		seen[s.name] = true
		var override *agent.AgentConfig
		if o, ok := overrides[s.name]; ok {
			override = &o
		}
		if err := build(s, override); err != nil {
			return nil, err
		}
	}
	for _, name := range overrides.Names() {
		if seen[name] {
			continue
		}
		o := overrides[name]
		if err := build(member{name: name, description: o.Description}, &o); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

func buildWeatherTools(ctx context.Context, cfg *config.Config, opts Options, logger logging.Logger, c *cleanup) ([]interfaces.Tool, error) {
	source := cfg.QWeather.Source
	if opts.WeatherService != nil {
		source = SourceLocal
	}

	switch source {
	case "", SourceLocal:
		service := opts.WeatherService
		if service == nil {
			client, err := NewWeatherClient(cfg, logger)
			if err != nil {
				return nil, err
			}
			service = client
		}
		return qweather.Tools(service), nil
	case SourceMCP:
		server, err := connectWeatherMCP(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		c.add(server.Close)
		weatherTools, err := mcp.LoadTools(ctx, server)
		if err != nil {
			return nil, fmt.Errorf("failed to load weather tools: %w", err)
		}
		logger.Info(ctx, "Loaded weather tools from MCP server", map[string]interface{}{
			"tools": agent.ToolNames(weatherTools),
		})
		return weatherTools, nil
	default:
		return nil, fmt.Errorf("unsupported weather tool source: %s", source)
	}
}

// NewWeatherClient creates the QWeather client described by cfg
func NewWeatherClient(cfg *config.Config, logger logging.Logger) (*qweather.Client, error) {
	if err := cfg.ValidateWeather(); err != nil {
		return nil, err
	}
	return qweather.NewClient(cfg.QWeather.APIKey, cfg.QWeather.BaseURL,
		qweather.WithHTTPClient(&http.Client{Timeout: cfg.QWeather.Timeout}),
		qweather.WithLogger(logger),
		qweather.WithRetry(retry.WithMaximumAttempts(3)),
	)
}

func connectWeatherMCP(ctx context.Context, cfg *config.Config, logger logging.Logger) (interfaces.MCPServer, error) {
	switch cfg.MCP.Transport {
	case "", "stdio":
		command := cfg.MCP.Command
		if command == "" {
			self, err := os.Executable()
			if err != nil {
				return nil, fmt.Errorf("failed to locate weather MCP command: %w", err)
			}
			command = self
		}
		return mcp.NewStdioServer(ctx, mcp.StdioServerConfig{
			Command: command,
			Args:    cfg.MCP.Args,
			Logger:  logger,
		})
	case "http", string(mcp.StreamableHTTP):
		return mcp.NewHTTPServer(ctx, mcp.HTTPServerConfig{
			BaseURL:      cfg.MCP.URL,
			ProtocolType: mcp.StreamableHTTP,
			Logger:       logger,
		})
	case string(mcp.SSE):
		return mcp.NewHTTPServer(ctx, mcp.HTTPServerConfig{
			BaseURL:      cfg.MCP.URL,
			ProtocolType: mcp.SSE,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unsupported MCP transport: %s", cfg.MCP.Transport)
	}
}
