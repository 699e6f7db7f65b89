package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// AgentConfig is an agent definition loaded from YAML
type AgentConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Prompt      string `yaml:"prompt,omitempty"`
	// Tools selects tools by name; empty keeps the agent's default toolset
	Tools         []string `yaml:"tools,omitempty"`
	MaxIterations *int     `yaml:"max_iterations,omitempty"`
}

// AgentConfigs maps agent names to their definitions
type AgentConfigs map[string]AgentConfig

type agentsFile struct {
	Agents []AgentConfig `yaml:"agents"`
}

// LoadAgentConfigsFromFile reads agent definitions. The file holds an
// `agents` list; environment variables in prompts and descriptions are expanded.
func LoadAgentConfigsFromFile(filePath string) (AgentConfigs, error) {
	if filePath == "" {
		return nil, fmt.Errorf("invalid file path")
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config file: %w", err)
	}

	return ParseAgentConfigs(data)
}

// ParseAgentConfigs decodes YAML agent definitions
func ParseAgentConfigs(data []byte) (AgentConfigs, error) {
	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent configs: %w", err)
	}

	configs := make(AgentConfigs, len(file.Agents))
	for i, cfg := range file.Agents {
		if cfg.Name == "" {
			return nil, fmt.Errorf("agent definition %d has no name", i)
		}
		if _, exists := configs[cfg.Name]; exists {
			return nil, fmt.Errorf("agent %q defined twice", cfg.Name)
		}
		cfg.Prompt = os.ExpandEnv(cfg.Prompt)
		cfg.Description = os.ExpandEnv(cfg.Description)
		configs[cfg.Name] = cfg
	}
	return configs, nil
}

// Names returns the defined agent names, sorted
func (c AgentConfigs) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options turns the definition into agent options. available supplies the
// tools that Tools may select from.
func (c AgentConfig) Options(available []interfaces.Tool) ([]Option, error) {
	options := []Option{WithName(c.Name)}
	if c.Description != "" {
		options = append(options, WithDescription(c.Description))
	}
	if c.Prompt != "" {
		options = append(options, WithSystemPrompt(c.Prompt))
	}
	if c.MaxIterations != nil {
		options = append(options, WithMaxIterations(*c.MaxIterations))
	}

	if len(c.Tools) > 0 {
		byName := make(map[string]interfaces.Tool, len(available))
		for _, tool := range available {
			byName[tool.Name()] = tool
		}
		selected := make([]interfaces.Tool, 0, len(c.Tools))
		for _, name := range c.Tools {
			tool, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("agent %s: unknown tool %q", c.Name, name)
			}
			selected = append(selected, tool)
		}
		options = append(options, WithTools(selected...))
	} else {
		options = append(options, WithTools(available...))
	}

	return options, nil
}
