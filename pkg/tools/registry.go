package tools

import (
	"sync"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// Registry is a concurrency-safe set of tools that remembers registration order
type Registry struct {
	mu    sync.RWMutex
	tools map[string]interfaces.Tool
	order []string
}

// NewRegistry creates a registry holding the given tools
func NewRegistry(tools ...interfaces.Tool) *Registry {
	r := &Registry{
		tools: make(map[string]interfaces.Tool),
	}
	for _, tool := range tools {
		r.Register(tool)
	}
	return r
}

// Register adds a tool, replacing any tool with the same name in place
func (r *Registry) Register(tool interfaces.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name
func (r *Registry) Get(name string) (interfaces.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all tools in registration order
func (r *Registry) List() []interfaces.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]interfaces.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Names returns the tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
