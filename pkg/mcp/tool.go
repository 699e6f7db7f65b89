package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// Tool implements interfaces.Tool for a tool offered by an MCP server
type Tool struct {
	name        string
	description string
	schema      interface{}
	server      interfaces.MCPServer
}

// NewTool creates a tool that forwards calls to server
func NewTool(name, description string, schema interface{}, server interfaces.MCPServer) *Tool {
	return &Tool{
		name:        name,
		description: description,
		schema:      schema,
		server:      server,
	}
}

// LoadTools lists the tools of server and wraps each of them
func LoadTools(ctx context.Context, server interfaces.MCPServer) ([]interfaces.Tool, error) {
	listed, err := server.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	tools := make([]interfaces.Tool, 0, len(listed))
	for _, t := range listed {
		tools = append(tools, NewTool(t.Name, t.Description, t.Schema, server))
	}
	return tools, nil
}

func (t *Tool) Name() string        { return t.name }
func (t *Tool) DisplayName() string { return t.name }
func (t *Tool) Description() string { return t.description }
func (t *Tool) Internal() bool      { return false }

// Run executes the tool with JSON input
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("failed to parse input as JSON: %w", err)
		}
	}

	resp, err := t.server.CallTool(ctx, t.name, args)
	if err != nil {
		return "", err
	}
	if resp.IsError {
		return "", fmt.Errorf("MCP tool error: %v", resp.Content)
	}

	switch content := resp.Content.(type) {
	case string:
		return content, nil
	case []byte:
		return string(content), nil
	default:
		b, err := json.Marshal(content)
		if err != nil {
			return fmt.Sprintf("%v", content), nil
		}
		return string(b), nil
	}
}

// Execute executes the tool with JSON arguments
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	return t.Run(ctx, args)
}

// Parameters converts the tool input schema into parameter specs
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	params := make(map[string]interfaces.ParameterSpec)
	switch schema := t.schema.(type) {
	case map[string]interface{}:
		properties, _ := schema["properties"].(map[string]interface{})
		required, _ := schema["required"].([]interface{})
		for name, prop := range properties {
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}
			spec := interfaces.ParameterSpec{}
			if typ, ok := propMap["type"].(string); ok {
				spec.Type = typ
			}
			if desc, ok := propMap["description"].(string); ok {
				spec.Description = desc
			}
			for _, req := range required {
				if req == name {
					spec.Required = true
					break
				}
			}
			params[name] = spec
		}
	case *jsonschema.Schema:
		for name, prop := range schema.Properties {
			params[name] = interfaces.ParameterSpec{
				Type:        prop.Type,
				Description: prop.Description,
				Required:    slices.Contains(schema.Required, name),
			}
		}
	}
	return params
}
