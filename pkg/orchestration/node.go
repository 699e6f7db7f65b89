package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/tools"
)

// NodeResult is what an agent node contributed to a conversation
type NodeResult struct {
	// Sender is the sanitized name of the agent
	Sender string
	// Messages are the produced messages in order
	Messages []interfaces.Message
}

// Last returns the final produced message
func (r *NodeResult) Last() (interfaces.Message, bool) {
	if len(r.Messages) == 0 {
		return interfaces.Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// AgentNode runs an agent over a shared conversation
type AgentNode struct {
	name string
	tool *tools.AgentTool
}

// NewAgentNode wraps agent under its sanitized name. The node is offered to
// a supervisor as the transfer_to_<name> tool.
func NewAgentNode(agent tools.SubAgent, options ...tools.AgentToolOption) *AgentNode {
	name := SanitizeName(agent.GetName())
	options = append([]tools.AgentToolOption{tools.WithToolName(tools.HandoffPrefix + name), tools.AsHandoff()}, options...)
	return &AgentNode{
		name: name,
		tool: tools.NewAgentTool(agent, options...),
	}
}

// Name returns the sanitized agent name
func (n *AgentNode) Name() string {
	return n.name
}

// Tool returns the handoff tool
func (n *AgentNode) Tool() *tools.AgentTool {
	return n.tool
}

// Run hands history to the agent. Assistant messages come back tagged with
// the node name; tool messages are left as produced.
func (n *AgentNode) Run(ctx context.Context, history []interfaces.Message) (*NodeResult, error) {
	produced, err := n.tool.Handoff(ctx, history)
	if err != nil {
		return nil, err
	}

	result := &NodeResult{Sender: n.name, Messages: make([]interfaces.Message, 0, len(produced))}
	for _, msg := range produced {
		if msg.Role == interfaces.MessageRoleAssistant {
			msg.Name = n.name
		}
		result.Messages = append(result.Messages, msg)
	}
	return result, nil
}

// AgentRegistry maintains the agent nodes of a team, in registration order
type AgentRegistry struct {
	mu     sync.RWMutex
	nodes  map[string]*AgentNode
	byTool map[string]*AgentNode
	order  []string
}

// NewAgentRegistry creates a new agent registry
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		nodes:  make(map[string]*AgentNode),
		byTool: make(map[string]*AgentNode),
	}
}

// Register adds a node; names must be unique
func (r *AgentRegistry) Register(node *AgentNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[node.Name()]; exists {
		return fmt.Errorf("agent %q already registered", node.Name())
	}
	r.nodes[node.Name()] = node
	r.byTool[node.Tool().Name()] = node
	r.order = append(r.order, node.Name())
	return nil
}

// Get retrieves a node by agent name
func (r *AgentRegistry) Get(name string) (*AgentNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[name]
	return node, ok
}

// ForTool retrieves the node behind a handoff tool name
func (r *AgentRegistry) ForTool(toolName string) (*AgentNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.byTool[toolName]
	return node, ok
}

// List returns the nodes in registration order
func (r *AgentRegistry) List() []*AgentNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]*AgentNode, 0, len(r.order))
	for _, name := range r.order {
		nodes = append(nodes, r.nodes[name])
	}
	return nodes
}

// Tools returns the handoff tools in registration order
func (r *AgentRegistry) Tools() []interfaces.Tool {
	nodes := r.List()
	handoffs := make([]interfaces.Tool, 0, len(nodes))
	for _, node := range nodes {
		handoffs = append(handoffs, node.Tool())
	}
	return handoffs
}
