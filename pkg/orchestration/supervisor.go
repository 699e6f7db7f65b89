package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/memory"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

var (
	// ErrUnknownAgent is returned when the supervisor hands off to an agent it does not manage
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrMaxSteps is returned when a turn does not finish within the step limit
	ErrMaxSteps = errors.New("maximum supervisor steps exceeded")
	// ErrNoAgents is returned when a supervisor is built without agents
	ErrNoAgents = errors.New("supervisor requires at least one agent")
)

// OutputMode selects how much of an agent's work lands in the shared history
type OutputMode string

const (
	// OutputFullHistory appends every message the agent produced, tool calls included
	OutputFullHistory OutputMode = "full_history"
	// OutputLastMessage appends only the agent's final message
	OutputLastMessage OutputMode = "last_message"
)

const (
	DefaultSupervisorName = "manager"
	DefaultMaxSteps       = 25
)

// Event is a message produced during a turn together with its sender
type Event struct {
	Sender  string
	Message interfaces.Message
}

// Observer receives every message produced during a turn, as it is produced
type Observer func(ctx context.Context, event Event)

type observerKey struct{}

// WithTurnObserver attaches an observer to ctx. It is called for messages of
// the Invoke that receives ctx, after the supervisor's own observer.
func WithTurnObserver(ctx context.Context, observer Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, observer)
}

func turnObserver(ctx context.Context) Observer {
	observer, _ := ctx.Value(observerKey{}).(Observer)
	return observer
}

// Result is the outcome of one supervisor turn
type Result struct {
	ThreadID string
	// Messages are the messages added to the thread, starting with the user message
	Messages []interfaces.Message
	// Final is the message that ended the turn
	Final interfaces.Message
	// Sender produced Final
	Sender string
	Steps  int
}

// Supervisor routes a conversation between specialist agents through
// transfer_to_<agent> tools offered to its own model
type Supervisor struct {
	name         string
	llm          interfaces.LLM
	prompt       string
	registry     *AgentRegistry
	nodes        []*AgentNode
	checkpointer interfaces.Memory
	outputMode   OutputMode
	maxSteps     int
	handback     bool
	observer     Observer
	logger       logging.Logger
	tracer       trace.Tracer
	threads      *threadLocks
}

// SupervisorOption configures a Supervisor
type SupervisorOption func(*Supervisor)

// WithName sets the supervisor's name; it tags the supervisor's messages
func WithName(name string) SupervisorOption {
	return func(s *Supervisor) {
		s.name = name
	}
}

// WithPrompt sets the supervisor's system prompt
func WithPrompt(prompt string) SupervisorOption {
	return func(s *Supervisor) {
		s.prompt = prompt
	}
}

// WithAgents adds agent nodes
func WithAgents(nodes ...*AgentNode) SupervisorOption {
	return func(s *Supervisor) {
		s.nodes = append(s.nodes, nodes...)
	}
}

// WithCheckpointer persists thread histories between turns
func WithCheckpointer(checkpointer interfaces.Memory) SupervisorOption {
	return func(s *Supervisor) {
		s.checkpointer = checkpointer
	}
}

// WithOutputMode selects full_history or last_message
func WithOutputMode(mode OutputMode) SupervisorOption {
	return func(s *Supervisor) {
		s.outputMode = mode
	}
}

// WithMaxSteps bounds the supervisor and agent runs of one turn
func WithMaxSteps(steps int) SupervisorOption {
	return func(s *Supervisor) {
		s.maxSteps = steps
	}
}

// WithHandbackMessages controls whether a transfer back to the supervisor is
// recorded after each agent run
func WithHandbackMessages(enabled bool) SupervisorOption {
	return func(s *Supervisor) {
		s.handback = enabled
	}
}

// WithObserver sets the observer
func WithObserver(observer Observer) SupervisorOption {
	return func(s *Supervisor) {
		s.observer = observer
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithTracer sets the tracer
func WithTracer(tracer trace.Tracer) SupervisorOption {
	return func(s *Supervisor) {
		s.tracer = tracer
	}
}

// NewSupervisor creates a supervisor driving llm
func NewSupervisor(llm interfaces.LLM, options ...SupervisorOption) (*Supervisor, error) {
	if llm == nil {
		return nil, fmt.Errorf("LLM is required for the supervisor")
	}

	s := &Supervisor{
		name:       DefaultSupervisorName,
		llm:        llm,
		registry:   NewAgentRegistry(),
		outputMode: OutputFullHistory,
		maxSteps:   DefaultMaxSteps,
		handback:   true,
		logger:     logging.NewNop(),
		tracer:     otel.Tracer("github.com/tagus/weather-supervisor/pkg/orchestration"),
		threads:    newThreadLocks(),
	}
	for _, option := range options {
		option(s)
	}

	for _, node := range s.nodes {
		if err := s.registry.Register(node); err != nil {
			return nil, err
		}
	}
	if len(s.registry.List()) == 0 {
		return nil, ErrNoAgents
	}
	switch s.outputMode {
	case OutputFullHistory, OutputLastMessage:
	default:
		return nil, fmt.Errorf("unsupported output mode: %s", s.outputMode)
	}
	if s.maxSteps <= 0 {
		s.maxSteps = DefaultMaxSteps
	}
	s.name = SanitizeName(s.name)

	return s, nil
}

// Name returns the supervisor's name
func (s *Supervisor) Name() string {
	return s.name
}

// Agents returns the managed agent nodes
func (s *Supervisor) Agents() []*AgentNode {
	return s.registry.List()
}

// turn is the mutable state of one Invoke
type turn struct {
	ctx      context.Context
	history  []interfaces.Message
	produced []interfaces.Message
	steps    int
}

func (s *Supervisor) add(t *turn, sender string, msg interfaces.Message) {
	t.history = append(t.history, msg)
	t.produced = append(t.produced, msg)
	event := Event{Sender: sender, Message: msg}
	if s.observer != nil {
		s.observer(t.ctx, event)
	}
	if observer := turnObserver(t.ctx); observer != nil {
		observer(t.ctx, event)
	}
}

func (s *Supervisor) step(t *turn) error {
	t.steps++
	if t.steps > s.maxSteps {
		return fmt.Errorf("%w: %d", ErrMaxSteps, s.maxSteps)
	}
	return nil
}

// Invoke runs one user turn on the thread and returns what it added
func (s *Supervisor) Invoke(ctx context.Context, threadID, input string, options ...interfaces.GenerateOption) (*Result, error) {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	ctx = memory.WithConversationID(ctx, threadID)

	ctx, span := s.tracer.Start(ctx, "supervisor.invoke", trace.WithAttributes(
		attribute.String("supervisor", s.name),
		attribute.String("thread_id", threadID),
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
	))
	defer span.End()

	// load to save of a thread runs one turn at a time
	unlock := s.threads.lock(multitenancy.OrgIDOrDefault(ctx) + ":" + threadID)
	defer unlock()

	result, err := s.invoke(ctx, threadID, input, options...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("steps", result.Steps),
		attribute.String("final_sender", result.Sender),
	)
	return result, nil
}

func (s *Supervisor) invoke(ctx context.Context, threadID, input string, options ...interfaces.GenerateOption) (*Result, error) {
	t := &turn{ctx: ctx}

	if s.checkpointer != nil {
		history, err := s.checkpointer.GetMessages(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
		}
		t.history = history
	}

	s.logger.Info(ctx, "Supervisor turn started", map[string]interface{}{
		"thread_id":      threadID,
		"history_length": len(t.history),
	})

	s.add(t, "user", interfaces.Message{Role: interfaces.MessageRoleUser, Content: input})

	final, sender, err := s.loop(t, options...)
	if err != nil {
		return nil, err
	}

	if s.checkpointer != nil {
		if err := s.checkpointer.AddMessages(ctx, t.produced); err != nil {
			return nil, fmt.Errorf("failed to save thread %s: %w", threadID, err)
		}
	}

	s.logger.Info(ctx, "Supervisor turn finished", map[string]interface{}{
		"thread_id": threadID,
		"steps":     t.steps,
		"sender":    sender,
		"messages":  len(t.produced),
	})

	return &Result{
		ThreadID: threadID,
		Messages: t.produced,
		Final:    final,
		Sender:   sender,
		Steps:    t.steps,
	}, nil
}

func (s *Supervisor) loop(t *turn, options ...interfaces.GenerateOption) (interfaces.Message, string, error) {
	ctx := t.ctx
	handoffs := s.registry.Tools()
	options = append(options, interfaces.WithSystemMessage(s.prompt))

	for {
		if err := s.step(t); err != nil {
			return interfaces.Message{}, "", err
		}

		resp, err := s.llm.Chat(ctx, t.history, handoffs, options...)
		if err != nil {
			return interfaces.Message{}, "", fmt.Errorf("supervisor %s failed: %w", s.name, err)
		}
		msg := resp.Message()
		msg.Name = s.name
		s.add(t, s.name, msg)

		if !msg.HasToolCalls() {
			return msg, s.name, nil
		}

		// every call gets its tool message before any agent runs
		targets := make([]*AgentNode, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			node, ok := s.registry.ForTool(call.Name)
			if !ok {
				return interfaces.Message{}, "", fmt.Errorf("%w: %s", ErrUnknownAgent, call.Name)
			}
			s.add(t, s.name, interfaces.Message{
				Role:       interfaces.MessageRoleTool,
				Content:    fmt.Sprintf("Successfully transferred to %s", node.Name()),
				ToolCallID: call.ID,
				Metadata:   map[string]interface{}{"tool_name": call.Name},
			})
			targets = append(targets, node)
		}

		for _, node := range targets {
			if err := s.step(t); err != nil {
				return interfaces.Message{}, "", err
			}

			s.logger.Info(ctx, "Handing off to agent", map[string]interface{}{
				"agent": node.Name(),
				"step":  t.steps,
			})
			result, err := node.Run(ctx, t.history)
			if err != nil {
				return interfaces.Message{}, "", err
			}
			last, ok := result.Last()
			if !ok {
				continue
			}

			if s.outputMode == OutputFullHistory {
				for _, produced := range result.Messages {
					s.add(t, result.Sender, produced)
				}
			} else {
				s.add(t, result.Sender, last)
			}

			if Route(last) == DecisionEnd {
				return last, result.Sender, nil
			}

			if s.handback {
				s.addHandback(t, result.Sender)
			}
		}
	}
}

// addHandback records the agent returning control to the supervisor
func (s *Supervisor) addHandback(t *turn, sender string) {
	toolName := "transfer_back_to_" + s.name
	callID := "call_" + uuid.NewString()
	s.add(t, sender, interfaces.Message{
		Role:      interfaces.MessageRoleAssistant,
		Content:   fmt.Sprintf("Transferring back to %s", s.name),
		Name:      sender,
		ToolCalls: []interfaces.ToolCall{{ID: callID, Name: toolName, Arguments: "{}"}},
	})
	s.add(t, sender, interfaces.Message{
		Role:       interfaces.MessageRoleTool,
		Content:    fmt.Sprintf("Successfully transferred back to %s", s.name),
		ToolCallID: callID,
		Metadata:   map[string]interface{}{"tool_name": toolName},
	})
}
