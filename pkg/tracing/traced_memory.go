package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

// TracedMemory wraps a memory backend so that every operation produces a span
type TracedMemory struct {
	memory interfaces.Memory
	tracer trace.Tracer
}

// NewTracedMemory wraps memory. A nil tracer uses the global provider.
func NewTracedMemory(memory interfaces.Memory, tracer trace.Tracer) *TracedMemory {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &TracedMemory{memory: memory, tracer: tracer}
}

// AddMessage adds a message to memory with tracing
func (m *TracedMemory) AddMessage(ctx context.Context, message interfaces.Message) error {
	ctx, span := m.tracer.Start(ctx, "memory.add_message", trace.WithAttributes(
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
		attribute.String("message.role", string(message.Role)),
		attribute.Int("message.content_length", len(message.Content)),
		attribute.Int("message.tool_calls_count", len(message.ToolCalls)),
	))

	err := m.memory.AddMessage(ctx, message)
	finish(span, err)
	return err
}

// AddMessages adds messages to memory with tracing
func (m *TracedMemory) AddMessages(ctx context.Context, messages []interfaces.Message) error {
	ctx, span := m.tracer.Start(ctx, "memory.add_messages", trace.WithAttributes(
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
		attribute.Int("messages.count", len(messages)),
	))

	err := m.memory.AddMessages(ctx, messages)
	finish(span, err)
	return err
}

// GetMessages gets messages from memory with tracing
func (m *TracedMemory) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	ctx, span := m.tracer.Start(ctx, "memory.get_messages", trace.WithAttributes(
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
	))

	messages, err := m.memory.GetMessages(ctx, options...)
	if err == nil {
		span.SetAttributes(attribute.Int("messages.count", len(messages)))
	}
	finish(span, err)
	return messages, err
}

// Clear clears memory with tracing
func (m *TracedMemory) Clear(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "memory.clear", trace.WithAttributes(
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
	))

	err := m.memory.Clear(ctx)
	finish(span, err)
	return err
}
