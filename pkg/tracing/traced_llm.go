package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

const instrumentationName = "github.com/tagus/weather-supervisor/pkg/tracing"

// TracedLLM wraps an LLM so that every call produces a span
type TracedLLM struct {
	llm    interfaces.LLM
	tracer trace.Tracer
}

// NewTracedLLM wraps llm. A nil tracer uses the global provider.
func NewTracedLLM(llm interfaces.LLM, tracer trace.Tracer) *TracedLLM {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &TracedLLM{llm: llm, tracer: tracer}
}

func (m *TracedLLM) start(ctx context.Context, name string, tools []interfaces.Tool) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", m.llm.Name()),
		attribute.String("org_id", multitenancy.OrgIDOrDefault(ctx)),
	}
	if len(tools) > 0 {
		names := make([]string, len(tools))
		for i, tool := range tools {
			names[i] = tool.Name()
		}
		attrs = append(attrs,
			attribute.Int("tools.count", len(tools)),
			attribute.String("tools", strings.Join(names, ",")),
		)
	}
	return m.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Generate generates text from a prompt with tracing
func (m *TracedLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	ctx, span := m.start(ctx, "llm.generate", nil)
	span.SetAttributes(attribute.Int("prompt.length", len(prompt)))

	response, err := m.llm.Generate(ctx, prompt, options...)
	if err == nil {
		span.SetAttributes(attribute.Int("response.length", len(response)))
	}
	finish(span, err)
	return response, err
}

// GenerateWithTools generates text using tools with tracing
func (m *TracedLLM) GenerateWithTools(ctx context.Context, prompt string, tools []interfaces.Tool, options ...interfaces.GenerateOption) (string, error) {
	ctx, span := m.start(ctx, "llm.generate_with_tools", tools)
	span.SetAttributes(attribute.Int("prompt.length", len(prompt)))

	response, err := m.llm.GenerateWithTools(ctx, prompt, tools, options...)
	if err == nil {
		span.SetAttributes(attribute.Int("response.length", len(response)))
	}
	finish(span, err)
	return response, err
}

// Chat runs one completion round with tracing
func (m *TracedLLM) Chat(ctx context.Context, messages []interfaces.Message, tools []interfaces.Tool, options ...interfaces.GenerateOption) (*interfaces.LLMResponse, error) {
	ctx, span := m.start(ctx, "llm.chat", tools)
	span.SetAttributes(attribute.Int("messages.count", len(messages)))

	resp, err := m.llm.Chat(ctx, messages, tools, options...)
	if err == nil && resp != nil {
		span.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int("response.tool_calls", len(resp.ToolCalls)),
		)
		if resp.Usage != nil {
			span.SetAttributes(
				attribute.Int("llm.usage.input_tokens", resp.Usage.InputTokens),
				attribute.Int("llm.usage.output_tokens", resp.Usage.OutputTokens),
				attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens),
			)
		}
	}
	finish(span, err)
	return resp, err
}

// Name returns the name of the wrapped provider
func (m *TracedLLM) Name() string {
	return m.llm.Name()
}
