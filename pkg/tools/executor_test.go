package tools

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// fakeTool is a configurable tool used across the package tests
type fakeTool struct {
	name   string
	result string
	err    error
	delay  time.Duration
	calls  int32
	last   atomic.Value
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) DisplayName() string { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Internal() bool      { return false }
func (f *fakeTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{"input": {Type: "string", Required: true}}
}
func (f *fakeTool) Run(ctx context.Context, input string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last.Store(input)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.result, f.err
}
func (f *fakeTool) Execute(ctx context.Context, args string) (string, error) {
	return f.Run(ctx, args)
}

func TestExecuteCallsPreservesOrder(t *testing.T) {
	slow := &fakeTool{name: "slow", result: "slow result", delay: 20 * time.Millisecond}
	fast := &fakeTool{name: "fast", result: "fast result"}

	calls := []interfaces.ToolCall{
		{ID: "call_1", Name: "slow", Arguments: `{"input":"a"}`},
		{ID: "call_2", Name: "fast", Arguments: `{"input":"b"}`},
	}
	results := ExecuteCalls(context.Background(), calls, []interfaces.Tool{slow, fast}, nil)

	require.Len(t, results, 2)
	assert.Equal(t, "call_1", results[0].ToolCallID)
	assert.Equal(t, "slow result", results[0].Content)
	assert.Equal(t, "call_2", results[1].ToolCallID)
	assert.Equal(t, "fast result", results[1].Content)
	for _, msg := range results {
		assert.Equal(t, interfaces.MessageRoleTool, msg.Role)
	}
	assert.Equal(t, `{"input":"b"}`, fast.last.Load())
}

func TestExecuteCallsReportsFailures(t *testing.T) {
	broken := &fakeTool{name: "broken", err: errors.New("upstream down")}

	calls := []interfaces.ToolCall{
		{ID: "call_1", Name: "missing"},
		{ID: "call_2", Name: "broken"},
	}
	results := ExecuteCalls(context.Background(), calls, []interfaces.Tool{broken}, nil)

	require.Len(t, results, 2)
	assert.Equal(t, "Error: tool 'missing' not found", results[0].Content)
	assert.Equal(t, "Error: upstream down", results[1].Content)
	assert.Equal(t, "broken", results[1].Metadata["tool_name"])
}

func TestRegistryKeepsOrder(t *testing.T) {
	a := &fakeTool{name: "a"}
	b := &fakeTool{name: "b"}
	r := NewRegistry(b, a)

	r.Register(&fakeTool{name: "b", result: "replaced"})

	assert.Equal(t, []string{"b", "a"}, r.Names())
	tool, ok := r.Get("b")
	require.True(t, ok)
	out, _ := tool.Run(context.Background(), "")
	assert.Equal(t, "replaced", out)
	assert.Len(t, r.List(), 2)

	_, ok = r.Get("c")
	assert.False(t, ok)
}
