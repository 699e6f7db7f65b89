package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/config"
	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

func setupTestRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedisMemory(t *testing.T) {
	client, mr := setupTestRedisClient(t)
	memory := NewRedisMemory(client, WithTTL(time.Hour))

	ctx := multitenancy.WithOrgID(context.Background(), "test-org")
	ctx = WithConversationID(ctx, "test-conversation")

	call := interfaces.ToolCall{ID: "call_1", Name: "get_daily_forecast", Arguments: `{"city":"北京"}`}
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "北京天气"}))
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleAssistant, Name: "weather_assistant", ToolCalls: []interfaces.ToolCall{call}}))
	require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleTool, Content: "晴", ToolCallID: "call_1"}))

	key := "agent:memory:test-org:test-conversation"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "weather_assistant", messages[1].Name)
	assert.Equal(t, []interfaces.ToolCall{call}, messages[1].ToolCalls)
	assert.Equal(t, "call_1", messages[2].ToolCallID)

	tools, err := memory.GetMessages(ctx, interfaces.WithRoles(interfaces.MessageRoleTool))
	require.NoError(t, err)
	require.Len(t, tools, 1)

	require.NoError(t, memory.Clear(ctx))
	assert.False(t, mr.Exists(key))
}

func TestRedisMemoryTrim(t *testing.T) {
	client, _ := setupTestRedisClient(t)
	memory := NewRedisMemory(client, WithRedisMaxSize(2), WithKeyPrefix("test:"))
	ctx := WithConversationID(context.Background(), "thread")

	for _, content := range []string{"a", "b", "c"} {
		require.NoError(t, memory.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: content}))
	}

	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "b", messages[0].Content)
	assert.Equal(t, "c", messages[1].Content)
}

func TestRedisMemoryAddMessagesTrimsAtTurnBoundary(t *testing.T) {
	client, mr := setupTestRedisClient(t)
	memory := NewRedisMemory(client, WithRedisMaxSize(3), WithKeyPrefix("test:"))
	ctx := WithConversationID(context.Background(), "thread")

	require.NoError(t, memory.AddMessages(ctx, handoffTurn("北京天气", "h1")))
	require.NoError(t, memory.AddMessages(ctx, handoffTurn("上海天气", "h2")))

	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, interfaces.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "上海天气", messages[0].Content)
	assert.Equal(t, "h2", messages[2].ToolCallID)
	assert.Equal(t, 24*time.Hour, mr.TTL("test:default:thread"))

	require.NoError(t, memory.AddMessages(ctx, nil))
	messages, err = memory.GetMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestRedisMemoryAddMessagesWithoutLimit(t *testing.T) {
	client, _ := setupTestRedisClient(t)
	memory := NewRedisMemory(client)
	ctx := WithConversationID(context.Background(), "thread")

	require.NoError(t, memory.AddMessages(ctx, handoffTurn("北京天气", "h1")))
	require.NoError(t, memory.AddMessages(ctx, handoffTurn("上海天气", "h2")))

	messages, err := memory.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 8)
	assert.Equal(t, "h1", messages[2].ToolCallID)
}

func TestRedisMemoryRequiresConversation(t *testing.T) {
	client, _ := setupTestRedisClient(t)
	memory := NewRedisMemory(client)

	err := memory.AddMessage(context.Background(), interfaces.Message{Content: "x"})
	assert.ErrorIs(t, err, ErrNoConversationID)
}

func TestNewFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Memory.Backend = BackendRedis
	cfg.Memory.Redis.Addr = mr.Addr()
	cfg.Memory.Redis.KeyPrefix = "cfg:"

	mem, closeFn, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()
	assert.IsType(t, &RedisMemory{}, mem)

	ctx := WithConversationID(context.Background(), "thread")
	require.NoError(t, mem.AddMessage(ctx, interfaces.Message{Role: interfaces.MessageRoleUser, Content: "hi"}))
	assert.True(t, mr.Exists("cfg:default:thread"))

	cfg.Memory.Backend = ""
	mem, _, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &ConversationBuffer{}, mem)

	cfg.Memory.Backend = "vector"
	_, _, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg.Memory.Backend = BackendRedis
	cfg.Memory.Redis.Addr = ""
	_, _, err = New(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}
