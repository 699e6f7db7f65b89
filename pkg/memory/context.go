package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

type contextKey string

const conversationIDKey contextKey = "conversation_id"

// ErrNoConversationID is returned when a memory operation runs without a conversation on ctx
var ErrNoConversationID = errors.New("conversation ID not found in context")

// WithConversationID returns a copy of ctx scoped to the given conversation (thread)
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// GetConversationID returns the conversation ID stored in ctx
func GetConversationID(ctx context.Context) (string, bool) {
	conversationID, ok := ctx.Value(conversationIDKey).(string)
	return conversationID, ok && conversationID != ""
}

// conversationKey is orgID:conversationID, with the default org when ctx carries none
func conversationKey(ctx context.Context) (string, error) {
	conversationID, ok := GetConversationID(ctx)
	if !ok {
		return "", ErrNoConversationID
	}
	return fmt.Sprintf("%s:%s", multitenancy.OrgIDOrDefault(ctx), conversationID), nil
}

// windowStart returns where the kept window of at most maxSize messages
// begins. The window starts at a user message so every tool result keeps the
// assistant message that requested it; a latest turn longer than maxSize is
// kept whole.
func windowStart(messages []interfaces.Message, maxSize int) int {
	if maxSize <= 0 || len(messages) <= maxSize {
		return 0
	}
	start := len(messages) - maxSize
	for i := start; i < len(messages); i++ {
		if messages[i].Role == interfaces.MessageRoleUser {
			return i
		}
	}
	for i := start - 1; i >= 0; i-- {
		if messages[i].Role == interfaces.MessageRoleUser {
			return i
		}
	}
	for start < len(messages) && messages[start].Role == interfaces.MessageRoleTool {
		start++
	}
	return start
}

func filterMessages(messages []interfaces.Message, options ...interfaces.GetMessagesOption) []interfaces.Message {
	opts := &interfaces.GetMessagesOptions{}
	for _, option := range options {
		option(opts)
	}

	if len(opts.Roles) > 0 {
		filtered := make([]interfaces.Message, 0, len(messages))
		for _, msg := range messages {
			for _, role := range opts.Roles {
				if msg.Role == role {
					filtered = append(filtered, msg)
					break
				}
			}
		}
		messages = filtered
	}

	if opts.Limit > 0 && opts.Limit < len(messages) {
		messages = messages[len(messages)-opts.Limit:]
	}

	return messages
}
