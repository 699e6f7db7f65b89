package memory

import (
	"context"
	"sync"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// ConversationBuffer implements a simple in-memory conversation buffer
type ConversationBuffer struct {
	messages map[string][]interfaces.Message
	maxSize  int
	mu       sync.RWMutex
}

// Option represents an option for configuring the conversation buffer
type Option func(*ConversationBuffer)

// WithMaxSize sets the maximum number of messages kept per conversation
func WithMaxSize(size int) Option {
	return func(c *ConversationBuffer) {
		c.maxSize = size
	}
}

// NewConversationBuffer creates a new conversation buffer
func NewConversationBuffer(options ...Option) *ConversationBuffer {
	buffer := &ConversationBuffer{
		messages: make(map[string][]interfaces.Message),
		maxSize:  100,
	}

	for _, option := range options {
		option(buffer)
	}

	return buffer
}

// AddMessage adds a message to the buffer
func (c *ConversationBuffer) AddMessage(ctx context.Context, message interfaces.Message) error {
	return c.AddMessages(ctx, []interfaces.Message{message})
}

// AddMessages adds messages to the buffer under a single lock
func (c *ConversationBuffer) AddMessages(ctx context.Context, messages []interfaces.Message) error {
	key, err := conversationKey(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := append(c.messages[key], messages...)
	if start := windowStart(stored, c.maxSize); start > 0 {
		stored = append([]interfaces.Message(nil), stored[start:]...)
	}
	c.messages[key] = stored

	return nil
}

// GetMessages retrieves messages from the buffer
func (c *ConversationBuffer) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	key, err := conversationKey(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	stored, ok := c.messages[key]
	if !ok {
		return []interfaces.Message{}, nil
	}

	// Callers may append to the result
	messages := make([]interfaces.Message, len(stored))
	copy(messages, stored)

	return filterMessages(messages, options...), nil
}

// Clear clears the buffer for a conversation
func (c *ConversationBuffer) Clear(ctx context.Context) error {
	key, err := conversationKey(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.messages, key)

	return nil
}

// Conversations returns the number of conversations held in the buffer
func (c *ConversationBuffer) Conversations() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
