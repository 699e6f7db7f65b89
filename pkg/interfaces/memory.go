package interfaces

import "context"

// Memory stores the message history of the conversation found on ctx
type Memory interface {
	// AddMessage appends a message to the conversation
	AddMessage(ctx context.Context, message Message) error

	// AddMessages appends messages to the conversation as one write
	AddMessages(ctx context.Context, messages []Message) error

	// GetMessages returns the conversation history
	GetMessages(ctx context.Context, options ...GetMessagesOption) ([]Message, error)

	// Clear removes the conversation history
	Clear(ctx context.Context) error
}

// GetMessagesOptions filters a history read
type GetMessagesOptions struct {
	Limit int
	Roles []MessageRole
}

// GetMessagesOption configures a history read
type GetMessagesOption func(*GetMessagesOptions)

// WithLimit returns only the most recent n messages
func WithLimit(limit int) GetMessagesOption {
	return func(o *GetMessagesOptions) {
		o.Limit = limit
	}
}

// WithRoles returns only messages with the given roles
func WithRoles(roles ...MessageRole) GetMessagesOption {
	return func(o *GetMessagesOptions) {
		o.Roles = roles
	}
}
