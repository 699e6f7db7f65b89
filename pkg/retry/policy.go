package retry

import "time"

// Policy defines how an operation is retried
type Policy struct {
	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaximumInterval    time.Duration
	MaximumAttempts    int32
}

// Option configures a Policy
type Option func(*Policy)

// NewPolicy creates a policy with defaults of 3 attempts starting at 1s and doubling up to 30s
func NewPolicy(options ...Option) *Policy {
	p := &Policy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    3,
	}
	for _, option := range options {
		option(p)
	}
	if p.MaximumAttempts < 1 {
		p.MaximumAttempts = 1
	}
	return p
}

// WithInitialInterval sets the delay before the first retry
func WithInitialInterval(interval time.Duration) Option {
	return func(p *Policy) {
		p.InitialInterval = interval
	}
}

// WithBackoffCoefficient sets the multiplier applied to the delay after each retry
func WithBackoffCoefficient(coefficient float64) Option {
	return func(p *Policy) {
		p.BackoffCoefficient = coefficient
	}
}

// WithMaximumInterval caps the delay between retries
func WithMaximumInterval(interval time.Duration) Option {
	return func(p *Policy) {
		p.MaximumInterval = interval
	}
}

// WithMaximumAttempts sets the total number of attempts, including the first
func WithMaximumAttempts(attempts int32) Option {
	return func(p *Policy) {
		p.MaximumAttempts = attempts
	}
}
