package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tagus/weather-supervisor/pkg/logging"
)

// permanentError marks a failure that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Execute returns it without further attempts
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Executor handles the execution of operations with retries
type Executor struct {
	policy *Policy
	logger logging.Logger
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithLogger sets the logger used for attempt diagnostics
func WithLogger(logger logging.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates a new retry executor with the given policy
func NewExecutor(policy *Policy, options ...ExecutorOption) *Executor {
	if policy == nil {
		policy = NewPolicy()
	}
	e := &Executor{
		policy: policy,
		logger: logging.NewNop(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Execute runs operation until it succeeds, returns a Permanent error,
// the attempts are exhausted or ctx is done.
func (e *Executor) Execute(ctx context.Context, operation func() error) error {
	var lastErr error
	interval := e.policy.InitialInterval

	for attempt := int32(1); attempt <= e.policy.MaximumAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		lastErr = err

		if attempt == e.policy.MaximumAttempts {
			e.logger.Debug(ctx, "Maximum attempts reached", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			break
		}

		e.logger.Debug(ctx, "Operation failed, scheduling retry", map[string]interface{}{
			"attempt":  attempt,
			"error":    err.Error(),
			"interval": interval.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * e.policy.BackoffCoefficient)
		if e.policy.MaximumInterval > 0 && interval > e.policy.MaximumInterval {
			interval = e.policy.MaximumInterval
		}
	}

	return lastErr
}
