// Package pyrepl provides the python_repl tool used by the chart assistant.
package pyrepl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
)

// ToolName is the name the chart prompt refers to
const ToolName = "python_repl"

// Runner executes code and returns what it printed
type Runner interface {
	Run(ctx context.Context, code string) (string, error)
}

// ExecRunner runs code in a fresh interpreter process fed over stdin
type ExecRunner struct {
	Interpreter string
	Timeout     time.Duration
	// Dir is the working directory, where generated charts end up
	Dir string
	Env []string
}

// Run executes code and returns its stdout. A non-zero exit is an error
// carrying stderr.
func (r *ExecRunner) Run(ctx context.Context, code string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	interpreter := r.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}

	cmd := exec.CommandContext(ctx, interpreter, "-")
	cmd.Dir = r.Dir
	// headless plotting
	cmd.Env = append(append(os.Environ(), "MPLBACKEND=Agg"), r.Env...)
	cmd.Stdin = strings.NewReader(code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.String(), fmt.Errorf("execution timed out: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("%s", msg)
		}
		return stdout.String(), err
	}
	return stdout.String(), nil
}

// Tool executes python code
type Tool struct {
	runner Runner
	logger logging.Logger
}

// Option configures the tool
type Option func(*Tool)

// WithRunner replaces the interpreter process runner
func WithRunner(runner Runner) Option {
	return func(t *Tool) {
		t.runner = runner
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(t *Tool) {
		t.logger = logger
	}
}

// New creates the tool running code with the given interpreter
func New(interpreter string, timeout time.Duration, options ...Option) *Tool {
	t := &Tool{
		runner: &ExecRunner{Interpreter: interpreter, Timeout: timeout},
		logger: logging.NewNop(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

func (t *Tool) Name() string        { return ToolName }
func (t *Tool) DisplayName() string { return "Python REPL" }
func (t *Tool) Internal() bool      { return false }

func (t *Tool) Description() string {
	return "Use this to execute python code. If you want to see the output of a value, " +
		"you should print it out with `print(...)`. This is visible to the user."
}

func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"code": {
			Type:        "string",
			Description: "The python code to execute to generate your chart.",
			Required:    true,
		},
	}
}

// Run executes the code. Execution failures are reported as the tool output
// so the model can fix its code.
func (t *Tool) Run(ctx context.Context, code string) (string, error) {
	out, err := t.runner.Run(ctx, code)
	if err != nil {
		t.logger.Warn(ctx, "Python execution failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Sprintf("Failed to execute. Error: %v", err), nil
	}

	result := fmt.Sprintf("Successfully executed:\n```python\n%s\n```\n", code)
	if out = strings.TrimRight(out, "\n"); out != "" {
		result += "Stdout: " + out
	}
	return result, nil
}

// Execute executes the tool with {"code": ...}
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if strings.TrimSpace(params.Code) == "" {
		return "", fmt.Errorf("code parameter is required")
	}
	return t.Run(ctx, params.Code)
}
