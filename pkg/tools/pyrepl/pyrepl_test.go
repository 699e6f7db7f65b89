package pyrepl

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func TestToolSuccess(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, "print(1)").Return("1\n", nil)
	tool := New("python3", time.Second, WithRunner(runner))

	result, err := tool.Execute(context.Background(), `{"code":"print(1)"}`)
	require.NoError(t, err)
	assert.Equal(t, "Successfully executed:\n```python\nprint(1)\n```\nStdout: 1", result)
	runner.AssertExpectations(t)
}

func TestToolSilentSuccess(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, "x = 1").Return("", nil)
	tool := New("python3", time.Second, WithRunner(runner))

	result, err := tool.Run(context.Background(), "x = 1")
	require.NoError(t, err)
	assert.Equal(t, "Successfully executed:\n```python\nx = 1\n```\n", result)
}

func TestToolFailureIsOutput(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, "1/0").Return("", errors.New("ZeroDivisionError: division by zero"))
	tool := New("python3", time.Second, WithRunner(runner))

	result, err := tool.Run(context.Background(), "1/0")
	require.NoError(t, err)
	assert.Equal(t, "Failed to execute. Error: ZeroDivisionError: division by zero", result)
}

func TestToolArguments(t *testing.T) {
	tool := New("python3", time.Second, WithRunner(new(mockRunner)))

	_, err := tool.Execute(context.Background(), `{"code":""}`)
	assert.EqualError(t, err, "code parameter is required")

	_, err = tool.Execute(context.Background(), `print(1)`)
	assert.Error(t, err)

	assert.Equal(t, "python_repl", tool.Name())
	assert.True(t, tool.Parameters()["code"].Required)
}

func TestExecRunner(t *testing.T) {
	interpreter, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	runner := &ExecRunner{Interpreter: interpreter, Timeout: 10 * time.Second, Dir: t.TempDir()}

	out, err := runner.Run(context.Background(), "print('hello')")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, err = runner.Run(context.Background(), "raise ValueError('bad value')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ValueError: bad value")
}

func TestExecRunnerTimeout(t *testing.T) {
	interpreter, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	runner := &ExecRunner{Interpreter: interpreter, Timeout: 100 * time.Millisecond}

	_, err = runner.Run(context.Background(), "import time\ntime.sleep(5)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
