// Package execx runs external build tools and captures their output as lines.
package execx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a command exceeds its time limit
var ErrTimeout = errors.New("command timed out")

// ErrNotFound is returned when the executable cannot be located
var ErrNotFound = errors.New("executable not found")

// Result is the outcome of a command that started. A non-zero exit code is a
// result, not an error.
type Result struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
	Duration time.Duration
}

// Success reports whether the command exited with status zero
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Executor runs a command in dir
type Executor interface {
	Execute(ctx context.Context, dir string, argv ...string) (*Result, error)
}

// CommandExecutor runs commands on the local machine
type CommandExecutor struct {
	Timeout time.Duration
	Env     []string // appended to the current environment
	Logger  *slog.Logger
}

// NewCommandExecutor creates an executor with the given per-command timeout
func NewCommandExecutor(timeout time.Duration, logger *slog.Logger) *CommandExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandExecutor{Timeout: timeout, Logger: logger}
}

// Execute runs argv in dir. Cancelling ctx or reaching the timeout kills the process.
func (e *CommandExecutor) Execute(ctx context.Context, dir string, argv ...string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command given")
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running command", "dir", dir, "command", strings.Join(argv, " "))
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("Command timed out", "command", argv[0], "dir", dir, "timeout", e.Timeout)
		return nil, fmt.Errorf("%s: %w after %s", argv[0], ErrTimeout, e.Timeout)
	}

	result := &Result{
		Stdout:   splitLines(stdout.Bytes()),
		Stderr:   splitLines(stderr.Bytes()),
		Duration: duration,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logger.Debug("Command exited with non-zero status", "command", argv[0], "exit_code", result.ExitCode)
			return result, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", argv[0], ErrNotFound)
		}
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}

	logger.Debug("Command finished", "command", argv[0], "duration", duration)
	return result, nil
}

// LookPath reports whether an executable can be found
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
