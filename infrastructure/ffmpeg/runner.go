package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// stderrTailLines is how many trailing stderr lines a ToolError keeps
const stderrTailLines = 5

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError describes a failed external tool invocation
type ToolError struct {
	Tool     string
	ExitCode int    // -1 when the process never started or was killed
	Stderr   string // trailing diagnostic lines
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExecCommandRunner is the production implementation using os/exec.
// The zero value is ready to use; Logger, when set, receives each invocation at debug level.
type ExecCommandRunner struct {
	Logger *zap.Logger
}

// Run executes a command, capturing stderr for diagnostics
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.log(name, args, start, err)
	if err != nil {
		return newToolError(ctx, name, err, stderr.Bytes())
	}
	return nil
}

// Output executes a command and returns its stdout
func (r *ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	start := time.Now()
	out, err := cmd.Output()
	r.log(name, args, start, err)
	if err != nil {
		return nil, newToolError(ctx, name, err, stderr.Bytes())
	}
	return out, nil
}

func (r *ExecCommandRunner) log(name string, args []string, start time.Time, err error) {
	if r.Logger == nil {
		return
	}
	r.Logger.Debug("external tool finished",
		zap.String("tool", name),
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
}

func newToolError(ctx context.Context, name string, err error, stderr []byte) *ToolError {
	te := &ToolError{
		Tool:     name,
		ExitCode: -1,
		Stderr:   tailLines(string(stderr), stderrTailLines),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	// A killed process reports -1; surface the context reason instead.
	if ctxErr := ctx.Err(); ctxErr != nil {
		te.ExitCode = -1
		te.Err = ctxErr
	}
	return te
}

// tailLines returns the last n non-empty lines of s joined with " | "
func tailLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
