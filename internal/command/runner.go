// Package command runs external tools (gpg, rclone) behind a narrow interface
// so pipeline stages can be exercised without spawning processes.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/common"
)

// Command describes one external tool invocation.
type Command struct {
	Name    string
	Dir     string
	Args    []string
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Success reports whether the process exited 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands. A process that starts and exits non-zero is not an
// error: the exit code is in the Result. Errors mean the process could not be
// started or exceeded its deadline (common.ErrCommandTimeout).
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// DefaultTimeout applies when a Command carries none and ctx has no deadline.
	DefaultTimeout time.Duration
}

// NewExecRunner creates a runner with a fallback deadline.
func NewExecRunner(defaultTimeout time.Duration) *ExecRunner {
	return &ExecRunner{DefaultTimeout: defaultTimeout}
}

// Run executes cmd and waits for it to finish or for its deadline.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Name == "" {
		return Result{}, fmt.Errorf("command name is required")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	cmdCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	// Bound the wait for grandchildren still holding stdout after a kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%w: %s", common.ErrCommandTimeout, c.String())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to execute %s: %w", c.Name, err)
	}

	return result, nil
}
