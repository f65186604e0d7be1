// Package transfer moves packaged artifacts to the partner's custody point
// with an external file-transfer tool.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/salary-disbursement/internal/command"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/packager"
)

// Outcome is the result of one transfer attempt. There are no retries.
type Outcome struct {
	Err      error
	Message  string
	Path     string
	ExitCode int
	Skipped  bool
}

// OK reports whether the pipeline may continue to settlement.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Agent invokes the transfer tool against the configured remote.
type Agent struct {
	runner command.Runner
	cfg    config.TransferConfig
}

// NewAgent creates a transfer agent.
func NewAgent(cfg config.TransferConfig, runner command.Runner) *Agent {
	return &Agent{cfg: cfg, runner: runner}
}

// Destination renders the remote descriptor, e.g. "partner:/salary/in".
func (a *Agent) Destination() string {
	return a.cfg.Remote + ":/" + strings.TrimPrefix(a.cfg.Dest, "/")
}

// Transfer copies the artifact. Exit 0 is success; any other exit code, a
// timeout or a failure to start is terminal for the batch.
func (a *Agent) Transfer(ctx context.Context, artifact packager.Artifact) Outcome {
	path := artifact.TransferPath()
	if !a.cfg.Enabled {
		slog.Info("Transfer disabled, skipping", "batch_id", artifact.BatchID, "path", path)
		return Outcome{Path: path, Skipped: true, Message: "Transfer skipped (disabled)."}
	}

	cmd := command.Command{
		Name:    a.cfg.Binary,
		Args:    []string{"copy", path, a.Destination()},
		Timeout: a.cfg.Timeout,
	}
	res, err := a.runner.Run(ctx, cmd)
	switch {
	case errors.Is(err, common.ErrCommandTimeout):
		return Outcome{
			Path:     path,
			ExitCode: res.ExitCode,
			Err:      fmt.Errorf("%w: %w", common.ErrTransferFailed, err),
			Message:  fmt.Sprintf("Upload to remote failed (timed out after %s).", a.cfg.Timeout),
		}
	case err != nil:
		return Outcome{
			Path:     path,
			ExitCode: -1,
			Err:      fmt.Errorf("%w: %w", common.ErrTransferFailed, err),
			Message:  fmt.Sprintf("Upload to remote failed (%v).", err),
		}
	case !res.Success():
		slog.Warn("Transfer tool failed",
			"batch_id", artifact.BatchID,
			"exit_code", res.ExitCode,
			"stderr", strings.TrimSpace(res.Stderr))
		return Outcome{
			Path:     path,
			ExitCode: res.ExitCode,
			Err:      fmt.Errorf("%w: exit code %d", common.ErrTransferFailed, res.ExitCode),
			Message:  fmt.Sprintf("Upload to remote failed (exit %d).", res.ExitCode),
		}
	}

	slog.Info("Transferred artifact",
		"batch_id", artifact.BatchID,
		"destination", a.Destination(),
		"duration", res.Duration)
	return Outcome{Path: path, Message: "Upload to remote succeeded."}
}
