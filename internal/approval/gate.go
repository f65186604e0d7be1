// Package approval implements the maker-checker gate that admits or rejects
// a validated batch before any money moves.
package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Result is the outcome of a single check.
type Result struct {
	Reason string
	Passed bool
}

// Pass is a passing Result.
func Pass() Result { return Result{Passed: true} }

// Fail is a failing Result with a reason for the audit trail.
func Fail(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Check is one independent approval predicate.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, batch *model.SalaryBatch) Result
}

// Verdict is the gate decision. On rejection Check names the failing check.
type Verdict struct {
	Check    string
	Reason   string
	Approved bool
}

// Message renders a rejection for acknowledgements.
func (v Verdict) Message() string {
	if v.Approved {
		return "Salary batch approved by maker-checker workflow"
	}
	return fmt.Sprintf("Salary batch rejected by maker-checker workflow: %s: %s", v.Check, v.Reason)
}

// Err returns nil for an approved batch and otherwise wraps common.ErrRejected.
func (v Verdict) Err() error {
	if v.Approved {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", common.ErrRejected, v.Check, v.Reason)
}

// Gate evaluates checks in order and stops at the first failure.
type Gate struct {
	checks []Check
}

// NewGate creates a gate over the given checks. A gate with no checks approves everything.
func NewGate(checks ...Check) *Gate {
	return &Gate{checks: checks}
}

// Checks returns the configured check names in evaluation order.
func (g *Gate) Checks() []string {
	names := make([]string, len(g.checks))
	for i, c := range g.checks {
		names[i] = c.Name()
	}
	return names
}

// Decide runs every check until one fails.
func (g *Gate) Decide(ctx context.Context, batch *model.SalaryBatch) Verdict {
	for _, check := range g.checks {
		res := check.Evaluate(ctx, batch)
		if !res.Passed {
			slog.Warn("Approval check failed",
				"batch_id", batch.BatchID,
				"check", check.Name(),
				"reason", res.Reason)
			return Verdict{Check: check.Name(), Reason: res.Reason}
		}
		slog.Debug("Approval check passed", "batch_id", batch.BatchID, "check", check.Name())
	}
	return Verdict{Approved: true}
}
