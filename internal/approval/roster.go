package approval

import (
	"context"
	"errors"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Roster is the authoritative HR source.
type Roster interface {
	GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error)
}

// RosterCheck cross-validates every item against the roster.
type RosterCheck struct {
	roster Roster
}

// NewRosterCheck creates a roster cross-validation check.
func NewRosterCheck(roster Roster) *RosterCheck {
	return &RosterCheck{roster: roster}
}

// Name implements Check.
func (c *RosterCheck) Name() string { return config.CheckRoster }

// Evaluate implements Check.
func (c *RosterCheck) Evaluate(ctx context.Context, batch *model.SalaryBatch) Result {
	for _, item := range batch.Items {
		employee, err := c.roster.GetEmployee(ctx, item.EmployeeID)
		if errors.Is(err, common.ErrNotFound) {
			return Fail("employee %s is not on the roster", item.EmployeeID)
		}
		if err != nil {
			return Fail("unable to verify employee %s: %v", item.EmployeeID, err)
		}
		if !employee.Active {
			return Fail("employee %s is not active", item.EmployeeID)
		}
		if employee.AccountNumber != "" && employee.AccountNumber != item.AccountNumber {
			return Fail("employee %s account %s does not match roster", item.EmployeeID, item.AccountNumber)
		}
	}
	return Pass()
}
