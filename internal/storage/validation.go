// Package storage persists acknowledgements and the employee roster in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidStatus   = errors.New("invalid acknowledgement status")
	ErrInvalidEmployee = errors.New("invalid employee")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateStatus(status model.AckStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return nil
}

func validateEmployee(employee *model.Employee) error {
	if employee == nil {
		return fmt.Errorf("%w: employee", ErrNilParameter)
	}
	if strings.TrimSpace(employee.EmployeeID) == "" {
		return fmt.Errorf("%w: missing employee id", ErrInvalidEmployee)
	}
	if strings.TrimSpace(employee.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidEmployee)
	}
	return nil
}
