package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

const employeeColumns = `employee_id, name, account_number, bank_code, active, created_at`

// SaveEmployee inserts or replaces a roster entry.
func (s *SQLiteStorage) SaveEmployee(ctx context.Context, employee *model.Employee) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEmployee(employee); err != nil {
		return err
	}

	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			name = excluded.name,
			account_number = excluded.account_number,
			bank_code = excluded.bank_code,
			active = excluded.active
	`, employee.EmployeeID, employee.Name, employee.AccountNumber, employee.BankCode, employee.Active, employee.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee returns a roster entry, or common.ErrNotFound.
func (s *SQLiteStorage) GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(employeeID, "employeeID"); err != nil {
		return nil, err
	}

	var e model.Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE employee_id = ?
	`, employeeID).Scan(&e.EmployeeID, &e.Name, &e.AccountNumber, &e.BankCode, &e.Active, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: employee %s", common.ErrNotFound, employeeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// ListEmployees returns the roster ordered by employee id.
func (s *SQLiteStorage) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		ORDER BY employee_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.EmployeeID, &e.Name, &e.AccountNumber, &e.BankCode, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}
