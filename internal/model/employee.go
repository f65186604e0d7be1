package model

import "time"

// Employee is a roster entry from the HR source used by the roster approval check.
type Employee struct {
	CreatedAt     time.Time `json:"createdAt"`
	EmployeeID    string    `json:"employeeId"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"accountNumber,omitempty"`
	BankCode      string    `json:"bankCode,omitempty"`
	Active        bool      `json:"active"`
}
