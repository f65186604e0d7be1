package model

import (
	"fmt"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/common"
)

// SettlementStatus is the batch-level result reported by the settlement gateway.
type SettlementStatus string

// Settlement statuses.
const (
	SettlementSuccess SettlementStatus = "SUCCESS"
	SettlementPending SettlementStatus = "PENDING"
	SettlementFailed  SettlementStatus = "FAILED"
)

// SettlementOutcome is produced once per submission or status query.
type SettlementOutcome struct {
	ProcessedAt   time.Time        `json:"processedAt"`
	BatchID       string           `json:"batchId"`
	Status        SettlementStatus `json:"status"`
	Message       string           `json:"message"`
	TransactionID string           `json:"transactionId,omitempty"`
	Items         []ItemOutcome    `json:"itemStatuses,omitempty"`
}

// Err wraps common.ErrSettlementFailed for a FAILED outcome and is nil otherwise.
func (o SettlementOutcome) Err() error {
	if o.Status != SettlementFailed {
		return nil
	}
	return fmt.Errorf("%w: batch %s: %s", common.ErrSettlementFailed, o.BatchID, o.Message)
}

// ItemOutcome is the per-employee result carried verbatim from the gateway.
type ItemOutcome struct {
	EmployeeID    string `json:"employeeId"`
	AccountNumber string `json:"accountNumber"`
	Status        string `json:"status"`
	ErrorCode     string `json:"errorCode,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// AckStatus maps the settlement status onto the acknowledgement lifecycle.
func (s SettlementStatus) AckStatus() AckStatus {
	switch s {
	case SettlementSuccess:
		return StatusSuccess
	case SettlementPending:
		return StatusPending
	default:
		return StatusFailed
	}
}
