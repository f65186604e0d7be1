package model

import (
	"fmt"
	"time"
)

// AckStatus is the status recorded on an acknowledgement.
type AckStatus string

// Acknowledgement statuses.
const (
	StatusReceived         AckStatus = "RECEIVED"
	StatusValidationFailed AckStatus = "VALIDATION_FAILED"
	StatusRejected         AckStatus = "REJECTED"
	StatusFailed           AckStatus = "FAILED"
	StatusPending          AckStatus = "PENDING"
	StatusApproved         AckStatus = "APPROVED"
	StatusSuccess          AckStatus = "SUCCESS"
)

// AllAckStatuses lists every valid status.
var AllAckStatuses = []AckStatus{
	StatusReceived,
	StatusValidationFailed,
	StatusRejected,
	StatusFailed,
	StatusPending,
	StatusApproved,
	StatusSuccess,
}

// IsValid reports whether s is a known status.
func (s AckStatus) IsValid() bool {
	for _, known := range AllAckStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Admissible reports whether a batch whose latest record has status s may be
// run through the pipeline again. Only refused or failed batches qualify.
func (s AckStatus) Admissible() bool {
	switch s {
	case StatusValidationFailed, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseAckStatus converts a string into an AckStatus.
func ParseAckStatus(s string) (AckStatus, error) {
	status := AckStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown acknowledgement status %q", s)
	}
	return status, nil
}

// Acknowledgement is the durable record of a batch outcome at a point in the pipeline.
// Records are append-only; the only mutation is PENDING -> APPROVED.
type Acknowledgement struct {
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	BatchID   string        `json:"batchId"`
	Status    AckStatus     `json:"status"`
	Message   string        `json:"message"`
	Items     []ItemOutcome `json:"itemStatuses,omitempty"`
	ID        int64         `json:"id"`
}
