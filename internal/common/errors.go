// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Intake errors.
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParse             = errors.New("parse failure")
	ErrValidation        = errors.New("validation failed")

	// Pipeline errors.
	ErrAlreadyAdmitted  = errors.New("batch already admitted")
	ErrRejected         = errors.New("batch rejected")
	ErrWorkdir          = errors.New("unable to prepare workdir")
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrTransferFailed   = errors.New("transfer failed")
	ErrSettlementFailed = errors.New("settlement failed")
	ErrCommandTimeout   = errors.New("command deadline exceeded")

	// Approval errors.
	ErrInvalidState = errors.New("invalid state")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
