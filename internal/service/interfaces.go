// Package service defines the interfaces shared between the pipeline, its
// collaborators and the trigger surfaces.
package service

import (
	"context"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

// AckFilter defines filtering options for acknowledgement listings.
type AckFilter struct {
	Status model.AckStatus
	Limit  int
}

// AckStore is the durable, append-only acknowledgement record.
type AckStore interface {
	Record(ctx context.Context, batchID string, status model.AckStatus, message string, items []model.ItemOutcome) (*model.Acknowledgement, error)
	Admit(ctx context.Context, batchID string) (*model.Acknowledgement, error)
	FindByBatchID(ctx context.Context, batchID string) (*model.Acknowledgement, error)
	History(ctx context.Context, batchID string) ([]model.Acknowledgement, error)
	ListAcknowledgements(ctx context.Context, filter AckFilter) ([]model.Acknowledgement, error)
	Approve(ctx context.Context, batchID string) (*model.Acknowledgement, error)
}

// Roster is the HR employee register.
type Roster interface {
	SaveEmployee(ctx context.Context, employee *model.Employee) error
	GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)
}

// Storage is the full persistence layer.
type Storage interface {
	AckStore
	Roster
	Migrate(ctx context.Context) error
	Close() error
}

// Settlement is the core-banking gateway. Submit and QueryStatus never fail;
// errors are reported inside the outcome.
type Settlement interface {
	Submit(ctx context.Context, batch *model.SalaryBatch) model.SettlementOutcome
	QueryStatus(ctx context.Context, batchID string) model.SettlementOutcome
	AccountBalance(ctx context.Context, account string) (int64, error)
}
