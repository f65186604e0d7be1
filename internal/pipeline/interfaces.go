package pipeline

import (
	"context"

	"github.com/Veraticus/salary-disbursement/internal/approval"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/packager"
	"github.com/Veraticus/salary-disbursement/internal/transfer"
)

// Validator admits or refuses uploads.
type Validator interface {
	Validate(raw []byte, fileName string) intake.ValidationResult
	ValidateBatch(batch *model.SalaryBatch, fallbackID string) intake.ValidationResult
}

// Approver is the maker-checker gate.
type Approver interface {
	Decide(ctx context.Context, batch *model.SalaryBatch) approval.Verdict
}

// Packager produces the canonical (and optionally encrypted) artifact.
type Packager interface {
	Package(ctx context.Context, batch *model.SalaryBatch) (packager.Artifact, error)
}

// Transferer moves an artifact to the partner.
type Transferer interface {
	Transfer(ctx context.Context, artifact packager.Artifact) transfer.Outcome
}
