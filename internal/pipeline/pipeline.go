// Package pipeline drives a salary batch from intake to a terminal acknowledgement.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/notify"
	"github.com/Veraticus/salary-disbursement/internal/service"
)

// Deps are the collaborators a Pipeline is built from.
type Deps struct {
	Validator  Validator
	Gate       Approver
	Packager   Packager
	Transfer   Transferer
	Settlement service.Settlement
	Store      service.AckStore
	// Notifier is optional.
	Notifier notify.Notifier
}

// Pipeline runs validation, admission, approval, packaging, transfer and
// settlement in strict order. Every stage outcome is recorded as an
// acknowledgement. Errors are returned only for store and workdir failures and
// for a batch id that is already admitted.
type Pipeline struct {
	validator  Validator
	gate       Approver
	packager   Packager
	transfer   Transferer
	settlement service.Settlement
	store      service.AckStore
	notifier   notify.Notifier
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Pipeline{
		validator:  deps.Validator,
		gate:       deps.Gate,
		packager:   deps.Packager,
		transfer:   deps.Transfer,
		settlement: deps.Settlement,
		store:      deps.Store,
		notifier:   notifier,
	}
}

// run carries per-run identity for logging and notification.
type run struct {
	logger *slog.Logger
	id     string
	source string
}

func (p *Pipeline) newRun(source string) *run {
	id := uuid.NewString()
	return &run{
		id:     id,
		source: source,
		logger: slog.With("run_id", id, "source", source),
	}
}

// Process validates a raw upload and, if admitted, runs the remaining stages.
// A batch id that is already in flight or settled is refused with the
// batch's current acknowledgement and an error wrapping common.ErrAlreadyAdmitted.
func (p *Pipeline) Process(ctx context.Context, raw []byte, fileName string) (*model.Acknowledgement, error) {
	r := p.newRun(fileName)
	batch, ack, err := p.validate(ctx, r, raw, fileName)
	if batch == nil {
		return ack, err
	}
	return p.start(ctx, r, batch)
}

// ProcessBatch runs an already-structured batch through validation and the remaining stages.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch *model.SalaryBatch, source string) (*model.Acknowledgement, error) {
	r := p.newRun(source)
	res := p.validator.ValidateBatch(batch, source)
	if !res.Valid() {
		return p.rejectInvalid(ctx, r, res)
	}
	return p.start(ctx, r, res.Batch)
}

// Receive validates and admits an upload, leaving the RECEIVED acknowledgement
// as its latest record so the caller can run Continue asynchronously. A refused
// upload returns a nil batch together with its acknowledgement.
func (p *Pipeline) Receive(ctx context.Context, raw []byte, fileName string) (*model.SalaryBatch, *model.Acknowledgement, error) {
	r := p.newRun(fileName)
	batch, ack, err := p.validate(ctx, r, raw, fileName)
	if batch == nil || err != nil {
		return nil, ack, err
	}

	ack, err = p.claim(ctx, r, batch.BatchID)
	if err != nil {
		return nil, ack, err
	}
	return batch, ack, nil
}

// Continue runs approval, packaging, transfer and settlement for a batch
// already admitted by Receive.
func (p *Pipeline) Continue(ctx context.Context, batch *model.SalaryBatch, source string) (*model.Acknowledgement, error) {
	return p.continueRun(ctx, p.newRun(source), batch)
}

// Approve performs the maker-checker approval of a PENDING batch. The
// acknowledgement is delivered under the batch id since the upload name is not kept.
func (p *Pipeline) Approve(ctx context.Context, batchID string) (*model.Acknowledgement, error) {
	ack, err := p.store.Approve(ctx, batchID)
	if err != nil {
		slog.Warn("Approval refused", "batch_id", batchID, "error", err)
		return nil, err
	}
	slog.Info("Batch approved", "batch_id", batchID, "status", ack.Status)
	p.notify(ctx, p.newRun(batchID), ack)
	return ack, nil
}

// CheckStatus queries the gateway for a batch. When record is set the
// outcome is appended to the batch history.
func (p *Pipeline) CheckStatus(ctx context.Context, batchID string, record bool) (model.SettlementOutcome, *model.Acknowledgement, error) {
	outcome := p.settlement.QueryStatus(ctx, batchID)
	if !record {
		return outcome, nil, nil
	}
	r := p.newRun(batchID)
	ack, err := p.record(ctx, r, batchID, outcome.Status.AckStatus(), SettlementMessage(outcome), outcome.Items)
	return outcome, ack, err
}

func (p *Pipeline) validate(ctx context.Context, r *run, raw []byte, fileName string) (*model.SalaryBatch, *model.Acknowledgement, error) {
	r.logger.Info("Validating upload", "stage", "validate", "bytes", len(raw))
	res := p.validator.Validate(raw, fileName)
	if !res.Valid() {
		ack, err := p.rejectInvalid(ctx, r, res)
		return nil, ack, err
	}
	return res.Batch, nil, nil
}

func (p *Pipeline) rejectInvalid(ctx context.Context, r *run, res intake.ValidationResult) (*model.Acknowledgement, error) {
	r.logger.Warn("Batch failed validation", "stage", "validate", "batch_id", res.BatchID, "errors", len(res.Errors), "error", res.Err())
	return p.record(ctx, r, res.BatchID, model.StatusValidationFailed, validationMessage(res.Errors), nil)
}

// start claims a validated batch and runs it to a terminal acknowledgement.
func (p *Pipeline) start(ctx context.Context, r *run, batch *model.SalaryBatch) (*model.Acknowledgement, error) {
	ctx = context.WithoutCancel(ctx)
	if ack, err := p.claim(ctx, r, batch.BatchID); err != nil {
		return ack, err
	}
	return p.continueRun(ctx, r, batch)
}

// claim records RECEIVED through the store's admission check. A refused batch
// gets no new record, so whatever is in flight or settled stays the latest state.
func (p *Pipeline) claim(ctx context.Context, r *run, batchID string) (*model.Acknowledgement, error) {
	ack, err := p.store.Admit(ctx, batchID)
	if errors.Is(err, common.ErrAlreadyAdmitted) {
		r.logger.Warn("Batch refused", "stage", "admit", "batch_id", batchID, "error", err)
		return ack, err
	}
	if err != nil {
		r.logger.Error("Failed to admit batch", "stage", "admit", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to admit %s: %w", batchID, err)
	}
	r.logger.Info("Batch admitted", "stage", "admit", "batch_id", batchID)
	p.notify(ctx, r, ack)
	return ack, nil
}

func (p *Pipeline) continueRun(ctx context.Context, r *run, batch *model.SalaryBatch) (*model.Acknowledgement, error) {
	// A started run is never cancelled part-way; each external call is bounded
	// by its own deadline instead.
	ctx = context.WithoutCancel(ctx)
	log := r.logger.With("batch_id", batch.BatchID)

	log.Info("Evaluating approval checks", "stage", "approve", "items", len(batch.Items))
	verdict := p.gate.Decide(ctx, batch)
	if !verdict.Approved {
		log.Warn("Batch rejected", "stage", "approve", "check", verdict.Check, "error", verdict.Err())
		return p.record(ctx, r, batch.BatchID, model.StatusRejected, verdict.Message(), nil)
	}

	log.Info("Packaging batch", "stage", "package")
	artifact, err := p.packager.Package(ctx, batch)
	if err != nil {
		log.Warn("Packaging failed", "stage", "package", "error", err)
		ack, recErr := p.record(ctx, r, batch.BatchID, model.StatusFailed, fmt.Sprintf("Packaging failed: %v", err), nil)
		if recErr != nil {
			return nil, recErr
		}
		if errors.Is(err, common.ErrWorkdir) {
			return ack, err
		}
		return ack, nil
	}

	log.Info("Transferring artifact", "stage", "transfer", "path", artifact.TransferPath())
	out := p.transfer.Transfer(ctx, artifact)
	if !out.OK() {
		log.Warn("Transfer failed", "stage", "transfer", "exit_code", out.ExitCode, "error", out.Err)
		return p.record(ctx, r, batch.BatchID, model.StatusFailed, out.Message, nil)
	}

	log.Info("Submitting to settlement gateway", "stage", "settle", "total", model.FormatMinor(batch.Total()))
	outcome := p.settlement.Submit(ctx, batch)
	log.Info("Settlement outcome", "stage", "settle", "status", outcome.Status, "transaction_id", outcome.TransactionID)
	if err := outcome.Err(); err != nil {
		log.Warn("Settlement failed", "stage", "settle", "error", err)
	}
	return p.record(ctx, r, batch.BatchID, outcome.Status.AckStatus(), SettlementMessage(outcome), outcome.Items)
}

func (p *Pipeline) record(ctx context.Context, r *run, batchID string, status model.AckStatus, message string, items []model.ItemOutcome) (*model.Acknowledgement, error) {
	ack, err := p.store.Record(ctx, batchID, status, message, items)
	if err != nil {
		r.logger.Error("Failed to record acknowledgement", "batch_id", batchID, "status", status, "error", err)
		return nil, fmt.Errorf("failed to record acknowledgement for %s: %w", batchID, err)
	}
	p.notify(ctx, r, ack)
	return ack, nil
}

// notify delivers ack to the client. Delivery failures are logged, never returned.
func (p *Pipeline) notify(ctx context.Context, r *run, ack *model.Acknowledgement) {
	if err := p.notifier.Notify(ctx, r.source, ack); err != nil {
		common.LogError(err, "Failed to deliver acknowledgement", common.Fields{
			"batch_id": ack.BatchID,
			"run_id":   r.id,
		})
	}
}
