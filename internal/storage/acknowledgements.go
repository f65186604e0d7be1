package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/service"
)

// Acknowledgement messages written by the store itself.
const (
	MessageReceived        = "Salary batch received and queued for processing."
	MessageApproved        = "Salary batch approved and payment will be processed."
	MessageAlreadyApproved = "Salary batch was already approved."
)

const ackColumns = `id, batch_id, status, message, created_at, updated_at`

// Record appends a new acknowledgement. Existing records for the batch are never touched.
func (s *SQLiteStorage) Record(ctx context.Context, batchID string, status model.AckStatus, message string, items []model.ItemOutcome) (*model.Acknowledgement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	ack := newAcknowledgement(batchID, status, message, items)
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertTx(ctx, tx, ack)
	}); err != nil {
		return nil, err
	}
	return ack, nil
}

// Admit claims a batch for a pipeline run by appending a RECEIVED record.
// A batch is admitted when it has no record yet or its latest status is
// VALIDATION_FAILED, REJECTED or FAILED. Otherwise Admit returns the latest
// record together with an error wrapping common.ErrAlreadyAdmitted, and
// nothing is written.
func (s *SQLiteStorage) Admit(ctx context.Context, batchID string) (*model.Acknowledgement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	var (
		ack     *model.Acknowledgement
		refused error
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.latestTx(ctx, tx, batchID)
		switch {
		case errors.Is(err, common.ErrNotFound):
		case err != nil:
			return err
		case !current.Status.Admissible():
			ack = current
			refused = fmt.Errorf("%w: batch %s already admitted with status %s",
				common.ErrAlreadyAdmitted, batchID, current.Status)
			return nil
		}

		ack = newAcknowledgement(batchID, model.StatusReceived, MessageReceived, nil)
		return insertTx(ctx, tx, ack)
	})
	if err != nil {
		return nil, err
	}
	return ack, refused
}

func newAcknowledgement(batchID string, status model.AckStatus, message string, items []model.ItemOutcome) *model.Acknowledgement {
	now := time.Now().UTC()
	return &model.Acknowledgement{
		BatchID:   batchID,
		Status:    status,
		Message:   message,
		Items:     append([]model.ItemOutcome(nil), items...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// insertTx writes ack and its item outcomes and sets ack.ID.
func insertTx(ctx context.Context, tx *sql.Tx, ack *model.Acknowledgement) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO acknowledgements (batch_id, status, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, ack.BatchID, string(ack.Status), ack.Message, ack.CreatedAt, ack.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert acknowledgement: %w", err)
	}
	if ack.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read acknowledgement id: %w", err)
	}

	for i, item := range ack.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO acknowledgement_items
				(acknowledgement_id, position, employee_id, account_number, status, error_code, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ack.ID, i, item.EmployeeID, item.AccountNumber, item.Status, item.ErrorCode, item.ErrorMessage); err != nil {
			return fmt.Errorf("failed to insert item outcome %d: %w", i, err)
		}
	}
	return nil
}

// FindByBatchID returns the latest acknowledgement for a batch, or common.ErrNotFound.
func (s *SQLiteStorage) FindByBatchID(ctx context.Context, batchID string) (*model.Acknowledgement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	return s.latestTx(ctx, s.db, batchID)
}

// History returns every acknowledgement recorded for a batch, oldest first.
func (s *SQLiteStorage) History(ctx context.Context, batchID string) ([]model.Acknowledgement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ackColumns+`
		FROM acknowledgements
		WHERE batch_id = ?
		ORDER BY id ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query acknowledgement history: %w", err)
	}
	acks, err := scanAcknowledgements(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, s.db, acks); err != nil {
		return nil, err
	}
	return acks, nil
}

// ListAcknowledgements returns acknowledgements newest first.
func (s *SQLiteStorage) ListAcknowledgements(ctx context.Context, filter service.AckFilter) ([]model.Acknowledgement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		if err := validateStatus(filter.Status); err != nil {
			return nil, err
		}
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + ackColumns + ` FROM acknowledgements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list acknowledgements: %w", err)
	}
	acks, err := scanAcknowledgements(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, s.db, acks); err != nil {
		return nil, err
	}
	return acks, nil
}

// Approve moves the latest PENDING acknowledgement of a batch to APPROVED.
// Approving an APPROVED batch refreshes its message and keeps the status.
// Any other status fails with common.ErrInvalidState.
func (s *SQLiteStorage) Approve(ctx context.Context, batchID string) (*model.Acknowledgement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	var approved *model.Acknowledgement
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.latestTx(ctx, tx, batchID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch current.Status {
		case model.StatusPending:
			res, err := tx.ExecContext(ctx, `
				UPDATE acknowledgements
				SET status = ?, message = ?, updated_at = ?
				WHERE id = ? AND status = ?
			`, string(model.StatusApproved), MessageApproved, now, current.ID, string(model.StatusPending))
			if err != nil {
				return fmt.Errorf("failed to approve acknowledgement: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read approval result: %w", err)
			}
			if n == 0 {
				// Lost the compare-and-set; report what the winner left behind.
				approved, err = s.latestTx(ctx, tx, batchID)
				return err
			}
			current.Status = model.StatusApproved
			current.Message = MessageApproved
			current.UpdatedAt = now

		case model.StatusApproved:
			if _, err := tx.ExecContext(ctx, `
				UPDATE acknowledgements
				SET message = ?, updated_at = ?
				WHERE id = ?
			`, MessageAlreadyApproved, now, current.ID); err != nil {
				return fmt.Errorf("failed to update acknowledgement: %w", err)
			}
			current.Message = MessageAlreadyApproved
			current.UpdatedAt = now

		default:
			return fmt.Errorf("%w: cannot approve batch with status: %s", common.ErrInvalidState, current.Status)
		}

		approved = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (s *SQLiteStorage) latestTx(ctx context.Context, q queryable, batchID string) (*model.Acknowledgement, error) {
	var (
		ack    model.Acknowledgement
		status string
	)
	err := q.QueryRowContext(ctx, `
		SELECT `+ackColumns+`
		FROM acknowledgements
		WHERE batch_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, batchID).Scan(&ack.ID, &ack.BatchID, &status, &ack.Message, &ack.CreatedAt, &ack.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no acknowledgement for batch %s", common.ErrNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get acknowledgement: %w", err)
	}
	ack.Status = model.AckStatus(status)

	acks := []model.Acknowledgement{ack}
	if err := s.attachItems(ctx, q, acks); err != nil {
		return nil, err
	}
	return &acks[0], nil
}

func scanAcknowledgements(rows *sql.Rows) ([]model.Acknowledgement, error) {
	defer func() { _ = rows.Close() }()

	var acks []model.Acknowledgement
	for rows.Next() {
		var (
			ack    model.Acknowledgement
			status string
		)
		if err := rows.Scan(&ack.ID, &ack.BatchID, &status, &ack.Message, &ack.CreatedAt, &ack.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan acknowledgement: %w", err)
		}
		ack.Status = model.AckStatus(status)
		acks = append(acks, ack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating acknowledgements: %w", err)
	}
	return acks, nil
}

// attachItems loads per-item outcomes for each acknowledgement in place.
func (s *SQLiteStorage) attachItems(ctx context.Context, q queryable, acks []model.Acknowledgement) error {
	if len(acks) == 0 {
		return nil
	}

	index := make(map[int64]int, len(acks))
	placeholders := make([]string, len(acks))
	args := make([]any, len(acks))
	for i, ack := range acks {
		index[ack.ID] = i
		placeholders[i] = "?"
		args[i] = ack.ID
	}

	rows, err := q.QueryContext(ctx, `
		SELECT acknowledgement_id, employee_id, account_number, status, error_code, error_message
		FROM acknowledgement_items
		WHERE acknowledgement_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY acknowledgement_id, position
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query item outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			ackID int64
			item  model.ItemOutcome
		)
		if err := rows.Scan(&ackID, &item.EmployeeID, &item.AccountNumber, &item.Status, &item.ErrorCode, &item.ErrorMessage); err != nil {
			return fmt.Errorf("failed to scan item outcome: %w", err)
		}
		if i, ok := index[ackID]; ok {
			acks[i].Items = append(acks[i].Items, item)
		}
	}
	return rows.Err()
}
