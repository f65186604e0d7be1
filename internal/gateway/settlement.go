package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Submit sends a batch for settlement. It never returns an error: any failure
// becomes a FAILED outcome carrying the reason. Submissions are not retried.
func (c *Client) Submit(ctx context.Context, batch *model.SalaryBatch) model.SettlementOutcome {
	var resp PaymentResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/payments/batch", newPaymentRequest(batch, c.currency), &resp); err != nil {
		slog.Warn("Settlement submission failed", "batch_id", batch.BatchID, "error", err)
		return c.failed(batch.BatchID, fmt.Sprintf("Failed to process payment batch: %v", err))
	}
	return c.outcome(batch.BatchID, resp)
}

// QueryStatus asks the gateway for the current state of a submitted batch.
// Like Submit, failures come back as a FAILED outcome.
func (c *Client) QueryStatus(ctx context.Context, batchID string) model.SettlementOutcome {
	var resp PaymentResponse
	path := "/api/v1/payments/batch/" + url.PathEscape(batchID) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		slog.Warn("Settlement status query failed", "batch_id", batchID, "error", err)
		return c.failed(batchID, fmt.Sprintf("Failed to check payment status: %v", err))
	}
	return c.outcome(batchID, resp)
}

func (c *Client) outcome(batchID string, resp PaymentResponse) model.SettlementOutcome {
	status := NormalizeStatus(resp.Status)
	message := resp.Message
	if message == "" {
		message = defaultMessage(status)
	}
	return model.SettlementOutcome{
		ProcessedAt:   c.now().UTC(),
		BatchID:       batchID,
		Status:        status,
		Message:       message,
		TransactionID: resp.TransactionID,
		Items:         resp.items(),
	}
}

func (c *Client) failed(batchID, message string) model.SettlementOutcome {
	return model.SettlementOutcome{
		ProcessedAt: c.now().UTC(),
		BatchID:     batchID,
		Status:      model.SettlementFailed,
		Message:     message,
	}
}

func defaultMessage(status model.SettlementStatus) string {
	switch status {
	case model.SettlementSuccess:
		return "Payment batch processed successfully"
	case model.SettlementPending:
		return "Payment batch is being processed"
	default:
		return "Payment batch failed"
	}
}
