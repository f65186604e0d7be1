package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Veraticus/salary-disbursement/internal/common"
)

// AccountBalance returns the available balance of a settlement account in
// minor units. Client errors are marked non-retryable for common.WithRetry.
func (c *Client) AccountBalance(ctx context.Context, account string) (int64, error) {
	var resp BalanceResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(account)+"/balance", nil, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError &&
			statusErr.StatusCode != http.StatusTooManyRequests {
			return 0, &common.RetryableError{Err: err, Retryable: false}
		}
		return 0, err
	}
	return resp.Available, nil
}
