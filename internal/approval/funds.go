package approval

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

// BalanceSource reports the available balance of a settlement account in minor units.
type BalanceSource interface {
	AccountBalance(ctx context.Context, account string) (int64, error)
}

// FundsCheck rejects a batch whose total exceeds the company account's available balance.
// It fails closed: a balance that cannot be read rejects the batch.
type FundsCheck struct {
	source BalanceSource
	retry  common.RetryOptions
}

// NewFundsCheck creates a funds sufficiency check.
func NewFundsCheck(source BalanceSource) *FundsCheck {
	return &FundsCheck{
		source: source,
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
}

// WithRetryOptions overrides the balance lookup backoff.
func (c *FundsCheck) WithRetryOptions(opts common.RetryOptions) *FundsCheck {
	c.retry = opts
	return c
}

// Name implements Check.
func (c *FundsCheck) Name() string { return config.CheckFunds }

// Evaluate implements Check.
func (c *FundsCheck) Evaluate(ctx context.Context, batch *model.SalaryBatch) Result {
	var available int64
	err := common.WithRetry(ctx, func() error {
		balance, err := c.source.AccountBalance(ctx, batch.CompanyAccount)
		if err != nil {
			return err
		}
		available = balance
		return nil
	}, c.retry)
	if err != nil {
		return Fail("unable to verify balance of account %s: %v", batch.CompanyAccount, err)
	}

	required := decimal.New(batch.Total(), -2)
	have := decimal.New(available, -2)
	if have.LessThan(required) {
		return Fail("insufficient funds in account %s: available %s, required %s",
			batch.CompanyAccount, have.StringFixed(2), required.StringFixed(2))
	}
	return Pass()
}
