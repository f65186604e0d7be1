package approval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

type mockBalanceSource struct {
	mock.Mock
}

func (m *mockBalanceSource) AccountBalance(ctx context.Context, account string) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

type mapRoster map[string]model.Employee

func (r mapRoster) GetEmployee(_ context.Context, id string) (*model.Employee, error) {
	e, ok := r[id]
	if !ok {
		return nil, fmt.Errorf("%w: employee %s", common.ErrNotFound, id)
	}
	return &e, nil
}

type staticCheck struct {
	name   string
	result Result
	calls  int
}

func (c *staticCheck) Name() string { return c.name }

func (c *staticCheck) Evaluate(context.Context, *model.SalaryBatch) Result {
	c.calls++
	return c.result
}

func testBatch() *model.SalaryBatch {
	return &model.SalaryBatch{
		BatchID:        "B-100",
		CompanyName:    "Acme Ltd",
		CompanyAccount: "ACMEACMEACMEACME",
		SalaryDate:     "2024-05-01",
		Items: []model.PaymentItem{
			{EmployeeID: "E001", Name: "Jane Doe", AccountNumber: "1234567890", BankCode: "001", Amount: 500000},
			{EmployeeID: "E002", Name: "John Roe", AccountNumber: "0987654321", BankCode: "044", Amount: 250000},
		},
	}
}

var fastRetry = common.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

func TestGate_ShortCircuits(t *testing.T) {
	first := &staticCheck{name: "first", result: Pass()}
	failing := &staticCheck{name: "second", result: Fail("nope")}
	never := &staticCheck{name: "third", result: Pass()}

	verdict := NewGate(first, failing, never).Decide(context.Background(), testBatch())

	assert.False(t, verdict.Approved)
	assert.Equal(t, "second", verdict.Check)
	assert.Equal(t, "nope", verdict.Reason)
	assert.Equal(t, "Salary batch rejected by maker-checker workflow: second: nope", verdict.Message())
	assert.ErrorIs(t, verdict.Err(), common.ErrRejected)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, never.calls)
}

func TestGate_NoChecksApproves(t *testing.T) {
	verdict := NewGate().Decide(context.Background(), testBatch())
	assert.True(t, verdict.Approved)
	assert.NoError(t, verdict.Err())
}

func TestGate_Checks(t *testing.T) {
	g := NewGate(NewFundsCheck(&mockBalanceSource{}), NewRosterCheck(mapRoster{}))
	assert.Equal(t, []string{"funds", "roster"}, g.Checks())
}

func TestFundsCheck(t *testing.T) {
	tests := []struct {
		balanceErr error
		name       string
		wantReason string
		balance    int64
		wantPass   bool
	}{
		{name: "exactly enough", balance: 750000, wantPass: true},
		{name: "plenty", balance: 10000000, wantPass: true},
		{
			name:       "short",
			balance:    700000,
			wantReason: "insufficient funds in account ACMEACMEACMEACME: available 7000.00, required 7500.00",
		},
		{
			name:       "lookup fails closed",
			balanceErr: errors.New("connection refused"),
			wantReason: "unable to verify balance of account ACMEACMEACMEACME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockBalanceSource{}
			source.On("AccountBalance", mock.Anything, "ACMEACMEACMEACME").Return(tt.balance, tt.balanceErr)

			res := NewFundsCheck(source).WithRetryOptions(fastRetry).Evaluate(context.Background(), testBatch())

			assert.Equal(t, tt.wantPass, res.Passed)
			if !tt.wantPass {
				assert.Contains(t, res.Reason, tt.wantReason)
			}
			source.AssertExpectations(t)
		})
	}
}

func TestFundsCheck_RetriesBalanceLookup(t *testing.T) {
	source := &mockBalanceSource{}
	source.On("AccountBalance", mock.Anything, "ACMEACMEACMEACME").Return(int64(0), errors.New("timeout")).Once()
	source.On("AccountBalance", mock.Anything, "ACMEACMEACMEACME").Return(int64(900000), nil).Once()

	res := NewFundsCheck(source).WithRetryOptions(fastRetry).Evaluate(context.Background(), testBatch())

	require.True(t, res.Passed, res.Reason)
	source.AssertNumberOfCalls(t, "AccountBalance", 2)
}

func TestRosterCheck(t *testing.T) {
	full := mapRoster{
		"E001": {EmployeeID: "E001", Name: "Jane Doe", AccountNumber: "1234567890", Active: true},
		"E002": {EmployeeID: "E002", Name: "John Roe", Active: true},
	}

	tests := []struct {
		roster     mapRoster
		name       string
		wantReason string
		wantPass   bool
	}{
		{name: "all registered", roster: full, wantPass: true},
		{
			name:       "missing employee",
			roster:     mapRoster{"E001": full["E001"]},
			wantReason: "employee E002 is not on the roster",
		},
		{
			name: "inactive employee",
			roster: mapRoster{
				"E001": {EmployeeID: "E001", Name: "Jane Doe", Active: false},
				"E002": full["E002"],
			},
			wantReason: "employee E001 is not active",
		},
		{
			name: "account mismatch",
			roster: mapRoster{
				"E001": {EmployeeID: "E001", Name: "Jane Doe", AccountNumber: "5555555555", Active: true},
				"E002": full["E002"],
			},
			wantReason: "employee E001 account 1234567890 does not match roster",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRosterCheck(tt.roster).Evaluate(context.Background(), testBatch())
			assert.Equal(t, tt.wantPass, res.Passed)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}
