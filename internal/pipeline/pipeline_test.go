package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/salary-disbursement/internal/approval"
	"github.com/Veraticus/salary-disbursement/internal/command"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/gateway"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/notify"
	"github.com/Veraticus/salary-disbursement/internal/packager"
	"github.com/Veraticus/salary-disbursement/internal/service"
	"github.com/Veraticus/salary-disbursement/internal/testutil"
	"github.com/Veraticus/salary-disbursement/internal/transfer"
)

type fakeSettlement struct {
	outcome   model.SettlementOutcome
	balance   int64
	mu        sync.Mutex
	submitted []string
}

func (f *fakeSettlement) Submit(_ context.Context, batch *model.SalaryBatch) model.SettlementOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, batch.BatchID)
	out := f.outcome
	out.BatchID = batch.BatchID
	return out
}

func (f *fakeSettlement) QueryStatus(_ context.Context, batchID string) model.SettlementOutcome {
	out := f.outcome
	out.BatchID = batchID
	return out
}

func (f *fakeSettlement) AccountBalance(context.Context, string) (int64, error) {
	return f.balance, nil
}

func (f *fakeSettlement) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

type harness struct {
	db         *testutil.TestDB
	runner     *command.MockRunner
	settlement service.Settlement
	pipeline   *Pipeline
	workdir    string
	ackDir     string
}

type option func(*harness, *Deps)

func withSettlement(s service.Settlement) option {
	return func(h *harness, d *Deps) {
		h.settlement = s
		d.Settlement = s
	}
}

func withRunner(r *command.MockRunner) option {
	return func(h *harness, d *Deps) {
		h.runner = r
		transferCfg := config.TransferConfig{Enabled: true, Binary: "rclone", Remote: "partner", Dest: "salary/in"}
		d.Transfer = transfer.NewAgent(transferCfg, r)
		d.Packager = packager.New(h.workdir, config.EncryptionConfig{}, r)
	}
}

func withWorkdir(dir string) option {
	return func(h *harness, d *Deps) {
		h.workdir = dir
		d.Packager = packager.New(dir, config.EncryptionConfig{}, h.runner)
	}
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		db:      testutil.SetupTestDB(t, testutil.Employee("E001", "1234567890")),
		runner:  command.NewMockRunner(),
		workdir: filepath.Join(root, "work"),
		ackDir:  filepath.Join(root, "acks"),
	}
	settlement := &fakeSettlement{
		balance: 10000000,
		outcome: model.SettlementOutcome{Status: model.SettlementPending, Message: "Payment is being processed"},
	}
	h.settlement = settlement

	transferCfg := config.TransferConfig{Enabled: true, Binary: "rclone", Remote: "partner", Dest: "salary/in"}
	deps := Deps{
		Validator:  intake.NewValidator(config.DefaultConfig().Validation),
		Packager:   packager.New(h.workdir, config.EncryptionConfig{}, h.runner),
		Transfer:   transfer.NewAgent(transferCfg, h.runner),
		Settlement: settlement,
		Store:      h.db.Storage,
		Notifier:   notify.NewFileNotifier(h.ackDir),
	}
	for _, opt := range opts {
		opt(h, &deps)
	}
	deps.Gate = approval.NewGate(
		approval.NewFundsCheck(h.settlement).WithRetryOptions(common.RetryOptions{MaxAttempts: 1}),
		approval.NewRosterCheck(h.db.Storage),
	)
	h.pipeline = New(deps)
	return h
}

func TestProcess_TransferFailureScenario(t *testing.T) {
	h := newHarness(t, withRunner(command.ExitWith(1)))
	settlement := h.settlement.(*fakeSettlement)

	ack, err := h.pipeline.Process(context.Background(), []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	assert.Equal(t, "B-100", ack.BatchID)
	assert.Equal(t, model.StatusFailed, ack.Status)
	assert.Contains(t, ack.Message, "exit 1")
	assert.Empty(t, settlement.Submitted(), "settlement never reached")

	assert.Equal(t, model.StatusFailed, h.db.MustLatest("B-100").Status)
	_, statErr := os.Stat(filepath.Join(h.workdir, "salary_batch_B-100.csv"))
	assert.NoError(t, statErr, "artifact retained for inspection")
}

func TestProcess_GatewayUnreachableScenario(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := gateway.NewClient(config.GatewayConfig{BaseURL: url, Timeout: time.Second, Currency: "NGN"})
	h := newHarness(t)
	// The funds check needs a balance; settle against the dead gateway only.
	h.pipeline.settlement = client

	ack, err := h.pipeline.Process(context.Background(), []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, ack.Status)
	assert.Contains(t, ack.Message, "Failed to process payment batch")
	assert.Empty(t, ack.Items)
}

func TestProcess_UnsupportedFormat(t *testing.T) {
	h := newHarness(t)

	ack, err := h.pipeline.Process(context.Background(), []byte("whatever"), "payroll.txt")
	require.NoError(t, err)

	assert.Equal(t, "payroll", ack.BatchID)
	assert.Equal(t, model.StatusValidationFailed, ack.Status)
	assert.Contains(t, ack.Message, "unsupported format")
	assert.Empty(t, h.runner.Calls())
}

func TestProcess_ValidationFailureListsEveryError(t *testing.T) {
	h := newHarness(t)
	batch := testutil.AcmeBatch()
	batch.Items = append(batch.Items, model.PaymentItem{EmployeeID: "bad", AccountNumber: "1", BankCode: "1", Amount: 0})

	ack, err := h.pipeline.ProcessBatch(context.Background(), batch, "api")
	require.NoError(t, err)

	assert.Equal(t, model.StatusValidationFailed, ack.Status)
	assert.Contains(t, ack.Message, "File validation failed: ")
	assert.Contains(t, ack.Message, "Record 2: Invalid employee ID format")
	assert.Contains(t, ack.Message, "Record 2: Amount must be greater than 0")
	assert.Empty(t, h.runner.Calls())
}

func TestProcess_RejectedByRoster(t *testing.T) {
	h := newHarness(t)
	batch := testutil.AcmeBatch()
	batch.Items[0].EmployeeID = "E404"

	ack, err := h.pipeline.ProcessBatch(context.Background(), batch, "api")
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, ack.Status)
	assert.Equal(t, "Salary batch rejected by maker-checker workflow: roster: employee E404 is not on the roster", ack.Message)
	assert.Empty(t, h.runner.Calls(), "no packaging or transfer after rejection")
}

func TestProcess_RejectedByFunds(t *testing.T) {
	h := newHarness(t, withSettlement(&fakeSettlement{balance: 100}))

	ack, err := h.pipeline.ProcessBatch(context.Background(), testutil.AcmeBatch(), "api")
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, ack.Status)
	assert.Contains(t, ack.Message, "funds: insufficient funds")
}

func TestProcess_SettlementWithItemDetails(t *testing.T) {
	settlement := &fakeSettlement{
		balance: 10000000,
		outcome: model.SettlementOutcome{
			Status:  model.SettlementFailed,
			Message: "Batch partially failed",
			Items: []model.ItemOutcome{
				{EmployeeID: "E001", AccountNumber: "1234567890", Status: "FAILED", ErrorCode: "AC04", ErrorMessage: "Closed account"},
			},
		},
	}
	h := newHarness(t, withSettlement(settlement))

	ack, err := h.pipeline.Process(context.Background(), []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, ack.Status)
	assert.Equal(t, "Batch partially failed\n\nTransaction Details:\nEmployee E001 (1234567890): FAILED\n  Error: Closed account\n", ack.Message)
	require.Len(t, h.db.MustLatest("B-100").Items, 1)
	assert.Equal(t, []string{"B-100"}, settlement.Submitted())

	calls := h.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "rclone", calls[0].Name)
}

func TestProcess_PendingThenApprove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ack, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, ack.Status)

	approved, err := h.pipeline.Approve(ctx, "B-100")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	again, err := h.pipeline.Approve(ctx, "B-100")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, again.Status)
	assert.Equal(t, "Salary batch was already approved.", again.Message)
}

func TestApprove_InvalidState(t *testing.T) {
	h := newHarness(t, withRunner(command.ExitWith(1)))
	ctx := context.Background()

	_, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	_, err = h.pipeline.Approve(ctx, "B-100")
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestProcess_HistoryIsAppendOnly(t *testing.T) {
	h := newHarness(t, withRunner(command.ExitWith(1)))
	ctx := context.Background()

	_, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	h.runner.Handler = nil
	_, err = h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	history := h.db.MustHistory("B-100")
	require.Len(t, history, 4)
	assert.Equal(t, model.StatusReceived, history[0].Status)
	assert.Equal(t, model.StatusFailed, history[1].Status)
	assert.Equal(t, model.StatusReceived, history[2].Status)
	assert.Equal(t, model.StatusPending, history[3].Status)
}

func TestProcess_DuplicateBatchIsRefused(t *testing.T) {
	h := newHarness(t)
	settlement := h.settlement.(*fakeSettlement)
	ctx := context.Background()

	first, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, first.Status)

	tests := []struct {
		name string
		run  func() (*model.Acknowledgement, error)
	}{
		{
			name: "same upload again",
			run: func() (*model.Acknowledgement, error) {
				return h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme-resend.csv")
			},
		},
		{
			name: "structured batch",
			run: func() (*model.Acknowledgement, error) {
				return h.pipeline.ProcessBatch(ctx, testutil.AcmeBatch(), "api")
			},
		},
		{
			name: "asynchronous intake",
			run: func() (*model.Acknowledgement, error) {
				batch, ack, err := h.pipeline.Receive(ctx, []byte(testutil.AcmeCSV), "acme.csv")
				assert.Nil(t, batch)
				return ack, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := tt.run()
			require.ErrorIs(t, err, common.ErrAlreadyAdmitted)
			assert.Contains(t, err.Error(), "batch B-100 already admitted with status PENDING")
			require.NotNil(t, ack)
			assert.Equal(t, model.StatusPending, ack.Status)
		})
	}

	assert.Equal(t, []string{"B-100"}, settlement.Submitted())
	assert.Len(t, h.runner.Calls(), 1, "packaged and transferred once")
	assert.Len(t, h.db.MustHistory("B-100"), 2)
	assert.Equal(t, model.StatusPending, h.db.MustLatest("B-100").Status)
}

func TestProcess_SettledBatchIsRefused(t *testing.T) {
	settlement := &fakeSettlement{
		balance: 10000000,
		outcome: model.SettlementOutcome{Status: model.SettlementSuccess, Message: "Payment batch processed successfully"},
	}
	h := newHarness(t, withSettlement(settlement))
	ctx := context.Background()

	_, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	ack, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.ErrorIs(t, err, common.ErrAlreadyAdmitted)
	assert.Contains(t, err.Error(), "batch B-100 already admitted with status SUCCESS")
	assert.Equal(t, model.StatusSuccess, ack.Status)
	assert.Len(t, settlement.Submitted(), 1)
}

func TestProcess_ConcurrentDuplicatesSubmitOnce(t *testing.T) {
	h := newHarness(t)
	settlement := h.settlement.(*fakeSettlement)
	ctx := context.Background()

	const uploads = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		refused  int
	)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
			} else {
				_, err = h.pipeline.ProcessBatch(ctx, testutil.AcmeBatch(), "api")
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, common.ErrAlreadyAdmitted):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, uploads-1, refused)
	assert.Len(t, settlement.Submitted(), 1, "exactly one settlement submission")
	assert.Len(t, h.runner.Calls(), 1)
}

func TestApprove_WritesAcknowledgementFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	_, err = h.pipeline.Approve(ctx, "B-100")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(h.ackDir, "ACK_B-100.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Batch ID: B-100")
	assert.Contains(t, string(raw), "Status: APPROVED")
	assert.Contains(t, string(raw), "Salary batch approved and payment will be processed.")
}

func TestApprove_RefusalWritesNoFile(t *testing.T) {
	h := newHarness(t, withRunner(command.ExitWith(1)))
	ctx := context.Background()

	_, err := h.pipeline.Process(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	_, err = h.pipeline.Approve(ctx, "B-100")
	require.ErrorIs(t, err, common.ErrInvalidState)
	_, statErr := os.Stat(filepath.Join(h.ackDir, "ACK_B-100.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcess_WritesAcknowledgementFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.Process(context.Background(), []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(h.ackDir, "ACK_acme.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Batch ID: B-100")
	assert.Contains(t, string(raw), "Status: PENDING")
}

func TestProcess_WorkdirFailureIsFatal(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	h := newHarness(t, withWorkdir(filepath.Join(blocker, "work")))

	ack, err := h.pipeline.Process(context.Background(), []byte(testutil.AcmeCSV), "acme.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrWorkdir)
	require.NotNil(t, ack)
	assert.Equal(t, model.StatusFailed, ack.Status)
	assert.Empty(t, h.runner.Calls())
}

func TestProcess_CancelledContextStillCompletes(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ack, err := h.pipeline.ProcessBatch(ctx, testutil.AcmeBatch(), "api")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, ack.Status)
}

func TestReceiveThenContinue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	batch, ack, err := h.pipeline.Receive(ctx, []byte(testutil.AcmeCSV), "acme.csv")
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, model.StatusReceived, ack.Status)

	final, err := h.pipeline.Continue(ctx, batch, "acme.csv")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, final.Status)

	history := h.db.MustHistory("B-100")
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusReceived, history[0].Status)
	assert.Equal(t, model.StatusPending, history[1].Status)
}

func TestReceive_Invalid(t *testing.T) {
	h := newHarness(t)

	batch, ack, err := h.pipeline.Receive(context.Background(), []byte("x"), "payroll.txt")
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, model.StatusValidationFailed, ack.Status)
}

func TestCheckStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, ack, err := h.pipeline.CheckStatus(ctx, "B-100", false)
	require.NoError(t, err)
	assert.Nil(t, ack)
	assert.Equal(t, model.SettlementPending, outcome.Status)

	_, ack, err = h.pipeline.CheckStatus(ctx, "B-100", true)
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.Equal(t, model.StatusPending, h.db.MustLatest("B-100").Status)
}

type failingStore struct {
	service.AckStore
}

func (failingStore) Record(context.Context, string, model.AckStatus, string, []model.ItemOutcome) (*model.Acknowledgement, error) {
	return nil, errors.New("disk full")
}

func TestProcess_StoreFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.pipeline.store = failingStore{}

	_, err := h.pipeline.Process(context.Background(), []byte("x"), "payroll.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSettlementMessage(t *testing.T) {
	assert.Equal(t, "ok", SettlementMessage(model.SettlementOutcome{Message: "ok"}))

	msg := SettlementMessage(model.SettlementOutcome{
		Message: "done",
		Items: []model.ItemOutcome{
			{EmployeeID: "E001", AccountNumber: "1234567890", Status: "SUCCESS"},
			{EmployeeID: "E002", AccountNumber: "0987654321", Status: "FAILED", ErrorMessage: "Invalid account"},
		},
	})
	assert.Equal(t, "done\n\nTransaction Details:\n"+
		"Employee E001 (1234567890): SUCCESS\n"+
		"Employee E002 (0987654321): FAILED\n"+
		"  Error: Invalid account\n", msg)
}
