package packager

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/salary-disbursement/internal/command"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

func acmeBatch() *model.SalaryBatch {
	return &model.SalaryBatch{
		BatchID:        "B-100",
		CompanyName:    "Acme Ltd",
		CompanyAccount: "ACMEACMEACMEACME",
		SalaryDate:     "2024-05-01",
		Items: []model.PaymentItem{
			{EmployeeID: "E001", Name: "Jane Doe", AccountNumber: "1234567890", BankCode: "001", Amount: 500000},
			{EmployeeID: "E002", Name: "John Roe", AccountNumber: "0987654321", BankCode: "044", Amount: 1},
		},
	}
}

var fixedTime = time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)

func TestWriteCanonical_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCanonical(&buf, acmeBatch(), fixedTime))

	want := "companyName,batchId,companyAccount,salaryDate,generatedAt\n" +
		"Acme Ltd,B-100,ACMEACMEACMEACME,2024-05-01,2024-04-30T10:00:00Z\n" +
		"\n" +
		"employeeId,name,accountNumber,bankCode,amount\n" +
		"E001,Jane Doe,1234567890,001,500000\n" +
		"E002,John Roe,0987654321,044,1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCanonical_RoundTrip(t *testing.T) {
	original := acmeBatch()

	var buf bytes.Buffer
	require.NoError(t, WriteCanonical(&buf, original, fixedTime))

	decoded, err := intake.DecodeCanonical(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestWriteCanonical_RoundTripKeepsSurroundingSpaces(t *testing.T) {
	original := acmeBatch()
	original.CompanyName = "Acme Ltd "
	original.Items[0].Name = " Jane Doe"
	original.Items[1].Name = "John  Roe\t"

	var buf bytes.Buffer
	require.NoError(t, WriteCanonical(&buf, original, fixedTime))

	decoded, err := intake.DecodeCanonical(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestWriteCanonical_SanitizesFreeText(t *testing.T) {
	batch := acmeBatch()
	batch.CompanyName = "Acme, Ltd"
	batch.Items[0].Name = "Doe, Jane\n,9999999999,999,1"

	var buf bytes.Buffer
	require.NoError(t, WriteCanonical(&buf, batch, fixedTime))

	decoded, err := intake.DecodeCanonical(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Acme  Ltd", decoded.CompanyName)
	require.Len(t, decoded.Items, 2, "injected delimiters must not add rows or columns")
	assert.Equal(t, "1234567890", decoded.Items[0].AccountNumber)
	assert.Equal(t, int64(500000), decoded.Items[0].Amount)
	assert.False(t, strings.ContainsAny(decoded.Items[0].Name, ",\n"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b", Sanitize("a,b"))
	assert.Equal(t, "a b", Sanitize("a\nb"))
	assert.Equal(t, "a b", Sanitize("a\r\nb"))
	assert.Equal(t, "O'Neil", Sanitize("O\"Neil"))
	assert.Equal(t, "plain", Sanitize("plain"))
}

func TestPackage_Plain(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "work")
	runner := command.NewMockRunner()
	p := New(dir, config.EncryptionConfig{}, runner)

	artifact, err := p.Package(context.Background(), acmeBatch())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "salary_batch_B-100.csv"), artifact.CanonicalPath)
	assert.Empty(t, artifact.EncryptedPath)
	assert.Equal(t, artifact.CanonicalPath, artifact.TransferPath())
	assert.Empty(t, runner.Calls(), "no encryption tool when disabled")

	raw, err := os.ReadFile(artifact.CanonicalPath)
	require.NoError(t, err)
	decoded, err := intake.DecodeCanonical(raw)
	require.NoError(t, err)
	assert.Equal(t, "B-100", decoded.BatchID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is renamed away")
}

func TestPackage_Encrypted(t *testing.T) {
	dir := t.TempDir()
	runner := command.NewMockRunner()
	enc := config.EncryptionConfig{Enabled: true, Binary: "gpg", PublicKeyPath: "/keys/partner.asc", Timeout: time.Minute}

	artifact, err := New(dir, enc, runner).Package(context.Background(), acmeBatch())
	require.NoError(t, err)

	canonical := filepath.Join(dir, "salary_batch_B-100.csv")
	assert.Equal(t, canonical+".gpg", artifact.EncryptedPath)
	assert.Equal(t, artifact.EncryptedPath, artifact.TransferPath())

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "gpg", calls[0].Name)
	assert.Equal(t, []string{
		"--batch", "--yes",
		"--output", canonical + ".gpg",
		"--encrypt",
		"--recipient-file", "/keys/partner.asc",
		canonical,
	}, calls[0].Args)
	assert.Equal(t, time.Minute, calls[0].Timeout)
}

func TestPackage_EncryptionFailureIsHard(t *testing.T) {
	dir := t.TempDir()
	runner := &command.MockRunner{Handler: func(cmd command.Command) (command.Result, error) {
		// Simulate a tool that leaves a partial output behind before failing.
		_ = os.WriteFile(cmd.Args[3], []byte("partial"), 0600)
		return command.Result{ExitCode: 2, Stderr: "gpg: no valid recipients\n"}, nil
	}}
	enc := config.EncryptionConfig{Enabled: true, Binary: "gpg", PublicKeyPath: "/keys/missing.asc"}

	artifact, err := New(dir, enc, runner).Package(context.Background(), acmeBatch())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEncryptionFailed)
	assert.Contains(t, err.Error(), "exit code 2")
	assert.Empty(t, artifact.EncryptedPath)

	_, statErr := os.Stat(filepath.Join(dir, "salary_batch_B-100.csv.gpg"))
	assert.True(t, os.IsNotExist(statErr), "no encrypted file left for transfer")
}

func TestPackage_EncryptionTimeout(t *testing.T) {
	runner := &command.MockRunner{Handler: func(command.Command) (command.Result, error) {
		return command.Result{ExitCode: -1}, common.ErrCommandTimeout
	}}
	enc := config.EncryptionConfig{Enabled: true, Binary: "gpg", PublicKeyPath: "k"}

	_, err := New(t.TempDir(), enc, runner).Package(context.Background(), acmeBatch())
	assert.ErrorIs(t, err, common.ErrEncryptionFailed)
	assert.ErrorIs(t, err, common.ErrCommandTimeout)
}

func TestPackage_WorkdirFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := New(filepath.Join(blocker, "work"), config.EncryptionConfig{}, command.NewMockRunner()).
		Package(context.Background(), acmeBatch())
	assert.ErrorIs(t, err, common.ErrWorkdir)
}
