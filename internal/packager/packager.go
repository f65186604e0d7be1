// Package packager serializes admitted batches into the canonical flat file
// and optionally encrypts it for the banking partner.
package packager

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/salary-disbursement/internal/command"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Artifact is the packaged output of one batch.
type Artifact struct {
	BatchID string
	// CanonicalPath is always written and retained for inspection.
	CanonicalPath string
	// EncryptedPath is set when encryption is enabled.
	EncryptedPath string
}

// TransferPath is the file that leaves the machine.
func (a Artifact) TransferPath() string {
	if a.EncryptedPath != "" {
		return a.EncryptedPath
	}
	return a.CanonicalPath
}

// Packager writes canonical artifacts into a working directory.
type Packager struct {
	runner     command.Runner
	now        func() time.Time
	workdir    string
	encryption config.EncryptionConfig
}

// New creates a Packager.
func New(workdir string, encryption config.EncryptionConfig, runner command.Runner) *Packager {
	return &Packager{
		workdir:    workdir,
		encryption: encryption,
		runner:     runner,
		now:        time.Now,
	}
}

// Package writes the canonical artifact and, if configured, its encrypted form.
// A workdir that cannot be created returns common.ErrWorkdir; a failed encryption
// returns common.ErrEncryptionFailed and leaves no encrypted file behind.
func (p *Packager) Package(ctx context.Context, batch *model.SalaryBatch) (Artifact, error) {
	if err := os.MkdirAll(p.workdir, 0750); err != nil {
		return Artifact{}, fmt.Errorf("%w %s: %w", common.ErrWorkdir, p.workdir, err)
	}

	artifact := Artifact{
		BatchID:       batch.BatchID,
		CanonicalPath: filepath.Join(p.workdir, "salary_batch_"+batch.BatchID+".csv"),
	}
	if err := p.writeCanonical(artifact.CanonicalPath, batch); err != nil {
		return Artifact{}, err
	}
	slog.Info("Wrote canonical artifact", "batch_id", batch.BatchID, "path", artifact.CanonicalPath)

	if !p.encryption.Enabled {
		return artifact, nil
	}

	encrypted, err := p.encrypt(ctx, artifact.CanonicalPath)
	if err != nil {
		return artifact, err
	}
	artifact.EncryptedPath = encrypted
	slog.Info("Encrypted artifact", "batch_id", batch.BatchID, "path", encrypted)
	return artifact, nil
}

// writeCanonical writes through a temp file so a concurrent reader never sees half a batch.
func (p *Packager) writeCanonical(path string, batch *model.SalaryBatch) error {
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("%w: failed to create artifact: %w", common.ErrWorkdir, err)
	}

	writeErr := WriteCanonical(f, batch, p.now())
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return nil
}

func (p *Packager) encrypt(ctx context.Context, input string) (string, error) {
	output := input + ".gpg"
	res, err := p.runner.Run(ctx, command.Command{
		Name: p.encryption.Binary,
		Args: []string{
			"--batch", "--yes",
			"--output", output,
			"--encrypt",
			"--recipient-file", p.encryption.PublicKeyPath,
			input,
		},
		Timeout: p.encryption.Timeout,
	})
	if err != nil {
		_ = os.Remove(output)
		return "", fmt.Errorf("%w: %w", common.ErrEncryptionFailed, err)
	}
	if !res.Success() {
		_ = os.Remove(output)
		return "", fmt.Errorf("%w: exit code %d: %s", common.ErrEncryptionFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return output, nil
}

// WriteCanonical renders the canonical flat file: a header section, a blank
// separator, then one row per item. Free text is sanitized so it cannot add columns.
func WriteCanonical(w io.Writer, batch *model.SalaryBatch, generatedAt time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(intake.HeaderColumns); err != nil {
		return err
	}
	if err := cw.Write([]string{
		Sanitize(batch.CompanyName),
		Sanitize(batch.BatchID),
		Sanitize(batch.CompanyAccount),
		Sanitize(batch.SalaryDate),
		generatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	cw.Flush()
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if err := cw.Write(intake.ItemColumns); err != nil {
		return err
	}
	for _, item := range batch.Items {
		if err := cw.Write([]string{
			Sanitize(item.EmployeeID),
			Sanitize(item.Name),
			Sanitize(item.AccountNumber),
			Sanitize(item.BankCode),
			strconv.FormatInt(item.Amount, 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var sanitizer = strings.NewReplacer(",", " ", "\r\n", " ", "\n", " ", "\r", " ", `"`, "'")

// Sanitize replaces characters that would change the column structure.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}
