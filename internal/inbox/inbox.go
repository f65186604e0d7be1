// Package inbox processes salary files dropped into a directory and archives
// them once an outcome has been recorded.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

// ArchiveTimeLayout is the timestamp embedded in archived file names.
const ArchiveTimeLayout = "20060102_150405"

// Processor runs one upload through the pipeline.
type Processor interface {
	Process(ctx context.Context, raw []byte, fileName string) (*model.Acknowledgement, error)
}

// Result is the outcome for one file.
type Result struct {
	Ack        *model.Acknowledgement
	Err        error
	File       string
	ArchivedTo string
}

// Inbox is a drop directory with an archive directory for processed files.
type Inbox struct {
	now          func() time.Time
	dir          string
	processedDir string
}

// New returns an Inbox. An empty processedDir defaults to <dir>/processed.
func New(dir, processedDir string) *Inbox {
	if processedDir == "" {
		processedDir = filepath.Join(dir, "processed")
	}
	return &Inbox{dir: dir, processedDir: processedDir, now: time.Now}
}

// ProcessedDir returns the archive directory.
func (i *Inbox) ProcessedDir() string {
	return i.processedDir
}

// Scan lists regular files in the inbox, split into supported uploads and
// skipped names, both sorted.
func (i *Inbox) Scan() (pending, skipped []string, err error) {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read inbox %s: %w", i.dir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if intake.IsSupported(entry.Name()) {
			pending = append(pending, entry.Name())
		} else {
			skipped = append(skipped, entry.Name())
		}
	}
	sort.Strings(pending)
	sort.Strings(skipped)
	return pending, skipped, nil
}

// ProcessFile runs one inbox file through p and archives it once an
// acknowledgement was recorded. A file whose outcome could not be recorded
// stays in the inbox.
func (i *Inbox) ProcessFile(ctx context.Context, p Processor, name string) Result {
	res := Result{File: name}

	raw, err := os.ReadFile(filepath.Join(i.dir, name))
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", name, err)
		return res
	}

	res.Ack, res.Err = p.Process(ctx, raw, name)
	if res.Ack == nil {
		return res
	}

	archived, err := i.Archive(name)
	if err != nil {
		common.LogError(err, "Failed to archive processed file", common.Fields{"file": name})
		return res
	}
	res.ArchivedTo = archived
	return res
}

// Archive moves name into the processed directory as processed_<timestamp>_<name>.
func (i *Inbox) Archive(name string) (string, error) {
	if err := os.MkdirAll(i.processedDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", i.processedDir, err)
	}
	target := filepath.Join(i.processedDir,
		fmt.Sprintf("processed_%s_%s", i.now().Format(ArchiveTimeLayout), name))
	if err := os.Rename(filepath.Join(i.dir, name), target); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", name, err)
	}
	slog.Debug("Archived inbox file", "file", name, "to", target)
	return target, nil
}

// Run processes every pending file in order, calling onResult after each.
// A batch refused as already admitted is archived and the run moves on.
// Any other error that escaped the pipeline stops the run, as does ctx.
func (i *Inbox) Run(ctx context.Context, p Processor, pending []string, onResult func(Result)) error {
	for _, name := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := i.ProcessFile(ctx, p, name)
		if onResult != nil {
			onResult(res)
		}
		if res.Err != nil && !errors.Is(res.Err, common.ErrAlreadyAdmitted) {
			return res.Err
		}
	}
	return nil
}
