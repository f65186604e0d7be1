// Package notify returns acknowledgement artifacts to the submitting client.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Notifier delivers an acknowledgement for a source upload.
type Notifier interface {
	Notify(ctx context.Context, source string, ack *model.Acknowledgement) error
}

// FileNotifier writes ACK_<source>.txt files into a directory the client collects from.
type FileNotifier struct {
	dir string
}

// NewFileNotifier creates a notifier rooted at dir.
func NewFileNotifier(dir string) *FileNotifier {
	return &FileNotifier{dir: dir}
}

// FileName is the acknowledgement file name for a source.
func FileName(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "batch"
	}
	return "ACK_" + stem + ".txt"
}

// Notify writes the acknowledgement file, replacing any previous one for the same source.
func (n *FileNotifier) Notify(_ context.Context, source string, ack *model.Acknowledgement) error {
	if err := os.MkdirAll(n.dir, 0750); err != nil {
		return fmt.Errorf("failed to create acknowledgement directory: %w", err)
	}
	path := filepath.Join(n.dir, FileName(source))
	if err := os.WriteFile(path, []byte(Render(ack)), 0600); err != nil {
		return fmt.Errorf("failed to write acknowledgement file: %w", err)
	}
	return nil
}

// Render formats an acknowledgement as the client-facing text document.
func Render(ack *model.Acknowledgement) string {
	var b strings.Builder
	b.WriteString("Salary Batch Acknowledgement\n")
	b.WriteString("============================\n\n")
	fmt.Fprintf(&b, "Batch ID: %s\n", ack.BatchID)
	fmt.Fprintf(&b, "Status: %s\n", ack.Status)
	fmt.Fprintf(&b, "Message: %s\n", ack.Message)
	fmt.Fprintf(&b, "Processed At: %s\n", ack.CreatedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, string, *model.Acknowledgement) error { return nil }
