// Package intake turns uploaded salary files into validated batches.
package intake

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/salary-disbursement/internal/common"
)

// Format is a supported upload encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// DetectFormat maps a file name onto a Format by extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV, nil
	case ".xml":
		return FormatXML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q (supported formats: CSV, XML, JSON)", common.ErrUnsupportedFormat, fileName)
	}
}

// IsSupported reports whether fileName has a supported extension.
func IsSupported(fileName string) bool {
	_, err := DetectFormat(fileName)
	return err == nil
}

// Stem returns the file name without directory or extension.
func Stem(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
