package intake

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

// Canonical CSV column names. The header section comes first, then a blank
// line, then the item section.
var (
	HeaderColumns = []string{"companyName", "batchId", "companyAccount", "salaryDate", "generatedAt"}
	ItemColumns   = []string{"employeeId", "name", "accountNumber", "bankCode", "amount"}
)

// Decode parses raw bytes of the given format. Failures wrap common.ErrParse
// and no partial batch is returned.
func Decode(format Format, raw []byte) (*model.SalaryBatch, error) {
	batch, badAmounts, err := decodeUpload(format, raw)
	if err != nil {
		return nil, err
	}
	if len(badAmounts) > 0 {
		return nil, fmt.Errorf("%w: record %d: invalid amount", common.ErrParse, badAmounts[0])
	}
	return batch, nil
}

// DecodeCanonical parses a canonical artifact produced by the packager.
// Field values are taken verbatim so the artifact round-trips byte for byte.
func DecodeCanonical(raw []byte) (*model.SalaryBatch, error) {
	batch, badAmounts, err := csvDecoder{}.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrParse, err)
	}
	if len(badAmounts) > 0 {
		return nil, fmt.Errorf("%w: record %d: invalid amount", common.ErrParse, badAmounts[0])
	}
	return batch, nil
}

// decodeUpload parses an uploaded file. CSV item amounts that are not integers
// do not fail the parse; their 1-based record numbers are returned instead.
func decodeUpload(format Format, raw []byte) (*model.SalaryBatch, []int, error) {
	var (
		batch      *model.SalaryBatch
		badAmounts []int
		err        error
	)
	switch format {
	case FormatCSV:
		batch, badAmounts, err = csvDecoder{trim: true}.decode(raw)
	case FormatXML:
		batch, err = decodeXML(raw)
	case FormatJSON:
		batch, err = decodeJSON(raw)
	default:
		return nil, nil, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrParse, err)
	}
	return batch, badAmounts, nil
}

func decodeJSON(raw []byte) (*model.SalaryBatch, error) {
	var batch model.SalaryBatch
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: trailing data after batch")
	}
	return &batch, nil
}

type xmlBatch struct {
	XMLName xml.Name `xml:"salaryBatch"`
	model.SalaryBatch
}

func decodeXML(raw []byte) (*model.SalaryBatch, error) {
	var doc xmlBatch
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	batch := doc.SalaryBatch
	return &batch, nil
}

// csvDecoder reads the two-section CSV layout. Uploads are trimmed; canonical
// artifacts are not.
type csvDecoder struct {
	trim bool
}

func (d csvDecoder) decode(raw []byte) (*model.SalaryBatch, []int, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = d.trim

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV: %w", err)
	}
	// csv.Reader drops blank lines, so the separator is implicit here.
	if len(records) < 3 {
		return nil, nil, fmt.Errorf("invalid CSV: expected header section and item section, got %d rows", len(records))
	}

	header, err := columnIndex(records[0], HeaderColumns[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV header section: %w", err)
	}
	values := records[1]
	batch := &model.SalaryBatch{
		CompanyName:    d.field(values, header["companyName"]),
		BatchID:        d.field(values, header["batchId"]),
		CompanyAccount: d.field(values, header["companyAccount"]),
		SalaryDate:     d.field(values, header["salaryDate"]),
	}

	items, err := columnIndex(records[2], ItemColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV item section: %w", err)
	}
	var badAmounts []int
	for _, row := range records[3:] {
		if isBlankRow(row) {
			continue
		}
		item := model.PaymentItem{
			EmployeeID:    d.field(row, items["employeeId"]),
			Name:          d.field(row, items["name"]),
			AccountNumber: d.field(row, items["accountNumber"]),
			BankCode:      d.field(row, items["bankCode"]),
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(d.field(row, items["amount"])), 10, 64)
		if err != nil {
			badAmounts = append(badAmounts, len(batch.Items)+1)
		}
		item.Amount = amount
		batch.Items = append(batch.Items, item)
	}
	return batch, badAmounts, nil
}

// columnIndex maps required column names (case-insensitive) to positions in row.
func columnIndex(row []string, required []string) (map[string]int, error) {
	positions := make(map[string]int, len(row))
	for i, name := range row {
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}
	index := make(map[string]int, len(required))
	for _, name := range required {
		pos, ok := positions[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		index[name] = pos
	}
	return index, nil
}

func (d csvDecoder) field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	if d.trim {
		return strings.TrimSpace(row[i])
	}
	return row[i]
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
