package intake

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

var (
	companyAccountPattern = regexp.MustCompile(`^[A-Z0-9]{16}$`)
	batchIDPattern        = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
	accountNumberPattern  = regexp.MustCompile(`^[0-9]{10}$`)
	bankCodePattern       = regexp.MustCompile(`^[0-9]{3}$`)
)

// ValidationResult is the transient outcome of validating one upload.
type ValidationResult struct {
	// Batch is set only when Errors is empty.
	Batch *model.SalaryBatch
	// BatchID identifies the upload for acknowledgements even when parsing failed.
	BatchID string
	Errors  []string
}

// Valid reports whether the upload was admitted.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0 && r.Batch != nil
}

// Summary joins every error for an acknowledgement message.
func (r ValidationResult) Summary() string {
	return strings.Join(r.Errors, "; ")
}

// Err returns nil for an admitted upload and otherwise wraps common.ErrValidation.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, r.Summary())
}

// Validator applies the format gate, parsing, business rules and per-item rules.
type Validator struct {
	employeeIDPattern *regexp.Regexp
	maxAmount         int64
}

// NewValidator builds a Validator from configured bounds.
func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{
		employeeIDPattern: regexp.MustCompile(fmt.Sprintf(`^[A-Z0-9]{%d,%d}$`, cfg.EmployeeIDMin, cfg.EmployeeIDMax)),
		maxAmount:         cfg.MaxAmount,
	}
}

// Validate checks a raw upload. An unsupported extension yields a single error
// without any parse attempt; a parse failure yields a single error and no batch.
// Otherwise every rule violation is collected before returning.
func (v *Validator) Validate(raw []byte, fileName string) ValidationResult {
	result := ValidationResult{BatchID: Stem(fileName)}

	format, err := DetectFormat(fileName)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	batch, badAmounts, err := decodeUpload(format, raw)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to parse file: %v", err))
		return result
	}

	return v.validate(batch, result.BatchID, badAmounts)
}

// ValidateBatch applies business and item rules to an already-structured batch.
// fallbackID names the batch in acknowledgements when it carries no id of its own.
func (v *Validator) ValidateBatch(batch *model.SalaryBatch, fallbackID string) ValidationResult {
	return v.validate(batch, fallbackID, nil)
}

// validate reports the records listed in badAmounts as malformed instead of
// applying the amount bounds to them.
func (v *Validator) validate(batch *model.SalaryBatch, fallbackID string, badAmounts []int) ValidationResult {
	result := ValidationResult{BatchID: fallbackID}
	if batch == nil {
		result.Errors = append(result.Errors, "Salary batch is required")
		return result
	}
	if id := strings.TrimSpace(batch.BatchID); id != "" {
		result.BatchID = id
	}

	result.Errors = append(result.Errors, v.businessRules(batch)...)
	unparsed := make(map[int]bool, len(badAmounts))
	for _, record := range badAmounts {
		unparsed[record] = true
	}
	for i, item := range batch.Items {
		result.Errors = append(result.Errors, v.itemRules(item, i+1, unparsed[i+1])...)
	}

	if len(result.Errors) == 0 {
		result.Batch = batch.Clone()
	}
	return result
}

func (v *Validator) businessRules(b *model.SalaryBatch) []string {
	var errs []string

	if isBlank(b.CompanyName) {
		errs = append(errs, "Company name is required")
	}

	switch {
	case isBlank(b.CompanyAccount):
		errs = append(errs, "Company account number is required")
	case !companyAccountPattern.MatchString(b.CompanyAccount):
		errs = append(errs, "Invalid company account format (must be 16 alphanumeric characters)")
	}

	switch {
	case isBlank(b.BatchID):
		errs = append(errs, "Salary batch ID is required")
	case !batchIDPattern.MatchString(b.BatchID):
		errs = append(errs, "Invalid salary batch ID format")
	}

	switch {
	case isBlank(b.SalaryDate):
		errs = append(errs, "Salary date is required")
	default:
		if _, err := time.Parse(model.SalaryDateLayout, b.SalaryDate); err != nil {
			errs = append(errs, "Invalid salary date format (must be YYYY-MM-DD)")
		}
	}

	if len(b.Items) == 0 {
		errs = append(errs, "At least one employee record is required")
	}

	return errs
}

func (v *Validator) itemRules(item model.PaymentItem, record int, amountUnparsed bool) []string {
	var errs []string
	add := func(msg string) {
		errs = append(errs, fmt.Sprintf("Record %d: %s", record, msg))
	}

	if !v.employeeIDPattern.MatchString(item.EmployeeID) {
		add("Invalid employee ID format")
	}
	if isBlank(item.Name) {
		add("Employee name is required")
	}
	if !accountNumberPattern.MatchString(item.AccountNumber) {
		add("Invalid account number format (must be 10 digits)")
	}
	if !bankCodePattern.MatchString(item.BankCode) {
		add("Invalid bank code format (must be 3 digits)")
	}
	switch {
	case amountUnparsed:
		add("Invalid amount format")
	case item.Amount <= 0:
		add("Amount must be greater than 0")
	case item.Amount > v.maxAmount:
		add("Amount exceeds maximum limit")
	}

	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
