package model

import (
	"github.com/shopspring/decimal"
)

// SalaryDateLayout is the layout of SalaryBatch.SalaryDate.
const SalaryDateLayout = "2006-01-02"

// SalaryBatch is one submitted set of salary payments for a company on one value date.
// Downstream stages derive artifacts from it and never mutate it.
type SalaryBatch struct {
	BatchID        string        `json:"salaryBatchId" xml:"salaryBatchId"`
	CompanyName    string        `json:"companyName" xml:"companyName"`
	CompanyAccount string        `json:"companyAccount" xml:"companyAccount"`
	SalaryDate     string        `json:"salaryDate" xml:"salaryDate"`
	Items          []PaymentItem `json:"employees" xml:"employees>employee"`
}

// PaymentItem is a single employee payment inside a batch.
type PaymentItem struct {
	EmployeeID    string `json:"employeeId" xml:"employeeId"`
	Name          string `json:"name" xml:"name"`
	AccountNumber string `json:"accountNumber" xml:"accountNumber"`
	BankCode      string `json:"bankCode" xml:"bankCode"`
	Amount        int64  `json:"amount" xml:"amount"` // minor units
}

// Total returns the sum of all item amounts in minor units.
func (b *SalaryBatch) Total() int64 {
	var total int64
	for _, item := range b.Items {
		total += item.Amount
	}
	return total
}

// Clone returns a deep copy so callers can hand the batch to stages without sharing the item slice.
func (b *SalaryBatch) Clone() *SalaryBatch {
	if b == nil {
		return nil
	}
	c := *b
	c.Items = append([]PaymentItem(nil), b.Items...)
	return &c
}

// FormatMinor renders an amount in minor units as a major-unit decimal string, e.g. 500000 -> "5000.00".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
