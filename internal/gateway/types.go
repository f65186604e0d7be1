package gateway

import (
	"strings"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

// TransactionType tags every submission.
const TransactionType = "SALARY_DISBURSEMENT"

// PaymentRequest is the batch submission body.
type PaymentRequest struct {
	BatchID         string        `json:"batchId"`
	CompanyName     string        `json:"companyName"`
	CompanyAccount  string        `json:"companyAccount"`
	PaymentDate     string        `json:"paymentDate"`
	TransactionType string        `json:"transactionType"`
	Currency        string        `json:"currency"`
	PaymentItems    []PaymentLine `json:"paymentItems"`
}

// PaymentLine is one employee payment in a submission.
type PaymentLine struct {
	EmployeeID    string `json:"employeeId"`
	EmployeeName  string `json:"employeeName"`
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	Narration     string `json:"narration"`
	Amount        int64  `json:"amount"`
}

// PaymentResponse is returned by submission and status endpoints. Some gateway
// versions name the per-item list transactionStatuses.
type PaymentResponse struct {
	Status              string              `json:"status"`
	Message             string              `json:"message"`
	TransactionID       string              `json:"transactionId"`
	ItemStatuses        []model.ItemOutcome `json:"itemStatuses"`
	TransactionStatuses []model.ItemOutcome `json:"transactionStatuses"`
}

func (r PaymentResponse) items() []model.ItemOutcome {
	if len(r.ItemStatuses) > 0 {
		return r.ItemStatuses
	}
	return r.TransactionStatuses
}

// BalanceResponse is returned by the account balance endpoint. Available is in minor units.
type BalanceResponse struct {
	Account   string `json:"account"`
	Available int64  `json:"available"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newPaymentRequest(batch *model.SalaryBatch, currency string) PaymentRequest {
	req := PaymentRequest{
		BatchID:         batch.BatchID,
		CompanyName:     batch.CompanyName,
		CompanyAccount:  batch.CompanyAccount,
		PaymentDate:     batch.SalaryDate,
		TransactionType: TransactionType,
		Currency:        currency,
		PaymentItems:    make([]PaymentLine, 0, len(batch.Items)),
	}
	for _, item := range batch.Items {
		req.PaymentItems = append(req.PaymentItems, PaymentLine{
			EmployeeID:    item.EmployeeID,
			EmployeeName:  item.Name,
			AccountNumber: item.AccountNumber,
			BankCode:      item.BankCode,
			Amount:        item.Amount,
			Narration:     "Salary payment for " + item.Name,
		})
	}
	return req
}

// NormalizeStatus maps gateway vocabulary onto settlement statuses. Anything
// unrecognized is FAILED.
func NormalizeStatus(status string) model.SettlementStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED":
		return model.SettlementSuccess
	case "PENDING", "PROCESSING", "QUEUED", "ACCEPTED":
		return model.SettlementPending
	default:
		return model.SettlementFailed
	}
}
