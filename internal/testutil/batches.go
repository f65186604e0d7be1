package testutil

import "github.com/Veraticus/salary-disbursement/internal/model"

// AcmeCSV is a valid single-item upload for batch B-100.
const AcmeCSV = `companyName,batchId,companyAccount,salaryDate,generatedAt
Acme Ltd,B-100,ACMEACMEACMEACME,2024-05-01,2024-04-30T10:00:00Z

employeeId,name,accountNumber,bankCode,amount
E001,Jane Doe,1234567890,001,500000
`

// AcmeBatch is the structured form of AcmeCSV.
func AcmeBatch() *model.SalaryBatch {
	return &model.SalaryBatch{
		BatchID:        "B-100",
		CompanyName:    "Acme Ltd",
		CompanyAccount: "ACMEACMEACMEACME",
		SalaryDate:     "2024-05-01",
		Items: []model.PaymentItem{
			{EmployeeID: "E001", Name: "Jane Doe", AccountNumber: "1234567890", BankCode: "001", Amount: 500000},
		},
	}
}
