package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		fileName string
		want     Format
		wantErr  bool
	}{
		{fileName: "march.csv", want: FormatCSV},
		{fileName: "MARCH.CSV", want: FormatCSV},
		{fileName: "/in/batch.xml", want: FormatXML},
		{fileName: "batch.json", want: FormatJSON},
		{fileName: "payroll.txt", wantErr: true},
		{fileName: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			got, err := DetectFormat(tt.fileName)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_JSON(t *testing.T) {
	raw := `{
		"salaryBatchId": "B-100",
		"companyName": "Acme Ltd",
		"companyAccount": "ACMEACMEACMEACME",
		"salaryDate": "2024-05-01",
		"employees": [
			{"employeeId": "E001", "name": "Jane Doe", "accountNumber": "1234567890", "bankCode": "001", "amount": 500000}
		]
	}`

	batch, err := Decode(FormatJSON, []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "B-100", batch.BatchID)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, int64(500000), batch.Items[0].Amount)
}

func TestDecode_JSONTrailingData(t *testing.T) {
	_, err := Decode(FormatJSON, []byte(`{"salaryBatchId":"B-1"} {"salaryBatchId":"B-2"}`))
	assert.ErrorIs(t, err, common.ErrParse)
}

func TestDecode_XML(t *testing.T) {
	raw := `<?xml version="1.0" encoding="UTF-8"?>
<salaryBatch>
  <salaryBatchId>B-100</salaryBatchId>
  <companyName>Acme Ltd</companyName>
  <companyAccount>ACMEACMEACMEACME</companyAccount>
  <salaryDate>2024-05-01</salaryDate>
  <employees>
    <employee>
      <employeeId>E001</employeeId>
      <name>Jane Doe</name>
      <accountNumber>1234567890</accountNumber>
      <bankCode>001</bankCode>
      <amount>500000</amount>
    </employee>
    <employee>
      <employeeId>E002</employeeId>
      <name>John Roe</name>
      <accountNumber>0987654321</accountNumber>
      <bankCode>044</bankCode>
      <amount>750000</amount>
    </employee>
  </employees>
</salaryBatch>`

	batch, err := Decode(FormatXML, []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "ACMEACMEACMEACME", batch.CompanyAccount)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "044", batch.Items[1].BankCode)
	assert.Equal(t, int64(1250000), batch.Total())
}

func TestDecode_XMLWrongRoot(t *testing.T) {
	_, err := Decode(FormatXML, []byte(`<payroll><salaryBatchId>B-1</salaryBatchId></payroll>`))
	assert.ErrorIs(t, err, common.ErrParse)
}

func TestDecode_CSVColumnOrderIndependent(t *testing.T) {
	raw := `batchId,companyName,salaryDate,companyAccount
B-7,"Acme, Ltd",2024-05-01,ACMEACMEACMEACME

amount,employeeId,name,bankCode,accountNumber
100,E001,Jane Doe,001,1234567890

`
	batch, err := DecodeCanonical([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "B-7", batch.BatchID)
	assert.Equal(t, "Acme, Ltd", batch.CompanyName)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, int64(100), batch.Items[0].Amount)
	assert.Equal(t, "1234567890", batch.Items[0].AccountNumber)
}

func TestDecode_CSVMissingColumn(t *testing.T) {
	raw := "companyName,batchId,companyAccount,salaryDate\nAcme,B-1,ACMEACMEACMEACME,2024-05-01\n\nemployeeId,name,amount\nE001,Jane,100\n"
	_, err := DecodeCanonical([]byte(raw))
	require.ErrorIs(t, err, common.ErrParse)
	assert.Contains(t, err.Error(), "accountNumber")
}

func TestStem(t *testing.T) {
	assert.Equal(t, "march", Stem("/inbox/march.csv"))
	assert.Equal(t, "payroll", Stem("payroll.txt"))
	assert.Equal(t, "noext", Stem("noext"))
}

func TestDecode_CSVTextAmountFailsStrictDecode(t *testing.T) {
	raw := "companyName,batchId,companyAccount,salaryDate\nAcme,B-1,ACMEACMEACMEACME,2024-05-01\n\nemployeeId,name,accountNumber,bankCode,amount\nE001,Jane,1234567890,001,five\n"

	_, err := Decode(FormatCSV, []byte(raw))
	require.ErrorIs(t, err, common.ErrParse)
	assert.Contains(t, err.Error(), "record 1")

	batch, badAmounts, err := decodeUpload(FormatCSV, []byte(raw))
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, []int{1}, badAmounts)
}

func TestDecode_CSVWhitespace(t *testing.T) {
	raw := "companyName,batchId,companyAccount,salaryDate\n\"Acme Ltd \",B-1,ACMEACMEACMEACME,2024-05-01\n\n" +
		"employeeId,name,accountNumber,bankCode,amount\nE001,\" Jane Doe\",1234567890,001,100\n"

	tests := []struct {
		name        string
		decode      func([]byte) (*model.SalaryBatch, error)
		wantCompany string
		wantName    string
	}{
		{
			name:        "upload is trimmed",
			decode:      func(b []byte) (*model.SalaryBatch, error) { return Decode(FormatCSV, b) },
			wantCompany: "Acme Ltd",
			wantName:    "Jane Doe",
		},
		{
			name:        "canonical is verbatim",
			decode:      DecodeCanonical,
			wantCompany: "Acme Ltd ",
			wantName:    " Jane Doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := tt.decode([]byte(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCompany, batch.CompanyName)
			require.Len(t, batch.Items, 1)
			assert.Equal(t, tt.wantName, batch.Items[0].Name)
		})
	}
}
