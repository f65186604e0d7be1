package pipeline

import (
	"fmt"
	"strings"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

// SettlementMessage renders a settlement outcome with its per-item details.
func SettlementMessage(outcome model.SettlementOutcome) string {
	if len(outcome.Items) == 0 {
		return outcome.Message
	}

	var b strings.Builder
	b.WriteString(outcome.Message)
	b.WriteString("\n\nTransaction Details:\n")
	for _, item := range outcome.Items {
		fmt.Fprintf(&b, "Employee %s (%s): %s\n", item.EmployeeID, item.AccountNumber, item.Status)
		if item.ErrorMessage != "" {
			fmt.Fprintf(&b, "  Error: %s\n", item.ErrorMessage)
		}
	}
	return b.String()
}

func validationMessage(errs []string) string {
	return "File validation failed: " + strings.Join(errs, "; ")
}
