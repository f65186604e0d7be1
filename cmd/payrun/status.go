package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/pipeline"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <batchId>",
		Short: "Query the settlement gateway for a batch",
		Long: `Ask the settlement gateway for the current status of a batch.
With --record the answer is appended to the batch history.`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}

	cmd.Flags().Bool("record", false, "record the gateway answer as a new acknowledgement")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	record, _ := cmd.Flags().GetBool("record")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, ack, err := a.pipeline.CheckStatus(cmd.Context(), args[0], record)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	status := outcome.Status.AckStatus()
	body := fmt.Sprintf("%s %s\n%s",
		cli.BoldStyle.Render("Gateway status:"),
		cli.StatusStyle(status).Render(string(outcome.Status)),
		pipeline.SettlementMessage(outcome))
	if outcome.TransactionID != "" {
		body += fmt.Sprintf("\n%s %s", cli.BoldStyle.Render("Transaction:"), outcome.TransactionID)
	}
	body += "\n" + cli.SubtleStyle.Render("Circuit breaker: "+a.gateway.BreakerState())
	fmt.Fprintln(out, cli.RenderBox("Batch "+args[0], body))

	if ack != nil {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded acknowledgement #%d (%s)", ack.ID, ack.Status)))
	}
	return nil
}
