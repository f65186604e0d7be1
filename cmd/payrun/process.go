package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <file>",
		Short: "Run one salary batch file through the pipeline",
		Long: `Validate, approve, package, transfer and settle a salary batch file
(CSV, XML or JSON). The acknowledgement is printed and stored.

Examples:
  payrun process ~/Downloads/salary_may.csv
  payrun process batch.json --log-level debug`,
		Args: cobra.ExactArgs(1),
		RunE: runProcess,
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("cannot read %s", path), err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ack, err := a.pipeline.Process(cmd.Context(), raw, filepath.Base(path))
	if ack != nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAck(ack))
	}
	if errors.Is(err, common.ErrAlreadyAdmitted) {
		return common.NewUserError(fmt.Sprintf("batch %s was not run again", ack.BatchID), err)
	}
	if err != nil {
		return err
	}
	if ack.Status == model.StatusPending {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Approve with: payrun approve %s", ack.BatchID)))
	}
	return nil
}
