package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/service"
)

func acksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acks [batchId]",
		Short: "Show recorded acknowledgements",
		Long: `Without arguments, list acknowledgements newest first. With a batch id,
show its latest acknowledgement, or every record with --history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAcks,
	}

	cmd.Flags().Bool("history", false, "show every acknowledgement for the batch, oldest first")
	cmd.Flags().String("status", "", "only list acknowledgements with this status")
	cmd.Flags().Int("limit", 20, "maximum number of acknowledgements to list (0 for all)")
	cmd.Flags().Bool("json", false, "print JSON instead of styled output")

	return cmd
}

func runAcks(cmd *cobra.Command, args []string) error {
	history, _ := cmd.Flags().GetBool("history")
	statusFlag, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		batchID := args[0]
		if history {
			acks, err := store.History(ctx, batchID)
			if err != nil {
				return err
			}
			if len(acks) == 0 {
				return common.NewUserError(fmt.Sprintf("no acknowledgement found for batch %s", batchID), common.ErrNotFound)
			}
			if asJSON {
				return writeJSON(cmd, acks)
			}
			for i := range acks {
				fmt.Fprintln(out, cli.RenderAck(&acks[i]))
			}
			return nil
		}

		ack, err := store.FindByBatchID(ctx, batchID)
		if err != nil {
			return approvalError(batchID, err)
		}
		if asJSON {
			return writeJSON(cmd, ack)
		}
		fmt.Fprintln(out, cli.RenderAck(ack))
		return nil
	}

	filter := service.AckFilter{Limit: limit}
	if statusFlag != "" {
		status, err := model.ParseAckStatus(statusFlag)
		if err != nil {
			return common.NewUserError("invalid --status", err)
		}
		filter.Status = status
	}

	acks, err := store.ListAcknowledgements(ctx, filter)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, acks)
	}
	fmt.Fprintln(out, cli.FormatTitle("Acknowledgements"))
	fmt.Fprintln(out, cli.RenderAckTable(acks))
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
