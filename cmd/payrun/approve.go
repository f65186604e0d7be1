package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/pipeline"
)

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <batchId>",
		Short: "Approve a PENDING salary batch (checker step)",
		Long: `Move the latest acknowledgement of a batch from PENDING to APPROVED.
Approving an already approved batch is reported and changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: runApprove,
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runApprove(cmd *cobra.Command, args []string) error {
	batchID := args[0]
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	current, err := store.FindByBatchID(ctx, batchID)
	if err != nil {
		return approvalError(batchID, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAck(current))

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		reader := cli.NewNonBlockingReader(cmd.InOrStdin())
		ok, err := cli.Confirm(ctx, reader, cmd.OutOrStdout(), fmt.Sprintf("Approve batch %s?", batchID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Approval cancelled."))
			return nil
		}
	}

	// Approval touches only the store and the notifier, so no processing stages are wired.
	p := pipeline.New(pipeline.Deps{
		Store:    store,
		Notifier: buildNotifier(config.LoadNotify(viper.GetViper())),
	})
	ack, err := p.Approve(ctx, batchID)
	if err != nil {
		return approvalError(batchID, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(ack.Message))
	return nil
}

func approvalError(batchID string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError(fmt.Sprintf("no acknowledgement found for batch %s", batchID), err)
	case errors.Is(err, common.ErrInvalidState):
		return common.NewUserError(err.Error(), err)
	default:
		return err
	}
}
