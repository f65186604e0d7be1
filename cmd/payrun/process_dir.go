package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/inbox"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

func processDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process-dir <dir>",
		Short: "Process every salary file in a drop directory",
		Long: `Process each CSV, XML or JSON file in a drop directory in name order.
Each file with a recorded acknowledgement is moved into the processed
directory as processed_<yyyymmdd_hhmmss>_<name>. Other files are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runProcessDir,
	}

	cmd.Flags().String("processed-dir", "", "archive directory (default: inbox.processed_dir or <dir>/processed)")

	return cmd
}

func runProcessDir(cmd *cobra.Command, args []string) error {
	processedDir, _ := cmd.Flags().GetString("processed-dir")
	if processedDir == "" {
		processedDir = viper.GetString("inbox.processed_dir")
	}
	in := inbox.New(config.ExpandPath(args[0]), config.ExpandPath(processedDir))

	pending, skipped, err := in.Scan()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range skipped {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipping %s: unsupported file type", name)))
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No salary files to process."))
		return nil
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "The current file")

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing salary files...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	counts := map[model.AckStatus]int{}
	var (
		results []inbox.Result
		refused int
	)
	runErr := in.Run(ctx, a.pipeline, pending, func(res inbox.Result) {
		results = append(results, res)
		switch {
		case errors.Is(res.Err, common.ErrAlreadyAdmitted):
			refused++
		case res.Ack != nil:
			counts[res.Ack.Status]++
		}
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	})
	_ = bar.Finish()

	for _, res := range results {
		if res.Ack == nil {
			continue
		}
		line := fmt.Sprintf("%s → %s %s", res.File, res.Ack.BatchID,
			cli.StatusStyle(res.Ack.Status).Render(string(res.Ack.Status)))
		if errors.Is(res.Err, common.ErrAlreadyAdmitted) {
			line += " " + cli.FormatWarning("(already admitted, not run again)")
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, cli.RenderBox("Inbox summary", summarize(len(results), counts, refused)))

	if runErr != nil && !(errors.Is(runErr, context.Canceled) && handler.WasInterrupted()) {
		return runErr
	}
	return nil
}

func summarize(total int, counts map[model.AckStatus]int, refused int) string {
	s := fmt.Sprintf("Processed: %d", total)
	for _, status := range model.AllAckStatuses {
		if n := counts[status]; n > 0 {
			s += fmt.Sprintf("\n%s: %d", status, n)
		}
	}
	if refused > 0 {
		s += fmt.Sprintf("\nAlready admitted: %d", refused)
	}
	return s
}
