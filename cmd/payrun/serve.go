package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/salary-disbursement/internal/certs"
	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload and approval API",
		Long: `Start the HTTP API. Uploads are validated synchronously and the remaining
stages run in the background; on shutdown in-flight batches are allowed to finish.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Background batches")

	srv := server.New(a.cfg.Server, a.pipeline, a.store)
	if a.cfg.Server.TLSCertDir != "" {
		cert, err := certs.NewFileManager(a.cfg.Server.TLSCertDir, a.cfg.Server.TLSHosts).Certificate()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		srv.EnableTLS(cert)
	}
	slog.Info("Starting payrun API",
		"addr", a.cfg.Server.Addr,
		"database", a.store.Path(),
		"checks", a.cfg.Approval.Checks)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
