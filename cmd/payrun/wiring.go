package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/salary-disbursement/internal/approval"
	"github.com/Veraticus/salary-disbursement/internal/command"
	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/gateway"
	"github.com/Veraticus/salary-disbursement/internal/intake"
	"github.com/Veraticus/salary-disbursement/internal/notify"
	"github.com/Veraticus/salary-disbursement/internal/packager"
	"github.com/Veraticus/salary-disbursement/internal/pipeline"
	"github.com/Veraticus/salary-disbursement/internal/service"
	"github.com/Veraticus/salary-disbursement/internal/storage"
	"github.com/Veraticus/salary-disbursement/internal/transfer"
)

// commandTimeout bounds an external tool run that carries no deadline of its own.
const commandTimeout = 10 * time.Minute

// app bundles what the pipeline commands need and must close.
type app struct {
	store    *storage.SQLiteStorage
	gateway  *gateway.Client
	pipeline *pipeline.Pipeline
	cfg      config.Config
}

func (a *app) Close() {
	_ = a.store.Close()
}

// openStore opens and migrates the database. Commands that only read or
// edit stored records use it without loading the full pipeline config.
func openStore(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("storage.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newApp loads and validates the full configuration and wires the pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	client := gateway.NewClient(cfg.Gateway)
	return &app{
		cfg:      cfg,
		store:    store,
		gateway:  client,
		pipeline: buildPipeline(cfg, store, client, command.NewExecRunner(commandTimeout)),
	}, nil
}

// buildNotifier returns the acknowledgement file writer, or Discard when disabled.
func buildNotifier(cfg config.NotifyConfig) notify.Notifier {
	if !cfg.Enabled {
		return notify.Discard{}
	}
	return notify.NewFileNotifier(cfg.Dir)
}

func buildPipeline(cfg config.Config, store service.Storage, settlement service.Settlement, runner command.Runner) *pipeline.Pipeline {
	return pipeline.New(pipeline.Deps{
		Validator:  intake.NewValidator(cfg.Validation),
		Gate:       buildGate(cfg, store, settlement),
		Packager:   packager.New(cfg.Workdir, cfg.Encryption, runner),
		Transfer:   transfer.NewAgent(cfg.Transfer, runner),
		Settlement: settlement,
		Store:      store,
		Notifier:   buildNotifier(cfg.Notify),
	})
}

// buildGate assembles the approval checks in configured order.
func buildGate(cfg config.Config, roster service.Roster, balances approval.BalanceSource) *approval.Gate {
	checks := make([]approval.Check, 0, len(cfg.Approval.Checks))
	for _, name := range cfg.Approval.Checks {
		switch name {
		case config.CheckFunds:
			checks = append(checks, approval.NewFundsCheck(balances))
		case config.CheckRoster:
			checks = append(checks, approval.NewRosterCheck(roster))
		}
	}
	return approval.NewGate(checks...)
}
