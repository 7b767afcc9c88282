package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"citadelScope/internal/config"
	"citadelScope/internal/contracts"
	"citadelScope/internal/history"
	"citadelScope/internal/pools"
	"citadelScope/internal/snapshot"
	"citadelScope/internal/storage"
	"citadelScope/internal/storage/postgres"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Backfill vault snapshots at past blocks",
		RunE:  runHistory,
	}
	addChainFlags(cmd)
	cmd.Flags().String("account", "", "account whose LP positions are included")
	cmd.Flags().Uint64("from-block", 0, "first block to sample")
	cmd.Flags().Uint64("to-block", 0, "last block to sample, 0 for the chain head")
	cmd.Flags().Uint64("step", 1200, "blocks between samples")
	cmd.Flags().String("out", "./data/history.jsonl", "snapshot JSONL path, empty disables")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshot storage")
	cmd.Flags().String("checkpoint", "./data/history_checkpoint.json", "checkpoint file, empty stores it in Postgres")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadHistory(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	net, err := config.LoadNetwork(cfg.Network)
	if err != nil {
		return err
	}
	account, err := config.ParseOptionalAddress("account", cfg.Account)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := dialChain(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	var (
		sinks      []storage.SnapshotSink
		checkpoint snapshot.StateStore
	)
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		if cfg.Checkpoint == "" {
			checkpoint = &snapshot.DBStateStore{Store: store, Name: fmt.Sprintf("history:%d", chainID.Uint64())}
		}
	}
	if cfg.Checkpoint != "" {
		checkpoint = &snapshot.FileStateStore{Path: cfg.Checkpoint}
	}

	logger.Info("history start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("step", cfg.Step),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	specs := vaultSpecs(net)
	runner := history.NewRunner(history.RunConfig{
		ChainID:    chainID.Uint64(),
		FromBlock:  cfg.FromBlock,
		ToBlock:    cfg.ToBlock,
		Step:       cfg.Step,
		Deployment: pools.Deployment(specs, net.Pool, net.LendingManager),
		Account:    account,
	}, contracts.NewReader(chainClient, logger), chainClient, pools.NewDeriver(specs, logger), sinks, checkpoint, logger)

	return runner.Run(ctx)
}
