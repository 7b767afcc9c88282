package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"citadelScope/internal/api"
	"citadelScope/internal/config"
	"citadelScope/internal/contracts"
	"citadelScope/internal/metrics"
	"citadelScope/internal/pools"
	"citadelScope/internal/snapshot"
	"citadelScope/internal/storage"
	"citadelScope/internal/storage/postgres"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the vaults and serve their summaries over HTTP",
		RunE:  runServe,
	}
	addChainFlags(cmd)
	cmd.Flags().String("account", "", "account whose LP positions are included")
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Duration("poll-interval", 15*time.Second, "snapshot poll interval")
	cmd.Flags().String("out", "./data/snapshots.jsonl", "snapshot JSONL path, empty disables")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshot storage")
	cmd.Flags().String("state-file", "./data/snapshot_state.json", "local state file, empty stores state in Postgres")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
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

	var (
		sinks      []storage.SnapshotSink
		stateStore snapshot.StateStore
		store      *postgres.Store
	)
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		if cfg.StateFile == "" {
			stateStore = &snapshot.DBStateStore{Store: store, Name: fmt.Sprintf("snapshot:%d", chainID.Uint64())}
		}
	}
	if cfg.StateFile != "" {
		stateStore = &snapshot.FileStateStore{Path: cfg.StateFile}
	}

	metrics.Register()

	specs := vaultSpecs(net)
	reader := contracts.NewReader(chainClient, logger)
	if err := reader.CheckPoolAssets(ctx, net.Pool, net.Collateral, net.Synthetic); err != nil {
		if errors.Is(err, contracts.ErrPoolAssetMismatch) {
			return err
		}
		logger.Warn("pool assets not verified", zap.String("pool", net.Pool.Hex()), zap.Error(err))
	}
	collateral, synthetic := resolveTokens(ctx, reader, net)
	svc := snapshot.NewService(snapshot.Config{
		ChainID:    chainID.Uint64(),
		Deployment: pools.Deployment(specs, net.Pool, net.LendingManager),
		Account:    account,
		Sinks:      sinks,
		StateStore: stateStore,
	}, reader, chainClient, pools.NewDeriver(specs, logger), logger)

	logger.Info("serve start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.String("listen", cfg.Listen),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state_file", cfg.StateFile),
		zap.Bool("account", account != nil),
	)

	if store != nil {
		rows, err := store.LatestSnapshots(ctx, chainID.Uint64())
		if err != nil {
			logger.Warn("load latest snapshots failed", zap.Error(err))
		} else {
			svc.Restore(rows)
		}
	}

	go svc.Start(ctx, cfg.PollInterval)

	server := api.NewServer(svc, reader, api.Config{
		Pool:       net.Pool,
		Collateral: collateral,
		Synthetic:  synthetic,
	}, logger)
	return api.ListenAndServe(ctx, server.HTTPServer(cfg.Listen), logger)
}
