package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"citadelScope/internal/config"
	"citadelScope/internal/contracts"
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
	"citadelScope/internal/pools"
)

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Read the vaults once and print their summaries",
		RunE:  runPools,
	}
	addChainFlags(cmd)
	cmd.Flags().String("account", "", "account whose LP positions are included")
	cmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	cmd.Flags().StringSlice("vault", nil, "vault ids to print (comma-separated), default all")
	cmd.Flags().String("output", "table", "output format (table, json)")
	return cmd
}

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPools(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Output != "table" && cfg.Output != "json" {
		return fmt.Errorf("unsupported output %q", cfg.Output)
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

	block := cfg.Block
	if block == 0 {
		block, err = chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
	}

	specs := vaultSpecs(net)
	reader := contracts.NewReader(chainClient, logger)
	set := reader.ReadAll(ctx, pools.Deployment(specs, net.Pool, net.LendingManager), account, new(big.Int).SetUint64(block))
	vaults := filterVaults(pools.BuildPoolVaults(pools.Inputs{Specs: specs, Reads: set, Logger: logger}), cfg.Vaults)

	logger.Info("pools read",
		zap.Uint64("block", block),
		zap.Int("vaults", len(vaults)),
		zap.Int("read_errors", set.Errors()),
	)

	var feePct *float64
	if fee, err := reader.FeePercentage(ctx, net.Pool); err == nil {
		pct := fixedpoint.NewRatio16(fee).Percent()
		feePct = &pct
	} else {
		logger.Warn("fee percentage read failed", zap.String("pool", net.Pool.Hex()), zap.Error(err))
	}

	if cfg.Output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(poolsOutput{Block: block, PoolFeePct: feePct, Vaults: vaults})
	}
	if err := printVaults(os.Stdout, vaults, set.Lending.Value); err != nil {
		return err
	}
	return printPoolFee(os.Stdout, feePct)
}

type poolsOutput struct {
	Block      uint64            `json:"block_number"`
	PoolFeePct *float64          `json:"pool_fee_pct,omitempty"`
	Vaults     []model.PoolVault `json:"vaults"`
}

func printPoolFee(w io.Writer, feePct *float64) error {
	if feePct == nil {
		_, err := fmt.Fprintln(w, "pool fee: unavailable")
		return err
	}
	_, err := fmt.Fprintf(w, "pool fee: %s\n", fixedpoint.FormatPercentage(*feePct, 2))
	return err
}

func filterVaults(vaults []model.PoolVault, ids []string) []model.PoolVault {
	if len(ids) == 0 {
		return vaults
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.PoolVault, 0, len(ids))
	for _, vault := range vaults {
		if _, ok := want[vault.ID]; ok {
			out = append(out, vault)
		}
	}
	return out
}

func printVaults(w io.Writer, vaults []model.PoolVault, lending model.AccumulatedInterest) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VAULT\tRISK\tTVL\tAPY\tUTILIZATION\tCOVERAGE\tFEES\tPOSITION")
	for _, vault := range vaults {
		apy := fixedpoint.FormatPercentage(vault.APY, 2)
		if vault.APYFallback {
			apy += "*"
		}
		position := "-"
		if vault.UserPosition != nil {
			position = fixedpoint.FormatCurrency(vault.UserPosition.Value, fixedpoint.DefaultCurrencyPrecision)
		}
		fees := pools.VaultFees(vault, lending)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			vault.Name,
			vault.RiskLevel,
			fixedpoint.FormatCompact(vault.TVL),
			apy,
			fixedpoint.FormatPercentage(vault.LPInfo.Utilization, fixedpoint.DefaultPercentagePrecision),
			fixedpoint.FormatPercentage(vault.LPInfo.Coverage, fixedpoint.DefaultPercentagePrecision),
			fixedpoint.FormatUSD(fees.Total),
			position,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, vault := range vaults {
		if vault.APYFallback {
			_, err := fmt.Fprintln(w, "* estimated APY not positive, showing the vault's fallback figure")
			return err
		}
	}
	return nil
}
