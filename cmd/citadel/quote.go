package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"citadelScope/internal/config"
	"citadelScope/internal/contracts"
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "quote (mint|redeem)",
		Short:     "Quote a mint or redeem against the pool",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"mint", "redeem"},
		RunE:      runQuote,
	}
	addChainFlags(cmd)
	cmd.Flags().String("amount", "", "amount in (collateral for mint, synthetic for redeem)")
	return cmd
}

func runQuote(cmd *cobra.Command, args []string) error {
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

	net, err := config.LoadNetwork(cfg.Network)
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

	reader := contracts.NewReader(chainClient, logger)
	collateral, synthetic := resolveTokens(ctx, reader, net)
	in, out := collateral, synthetic
	if args[0] == "redeem" {
		in, out = synthetic, collateral
	}

	rawAmount, _ := cmd.Flags().GetString("amount")
	amount, err := fixedpoint.ParseUnits(rawAmount, in.Decimals)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}

	var info model.TradeInfo
	if args[0] == "mint" {
		info, err = reader.MintTradeInfo(ctx, net.Pool, amount)
	} else {
		info, err = reader.RedeemTradeInfo(ctx, net.Pool, amount)
	}
	if err != nil {
		return fmt.Errorf("%s quote: %w", args[0], err)
	}

	fmt.Printf("%s %s %s -> %s %s (fee %s %s)\n",
		args[0],
		fixedpoint.FormatTokenAmount(amount, in.Decimals, fixedpoint.DefaultTokenPrecision), tokenLabel(in),
		fixedpoint.FormatTokenAmount(info.AmountReceived, out.Decimals, fixedpoint.DefaultTokenPrecision), tokenLabel(out),
		fixedpoint.FormatTokenAmount(info.FeePaid, collateral.Decimals, fixedpoint.DefaultTokenPrecision), tokenLabel(collateral),
	)
	if fee, err := reader.FeePercentage(ctx, net.Pool); err == nil {
		fmt.Printf("pool fee %s\n", fixedpoint.FormatPercentage(fixedpoint.NewRatio16(fee).Percent(), 2))
	} else {
		logger.Warn("fee percentage read failed", zap.Error(err))
	}
	return nil
}
