package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"citadelScope/internal/chain"
	"citadelScope/internal/config"
	"citadelScope/internal/contracts"
	"citadelScope/internal/model"
	"citadelScope/internal/pools"
)

func main() {
	root := &cobra.Command{
		Use:          "citadel",
		Short:        "Citadel synthetic pool vault reader and operator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newPoolsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newApproveCmd())
	root.AddCommand(newDepositCmd())
	root.AddCommand(newWithdrawCmd())
	root.AddCommand(newMintCmd())
	root.AddCommand(newRedeemCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "JSON-RPC URL")
	cmd.Flags().String("network", "./testnet-addresses.json", "network addresses file")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func dialChain(ctx context.Context, rpcURL string) (*chain.Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func vaultSpecs(net config.Network) []pools.VaultSpec {
	return pools.DefaultVaults(net.Vault1x, net.Vault5x, net.Vault20x)
}

// resolveTokens returns the collateral and synthetic token metadata, read from
// chain when possible and from the network file otherwise.
func resolveTokens(ctx context.Context, reader *contracts.Reader, net config.Network) (model.Token, model.Token) {
	known := net.Tokens()
	return reader.ResolveToken(ctx, net.Collateral, known), reader.ResolveToken(ctx, net.Synthetic, known)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
