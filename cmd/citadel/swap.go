package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"citadelScope/internal/contracts"
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/txn"
)

func addSwapFlags(cmd *cobra.Command) {
	addTxFlags(cmd)
	cmd.Flags().String("min-out", "", "minimum amount out, default the pool quote less slippage")
	cmd.Flags().Int64("slippage-bps", txn.DefaultSlippageBps, "slippage tolerance in basis points")
	cmd.Flags().Duration("expiry", txn.DefaultExpiry, "time until the order expires")
	cmd.Flags().String("receiver", "", "address credited by the write, default the signer")
}

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint synthetic tokens against collateral",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTx(cmd, func(ctx context.Context, env *txEnv) (*txn.Tx, error) {
				pool, ok := contracts.FindPoolByTokens(env.net.Pools(), env.net.Collateral, env.net.Synthetic)
				if !ok || !contracts.IsMintOperation(env.net.Collateral, env.net.Synthetic, pool) {
					return nil, fmt.Errorf("no pool mints %s", env.net.Synthetic.Hex())
				}
				poolAddr := common.HexToAddress(pool.Address)
				if err := env.reader.CheckPoolAssets(ctx, poolAddr, env.net.Collateral, env.net.Synthetic); err != nil {
					return nil, err
				}
				amount, err := env.amount(ctx, cmd, env.net.Collateral)
				if err != nil {
					return nil, err
				}
				minimum, err := minOut(cmd)
				if err != nil {
					return nil, err
				}
				receiver, err := env.receiver(cmd)
				if err != nil {
					return nil, err
				}
				if err := env.ensureAllowance(ctx, cmd, env.net.Collateral, poolAddr, amount); err != nil {
					return nil, err
				}
				return env.ops.Mint(ctx, poolAddr, txn.MintRequest{
					CollateralAmount: amount,
					MinNumTokens:     minimum,
					SlippageBps:      env.cfg.SlippageBps,
					Expiration:       time.Now().Add(env.cfg.Expiry),
					Recipient:        receiver,
				})
			})
		},
	}
	addSwapFlags(cmd)
	return cmd
}

func newRedeemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Redeem synthetic tokens for collateral",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTx(cmd, func(ctx context.Context, env *txEnv) (*txn.Tx, error) {
				pool, ok := contracts.FindPoolByTokens(env.net.Pools(), env.net.Synthetic, env.net.Collateral)
				if !ok || !contracts.IsRedeemOperation(env.net.Synthetic, env.net.Collateral, pool) {
					return nil, fmt.Errorf("no pool redeems %s", env.net.Synthetic.Hex())
				}
				poolAddr := common.HexToAddress(pool.Address)
				if err := env.reader.CheckPoolAssets(ctx, poolAddr, env.net.Collateral, env.net.Synthetic); err != nil {
					return nil, err
				}
				amount, err := env.amount(ctx, cmd, env.net.Synthetic)
				if err != nil {
					return nil, err
				}
				minimum, err := minOut(cmd)
				if err != nil {
					return nil, err
				}
				receiver, err := env.receiver(cmd)
				if err != nil {
					return nil, err
				}
				if err := env.ensureAllowance(ctx, cmd, env.net.Synthetic, poolAddr, amount); err != nil {
					return nil, err
				}
				return env.ops.Redeem(ctx, poolAddr, txn.RedeemRequest{
					NumTokens:     amount,
					MinCollateral: minimum,
					SlippageBps:   env.cfg.SlippageBps,
					Expiration:    time.Now().Add(env.cfg.Expiry),
					Recipient:     receiver,
				})
			})
		},
	}
	addSwapFlags(cmd)
	return cmd
}

func minOut(cmd *cobra.Command) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString("min-out")
	if raw == "" {
		return nil, nil
	}
	value, err := fixedpoint.ParseUnits(raw, fixedpoint.AmountDecimals)
	if err != nil {
		return nil, fmt.Errorf("min-out: %w", err)
	}
	return value, nil
}
