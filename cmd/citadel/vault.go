package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"citadelScope/internal/config"
	"citadelScope/internal/pools"
	"citadelScope/internal/txn"
)

func addVaultFlags(cmd *cobra.Command) {
	addTxFlags(cmd)
	cmd.Flags().String("vault", pools.Vault1xID, "vault id (vault-1x, vault-5x, vault-20x)")
	cmd.Flags().String("receiver", "", "address credited by the write, default the signer")
}

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a vault to pull its collateral asset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTx(cmd, func(ctx context.Context, env *txEnv) (*txn.Tx, error) {
				vault, err := env.vault(cmd)
				if err != nil {
					return nil, err
				}
				asset, err := env.reader.VaultAsset(ctx, vault)
				if err != nil {
					return nil, fmt.Errorf("vault asset: %w", err)
				}
				amount, err := env.amount(ctx, cmd, asset)
				if err != nil {
					return nil, err
				}
				return env.ops.Approve(ctx, vault, amount)
			})
		},
	}
	addVaultFlags(cmd)
	return cmd
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit collateral into a vault",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTx(cmd, func(ctx context.Context, env *txEnv) (*txn.Tx, error) {
				vault, err := env.vault(cmd)
				if err != nil {
					return nil, err
				}
				receiver, err := env.receiver(cmd)
				if err != nil {
					return nil, err
				}
				asset, err := env.reader.VaultAsset(ctx, vault)
				if err != nil {
					return nil, fmt.Errorf("vault asset: %w", err)
				}
				amount, err := env.amount(ctx, cmd, asset)
				if err != nil {
					return nil, err
				}
				needs, err := env.ops.NeedsApproval(ctx, vault, env.submitter.From(), amount)
				if err != nil {
					return nil, err
				}
				if needs {
					if err := env.ensureAllowance(ctx, cmd, asset, vault, amount); err != nil {
						return nil, err
					}
				}
				return env.ops.Deposit(ctx, vault, amount, receiver)
			})
		},
	}
	addVaultFlags(cmd)
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn vault LP tokens for collateral",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTx(cmd, func(ctx context.Context, env *txEnv) (*txn.Tx, error) {
				vault, err := env.vault(cmd)
				if err != nil {
					return nil, err
				}
				receiver, err := env.receiver(cmd)
				if err != nil {
					return nil, err
				}
				// the vault is its own LP token
				lpAmount, err := env.amount(ctx, cmd, vault)
				if err != nil {
					return nil, err
				}
				return env.ops.Withdraw(ctx, vault, lpAmount, receiver)
			})
		},
	}
	addVaultFlags(cmd)
	return cmd
}

func (e *txEnv) vault(cmd *cobra.Command) (common.Address, error) {
	id, _ := cmd.Flags().GetString("vault")
	spec, ok := pools.FindVault(vaultSpecs(e.net), id)
	if !ok {
		return common.Address{}, fmt.Errorf("unknown vault %q", id)
	}
	return spec.Address, nil
}

// receiver returns --receiver, defaulting to the signer.
func (e *txEnv) receiver(cmd *cobra.Command) (common.Address, error) {
	raw, _ := cmd.Flags().GetString("receiver")
	addr, err := config.ParseOptionalAddress("receiver", raw)
	if err != nil {
		return common.Address{}, err
	}
	if addr == nil {
		return e.submitter.From(), nil
	}
	return *addr, nil
}
