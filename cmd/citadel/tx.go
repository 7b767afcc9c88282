package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"citadelScope/internal/chain"
	"citadelScope/internal/config"
	"citadelScope/internal/contracts"
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
	"citadelScope/internal/txn"
)

func addTxFlags(cmd *cobra.Command) {
	addChainFlags(cmd)
	cmd.Flags().String("private-key", "", "hex private key used to sign (prefer CITADEL_PRIVATE_KEY)")
	cmd.Flags().String("amount", "", "amount in token units, e.g. 12.5")
	cmd.Flags().Int64("percent", 0, "use this percentage (25, 50, 75, 100) of the wallet balance instead of --amount")
	cmd.Flags().Bool("wait", true, "wait for the receipt")
	cmd.Flags().Duration("receipt-interval", 2*time.Second, "receipt poll interval")
	cmd.Flags().Uint("receipt-attempts", 90, "receipt poll attempts")
	cmd.Flags().Bool("auto-approve", true, "approve the spender first when the allowance is too low")
}

// txEnv is everything a write command needs, built from flags and config.
type txEnv struct {
	cfg       config.TxConfig
	net       config.Network
	logger    *zap.Logger
	client    *chain.Client
	reader    *contracts.Reader
	submitter *txn.Submitter
	ops       *txn.Operations
	tracker   *txn.Tracker
}

func setupTx(ctx context.Context, cmd *cobra.Command) (*txEnv, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTx(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PrivateKey == "" {
		return nil, nil, fmt.Errorf("private key is required")
	}
	net, err := config.LoadNetwork(cfg.Network)
	if err != nil {
		return nil, nil, err
	}

	client, err := dialChain(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
		_ = logger.Sync()
	}

	submitter, err := txn.NewSubmitter(ctx, client, cfg.PrivateKey, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	reader := contracts.NewReader(client, logger)
	return &txEnv{
		cfg:       cfg,
		net:       net,
		logger:    logger,
		client:    client,
		reader:    reader,
		submitter: submitter,
		ops:       txn.NewOperations(reader, submitter),
		tracker: txn.NewTracker(client, txn.TrackerConfig{
			PollInterval: cfg.ReceiptInterval,
			MaxAttempts:  cfg.ReceiptAttempts,
		}, logger),
	}, cleanup, nil
}

// token resolves the decimals and symbol used for amounts of addr.
func (e *txEnv) token(ctx context.Context, addr common.Address) model.Token {
	return e.reader.ResolveToken(ctx, addr, e.net.Tokens())
}

// amount resolves --amount or --percent of the signer's balance of token.
func (e *txEnv) amount(ctx context.Context, cmd *cobra.Command, token common.Address) (*big.Int, error) {
	pct, _ := cmd.Flags().GetInt64("percent")
	raw, _ := cmd.Flags().GetString("amount")
	meta := e.token(ctx, token)
	return resolveAmount(raw, pct, meta, func() (*big.Int, error) {
		from := e.submitter.From()
		if !contracts.TokenQueryEnabled(&token, &from, true) {
			return nil, fmt.Errorf("balance of %s cannot be read, pass --amount", token.Hex())
		}
		return e.reader.BalanceOf(ctx, token, from, nil)
	})
}

func resolveAmount(raw string, pct int64, token model.Token, balance func() (*big.Int, error)) (*big.Int, error) {
	if pct != 0 {
		if raw != "" {
			return nil, fmt.Errorf("use either --amount or --percent")
		}
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("percent must be between 1 and 100")
		}
		held, err := balance()
		if err != nil {
			return nil, fmt.Errorf("balance: %w", err)
		}
		return fixedpoint.PercentOf(held, pct), nil
	}
	amount, err := fixedpoint.ParseUnits(raw, token.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount of %s: %w", tokenLabel(token), err)
	}
	return amount, nil
}

// ensureAllowance approves spender for amount of token when the current allowance is short.
func (e *txEnv) ensureAllowance(ctx context.Context, cmd *cobra.Command, token, spender common.Address, amount *big.Int) error {
	allowance, err := e.reader.Allowance(ctx, token, e.submitter.From(), spender)
	if err != nil {
		return fmt.Errorf("allowance: %w", err)
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	if auto, _ := cmd.Flags().GetBool("auto-approve"); !auto {
		return allowanceError(e.token(ctx, token), allowance, amount)
	}
	tx, err := e.ops.ApproveToken(ctx, token, spender, amount)
	if err != nil {
		return err
	}
	// the following write is estimated against the new allowance
	return e.finish(ctx, tx, true)
}

func allowanceError(token model.Token, allowance, amount *big.Int) error {
	return fmt.Errorf("%s allowance %s is below %s, run approve first",
		tokenLabel(token),
		fixedpoint.FormatUnits(allowance, token.Decimals),
		fixedpoint.FormatUnits(amount, token.Decimals))
}

func tokenLabel(token model.Token) string {
	if token.Symbol != "" {
		return token.Symbol
	}
	return token.Address
}

// finish reports tx and waits for it when configured (or when forced).
func (e *txEnv) finish(ctx context.Context, tx *txn.Tx, forceWait bool) error {
	fmt.Printf("%s sent: %s\n", tx.Method, tx.Hash.Hex())
	if !e.cfg.Wait && !forceWait {
		return nil
	}
	receipt, err := e.tracker.Wait(ctx, tx)
	if err != nil {
		fmt.Printf("%s %s: %v\n", tx.Method, tx.Status(), err)
		return err
	}
	fmt.Printf("%s %s in block %d (gas used %d)\n", tx.Method, tx.Status(), receipt.BlockNumber.Uint64(), receipt.GasUsed)
	return nil
}

func runTx(cmd *cobra.Command, write func(ctx context.Context, env *txEnv) (*txn.Tx, error)) error {
	ctx, stop := signalContext()
	defer stop()

	env, cleanup, err := setupTx(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tx, err := write(ctx, env)
	if err != nil {
		if tx != nil {
			fmt.Printf("%s %s: %v\n", tx.Method, tx.Status(), err)
		}
		return err
	}
	return env.finish(ctx, tx, false)
}
