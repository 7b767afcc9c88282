package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"citadelScope/internal/model"
)

// ReceiptSource fetches receipts. It returns ethereum.NotFound until the transaction is mined.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type TrackerConfig struct {
	PollInterval time.Duration
	MaxAttempts  uint
}

// Tracker waits for receipts. Only a missing receipt is retried; a transaction is
// never resubmitted.
type Tracker struct {
	source ReceiptSource
	cfg    TrackerConfig
	logger *zap.Logger
}

func NewTracker(source ReceiptSource, cfg TrackerConfig, logger *zap.Logger) *Tracker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 90
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{source: source, cfg: cfg, logger: logger}
}

// Wait blocks until tx is mined, the attempts run out or ctx ends, and settles tx.
func (t *Tracker) Wait(ctx context.Context, tx *Tx) (*types.Receipt, error) {
	if tx == nil {
		return nil, errors.New("transaction is nil")
	}
	if tx.Status() != model.TxPending {
		return tx.Receipt(), tx.Err()
	}

	receipt, err := retry.DoWithData(
		func() (*types.Receipt, error) {
			return t.source.TransactionReceipt(ctx, tx.Hash)
		},
		retry.Context(ctx),
		retry.Attempts(t.cfg.MaxAttempts),
		retry.Delay(t.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ethereum.NotFound)
		}),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Debug("waiting for receipt",
				zap.String("hash", tx.Hash.Hex()),
				zap.Uint("attempt", n+1),
				zap.Uint("max_attempts", t.cfg.MaxAttempts),
			)
		}),
	)
	if err != nil {
		err = fmt.Errorf("wait for %s: %w", tx.Hash.Hex(), err)
		tx.fail(nil, err)
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		tx.fail(receipt, ErrReverted)
		t.logger.Warn("transaction reverted",
			zap.String("method", tx.Method),
			zap.String("hash", tx.Hash.Hex()),
			zap.Uint64("block", receiptBlock(receipt)),
		)
		return receipt, ErrReverted
	}

	tx.confirm(receipt)
	t.logger.Info("transaction confirmed",
		zap.String("method", tx.Method),
		zap.String("hash", tx.Hash.Hex()),
		zap.Uint64("block", receiptBlock(receipt)),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}

func receiptBlock(receipt *types.Receipt) uint64 {
	if receipt == nil || receipt.BlockNumber == nil {
		return 0
	}
	return receipt.BlockNumber.Uint64()
}
