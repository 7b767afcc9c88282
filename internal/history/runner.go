// Package history backfills vault snapshots at past blocks.
package history

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"citadelScope/internal/contracts"
	"citadelScope/internal/pools"
	"citadelScope/internal/snapshot"
	"citadelScope/internal/storage"
)

// RunConfig holds runtime settings for a backfill.
type RunConfig struct {
	ChainID    uint64
	FromBlock  uint64
	ToBlock    uint64
	Step       uint64
	Deployment contracts.Deployment
	Account    *common.Address
}

// Chain is the block lookup a backfill needs. *chain.Client satisfies it.
type Chain interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Runner reads the deployment at sampled blocks and writes a snapshot for
// every sample whose reads differ from the previous one.
type Runner struct {
	cfg        RunConfig
	reader     snapshot.ReadSource
	chain      Chain
	deriver    *pools.Deriver
	sinks      []storage.SnapshotSink
	checkpoint snapshot.StateStore
	logger     *zap.Logger
}

// NewRunner builds a Runner. checkpoint may be nil.
func NewRunner(cfg RunConfig, reader snapshot.ReadSource, chainClient Chain, deriver *pools.Deriver, sinks []storage.SnapshotSink, checkpoint snapshot.StateStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		reader:     reader,
		chain:      chainClient,
		deriver:    deriver,
		sinks:      sinks,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Run executes the backfill. A failed read is recorded in the snapshot's
// read error count, never retried.
func (r *Runner) Run(ctx context.Context) error {
	if r.reader == nil || r.chain == nil || r.deriver == nil {
		return fmt.Errorf("runner is missing a dependency")
	}
	if len(r.sinks) == 0 {
		return fmt.Errorf("at least one sink is required")
	}

	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}
	if r.cfg.FromBlock > to {
		r.logger.Info("nothing to backfill", zap.Uint64("from", r.cfg.FromBlock), zap.Uint64("to", to))
		return nil
	}

	blocks, err := SampleBlocks(r.cfg.FromBlock, to, r.cfg.Step)
	if err != nil {
		return err
	}

	var lastFingerprint string
	if r.checkpoint != nil {
		state, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if ok && state.Block >= r.cfg.FromBlock {
			blocks = after(blocks, state.Block)
			lastFingerprint = state.Fingerprint
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", state.Block), zap.Int("remaining", len(blocks)))
		}
	}

	written := 0
	for _, block := range blocks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		current, err := r.sample(ctx, block)
		if err != nil {
			return err
		}
		if current.Fingerprint != lastFingerprint {
			for _, sink := range r.sinks {
				if err := sink.PutSnapshotBatch(ctx, snapshot.Records(current)); err != nil {
					return fmt.Errorf("write snapshots at %d: %w", block, err)
				}
			}
			lastFingerprint = current.Fingerprint
			written++
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, snapshot.State{Block: block, Fingerprint: lastFingerprint}); err != nil {
				return fmt.Errorf("save checkpoint: %w", err)
			}
		}
		r.logger.Debug("sample complete",
			zap.Uint64("block", block),
			zap.String("fingerprint", current.Fingerprint),
			zap.Int("read_errors", current.ReadErrors),
		)
	}

	r.logger.Info("backfill complete", zap.Int("samples", len(blocks)), zap.Int("written", written), zap.Uint64("to", to))
	return nil
}

func (r *Runner) sample(ctx context.Context, block uint64) (snapshot.Current, error) {
	ts, err := r.chain.BlockTimestamp(ctx, block)
	if err != nil {
		return snapshot.Current{}, fmt.Errorf("block timestamp %d: %w", block, err)
	}

	set := r.reader.ReadAll(ctx, r.cfg.Deployment, r.cfg.Account, new(big.Int).SetUint64(block))
	if err := ctx.Err(); err != nil {
		return snapshot.Current{}, err
	}
	vaults, fp, _ := r.deriver.Derive(set)
	if n := set.Errors(); n > 0 {
		r.logger.Warn("sample has failed reads", zap.Uint64("block", block), zap.Int("read_errors", n))
	}

	return snapshot.Current{
		ChainID:     r.cfg.ChainID,
		Block:       block,
		Fingerprint: fp.Hex(),
		ReadErrors:  set.Errors(),
		ObservedAt:  time.Unix(int64(ts), 0).UTC(),
		Vaults:      vaults,
		Lending:     set.Lending.Value,
	}, nil
}
