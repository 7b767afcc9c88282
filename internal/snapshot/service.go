// Package snapshot keeps the latest derived vault summaries current and
// persists them whenever the underlying reads change.
package snapshot

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"citadelScope/internal/contracts"
	"citadelScope/internal/metrics"
	"citadelScope/internal/model"
	"citadelScope/internal/pools"
	"citadelScope/internal/storage"
)

// ReadSource issues one cycle of contract reads. *contracts.Reader satisfies it.
type ReadSource interface {
	ReadAll(ctx context.Context, dep contracts.Deployment, account *common.Address, block *big.Int) model.ReadSet
}

// BlockSource reports the chain head. *chain.Client satisfies it.
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Current is the snapshot served to readers.
type Current struct {
	ChainID     uint64
	Block       uint64
	Fingerprint string
	ReadErrors  int
	ObservedAt  time.Time
	Vaults      []model.PoolVault
	Lending     model.AccumulatedInterest
	// Restored marks a snapshot loaded from storage rather than read from chain.
	// Its Lending is zero since lending reads are not persisted.
	Restored bool
}

// Vault returns the summary for id.
func (c Current) Vault(id string) (model.PoolVault, bool) {
	for _, vault := range c.Vaults {
		if vault.ID == id {
			return vault, true
		}
	}
	return model.PoolVault{}, false
}

type Config struct {
	ChainID    uint64
	Deployment contracts.Deployment
	Account    *common.Address
	Sinks      []storage.SnapshotSink
	StateStore StateStore
}

// Service refreshes the current snapshot from chain.
type Service struct {
	cfg     Config
	reader  ReadSource
	blocks  BlockSource
	deriver *pools.Deriver
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current Current
	ready   bool

	// persisted is only touched by Refresh, which the poller calls serially
	persisted   string
	stateLoaded bool
}

func NewService(cfg Config, reader ReadSource, blocks BlockSource, deriver *pools.Deriver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:     cfg,
		reader:  reader,
		blocks:  blocks,
		deriver: deriver,
		logger:  logger,
		now:     time.Now,
	}
}

// Current returns the latest snapshot and whether one has been taken.
func (s *Service) Current() (Current, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.ready
}

// Restore serves the newest persisted rows until the first Refresh completes.
// It does nothing once a snapshot has been taken or when rows is empty, and
// reports whether the rows were adopted.
func (s *Service) Restore(rows []model.PoolSnapshot) bool {
	if len(rows) == 0 {
		return false
	}

	byID := make(map[string]model.PoolSnapshot, len(rows))
	newest := rows[0]
	for _, row := range rows {
		byID[row.Vault.ID] = row
		if row.BlockNumber > newest.BlockNumber {
			newest = row
		}
	}

	current := Current{
		ChainID:     newest.ChainID,
		Block:       newest.BlockNumber,
		Fingerprint: newest.Fingerprint,
		ReadErrors:  newest.ReadErrors,
		ObservedAt:  newest.ObservedAt,
		Restored:    true,
	}
	for _, spec := range s.deriver.Specs() {
		if row, ok := byID[spec.ID]; ok {
			current.Vaults = append(current.Vaults, row.Vault)
		}
	}
	if len(current.Vaults) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return false
	}
	s.current = current
	s.ready = true
	s.logger.Info("serving restored snapshot",
		zap.Uint64("block", current.Block),
		zap.Int("vaults", len(current.Vaults)),
	)
	return true
}

// Start runs Refresh on a poller until ctx ends.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	poller := NewPoller(interval, metrics.RecordPollerDuration("snapshot", s.Refresh), s.logger)
	poller.Start(ctx)
}

// Refresh reads the deployment at the chain head, rederives the vaults and writes
// them to the sinks when the reads changed since the last write.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.loadState(ctx); err != nil {
		return err
	}

	head, err := s.blocks.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("latest block: %w", err)
	}

	set := s.reader.ReadAll(ctx, s.cfg.Deployment, s.cfg.Account, new(big.Int).SetUint64(head))
	// reads cut short by cancellation all fail; keep them out of the snapshot
	if err := ctx.Err(); err != nil {
		return err
	}
	vaults, fp, _ := s.deriver.Derive(set)

	current := Current{
		ChainID:     s.cfg.ChainID,
		Block:       head,
		Fingerprint: fp.Hex(),
		ReadErrors:  set.Errors(),
		ObservedAt:  s.now().UTC(),
		Vaults:      vaults,
		Lending:     set.Lending.Value,
	}
	s.mu.Lock()
	s.current = current
	s.ready = true
	s.mu.Unlock()

	if current.ReadErrors > 0 {
		s.logger.Warn("snapshot has failed reads", zap.Uint64("block", head), zap.Int("read_errors", current.ReadErrors))
	}

	if current.Fingerprint == s.persisted {
		return nil
	}

	if err := s.persist(ctx, current); err != nil {
		return err
	}
	s.logger.Info("snapshot updated",
		zap.Uint64("block", head),
		zap.String("fingerprint", current.Fingerprint),
		zap.Int("vaults", len(vaults)),
	)
	return nil
}

// Records flattens c into one persisted row per vault.
func Records(c Current) []model.PoolSnapshot {
	snapshots := make([]model.PoolSnapshot, 0, len(c.Vaults))
	for _, vault := range c.Vaults {
		snapshots = append(snapshots, model.PoolSnapshot{
			ChainID:     c.ChainID,
			BlockNumber: c.Block,
			Fingerprint: c.Fingerprint,
			ObservedAt:  c.ObservedAt,
			ReadErrors:  c.ReadErrors,
			Vault:       vault,
		})
	}
	return snapshots
}

func (s *Service) persist(ctx context.Context, current Current) error {
	snapshots := Records(current)
	for _, sink := range s.cfg.Sinks {
		if err := sink.PutSnapshotBatch(ctx, snapshots); err != nil {
			return fmt.Errorf("write snapshots: %w", err)
		}
	}

	if s.cfg.StateStore != nil {
		state := State{Block: current.Block, Fingerprint: current.Fingerprint}
		if err := s.cfg.StateStore.Save(ctx, state); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	s.persisted = current.Fingerprint
	return nil
}

func (s *Service) loadState(ctx context.Context) error {
	if s.stateLoaded || s.cfg.StateStore == nil {
		s.stateLoaded = true
		return nil
	}
	state, ok, err := s.cfg.StateStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if ok {
		s.persisted = state.Fingerprint
		s.logger.Info("resuming from snapshot state",
			zap.Uint64("block", state.Block),
			zap.String("fingerprint", state.Fingerprint),
		)
	}
	s.stateLoaded = true
	return nil
}
