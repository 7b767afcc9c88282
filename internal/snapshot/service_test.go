package snapshot

import (
	"context"
	"math/big"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citadelScope/internal/contracts"
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
	"citadelScope/internal/pools"
	"citadelScope/internal/storage"
)

type fakeReads struct {
	mu      sync.Mutex
	lending *big.Int
}

func (f *fakeReads) setLending(v int64) {
	f.mu.Lock()
	f.lending = new(big.Int).Mul(big.NewInt(v), big.NewInt(1e18))
	f.mu.Unlock()
}

func (f *fakeReads) ReadAll(_ context.Context, dep contracts.Deployment, _ *common.Address, block *big.Int) model.ReadSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	collateral := new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))
	set := model.ReadSet{Block: block.Uint64(), Vaults: make(map[string]model.VaultRead)}
	for id := range dep.Vaults {
		set.Vaults[id] = model.VaultRead{
			LPInfo: model.ReadResult[model.LPData]{Value: model.PresentLPData(model.RawLPInfo{
				ActualCollateralAmount: fixedpoint.NewAmount18(collateral),
				Utilization:            fixedpoint.NewRatio16(big.NewInt(50e16)),
				InterestShares:         fixedpoint.NewAmount18(big.NewInt(1e17)),
			})},
			Rate: model.ReadResult[*big.Int]{Value: big.NewInt(1e18)},
		}
	}
	set.Lending = model.ReadResult[model.AccumulatedInterest]{Value: model.AccumulatedInterest{
		PoolInterest: fixedpoint.NewAmount18(f.lending),
	}}
	return set
}

type fakeBlocks struct {
	head atomic.Uint64
}

func (f *fakeBlocks) LatestBlockNumber(context.Context) (uint64, error) {
	return f.head.Add(1), nil
}

type memorySink struct {
	batches [][]model.PoolSnapshot
}

func (m *memorySink) PutSnapshotBatch(_ context.Context, snapshots []model.PoolSnapshot) error {
	m.batches = append(m.batches, snapshots)
	return nil
}

func newTestService(reads *fakeReads, sink *memorySink, state StateStore) *Service {
	specs := pools.DefaultVaults(
		common.HexToAddress("0x1000000000000000000000000000000000000001"),
		common.HexToAddress("0x5000000000000000000000000000000000000005"),
		common.HexToAddress("0x2000000000000000000000000000000000000020"),
	)
	cfg := Config{
		ChainID:    97,
		Deployment: pools.Deployment(specs, common.Address{}, common.Address{}),
		Sinks:      []storage.SnapshotSink{sink},
		StateStore: state,
	}
	return NewService(cfg, reads, &fakeBlocks{}, pools.NewDeriver(specs, nil), nil)
}

func TestRefreshWritesOnlyOnChange(t *testing.T) {
	reads := &fakeReads{}
	reads.setLending(100)
	sink := &memorySink{}
	svc := newTestService(reads, sink, nil)

	_, ok := svc.Current()
	assert.False(t, ok)

	require.NoError(t, svc.Refresh(context.Background()))
	require.NoError(t, svc.Refresh(context.Background()))

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(2), current.Block)
	assert.Equal(t, uint64(97), current.ChainID)
	require.Len(t, current.Vaults, 3)
	assert.InDelta(t, 1.05, current.Vaults[0].APY, 1e-9)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
	assert.Equal(t, uint64(1), sink.batches[0][0].BlockNumber)

	reads.setLending(200)
	require.NoError(t, svc.Refresh(context.Background()))
	require.Len(t, sink.batches, 2)
	assert.Equal(t, uint64(3), sink.batches[1][0].BlockNumber)

	vault, ok := current.Vault(pools.Vault20xID)
	require.True(t, ok)
	assert.Equal(t, model.RiskHigh, vault.RiskLevel)
	_, ok = current.Vault("missing")
	assert.False(t, ok)
}

func TestRefreshResumesFromState(t *testing.T) {
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	reads := &fakeReads{}
	reads.setLending(100)

	first := &memorySink{}
	require.NoError(t, newTestService(reads, first, state).Refresh(context.Background()))
	require.Len(t, first.batches, 1)

	saved, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), saved.Block)

	second := &memorySink{}
	svc := newTestService(reads, second, state)
	require.NoError(t, svc.Refresh(context.Background()))
	assert.Empty(t, second.batches)

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, saved.Fingerprint, current.Fingerprint)
}

func TestFileStateStoreMissing(t *testing.T) {
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "nested", "state.json")}
	_, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, state.Save(context.Background(), State{Block: 9, Fingerprint: "0xab"}))
	got, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, State{Block: 9, Fingerprint: "0xab"}, got)
}

func TestPollerRunsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	poller := NewPoller(5*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return nil
	}, nil)

	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

// cancellingReads cancels the refresh while its reads are in flight.
type cancellingReads struct {
	cancel context.CancelFunc
}

func (c *cancellingReads) ReadAll(ctx context.Context, dep contracts.Deployment, account *common.Address, block *big.Int) model.ReadSet {
	c.cancel()
	set := model.ReadSet{Block: block.Uint64(), Vaults: make(map[string]model.VaultRead)}
	for id := range dep.Vaults {
		set.Vaults[id] = model.VaultRead{
			LPInfo: model.ReadResult[model.LPData]{Value: model.AbsentLPData(), Err: ctx.Err()},
			Rate:   model.ReadResult[*big.Int]{Err: ctx.Err()},
		}
	}
	set.Lending = model.ReadResult[model.AccumulatedInterest]{Err: ctx.Err()}
	return set
}

func TestRefreshDropsCancelledReads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reads := &cancellingReads{cancel: cancel}
	sink := &memorySink{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	svc := newTestService(&fakeReads{}, sink, state)
	svc.reader = reads

	err := svc.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Empty(t, sink.batches)
	_, saved, err := state.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestRestoreServesPersistedRows(t *testing.T) {
	reads := &fakeReads{}
	reads.setLending(100)
	svc := newTestService(reads, &memorySink{}, nil)

	assert.False(t, svc.Restore(nil))

	observed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rows := []model.PoolSnapshot{
		{ChainID: 97, BlockNumber: 90, Fingerprint: "0xold", Vault: model.PoolVault{ID: pools.Vault20xID}},
		{ChainID: 97, BlockNumber: 95, Fingerprint: "0xnew", ReadErrors: 1, ObservedAt: observed, Vault: model.PoolVault{ID: pools.Vault1xID, APY: 8.5}},
		{ChainID: 97, BlockNumber: 95, Fingerprint: "0xnew", Vault: model.PoolVault{ID: "vault-retired"}},
	}
	require.True(t, svc.Restore(rows))

	current, ok := svc.Current()
	require.True(t, ok)
	assert.True(t, current.Restored)
	assert.Equal(t, uint64(95), current.Block)
	assert.Equal(t, "0xnew", current.Fingerprint)
	assert.Equal(t, observed, current.ObservedAt)
	require.Len(t, current.Vaults, 2)
	assert.Equal(t, pools.Vault1xID, current.Vaults[0].ID)
	assert.Equal(t, pools.Vault20xID, current.Vaults[1].ID)

	require.NoError(t, svc.Refresh(context.Background()))
	current, _ = svc.Current()
	assert.False(t, current.Restored)
	require.Len(t, current.Vaults, 3)

	assert.False(t, svc.Restore(rows), "a live snapshot is never replaced")
}
