package history

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citadelScope/internal/contracts"
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
	"citadelScope/internal/pools"
	"citadelScope/internal/snapshot"
	"citadelScope/internal/storage"
)

// blockReads reports lending interest that steps up every 10 blocks.
type blockReads struct {
	blocks []uint64
	onRead func(block uint64)
}

func (b *blockReads) ReadAll(_ context.Context, dep contracts.Deployment, _ *common.Address, block *big.Int) model.ReadSet {
	b.blocks = append(b.blocks, block.Uint64())
	if b.onRead != nil {
		b.onRead(block.Uint64())
	}
	interest := new(big.Int).Mul(new(big.Int).Div(block, big.NewInt(10)), big.NewInt(1e18))
	set := model.ReadSet{Block: block.Uint64(), Vaults: make(map[string]model.VaultRead)}
	for id := range dep.Vaults {
		set.Vaults[id] = model.VaultRead{
			LPInfo: model.ReadResult[model.LPData]{Err: errors.New("execution reverted")},
			Rate:   model.ReadResult[*big.Int]{Value: big.NewInt(1e18)},
		}
	}
	set.Lending = model.ReadResult[model.AccumulatedInterest]{Value: model.AccumulatedInterest{
		PoolInterest: fixedpoint.NewAmount18(interest),
	}}
	return set
}

type fakeChain struct {
	head uint64
}

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number*3, nil
}

type memorySink struct {
	batches [][]model.PoolSnapshot
}

func (m *memorySink) PutSnapshotBatch(_ context.Context, snapshots []model.PoolSnapshot) error {
	m.batches = append(m.batches, snapshots)
	return nil
}

func newRunner(cfg RunConfig, reads *blockReads, sink *memorySink, checkpoint snapshot.StateStore) *Runner {
	specs := pools.DefaultVaults(
		common.HexToAddress("0x1000000000000000000000000000000000000001"),
		common.HexToAddress("0x5000000000000000000000000000000000000005"),
		common.HexToAddress("0x2000000000000000000000000000000000000020"),
	)
	cfg.ChainID = 97
	cfg.Deployment = pools.Deployment(specs, common.Address{}, common.Address{})
	return NewRunner(cfg, reads, &fakeChain{head: 130}, pools.NewDeriver(specs, nil), []storage.SnapshotSink{sink}, checkpoint, nil)
}

func TestRunWritesOnlyChangedSamples(t *testing.T) {
	reads := &blockReads{}
	sink := &memorySink{}
	runner := newRunner(RunConfig{FromBlock: 100, ToBlock: 125, Step: 5}, reads, sink, nil)

	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, []uint64{100, 105, 110, 115, 120, 125}, reads.blocks)
	require.Len(t, sink.batches, 3)
	first := sink.batches[0]
	require.Len(t, first, 3)
	assert.Equal(t, uint64(100), first[0].BlockNumber)
	assert.Equal(t, uint64(97), first[0].ChainID)
	assert.Equal(t, int64(1_700_000_300), first[0].ObservedAt.Unix())
	assert.Equal(t, 3, first[0].ReadErrors)
	assert.Equal(t, uint64(110), sink.batches[1][0].BlockNumber)
	assert.Equal(t, uint64(120), sink.batches[2][0].BlockNumber)
}

func TestRunDefaultsToChainHead(t *testing.T) {
	reads := &blockReads{}
	sink := &memorySink{}
	runner := newRunner(RunConfig{FromBlock: 120, Step: 10}, reads, sink, nil)

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []uint64{120, 130}, reads.blocks)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	checkpoint := &snapshot.FileStateStore{Path: filepath.Join(t.TempDir(), "history.json")}

	sink := &memorySink{}
	require.NoError(t, newRunner(RunConfig{FromBlock: 100, ToBlock: 110, Step: 5}, &blockReads{}, sink, checkpoint).Run(context.Background()))
	require.Len(t, sink.batches, 2)

	state, ok, err := checkpoint.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(110), state.Block)

	reads := &blockReads{}
	sink = &memorySink{}
	require.NoError(t, newRunner(RunConfig{FromBlock: 100, ToBlock: 120, Step: 5}, reads, sink, checkpoint).Run(context.Background()))
	assert.Equal(t, []uint64{115, 120}, reads.blocks)
	require.Len(t, sink.batches, 1)
	assert.Equal(t, uint64(120), sink.batches[0][0].BlockNumber)
}

func TestRunRequiresSink(t *testing.T) {
	specs := pools.DefaultVaults(common.Address{}, common.Address{}, common.Address{})
	runner := NewRunner(RunConfig{Step: 1}, &blockReads{}, &fakeChain{}, pools.NewDeriver(specs, nil), nil, nil, nil)
	assert.Error(t, runner.Run(context.Background()))
}

func TestRunNothingToDo(t *testing.T) {
	reads := &blockReads{}
	sink := &memorySink{}
	require.NoError(t, newRunner(RunConfig{FromBlock: 200, ToBlock: 150, Step: 5}, reads, sink, nil).Run(context.Background()))
	assert.Empty(t, reads.blocks)
	assert.Empty(t, sink.batches)
}

func TestRunStopsOnCancelledReads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reads := &blockReads{onRead: func(block uint64) {
		if block == 105 {
			cancel()
		}
	}}
	sink := &memorySink{}
	checkpoint := &snapshot.FileStateStore{Path: filepath.Join(t.TempDir(), "history.json")}

	err := newRunner(RunConfig{FromBlock: 100, ToBlock: 120, Step: 5}, reads, sink, checkpoint).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, sink.batches, 1)
	assert.Equal(t, uint64(100), sink.batches[0][0].BlockNumber)
	state, ok, err := checkpoint.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(100), state.Block)
}
