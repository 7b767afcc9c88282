package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
)

type callKey struct {
	to       common.Address
	selector string
}

type fakeCaller struct {
	mu        sync.Mutex
	responses map[callKey][]byte
	failures  map[callKey]error
	calls     int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: make(map[callKey][]byte),
		failures:  make(map[callKey]error),
	}
}

func (f *fakeCaller) respond(t *testing.T, to common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	data, err := parsed.Methods[method].Outputs.Pack(outputs...)
	require.NoError(t, err, "pack %s outputs", method)
	f.responses[callKey{to: to, selector: string(parsed.Methods[method].ID)}] = data
}

func (f *fakeCaller) fail(to common.Address, parsed abi.ABI, method string, err error) {
	f.failures[callKey{to: to, selector: string(parsed.Methods[method].ID)}] = err
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	key := callKey{to: *msg.To, selector: string(msg.Data[:4])}
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	if data, ok := f.responses[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no response for %s %x", msg.To.Hex(), msg.Data[:4])
}

func e18(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func e16(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
}

var (
	vault1x = common.HexToAddress("0x1111111111111111111111111111111111111111")
	vault5x = common.HexToAddress("0x5555555555555555555555555555555555555555")
	pool    = common.HexToAddress("0x9999999999999999999999999999999999999999")
	lending = common.HexToAddress("0x7777777777777777777777777777777777777777")
	user    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func respondLPInfo(t *testing.T, f *fakeCaller, vault common.Address) {
	t.Helper()
	vaultABI, err := VaultABI()
	require.NoError(t, err)
	f.respond(t, vault, vaultABI, "getLPInfo",
		e18(1000), e18(800), e16(125), e18(5000), e16(50), e16(80),
		big.NewInt(1e17), big.NewInt(2e17), big.NewInt(1e17), true)
}

func TestVaultLPInfo(t *testing.T) {
	f := newFakeCaller()
	respondLPInfo(t, f, vault1x)
	reader := NewReader(f, zap.NewNop())

	data, err := reader.VaultLPInfo(context.Background(), vault1x, nil)
	require.NoError(t, err)

	raw, ok := data.Get()
	require.True(t, ok)
	assert.Equal(t, 1000.0, raw.ActualCollateralAmount.Float64())
	assert.Equal(t, 800.0, raw.TokensCollateralized.Float64())
	assert.Equal(t, 125.0, raw.OverCollateralization.Percent())
	assert.Equal(t, 50.0, raw.Utilization.Percent())
	assert.Equal(t, 80.0, raw.Coverage.Percent())
	assert.InDelta(t, 0.1, raw.InterestShares.Float64(), 1e-12)
	assert.InDelta(t, 0.2, raw.RedeemShares.Float64(), 1e-12)
	assert.True(t, raw.IsOvercollateralized)
}

func TestVaultLPInfoFailureIsAbsent(t *testing.T) {
	f := newFakeCaller()
	vaultABI, err := VaultABI()
	require.NoError(t, err)
	f.fail(vault1x, vaultABI, "getLPInfo", errors.New("execution reverted"))

	data, err := NewReader(f, nil).VaultLPInfo(context.Background(), vault1x, nil)
	require.Error(t, err)
	assert.False(t, data.Present())
}

func TestAccumulatedInterest(t *testing.T) {
	f := newFakeCaller()
	lendingABI, err := LendingManagerABI()
	require.NoError(t, err)
	f.respond(t, lending, lendingABI, "getAccumulatedInterest", e18(100), e18(5), e18(3), e18(20000))

	got, err := NewReader(f, nil).AccumulatedInterest(context.Background(), lending, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.PoolInterest.Float64())
	assert.Equal(t, 20000.0, got.CollateralDeposited.Float64())
}

func TestTradeInfoAndTotals(t *testing.T) {
	f := newFakeCaller()
	poolABI, err := PoolABI()
	require.NoError(t, err)
	f.respond(t, pool, poolABI, "getMintTradeInfo", e18(91), e18(1))
	f.respond(t, pool, poolABI, "totalCollateralAmount", e18(10), e18(20), e18(30))
	f.respond(t, pool, poolABI, "totalSyntheticTokens", e18(25))

	reader := NewReader(f, nil)
	quote, err := reader.MintTradeInfo(context.Background(), pool, e18(100))
	require.NoError(t, err)
	assert.Equal(t, e18(91), quote.AmountReceived)
	assert.Equal(t, e18(1), quote.FeePaid)

	totals, err := reader.PoolTotals(context.Background(), pool, nil)
	require.NoError(t, err)
	assert.Equal(t, e18(30), totals.TotalCollateral)
	assert.Equal(t, e18(25), totals.TotalSyntheticTokens)
}

func TestTokenMetaCached(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	f := newFakeCaller()
	stringABI, err := ERC20ABI()
	require.NoError(t, err)

	f.respond(t, token, stringABI, "decimals", uint8(6))
	f.fail(token, stringABI, "symbol", errors.New("abi mismatch"))
	f.respond(t, token, stringABI, "name", "First Digital USD")

	reader := NewReader(f, nil)
	meta, err := reader.TokenMeta(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, "First Digital USD", meta.Name)
	assert.Empty(t, meta.Symbol)

	calls := f.calls
	_, err = reader.TokenMeta(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, calls, f.calls, "second lookup should hit the cache")
}

func TestBytes32ToString(t *testing.T) {
	var symbol [32]byte
	copy(symbol[:], "FDUSD")
	got, ok := bytes32ToString(symbol)
	assert.True(t, ok)
	assert.Equal(t, "FDUSD", got)

	_, ok = bytes32ToString("FDUSD")
	assert.False(t, ok)
}

func TestTokenMetaDecimalsDefault(t *testing.T) {
	token := common.HexToAddress("0x4444444444444444444444444444444444444444")
	f := newFakeCaller()

	meta, err := FetchTokenMeta(context.Background(), f, token, nil)
	require.Error(t, err)
	assert.Equal(t, uint8(18), meta.Decimals)
}

func TestReadAllIsolatesFailures(t *testing.T) {
	f := newFakeCaller()
	vaultABI, err := VaultABI()
	require.NoError(t, err)
	lendingABI, err := LendingManagerABI()
	require.NoError(t, err)
	erc20, err := ERC20ABI()
	require.NoError(t, err)

	respondLPInfo(t, f, vault1x)
	f.respond(t, vault1x, vaultABI, "getRate", e18(1))
	f.respond(t, vault1x, erc20, "balanceOf", e18(3))
	f.fail(vault5x, vaultABI, "getLPInfo", errors.New("execution reverted"))
	f.respond(t, vault5x, vaultABI, "getRate", e18(2))
	f.respond(t, vault5x, erc20, "balanceOf", e18(0))
	f.respond(t, lending, lendingABI, "getAccumulatedInterest", e18(100), e18(0), e18(0), e18(0))

	dep := Deployment{
		Vaults:         map[string]common.Address{"vault-1x": vault1x, "vault-5x": vault5x},
		Pool:           pool,
		LendingManager: lending,
	}
	account := user
	set := NewReader(f, nil).ReadAll(context.Background(), dep, &account, big.NewInt(42))

	assert.Equal(t, uint64(42), set.Block)
	require.Len(t, set.Vaults, 2)
	assert.True(t, set.Vaults["vault-1x"].LPInfo.OK())
	assert.True(t, set.Vaults["vault-1x"].LPInfo.Value.Present())
	assert.False(t, set.Vaults["vault-5x"].LPInfo.OK())
	assert.False(t, set.Vaults["vault-5x"].LPInfo.Value.Present())
	assert.True(t, set.Vaults["vault-5x"].Rate.OK())
	require.NotNil(t, set.Vaults["vault-1x"].LPBalance)
	assert.Equal(t, e18(3), set.Vaults["vault-1x"].LPBalance.Value)
	assert.True(t, set.Lending.OK())
	assert.Equal(t, 1, set.Errors())
}

func TestFindPoolByTokens(t *testing.T) {
	collateral := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	synthetic := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pools := []model.CitadelPool{{
		Address:         pool.Hex(),
		CollateralToken: collateral.Hex(),
		SyntheticToken:  synthetic.Hex(),
	}}

	found, ok := FindPoolByTokens(pools, synthetic, collateral)
	require.True(t, ok)
	assert.Equal(t, pool.Hex(), found.Address)

	_, ok = FindPoolByTokens(pools, collateral, user)
	assert.False(t, ok)

	assert.True(t, IsMintOperation(collateral, synthetic, found))
	assert.False(t, IsMintOperation(synthetic, collateral, found))
	assert.True(t, IsRedeemOperation(synthetic, collateral, found))

	assert.True(t, IsNativeToken(ZeroAddress))
	assert.False(t, TokenQueryEnabled(&ZeroAddress, &user, true))
	assert.False(t, TokenQueryEnabled(&collateral, nil, true))
	assert.True(t, TokenQueryEnabled(&collateral, nil, false))
}

func TestResolveTokenUsesOnChainDecimals(t *testing.T) {
	token := common.HexToAddress("0x6666666666666666666666666666666666666666")
	f := newFakeCaller()
	stringABI, err := ERC20ABI()
	require.NoError(t, err)
	bytes32ABI, err := erc20ABIBytes32Instance()
	require.NoError(t, err)

	f.respond(t, token, stringABI, "decimals", uint8(6))
	f.fail(token, stringABI, "symbol", errors.New("abi mismatch"))
	f.fail(token, bytes32ABI, "symbol", errors.New("abi mismatch"))
	f.respond(t, token, stringABI, "name", "Bridged USD")

	known := []model.Token{{Address: token.Hex(), Symbol: "FDUSD", Name: "First Digital USD", Decimals: 18}}
	resolved := NewReader(f, nil).ResolveToken(context.Background(), token, known)
	assert.Equal(t, uint8(6), resolved.Decimals)
	assert.Equal(t, "FDUSD", resolved.Symbol)
	assert.Equal(t, "Bridged USD", resolved.Name)

	amount, err := fixedpoint.ParseUnits("1.5", resolved.Decimals)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), amount)
	assert.Equal(t, "1.5", fixedpoint.FormatTokenAmount(amount, resolved.Decimals, fixedpoint.DefaultTokenPrecision))
}

func TestResolveTokenFallsBackToKnown(t *testing.T) {
	token := common.HexToAddress("0x6666666666666666666666666666666666666666")
	reader := NewReader(newFakeCaller(), nil)

	known := []model.Token{{Address: token.Hex(), Symbol: "cEUR", Decimals: 18}}
	resolved := reader.ResolveToken(context.Background(), token, known)
	assert.Equal(t, "cEUR", resolved.Symbol)
	assert.Equal(t, uint8(18), resolved.Decimals)

	unknown := reader.ResolveToken(context.Background(), common.HexToAddress("0x8888888888888888888888888888888888888888"), known)
	assert.Empty(t, unknown.Symbol)
	assert.Equal(t, model.DefaultDecimals, unknown.Decimals)
}

func TestCheckPoolAssets(t *testing.T) {
	collateral := common.HexToAddress("0xf000000000000000000000000000000000000000")
	synthetic := common.HexToAddress("0x0B5e46027B856E6109E9817C37ddaB1796331E56")
	f := newFakeCaller()
	poolABI, err := PoolABI()
	require.NoError(t, err)
	f.respond(t, pool, poolABI, "collateralAsset", collateral)
	f.respond(t, pool, poolABI, "syntheticAsset", synthetic)
	reader := NewReader(f, nil)

	require.NoError(t, reader.CheckPoolAssets(context.Background(), pool, collateral, synthetic))

	err = reader.CheckPoolAssets(context.Background(), pool, user, synthetic)
	require.ErrorIs(t, err, ErrPoolAssetMismatch)
	assert.ErrorContains(t, err, "collateral")

	err = reader.CheckPoolAssets(context.Background(), pool, collateral, user)
	require.ErrorIs(t, err, ErrPoolAssetMismatch)
	assert.ErrorContains(t, err, "synthetic")

	err = reader.CheckPoolAssets(context.Background(), vault1x, collateral, synthetic)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPoolAssetMismatch)
}

func TestFeePercentage(t *testing.T) {
	f := newFakeCaller()
	poolABI, err := PoolABI()
	require.NoError(t, err)
	f.respond(t, pool, poolABI, "feePercentage", big.NewInt(2e15))

	fee, err := NewReader(f, nil).FeePercentage(context.Background(), pool)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2e15), fee)
	assert.InDelta(t, 0.2, fixedpoint.NewRatio16(fee).Percent(), 1e-12)
}
