package pools

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
)

func scaled(value float64, decimals int64) *big.Int {
	f := new(big.Float).SetFloat64(value)
	f.Mul(f, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)))
	out, _ := f.Int(nil)
	return out
}

func rawLPInfo(collateral, utilizationPct, interestShares float64) model.RawLPInfo {
	return model.RawLPInfo{
		ActualCollateralAmount: fixedpoint.NewAmount18(scaled(collateral, 18)),
		TokensCollateralized:   fixedpoint.NewAmount18(scaled(collateral/2, 18)),
		OverCollateralization:  fixedpoint.NewRatio16(scaled(150, 16)),
		Capacity:               fixedpoint.NewAmount18(scaled(collateral*2, 18)),
		Utilization:            fixedpoint.NewRatio16(scaled(utilizationPct, 16)),
		Coverage:               fixedpoint.NewRatio16(scaled(75, 16)),
		MintShares:             fixedpoint.NewAmount18(scaled(0.2, 18)),
		RedeemShares:           fixedpoint.NewAmount18(scaled(0.3, 18)),
		InterestShares:         fixedpoint.NewAmount18(scaled(interestShares, 18)),
		IsOvercollateralized:   true,
	}
}

func TestNormalizeAbsent(t *testing.T) {
	info := NormalizeLPInfo(model.AbsentLPData())
	assert.Equal(t, model.LPInfo{}, info)
	assert.False(t, info.IsOvercollateralized)
}

func TestNormalizePresent(t *testing.T) {
	info := NormalizeLPInfo(model.PresentLPData(rawLPInfo(1000, 50, 0.1)))
	assert.InDelta(t, 1000, info.ActualCollateralAmount, 1e-9)
	assert.InDelta(t, 150, info.OverCollateralization, 1e-9)
	assert.InDelta(t, 50, info.Utilization, 1e-9)
	assert.InDelta(t, 75, info.Coverage, 1e-9)
	assert.InDelta(t, 0.1, info.InterestShares, 1e-12)
	assert.True(t, info.IsOvercollateralized)
}

func TestNormalizeRatioIsPercent(t *testing.T) {
	raw := model.RawLPInfo{Utilization: fixedpoint.NewRatio16(big.NewInt(5e16))}
	info := NormalizeLPInfo(model.PresentLPData(raw))
	assert.Equal(t, 5.0, info.Utilization)
}

func TestNormalizePresentZeroFields(t *testing.T) {
	// nil fields inside a present struct read as zero
	info := NormalizeLPInfo(model.PresentLPData(model.RawLPInfo{IsOvercollateralized: true}))
	assert.Equal(t, 0.0, info.ActualCollateralAmount)
	assert.True(t, info.IsOvercollateralized)
	assert.False(t, math.IsNaN(info.Coverage))
}

func TestEstimateAPY(t *testing.T) {
	info := model.LPInfo{ActualCollateralAmount: 1000, InterestShares: 0.1, Utilization: 50}
	poolInterest := fixedpoint.NewAmount18(scaled(100, 18))

	apy := EstimateAPY(info, poolInterest, fixedpoint.NewAmount18(nil))
	assert.InDelta(t, 1.05, apy, 1e-9)
}

func TestEstimateAPYZeroCollateral(t *testing.T) {
	info := model.LPInfo{ActualCollateralAmount: 0, InterestShares: 0.9, Utilization: 100}
	apy := EstimateAPY(info, fixedpoint.NewAmount18(scaled(1e6, 18)), fixedpoint.NewAmount18(scaled(5, 18)))
	assert.Equal(t, 0.0, apy)
}

func TestAttributeFees(t *testing.T) {
	info := model.LPInfo{
		ActualCollateralAmount: 1000,
		InterestShares:         0.1,
		Utilization:            50,
		MintShares:             0.2,
		RedeemShares:           0.3,
	}
	fees := AttributeFees(info, 10)
	assert.InDelta(t, 1, fees.LendingInterest, 1e-12)
	assert.InDelta(t, 0.25, fees.MintFees, 1e-12)
	assert.InDelta(t, 0.25, fees.RedeemFees, 1e-12)
	assert.InDelta(t, 1.5, fees.Total, 1e-12)
	assert.InDelta(t, 10, fees.InterestSharePct, 1e-9)
	assert.InDelta(t, 20, fees.MintSharePct, 1e-9)
	assert.InDelta(t, 30, fees.RedeemSharePct, 1e-9)
}

func testSpecs() []VaultSpec {
	return DefaultVaults(
		common.HexToAddress("0x1000000000000000000000000000000000000001"),
		common.HexToAddress("0x5000000000000000000000000000000000000005"),
		common.HexToAddress("0x2000000000000000000000000000000000000020"),
	)
}

func lendingRead(poolInterest float64) model.ReadResult[model.AccumulatedInterest] {
	return model.ReadResult[model.AccumulatedInterest]{Value: model.AccumulatedInterest{
		PoolInterest:        fixedpoint.NewAmount18(scaled(poolInterest, 18)),
		CollateralDeposited: fixedpoint.NewAmount18(scaled(30000, 18)),
	}}
}

func TestBuildPoolVaultsFallbacks(t *testing.T) {
	set := model.ReadSet{
		Vaults: map[string]model.VaultRead{
			Vault1xID: {LPInfo: model.ReadResult[model.LPData]{Value: model.AbsentLPData(), Err: errors.New("reverted")}},
			Vault5xID: {LPInfo: model.ReadResult[model.LPData]{Value: model.PresentLPData(model.RawLPInfo{})}},
		},
		Lending: lendingRead(0),
	}

	vaults := BuildPoolVaults(Inputs{Specs: testSpecs(), Reads: set})
	require.Len(t, vaults, 3)

	assert.Equal(t, []string{Vault1xID, Vault5xID, Vault20xID}, []string{vaults[0].ID, vaults[1].ID, vaults[2].ID})
	assert.Equal(t, 8.5, vaults[0].APY)
	assert.Equal(t, 12.3, vaults[1].APY)
	assert.Equal(t, 15.7, vaults[2].APY)
	for _, vault := range vaults {
		assert.True(t, vault.APYFallback, vault.ID)
		assert.Equal(t, 0.0, vault.TVL)
		assert.Nil(t, vault.UserPosition)
	}
}

func TestBuildPoolVaultsComputed(t *testing.T) {
	set := model.ReadSet{
		Vaults: map[string]model.VaultRead{
			Vault1xID: {
				LPInfo: model.ReadResult[model.LPData]{Value: model.PresentLPData(rawLPInfo(1000, 50, 0.1))},
				Rate:   model.ReadResult[*big.Int]{Value: scaled(1.5, 18)},
				LPBalance: &model.ReadResult[*big.Int]{
					Value: scaled(10, 18),
				},
			},
		},
		Lending: lendingRead(100),
	}

	vaults := BuildPoolVaults(Inputs{Specs: testSpecs(), Reads: set})
	vault := vaults[0]

	assert.InDelta(t, 1.05, vault.APY, 1e-9)
	assert.False(t, vault.APYFallback)
	assert.InDelta(t, 1000, vault.TVL, 1e-9)
	assert.Equal(t, model.RiskLow, vault.RiskLevel)
	assert.Equal(t, "FDUSD", vault.BaseToken)
	assert.Equal(t, "cEUR", vault.SynthToken)
	assert.Equal(t, testSpecs()[0].Address.Hex(), vault.Address)

	require.NotNil(t, vault.UserPosition)
	assert.InDelta(t, 10, vault.UserPosition.Amount, 1e-9)
	assert.InDelta(t, 15, vault.UserPosition.Value, 1e-9)
	assert.Equal(t, vault.LPInfo, vault.UserPosition.LPInfo)

	fees := VaultFees(vault, set.Lending.Value)
	assert.InDelta(t, 10.5, fees.Total, 1e-9)
}

func TestUserPositionRateFailure(t *testing.T) {
	read := model.VaultRead{
		Rate:      model.ReadResult[*big.Int]{Err: errors.New("reverted")},
		LPBalance: &model.ReadResult[*big.Int]{Value: scaled(4, 18)},
	}
	position := userPosition(read, model.LPInfo{})
	require.NotNil(t, position)
	assert.InDelta(t, 4, position.Amount, 1e-9)
	assert.Equal(t, 0.0, position.Value)
}

func TestDeriverMemoizes(t *testing.T) {
	deriver := NewDeriver(testSpecs(), nil)
	set := model.ReadSet{
		Block: 10,
		Vaults: map[string]model.VaultRead{
			Vault1xID: {LPInfo: model.ReadResult[model.LPData]{Value: model.PresentLPData(rawLPInfo(1000, 50, 0.1))}},
		},
		Lending: lendingRead(100),
	}

	first, fp1, changed := deriver.Derive(set)
	require.True(t, changed)
	require.Len(t, first, 3)

	set.Block = 11
	second, fp2, changed := deriver.Derive(set)
	assert.False(t, changed)
	assert.Equal(t, fp1, fp2)
	assert.Equal(t, first, second)

	set.Lending = lendingRead(200)
	third, fp3, changed := deriver.Derive(set)
	assert.True(t, changed)
	assert.NotEqual(t, fp1, fp3)
	assert.Greater(t, third[0].APY, first[0].APY)
	assert.InDelta(t, 200, deriver.Lending().PoolInterest.Float64(), 1e-9)
}

func TestFingerprintDistinguishesAbsentFromZero(t *testing.T) {
	specs := testSpecs()
	absent := model.ReadSet{Vaults: map[string]model.VaultRead{
		Vault1xID: {LPInfo: model.ReadResult[model.LPData]{Value: model.AbsentLPData()}},
	}}
	zero := model.ReadSet{Vaults: map[string]model.VaultRead{
		Vault1xID: {LPInfo: model.ReadResult[model.LPData]{Value: model.PresentLPData(model.RawLPInfo{})}},
	}}
	assert.NotEqual(t, Fingerprint(specs, absent), Fingerprint(specs, zero))
}

func TestDeploymentAndFindVault(t *testing.T) {
	specs := testSpecs()
	pool := common.HexToAddress("0x9000000000000000000000000000000000000009")
	lending := common.HexToAddress("0x7000000000000000000000000000000000000007")

	dep := Deployment(specs, pool, lending)
	assert.Len(t, dep.Vaults, 3)
	assert.Equal(t, specs[2].Address, dep.Vaults[Vault20xID])
	assert.Equal(t, pool, dep.Pool)

	spec, ok := FindVault(specs, Vault5xID)
	require.True(t, ok)
	assert.Equal(t, 12.3, spec.FallbackAPY)
	_, ok = FindVault(specs, "vault-2x")
	assert.False(t, ok)
}
