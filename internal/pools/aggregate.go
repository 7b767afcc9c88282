package pools

import (
	"math/big"

	"go.uber.org/zap"

	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/metrics"
	"citadelScope/internal/model"
)

// Inputs is what one aggregation pass consumes.
type Inputs struct {
	Specs  []VaultSpec
	Reads  model.ReadSet
	Logger *zap.Logger
}

// BuildPoolVaults derives one PoolVault per spec, in spec order.
// A vault whose estimated APY is not positive shows its fallback APY instead
// and is marked with APYFallback.
func BuildPoolVaults(in Inputs) []model.PoolVault {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// a failed lending read leaves zero amounts here
	poolInterest := in.Reads.Lending.Value.PoolInterest
	totalCollateral := in.Reads.Lending.Value.CollateralDeposited

	out := make([]model.PoolVault, 0, len(in.Specs))
	for _, spec := range in.Specs {
		read := in.Reads.Vaults[spec.ID]
		info := NormalizeLPInfo(read.LPInfo.Value)

		apy := EstimateAPY(info, poolInterest, totalCollateral)
		fallback := false
		if !(apy > 0) {
			logger.Debug("apy fallback",
				zap.String("vault", spec.ID),
				zap.Float64("estimated", apy),
				zap.Float64("fallback", spec.FallbackAPY),
			)
			apy = spec.FallbackAPY
			fallback = true
			metrics.IncAPYFallback(spec.ID)
		}

		vault := model.PoolVault{
			ID:           spec.ID,
			Name:         spec.Name,
			BaseToken:    baseTokenSymbol,
			SynthToken:   synthTokenSymbol,
			BaseIcon:     baseTokenIcon,
			SynthIcon:    synthTokenIcon,
			TVL:          info.ActualCollateralAmount,
			APY:          apy,
			APYFallback:  fallback,
			RiskLevel:    spec.Risk,
			Description:  spec.Description,
			Address:      spec.Address.Hex(),
			LPInfo:       info,
			UserPosition: userPosition(read, info),
		}
		metrics.SetVaultFigures(spec.ID, vault.APY, vault.TVL)
		out = append(out, vault)
	}
	return out
}

// userPosition values the account's LP balance at the vault rate. It is nil when
// no account was read or the balance read failed; a failed rate read values it at 0.
func userPosition(read model.VaultRead, info model.LPInfo) *model.UserPosition {
	if read.LPBalance == nil || !read.LPBalance.OK() {
		return nil
	}
	balance := read.LPBalance.Value
	position := &model.UserPosition{
		Amount: fixedpoint.ToFloat(balance, fixedpoint.AmountDecimals),
		LPInfo: info,
	}
	if read.Rate.OK() && read.Rate.Value != nil && balance != nil {
		value := new(big.Int).Mul(balance, read.Rate.Value)
		value.Quo(value, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(fixedpoint.AmountDecimals)), nil))
		position.Value = fixedpoint.ToFloat(value, fixedpoint.AmountDecimals)
	}
	return position
}

// VaultFees attributes the lending read's pool interest to one vault.
func VaultFees(vault model.PoolVault, lending model.AccumulatedInterest) model.FeeBreakdown {
	return AttributeFees(vault.LPInfo, lending.PoolInterest.Float64())
}
