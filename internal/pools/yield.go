package pools

import (
	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
)

// tradingFeeYieldRate approximates the fee income per unit of utilized collateral.
const tradingFeeYieldRate = 0.001

// EstimateAPY returns the annualized yield percentage for an LP position:
// its share of pool lending interest plus a trading fee estimate, over its collateral.
// totalCollateral is currently unused.
func EstimateAPY(info model.LPInfo, poolInterest fixedpoint.Amount18, totalCollateral fixedpoint.Amount18) float64 {
	_ = totalCollateral
	if info.ActualCollateralAmount == 0 {
		return 0
	}
	interestShare := poolInterest.Float64() * info.InterestShares
	tradingFees := info.ActualCollateralAmount * (info.Utilization / 100) * tradingFeeYieldRate
	earnings := interestShare + tradingFees
	return earnings / info.ActualCollateralAmount * 100
}
