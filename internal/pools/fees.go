package pools

import "citadelScope/internal/model"

// Mint and redeem fee rates used for attribution. These differ from the yield
// estimator's rate and are kept separate.
const (
	mintFeeRate   = 0.0005
	redeemFeeRate = 0.0005
)

// AttributeFees splits an LP's estimated earnings into lending interest and
// mint/redeem fees. poolInterest is already in display units.
func AttributeFees(info model.LPInfo, poolInterest float64) model.FeeBreakdown {
	utilized := info.ActualCollateralAmount * (info.Utilization / 100)
	lending := poolInterest * info.InterestShares
	mint := utilized * mintFeeRate
	redeem := utilized * redeemFeeRate
	return model.FeeBreakdown{
		LendingInterest:  lending,
		MintFees:         mint,
		RedeemFees:       redeem,
		Total:            lending + mint + redeem,
		InterestSharePct: info.InterestShares * 100,
		MintSharePct:     info.MintShares * 100,
		RedeemSharePct:   info.RedeemShares * 100,
	}
}
