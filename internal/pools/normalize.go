// Package pools turns raw vault and lending reads into display-ready vault summaries.
package pools

import (
	"citadelScope/internal/model"
)

// NormalizeLPInfo converts a getLPInfo read into display units.
// Absent data maps to a zero LPInfo.
func NormalizeLPInfo(data model.LPData) model.LPInfo {
	raw, ok := data.Get()
	if !ok {
		return model.LPInfo{}
	}
	return model.LPInfo{
		ActualCollateralAmount: raw.ActualCollateralAmount.Float64(),
		TokensCollateralized:   raw.TokensCollateralized.Float64(),
		OverCollateralization:  raw.OverCollateralization.Percent(),
		Capacity:               raw.Capacity.Float64(),
		Utilization:            raw.Utilization.Percent(),
		Coverage:               raw.Coverage.Percent(),
		MintShares:             raw.MintShares.Float64(),
		RedeemShares:           raw.RedeemShares.Float64(),
		InterestShares:         raw.InterestShares.Float64(),
		IsOvercollateralized:   raw.IsOvercollateralized,
	}
}
