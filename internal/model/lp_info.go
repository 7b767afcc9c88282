package model

import "citadelScope/internal/fixedpoint"

// RawLPInfo is the vault's getLPInfo tuple as read from chain.
type RawLPInfo struct {
	ActualCollateralAmount fixedpoint.Amount18 `json:"actual_collateral_amount"`
	TokensCollateralized   fixedpoint.Amount18 `json:"tokens_collateralized"`
	OverCollateralization  fixedpoint.Ratio16  `json:"over_collateralization"`
	Capacity               fixedpoint.Amount18 `json:"capacity"`
	Utilization            fixedpoint.Ratio16  `json:"utilization"`
	Coverage               fixedpoint.Ratio16  `json:"coverage"`
	MintShares             fixedpoint.Amount18 `json:"mint_shares"`
	RedeemShares           fixedpoint.Amount18 `json:"redeem_shares"`
	InterestShares         fixedpoint.Amount18 `json:"interest_shares"`
	IsOvercollateralized   bool                `json:"is_overcollateralized"`
}

// LPData is either absent (read pending or failed) or a present RawLPInfo.
// A present struct whose fields are all zero is not the same as absent data.
type LPData struct {
	raw *RawLPInfo
}

func AbsentLPData() LPData {
	return LPData{}
}

func PresentLPData(raw RawLPInfo) LPData {
	return LPData{raw: &raw}
}

// Get returns the raw struct and whether it is present.
func (d LPData) Get() (RawLPInfo, bool) {
	if d.raw == nil {
		return RawLPInfo{}, false
	}
	return *d.raw, true
}

func (d LPData) Present() bool {
	return d.raw != nil
}

// LPInfo is the display form of a liquidity provider position.
// Ratio fields are percentages, share fields are fractions.
type LPInfo struct {
	ActualCollateralAmount float64 `json:"actual_collateral_amount"`
	TokensCollateralized   float64 `json:"tokens_collateralized"`
	OverCollateralization  float64 `json:"over_collateralization"`
	Capacity               float64 `json:"capacity"`
	Utilization            float64 `json:"utilization"`
	Coverage               float64 `json:"coverage"`
	MintShares             float64 `json:"mint_shares"`
	RedeemShares           float64 `json:"redeem_shares"`
	InterestShares         float64 `json:"interest_shares"`
	IsOvercollateralized   bool    `json:"is_overcollateralized"`
}
