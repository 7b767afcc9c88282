package model

import (
	"math/big"

	"citadelScope/internal/fixedpoint"
)

// AccumulatedInterest is the lending manager's getAccumulatedInterest result for a pool.
type AccumulatedInterest struct {
	PoolInterest        fixedpoint.Amount18 `json:"pool_interest"`
	CommissionInterest  fixedpoint.Amount18 `json:"commission_interest"`
	BuybackInterest     fixedpoint.Amount18 `json:"buyback_interest"`
	CollateralDeposited fixedpoint.Amount18 `json:"collateral_deposited"`
}

// PoolTotals is the pool's totalCollateralAmount and totalSyntheticTokens.
type PoolTotals struct {
	UsersCollateral      *big.Int `json:"users_collateral"`
	LPsCollateral        *big.Int `json:"lps_collateral"`
	TotalCollateral      *big.Int `json:"total_collateral"`
	TotalSyntheticTokens *big.Int `json:"total_synthetic_tokens"`
}

// TradeInfo is a mint or redeem quote from the pool.
type TradeInfo struct {
	AmountReceived *big.Int `json:"amount_received"`
	FeePaid        *big.Int `json:"fee_paid"`
}
