package model

// RiskLevel classifies a vault's leverage tier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// PoolVault is a display-ready summary of one LP vault.
type PoolVault struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	BaseToken    string        `json:"base_token"`
	SynthToken   string        `json:"synth_token"`
	BaseIcon     string        `json:"base_icon"`
	SynthIcon    string        `json:"synth_icon"`
	TVL          float64       `json:"tvl"`
	APY          float64       `json:"apy"`
	APYFallback  bool          `json:"apy_fallback"`
	RiskLevel    RiskLevel     `json:"risk_level"`
	Description  string        `json:"description"`
	Address      string        `json:"address"`
	LPInfo       LPInfo        `json:"lp_info"`
	UserPosition *UserPosition `json:"user_position,omitempty"`
}

// UserPosition is the connected account's stake in a vault.
type UserPosition struct {
	Amount float64 `json:"amount"`
	Value  float64 `json:"value"`
	LPInfo LPInfo  `json:"lp_info"`
}

// FeeBreakdown splits estimated LP earnings by source.
type FeeBreakdown struct {
	LendingInterest  float64 `json:"lending_interest"`
	MintFees         float64 `json:"mint_fees"`
	RedeemFees       float64 `json:"redeem_fees"`
	Total            float64 `json:"total"`
	InterestSharePct float64 `json:"interest_share_pct"`
	MintSharePct     float64 `json:"mint_share_pct"`
	RedeemSharePct   float64 `json:"redeem_share_pct"`
}
