package model

// CitadelPool pairs a multi-LP pool with its collateral and synthetic tokens.
type CitadelPool struct {
	Address          string `json:"address"`
	CollateralToken  string `json:"collateral_token"`
	SyntheticToken   string `json:"synthetic_token"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	CollateralSymbol string `json:"collateral_symbol"`
}
