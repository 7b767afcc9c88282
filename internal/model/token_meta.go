package model

// DefaultDecimals is assumed when a token's decimals cannot be read.
const DefaultDecimals uint8 = 18

// Token captures ERC20 metadata.
type Token struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logo_uri,omitempty"`
}
