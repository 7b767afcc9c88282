package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"citadelScope/internal/model"
)

// DefaultSyntheticToken is the cEUR token used when the network file has no entry for it.
var DefaultSyntheticToken = common.HexToAddress("0x0B5e46027B856E6109E9817C37ddaB1796331E56")

// Network is the deployed contract set. It is loaded once and not modified.
type Network struct {
	Vault1x        common.Address
	Vault5x        common.Address
	Vault20x       common.Address
	Pool           common.Address
	LendingManager common.Address
	Collateral     common.Address
	Synthetic      common.Address
}

// LoadNetwork reads a network file of the form {"contracts": {"vault1x": {"address": "0x.."}, ...}}.
func LoadNetwork(path string) (Network, error) {
	if strings.TrimSpace(path) == "" {
		return Network{}, fmt.Errorf("network file is required")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Network{}, fmt.Errorf("read network file: %w", err)
	}

	var (
		net  Network
		errs []string
	)
	required := []struct {
		key string
		dst *common.Address
	}{
		{"vault1x", &net.Vault1x},
		{"vault5x", &net.Vault5x},
		{"vault20x", &net.Vault20x},
		{"pool", &net.Pool},
		{"lendingManager", &net.LendingManager},
		{"collateral", &net.Collateral},
	}
	for _, entry := range required {
		addr, err := ParseAddress(entry.key, v.GetString(contractKey(entry.key)))
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		*entry.dst = addr
	}

	net.Synthetic = DefaultSyntheticToken
	if raw := v.GetString(contractKey("syntheticToken")); raw != "" {
		addr, err := ParseAddress("syntheticToken", raw)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			net.Synthetic = addr
		}
	}

	if len(errs) > 0 {
		return Network{}, fmt.Errorf("network file %s: %s", path, strings.Join(errs, "; "))
	}
	return net, nil
}

// viper lowercases keys
func contractKey(name string) string {
	return "contracts." + strings.ToLower(name) + ".address"
}

// Tokens lists the collateral and synthetic tokens of the deployment.
func (n Network) Tokens() []model.Token {
	return []model.Token{
		{
			Address:  n.Collateral.Hex(),
			Name:     "First Digital USD",
			Symbol:   "FDUSD",
			Decimals: model.DefaultDecimals,
		},
		{
			Address:  n.Synthetic.Hex(),
			Name:     "Citadel EUR",
			Symbol:   "cEUR",
			Decimals: model.DefaultDecimals,
		},
	}
}

// Pools lists the deployment's multi-LP pools.
func (n Network) Pools() []model.CitadelPool {
	return []model.CitadelPool{{
		Address:          n.Pool.Hex(),
		CollateralToken:  n.Collateral.Hex(),
		SyntheticToken:   n.Synthetic.Hex(),
		Name:             "Citadel EUR Pool",
		Symbol:           "cEUR",
		CollateralSymbol: "FDUSD",
	}}
}

// ParseAddress validates a hex address; field names the value in errors.
func ParseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s: missing address", field)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%s: invalid address: %s", field, input)
	}
	return common.HexToAddress(input), nil
}

// ParseOptionalAddress is ParseAddress for values that may be empty.
func ParseOptionalAddress(field, input string) (*common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	addr, err := ParseAddress(field, input)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
