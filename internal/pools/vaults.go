package pools

import (
	"github.com/ethereum/go-ethereum/common"

	"citadelScope/internal/contracts"
	"citadelScope/internal/model"
)

const (
	Vault1xID  = "vault-1x"
	Vault5xID  = "vault-5x"
	Vault20xID = "vault-20x"

	baseTokenSymbol  = "FDUSD"
	synthTokenSymbol = "cEUR"
	baseTokenIcon    = "💵"
	synthTokenIcon   = "🇪🇺"
)

// VaultSpec is the static description of one leveraged LP vault.
type VaultSpec struct {
	ID          string
	Name        string
	Risk        model.RiskLevel
	FallbackAPY float64
	Description string
	Address     common.Address
}

// DefaultVaults returns the 1x, 5x and 20x vaults in display order.
func DefaultVaults(vault1x, vault5x, vault20x common.Address) []VaultSpec {
	return []VaultSpec{
		{
			ID:          Vault1xID,
			Name:        "Citadel 1x Vault",
			Risk:        model.RiskLow,
			FallbackAPY: 8.5,
			Description: "Conservative 1x leverage vault for stable returns",
			Address:     vault1x,
		},
		{
			ID:          Vault5xID,
			Name:        "Citadel 5x Vault",
			Risk:        model.RiskMedium,
			FallbackAPY: 12.3,
			Description: "Moderate 5x leverage vault for balanced risk/reward",
			Address:     vault5x,
		},
		{
			ID:          Vault20xID,
			Name:        "Citadel 20x Vault",
			Risk:        model.RiskHigh,
			FallbackAPY: 15.7,
			Description: "High leverage 20x vault for maximum yield potential",
			Address:     vault20x,
		},
	}
}

// FindVault looks a spec up by id.
func FindVault(specs []VaultSpec, id string) (VaultSpec, bool) {
	for _, spec := range specs {
		if spec.ID == id {
			return spec, true
		}
	}
	return VaultSpec{}, false
}

// Deployment builds the read set layout for specs.
func Deployment(specs []VaultSpec, pool, lendingManager common.Address) contracts.Deployment {
	vaults := make(map[string]common.Address, len(specs))
	for _, spec := range specs {
		vaults[spec.ID] = spec.Address
	}
	return contracts.Deployment{
		Vaults:         vaults,
		Pool:           pool,
		LendingManager: lendingManager,
	}
}
