package contracts

import (
	"github.com/ethereum/go-ethereum/common"

	"citadelScope/internal/model"
)

// ZeroAddress stands in for the chain's native token.
var ZeroAddress = common.Address{}

func IsNativeToken(token common.Address) bool {
	return token == ZeroAddress
}

// TokenQueryEnabled reports whether ERC20 reads for token make sense. A nil user
// skips the account check, which is what metadata lookups need.
func TokenQueryEnabled(token *common.Address, user *common.Address, requireUser bool) bool {
	if token == nil || IsNativeToken(*token) {
		return false
	}
	if requireUser && user == nil {
		return false
	}
	return true
}

// FindPoolByTokens returns the pool trading tokenA against tokenB in either direction.
func FindPoolByTokens(pools []model.CitadelPool, tokenA, tokenB common.Address) (model.CitadelPool, bool) {
	for _, pool := range pools {
		collateral := common.HexToAddress(pool.CollateralToken)
		synthetic := common.HexToAddress(pool.SyntheticToken)
		if (collateral == tokenA && synthetic == tokenB) || (collateral == tokenB && synthetic == tokenA) {
			return pool, true
		}
	}
	return model.CitadelPool{}, false
}

// IsMintOperation reports whether swapping from -> to mints synthetic tokens.
func IsMintOperation(from, to common.Address, pool model.CitadelPool) bool {
	return from == common.HexToAddress(pool.CollateralToken) && to == common.HexToAddress(pool.SyntheticToken)
}

// IsRedeemOperation reports whether swapping from -> to redeems synthetic tokens.
func IsRedeemOperation(from, to common.Address, pool model.CitadelPool) bool {
	return from == common.HexToAddress(pool.SyntheticToken) && to == common.HexToAddress(pool.CollateralToken)
}
