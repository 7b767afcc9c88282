package contracts

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// getLPInfo returns a static struct, which encodes the same as the flat outputs below.
const vaultABIJSON = `[
  {
    "inputs": [],
    "name": "getLPInfo",
    "outputs": [
      {"internalType": "uint256", "name": "actualCollateralAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "tokensCollateralized", "type": "uint256"},
      {"internalType": "uint256", "name": "overCollateralization", "type": "uint256"},
      {"internalType": "uint256", "name": "capacity", "type": "uint256"},
      {"internalType": "uint256", "name": "utilization", "type": "uint256"},
      {"internalType": "uint256", "name": "coverage", "type": "uint256"},
      {"internalType": "uint256", "name": "mintShares", "type": "uint256"},
      {"internalType": "uint256", "name": "redeemShares", "type": "uint256"},
      {"internalType": "uint256", "name": "interestShares", "type": "uint256"},
      {"internalType": "bool", "name": "isOvercollateralized", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "asset",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "account", "type": "address"}],
    "name": "balanceOf",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "amount", "type": "uint256"},
      {"internalType": "address", "name": "receiver", "type": "address"}
    ],
    "name": "deposit",
    "outputs": [{"internalType": "uint256", "name": "shares", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "lpAmount", "type": "uint256"},
      {"internalType": "address", "name": "receiver", "type": "address"}
    ],
    "name": "withdraw",
    "outputs": [{"internalType": "uint256", "name": "assets", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const poolABIJSON = `[
  {
    "inputs": [{"name": "_collateralAmount", "type": "uint256"}],
    "name": "getMintTradeInfo",
    "outputs": [
      {"name": "synthTokensReceived", "type": "uint256"},
      {"name": "feePaid", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "_syntTokensAmount", "type": "uint256"}],
    "name": "getRedeemTradeInfo",
    "outputs": [
      {"name": "collateralAmountReceived", "type": "uint256"},
      {"name": "feePaid", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {
        "components": [
          {"name": "minNumTokens", "type": "uint256"},
          {"name": "collateralAmount", "type": "uint256"},
          {"name": "expiration", "type": "uint256"},
          {"name": "recipient", "type": "address"}
        ],
        "name": "mintParams",
        "type": "tuple"
      }
    ],
    "name": "mint",
    "outputs": [
      {"name": "syntheticTokensMinted", "type": "uint256"},
      {"name": "feePaid", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {
        "components": [
          {"name": "numTokens", "type": "uint256"},
          {"name": "minCollateral", "type": "uint256"},
          {"name": "expiration", "type": "uint256"},
          {"name": "recipient", "type": "address"}
        ],
        "name": "redeemParams",
        "type": "tuple"
      }
    ],
    "name": "redeem",
    "outputs": [
      {"name": "collateralRedeemed", "type": "uint256"},
      {"name": "feePaid", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "feePercentage",
    "outputs": [{"name": "fee", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "collateralAsset",
    "outputs": [{"name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "syntheticAsset",
    "outputs": [{"name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalSyntheticTokens",
    "outputs": [{"name": "totalTokens", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalCollateralAmount",
    "outputs": [
      {"name": "usersCollateral", "type": "uint256"},
      {"name": "lpsCollateral", "type": "uint256"},
      {"name": "totalCollateral", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const lendingManagerABIJSON = `[
  {
    "inputs": [{"name": "pool", "type": "address"}],
    "name": "getAccumulatedInterest",
    "outputs": [
      {"name": "poolInterest", "type": "uint256"},
      {"name": "commissionInterest", "type": "uint256"},
      {"name": "buybackInterest", "type": "uint256"},
      {"name": "collateralDeposited", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// MintParams is the mint tuple argument; field names follow the ABI components.
type MintParams struct {
	MinNumTokens     *big.Int
	CollateralAmount *big.Int
	Expiration       *big.Int
	Recipient        common.Address
}

// RedeemParams is the redeem tuple argument.
type RedeemParams struct {
	NumTokens     *big.Int
	MinCollateral *big.Int
	Expiration    *big.Int
	Recipient     common.Address
}

var (
	vaultABI     abi.ABI
	vaultABIOnce sync.Once
	vaultABIErr  error

	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error

	lendingABI     abi.ABI
	lendingABIOnce sync.Once
	lendingABIErr  error
)

// VaultABI returns the parsed LP vault ABI.
func VaultABI() (abi.ABI, error) {
	vaultABIOnce.Do(func() {
		vaultABI, vaultABIErr = abi.JSON(strings.NewReader(vaultABIJSON))
	})
	return vaultABI, vaultABIErr
}

// PoolABI returns the parsed multi-LP pool ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

// LendingManagerABI returns the parsed lending manager ABI.
func LendingManagerABI() (abi.ABI, error) {
	lendingABIOnce.Do(func() {
		lendingABI, lendingABIErr = abi.JSON(strings.NewReader(lendingManagerABIJSON))
	})
	return lendingABI, lendingABIErr
}
