package txn

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"citadelScope/internal/contracts"
)

var ErrZeroAmount = errors.New("amount must be greater than zero")

// DefaultSlippageBps and DefaultExpiry apply when a mint or redeem leaves them unset.
const (
	DefaultSlippageBps = 50
	DefaultExpiry      = 20 * time.Minute
)

// Operations performs the user-facing vault and pool writes.
type Operations struct {
	reader    *contracts.Reader
	submitter *Submitter
	now       func() time.Time
}

func NewOperations(reader *contracts.Reader, submitter *Submitter) *Operations {
	return &Operations{reader: reader, submitter: submitter, now: time.Now}
}

// NeedsApproval reports whether owner's allowance of the vault's collateral asset
// is below amount.
func (o *Operations) NeedsApproval(ctx context.Context, vault, owner common.Address, amount *big.Int) (bool, error) {
	if err := checkAmount(amount); err != nil {
		return false, err
	}
	asset, err := o.reader.VaultAsset(ctx, vault)
	if err != nil {
		return false, fmt.Errorf("vault asset: %w", err)
	}
	allowance, err := o.reader.Allowance(ctx, asset, owner, vault)
	if err != nil {
		return false, fmt.Errorf("allowance: %w", err)
	}
	return allowance.Cmp(amount) < 0, nil
}

// Approve lets vault pull amount of its collateral asset from the sender.
func (o *Operations) Approve(ctx context.Context, vault common.Address, amount *big.Int) (*Tx, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	asset, err := o.reader.VaultAsset(ctx, vault)
	if err != nil {
		return nil, fmt.Errorf("vault asset: %w", err)
	}
	return o.ApproveToken(ctx, asset, vault, amount)
}

// ApproveToken approves spender for amount of token.
func (o *Operations) ApproveToken(ctx context.Context, token, spender common.Address, amount *big.Int) (*Tx, error) {
	if contracts.IsNativeToken(token) {
		return nil, errors.New("native token needs no approval")
	}
	parsed, err := contracts.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return o.submitter.Submit(ctx, token, parsed, "approve", spender, amount)
}

// Deposit adds amount of collateral to vault, crediting LP tokens to receiver.
func (o *Operations) Deposit(ctx context.Context, vault common.Address, amount *big.Int, receiver common.Address) (*Tx, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	parsed, err := contracts.VaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	return o.submitter.Submit(ctx, vault, parsed, "deposit", amount, receiver)
}

// Withdraw burns lpAmount LP tokens and sends the collateral to receiver.
func (o *Operations) Withdraw(ctx context.Context, vault common.Address, lpAmount *big.Int, receiver common.Address) (*Tx, error) {
	if err := checkAmount(lpAmount); err != nil {
		return nil, err
	}
	parsed, err := contracts.VaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	return o.submitter.Submit(ctx, vault, parsed, "withdraw", lpAmount, receiver)
}

// MintRequest describes a mint. Zero MinNumTokens is derived from a pool quote
// and SlippageBps; zero Expiration is now plus DefaultExpiry.
type MintRequest struct {
	CollateralAmount *big.Int
	MinNumTokens     *big.Int
	SlippageBps      int64
	Expiration       time.Time
	Recipient        common.Address
}

func (o *Operations) Mint(ctx context.Context, pool common.Address, req MintRequest) (*Tx, error) {
	if err := checkAmount(req.CollateralAmount); err != nil {
		return nil, err
	}
	minTokens := req.MinNumTokens
	if minTokens == nil || minTokens.Sign() == 0 {
		quote, err := o.reader.MintTradeInfo(ctx, pool, req.CollateralAmount)
		if err != nil {
			return nil, fmt.Errorf("mint quote: %w", err)
		}
		minTokens = MinAmountOut(quote.AmountReceived, req.SlippageBps)
	}
	parsed, err := contracts.PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	params := contracts.MintParams{
		MinNumTokens:     minTokens,
		CollateralAmount: req.CollateralAmount,
		Expiration:       o.expiration(req.Expiration),
		Recipient:        o.recipient(req.Recipient),
	}
	return o.submitter.Submit(ctx, pool, parsed, "mint", params)
}

// RedeemRequest describes a redeem, with the same defaults as MintRequest.
type RedeemRequest struct {
	NumTokens     *big.Int
	MinCollateral *big.Int
	SlippageBps   int64
	Expiration    time.Time
	Recipient     common.Address
}

func (o *Operations) Redeem(ctx context.Context, pool common.Address, req RedeemRequest) (*Tx, error) {
	if err := checkAmount(req.NumTokens); err != nil {
		return nil, err
	}
	minCollateral := req.MinCollateral
	if minCollateral == nil || minCollateral.Sign() == 0 {
		quote, err := o.reader.RedeemTradeInfo(ctx, pool, req.NumTokens)
		if err != nil {
			return nil, fmt.Errorf("redeem quote: %w", err)
		}
		minCollateral = MinAmountOut(quote.AmountReceived, req.SlippageBps)
	}
	parsed, err := contracts.PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	params := contracts.RedeemParams{
		NumTokens:     req.NumTokens,
		MinCollateral: minCollateral,
		Expiration:    o.expiration(req.Expiration),
		Recipient:     o.recipient(req.Recipient),
	}
	return o.submitter.Submit(ctx, pool, parsed, "redeem", params)
}

// MinAmountOut applies a slippage tolerance in basis points to a quoted amount.
// A non-positive tolerance uses DefaultSlippageBps.
func MinAmountOut(quoted *big.Int, slippageBps int64) *big.Int {
	if quoted == nil {
		return new(big.Int)
	}
	if slippageBps <= 0 {
		slippageBps = DefaultSlippageBps
	}
	if slippageBps >= 10_000 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(quoted, big.NewInt(10_000-slippageBps))
	return out.Quo(out, big.NewInt(10_000))
}

func (o *Operations) expiration(at time.Time) *big.Int {
	if at.IsZero() {
		at = o.now().Add(DefaultExpiry)
	}
	return big.NewInt(at.Unix())
}

func (o *Operations) recipient(addr common.Address) common.Address {
	if addr == (common.Address{}) {
		return o.submitter.From()
	}
	return addr
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	return nil
}
