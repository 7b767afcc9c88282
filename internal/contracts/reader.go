package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"citadelScope/internal/fixedpoint"
	"citadelScope/internal/model"
)

// ErrPoolAssetMismatch is returned when a pool's on-chain tokens differ from the configured ones.
var ErrPoolAssetMismatch = errors.New("pool assets do not match configuration")

// Deployment is the set of contracts read in one cycle.
type Deployment struct {
	Vaults         map[string]common.Address
	Pool           common.Address
	LendingManager common.Address
}

// Reader wraps read-only calls to the vault, pool, lending manager and ERC20 contracts.
type Reader struct {
	caller Caller
	logger *zap.Logger
	tokens *TokenMetaCache
}

func NewReader(caller Caller, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller: caller,
		logger: logger,
		tokens: NewTokenMetaCache(),
	}
}

// VaultLPInfo reads getLPInfo from a vault.
func (r *Reader) VaultLPInfo(ctx context.Context, vault common.Address, block *big.Int) (model.LPData, error) {
	parsed, err := VaultABI()
	if err != nil {
		return model.AbsentLPData(), fmt.Errorf("parse vault abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, vault, parsed, "getLPInfo", block)
	if err != nil {
		return model.AbsentLPData(), err
	}
	ints, err := bigInts(values[:9])
	if err != nil {
		return model.AbsentLPData(), fmt.Errorf("getLPInfo: %w", err)
	}
	healthy, ok := values[9].(bool)
	if !ok {
		return model.AbsentLPData(), fmt.Errorf("getLPInfo: unexpected flag type %T", values[9])
	}

	return model.PresentLPData(model.RawLPInfo{
		ActualCollateralAmount: fixedpoint.NewAmount18(ints[0]),
		TokensCollateralized:   fixedpoint.NewAmount18(ints[1]),
		OverCollateralization:  fixedpoint.NewRatio16(ints[2]),
		Capacity:               fixedpoint.NewAmount18(ints[3]),
		Utilization:            fixedpoint.NewRatio16(ints[4]),
		Coverage:               fixedpoint.NewRatio16(ints[5]),
		MintShares:             fixedpoint.NewAmount18(ints[6]),
		RedeemShares:           fixedpoint.NewAmount18(ints[7]),
		InterestShares:         fixedpoint.NewAmount18(ints[8]),
		IsOvercollateralized:   healthy,
	}), nil
}

// VaultRate reads the vault's LP token rate (18 decimals).
func (r *Reader) VaultRate(ctx context.Context, vault common.Address, block *big.Int) (*big.Int, error) {
	return r.uintCall(ctx, vault, "getRate", block, VaultABI)
}

// VaultAsset returns the collateral token deposited into a vault.
func (r *Reader) VaultAsset(ctx context.Context, vault common.Address) (common.Address, error) {
	parsed, err := VaultABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse vault abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, vault, parsed, "asset", nil)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// AccumulatedInterest reads the lending manager's accrued interest for a pool.
func (r *Reader) AccumulatedInterest(ctx context.Context, lendingManager, pool common.Address, block *big.Int) (model.AccumulatedInterest, error) {
	parsed, err := LendingManagerABI()
	if err != nil {
		return model.AccumulatedInterest{}, fmt.Errorf("parse lending manager abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, lendingManager, parsed, "getAccumulatedInterest", block, pool)
	if err != nil {
		return model.AccumulatedInterest{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return model.AccumulatedInterest{}, fmt.Errorf("getAccumulatedInterest: %w", err)
	}
	return model.AccumulatedInterest{
		PoolInterest:        fixedpoint.NewAmount18(ints[0]),
		CommissionInterest:  fixedpoint.NewAmount18(ints[1]),
		BuybackInterest:     fixedpoint.NewAmount18(ints[2]),
		CollateralDeposited: fixedpoint.NewAmount18(ints[3]),
	}, nil
}

// PoolTotals reads collateral and synthetic supply totals from the pool.
func (r *Reader) PoolTotals(ctx context.Context, pool common.Address, block *big.Int) (model.PoolTotals, error) {
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolTotals{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, pool, parsed, "totalCollateralAmount", block)
	if err != nil {
		return model.PoolTotals{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return model.PoolTotals{}, fmt.Errorf("totalCollateralAmount: %w", err)
	}
	supply, err := r.uintCall(ctx, pool, "totalSyntheticTokens", block, PoolABI)
	if err != nil {
		return model.PoolTotals{}, err
	}
	return model.PoolTotals{
		UsersCollateral:      ints[0],
		LPsCollateral:        ints[1],
		TotalCollateral:      ints[2],
		TotalSyntheticTokens: supply,
	}, nil
}

// FeePercentage reads the pool's fee (18 decimals).
func (r *Reader) FeePercentage(ctx context.Context, pool common.Address) (*big.Int, error) {
	return r.uintCall(ctx, pool, "feePercentage", nil, PoolABI)
}

// PoolAssets returns the pool's collateral and synthetic token addresses.
func (r *Reader) PoolAssets(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	parsed, err := PoolABI()
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, pool, parsed, "collateralAsset", nil)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	collateral, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("collateralAsset: %w", err)
	}
	values, err = callMethod(ctx, r.caller, pool, parsed, "syntheticAsset", nil)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	synthetic, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("syntheticAsset: %w", err)
	}
	return collateral, synthetic, nil
}

// MintTradeInfo quotes the synthetic tokens received for a collateral amount.
func (r *Reader) MintTradeInfo(ctx context.Context, pool common.Address, collateralAmount *big.Int) (model.TradeInfo, error) {
	return r.tradeInfo(ctx, pool, "getMintTradeInfo", collateralAmount)
}

// RedeemTradeInfo quotes the collateral received for a synthetic token amount.
func (r *Reader) RedeemTradeInfo(ctx context.Context, pool common.Address, syntheticAmount *big.Int) (model.TradeInfo, error) {
	return r.tradeInfo(ctx, pool, "getRedeemTradeInfo", syntheticAmount)
}

func (r *Reader) tradeInfo(ctx context.Context, pool common.Address, method string, amount *big.Int) (model.TradeInfo, error) {
	parsed, err := PoolABI()
	if err != nil {
		return model.TradeInfo{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, pool, parsed, method, nil, amount)
	if err != nil {
		return model.TradeInfo{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return model.TradeInfo{}, fmt.Errorf("%s: %w", method, err)
	}
	return model.TradeInfo{AmountReceived: ints[0], FeePaid: ints[1]}, nil
}

// BalanceOf reads an ERC20 (or LP token) balance.
func (r *Reader) BalanceOf(ctx context.Context, token, owner common.Address, block *big.Int) (*big.Int, error) {
	return r.uintCall(ctx, token, "balanceOf", block, ERC20ABI, owner)
}

// Allowance reads the ERC20 allowance granted by owner to spender.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return r.uintCall(ctx, token, "allowance", nil, ERC20ABI, owner, spender)
}

// TokenMeta returns cached ERC20 metadata, reading it on first use.
func (r *Reader) TokenMeta(ctx context.Context, token common.Address) (model.Token, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, r.caller, token, r.logger)
	if err != nil {
		r.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		return meta, err
	}
	r.tokens.Set(token, meta)
	return meta, nil
}

// CheckPoolAssets verifies that pool trades collateral for synthetic.
func (r *Reader) CheckPoolAssets(ctx context.Context, pool, collateral, synthetic common.Address) error {
	gotCollateral, gotSynthetic, err := r.PoolAssets(ctx, pool)
	if err != nil {
		return fmt.Errorf("read pool assets: %w", err)
	}
	if gotCollateral != collateral {
		return fmt.Errorf("%w: collateral is %s, configured %s", ErrPoolAssetMismatch, gotCollateral.Hex(), collateral.Hex())
	}
	if gotSynthetic != synthetic {
		return fmt.Errorf("%w: synthetic is %s, configured %s", ErrPoolAssetMismatch, gotSynthetic.Hex(), synthetic.Hex())
	}
	return nil
}

// ResolveToken returns the metadata used to parse and format amounts of token.
// On-chain values win; the matching entry of known fills in whatever the chain
// did not return, and decimals default to 18 when neither has them.
func (r *Reader) ResolveToken(ctx context.Context, token common.Address, known []model.Token) model.Token {
	resolved := model.Token{Address: token.Hex(), Decimals: model.DefaultDecimals}
	for _, candidate := range known {
		if common.HexToAddress(candidate.Address) == token {
			resolved = candidate
			break
		}
	}

	meta, err := r.TokenMeta(ctx, token)
	if err != nil {
		return resolved
	}
	resolved.Decimals = meta.Decimals
	if meta.Symbol != "" {
		resolved.Symbol = meta.Symbol
	}
	if meta.Name != "" {
		resolved.Name = meta.Name
	}
	return resolved
}

func (r *Reader) uintCall(ctx context.Context, to common.Address, method string, block *big.Int, load func() (abi.ABI, error), args ...interface{}) (*big.Int, error) {
	parsed, err := load()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, to, parsed, method, block, args...)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// ReadAll issues every vault read and the lending read concurrently at block.
// A failed read is recorded in its own result and does not affect the others.
// When account is set, the account's LP balance in each vault is read too.
func (r *Reader) ReadAll(ctx context.Context, dep Deployment, account *common.Address, block *big.Int) model.ReadSet {
	set := model.ReadSet{Vaults: make(map[string]model.VaultRead, len(dep.Vaults))}
	if block != nil {
		set.Block = block.Uint64()
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	for id, vault := range dep.Vaults {
		id, vault := id, vault
		g.Go(func() error {
			read := model.VaultRead{}

			data, err := r.VaultLPInfo(ctx, vault, block)
			if err != nil {
				r.logger.Warn("vault lp info read failed", zap.String("vault", id), zap.String("address", vault.Hex()), zap.Error(err))
			}
			read.LPInfo = model.ReadResult[model.LPData]{Value: data, Err: err}

			rate, err := r.VaultRate(ctx, vault, block)
			if err != nil {
				r.logger.Warn("vault rate read failed", zap.String("vault", id), zap.String("address", vault.Hex()), zap.Error(err))
			}
			read.Rate = model.ReadResult[*big.Int]{Value: rate, Err: err}

			if account != nil {
				balance, err := r.BalanceOf(ctx, vault, *account, block)
				if err != nil {
					r.logger.Warn("lp balance read failed", zap.String("vault", id), zap.String("account", account.Hex()), zap.Error(err))
				}
				read.LPBalance = &model.ReadResult[*big.Int]{Value: balance, Err: err}
			}

			mu.Lock()
			set.Vaults[id] = read
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		interest, err := r.AccumulatedInterest(ctx, dep.LendingManager, dep.Pool, block)
		if err != nil {
			r.logger.Warn("lending read failed", zap.String("lending_manager", dep.LendingManager.Hex()), zap.Error(err))
		}
		mu.Lock()
		set.Lending = model.ReadResult[model.AccumulatedInterest]{Value: interest, Err: err}
		mu.Unlock()
		return nil
	})

	_ = g.Wait()
	return set
}
