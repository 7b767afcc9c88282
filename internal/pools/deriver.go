package pools

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"citadelScope/internal/model"
)

// Deriver memoizes BuildPoolVaults on the content of the reads it is given.
// Reads that differ only in block number reuse the previous result.
type Deriver struct {
	specs  []VaultSpec
	logger *zap.Logger

	mu          sync.Mutex
	computed    bool
	fingerprint common.Hash
	vaults      []model.PoolVault
	lending     model.AccumulatedInterest
}

func NewDeriver(specs []VaultSpec, logger *zap.Logger) *Deriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deriver{specs: specs, logger: logger}
}

// Derive returns the vault summaries for set, the fingerprint of the reads and
// whether the summaries were recomputed.
func (d *Deriver) Derive(set model.ReadSet) ([]model.PoolVault, common.Hash, bool) {
	fp := Fingerprint(d.specs, set)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.computed && fp == d.fingerprint {
		return cloneVaults(d.vaults), fp, false
	}

	d.vaults = BuildPoolVaults(Inputs{Specs: d.specs, Reads: set, Logger: d.logger})
	d.lending = set.Lending.Value
	d.fingerprint = fp
	d.computed = true
	d.logger.Debug("pool vaults recomputed", zap.String("fingerprint", fp.Hex()), zap.Uint64("block", set.Block))
	return cloneVaults(d.vaults), fp, true
}

// Specs returns the vaults the deriver builds, in display order.
func (d *Deriver) Specs() []VaultSpec {
	return d.specs
}

// Lending returns the lending read behind the last derivation.
func (d *Deriver) Lending() model.AccumulatedInterest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lending
}

// Fingerprint hashes the read values that feed BuildPoolVaults.
func Fingerprint(specs []VaultSpec, set model.ReadSet) common.Hash {
	var buf bytes.Buffer
	for _, spec := range specs {
		buf.WriteString(spec.ID)
		buf.Write(spec.Address.Bytes())

		read := set.Vaults[spec.ID]
		raw, ok := read.LPInfo.Value.Get()
		writeFlag(&buf, ok)
		if ok {
			writeWord(&buf, raw.ActualCollateralAmount.Raw())
			writeWord(&buf, raw.TokensCollateralized.Raw())
			writeWord(&buf, raw.OverCollateralization.Raw())
			writeWord(&buf, raw.Capacity.Raw())
			writeWord(&buf, raw.Utilization.Raw())
			writeWord(&buf, raw.Coverage.Raw())
			writeWord(&buf, raw.MintShares.Raw())
			writeWord(&buf, raw.RedeemShares.Raw())
			writeWord(&buf, raw.InterestShares.Raw())
			writeFlag(&buf, raw.IsOvercollateralized)
		}

		writeFlag(&buf, read.Rate.OK())
		writeWord(&buf, read.Rate.Value)

		writeFlag(&buf, read.LPBalance != nil && read.LPBalance.OK())
		if read.LPBalance != nil {
			writeWord(&buf, read.LPBalance.Value)
		}
	}

	writeFlag(&buf, set.Lending.OK())
	writeWord(&buf, set.Lending.Value.PoolInterest.Raw())
	writeWord(&buf, set.Lending.Value.CommissionInterest.Raw())
	writeWord(&buf, set.Lending.Value.BuybackInterest.Raw())
	writeWord(&buf, set.Lending.Value.CollateralDeposited.Raw())

	return crypto.Keccak256Hash(buf.Bytes())
}

func writeWord(buf *bytes.Buffer, value *big.Int) {
	if value == nil {
		value = new(big.Int)
	}
	buf.Write(common.LeftPadBytes(value.Bytes(), 32))
}

func writeFlag(buf *bytes.Buffer, flag bool) {
	if flag {
		buf.WriteByte(1)
		return
	}
	buf.WriteByte(0)
}

func cloneVaults(vaults []model.PoolVault) []model.PoolVault {
	out := make([]model.PoolVault, len(vaults))
	copy(out, vaults)
	return out
}
