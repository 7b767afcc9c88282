// Package txn signs and submits vault and pool writes and tracks them to a receipt.
package txn

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"citadelScope/internal/metrics"
	"citadelScope/internal/model"
)

// ErrReverted is recorded on a transaction whose receipt has status 0.
var ErrReverted = errors.New("transaction reverted")

// Tx is a submitted write. Its status moves from pending to confirmed or failed once.
type Tx struct {
	Hash   common.Hash
	Method string
	To     common.Address
	Nonce  uint64

	mu      sync.RWMutex
	status  model.TxStatus
	receipt *types.Receipt
	err     error
}

func newTx(hash common.Hash, method string, to common.Address, nonce uint64) *Tx {
	tx := &Tx{Hash: hash, Method: method, To: to, Nonce: nonce, status: model.TxPending}
	metrics.IncTxStatus(method, string(model.TxPending))
	return tx
}

func (t *Tx) Status() model.TxStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Receipt is nil until the transaction is mined.
func (t *Tx) Receipt() *types.Receipt {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.receipt
}

func (t *Tx) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Tx) confirm(receipt *types.Receipt) {
	t.settle(model.TxConfirmed, receipt, nil)
}

func (t *Tx) fail(receipt *types.Receipt, err error) {
	t.settle(model.TxFailed, receipt, err)
}

func (t *Tx) settle(status model.TxStatus, receipt *types.Receipt, err error) {
	t.mu.Lock()
	if t.status != model.TxPending {
		t.mu.Unlock()
		return
	}
	t.status = status
	t.receipt = receipt
	t.err = err
	t.mu.Unlock()
	metrics.IncTxStatus(t.Method, string(status))
}
