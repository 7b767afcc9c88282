package txn

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Backend is the chain access a Submitter needs. *chain.Client satisfies it.
type Backend interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// gasLimitBuffer pads the estimate by 20%.
const gasLimitBuffer = 120

// Submitter signs writes with a single key.
type Submitter struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	signer  types.Signer
	logger  *zap.Logger
}

// NewSubmitter parses a hex private key and binds it to the backend's chain id.
func NewSubmitter(ctx context.Context, backend Backend, hexKey string, logger *zap.Logger) (*Submitter, error) {
	if backend == nil {
		return nil, errors.New("chain client is nil")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	chainID, err := backend.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
		logger:  logger,
	}, nil
}

// From is the address writes are sent from.
func (s *Submitter) From() common.Address {
	return s.from
}

// Submit packs method with args, signs and sends it to to. A send error still
// returns the failed Tx so callers can report it.
func (s *Submitter) Submit(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*Tx, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas %s: %w", method, err)
	}
	gas = gas * gasLimitBuffer / 100

	txData, err := s.feeFields(ctx, nonce, to, gas, data)
	if err != nil {
		return nil, err
	}

	signed, err := types.SignNewTx(s.key, s.signer, txData)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}

	tx := newTx(signed.Hash(), method, to, nonce)
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		tx.fail(nil, err)
		s.logger.Warn("send transaction failed",
			zap.String("method", method),
			zap.String("to", to.Hex()),
			zap.Error(err),
		)
		return tx, fmt.Errorf("send %s: %w", method, err)
	}

	s.logger.Info("transaction sent",
		zap.String("method", method),
		zap.String("to", to.Hex()),
		zap.String("hash", tx.Hash.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)
	return tx, nil
}

// feeFields builds a dynamic fee transaction on London chains and a legacy one otherwise.
func (s *Submitter) feeFields(ctx context.Context, nonce uint64, to common.Address, gas uint64, data []byte) (types.TxData, error) {
	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}

	if header.BaseFee == nil {
		gasPrice, err := s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
		return &types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     data,
		}, nil
	}

	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	feeCap := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return &types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		To:        &to,
		Gas:       gas,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Data:      data,
	}, nil
}
