package model

import "time"

// PoolSnapshot is a persisted PoolVault observation.
type PoolSnapshot struct {
	ChainID     uint64    `json:"chain_id"`
	BlockNumber uint64    `json:"block_number"`
	Fingerprint string    `json:"fingerprint"`
	ObservedAt  time.Time `json:"observed_at"`
	ReadErrors  int       `json:"read_errors"`
	Vault       PoolVault `json:"vault"`
}
