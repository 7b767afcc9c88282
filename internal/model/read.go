package model

import "math/big"

// ReadResult holds the outcome of one contract read. Each read fails independently.
type ReadResult[T any] struct {
	Value T
	Err   error
}

// OK reports whether the read completed without error.
func (r ReadResult[T]) OK() bool {
	return r.Err == nil
}

// VaultRead groups the reads made against one vault in a cycle.
type VaultRead struct {
	LPInfo    ReadResult[LPData]
	Rate      ReadResult[*big.Int]
	LPBalance *ReadResult[*big.Int]
}

// ReadSet is everything read from chain in one cycle.
type ReadSet struct {
	Block   uint64
	Vaults  map[string]VaultRead
	Lending ReadResult[AccumulatedInterest]
}

// Errors counts the failed reads in the set.
func (s ReadSet) Errors() int {
	n := 0
	if !s.Lending.OK() {
		n++
	}
	for _, v := range s.Vaults {
		if !v.LPInfo.OK() {
			n++
		}
		if !v.Rate.OK() {
			n++
		}
		if v.LPBalance != nil && !v.LPBalance.OK() {
			n++
		}
	}
	return n
}
