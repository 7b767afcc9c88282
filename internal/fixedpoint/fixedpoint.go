// Package fixedpoint converts on-chain fixed-point integers into decimal values.
//
// Amounts are encoded at 10^18 and ratios at 10^16, so a ratio divided by its scale
// is already a percentage. The two encodings have distinct types so a value cannot
// be scaled with the wrong divisor.
package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	AmountDecimals uint8 = 18
	RatioDecimals  uint8 = 16
)

// Amount18 is a raw token amount or share fraction scaled by 10^18.
type Amount18 struct {
	raw *big.Int
}

func NewAmount18(raw *big.Int) Amount18 {
	return Amount18{raw: raw}
}

// Raw returns a copy of the underlying integer; a missing value is zero.
func (a Amount18) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount18) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// Float64 returns raw / 10^18.
func (a Amount18) Float64() float64 {
	return ToFloat(a.raw, AmountDecimals)
}

func (a Amount18) String() string {
	return FormatUnits(a.raw, AmountDecimals)
}

func (a Amount18) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.Raw().String() + `"`), nil
}

// Ratio16 is a raw ratio scaled by 10^16.
type Ratio16 struct {
	raw *big.Int
}

func NewRatio16(raw *big.Int) Ratio16 {
	return Ratio16{raw: raw}
}

func (r Ratio16) Raw() *big.Int {
	if r.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.raw)
}

// Percent returns raw / 10^16, e.g. 5e16 -> 5.
func (r Ratio16) Percent() float64 {
	return ToFloat(r.raw, RatioDecimals)
}

func (r Ratio16) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.Raw().String() + `"`), nil
}

// FormatUnits renders value / 10^decimals without losing precision.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// ToFloat returns value / 10^decimals as a float64; nil is zero.
func ToFloat(value *big.Int, decimals uint8) float64 {
	if value == nil {
		return 0
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).InexactFloat64()
}

// ParseUnits converts a user-entered decimal string into an integer amount.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", value)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value, decimals)
	}
	return shifted.BigInt(), nil
}

// PercentOf returns balance * pct / 100 using integer division.
func PercentOf(balance *big.Int, pct int64) *big.Int {
	if balance == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(balance, big.NewInt(pct))
	return out.Quo(out, big.NewInt(100))
}
