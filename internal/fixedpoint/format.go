package fixedpoint

import (
	"math"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	DefaultTokenPrecision      = 4
	DefaultCurrencyPrecision   = 2
	DefaultPercentagePrecision = 1
)

var (
	dustAmount   = decimal.RequireFromString("0.0001")
	dustCurrency = 0.01
)

// FormatTokenAmount renders a token balance for display.
func FormatTokenAmount(amount *big.Int, decimals uint8, precision int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	d := decimal.NewFromBigInt(amount, -int32(decimals))
	if d.LessThan(dustAmount) {
		return "<0.0001"
	}
	return groupThousands(d.Round(int32(precision)))
}

// FormatCurrency renders a USD value with at most precision fractional digits.
func FormatCurrency(amount float64, precision int) string {
	if amount == 0 {
		return "$0"
	}
	if amount < dustCurrency {
		return "<$0.01"
	}
	return "$" + groupThousands(decimal.NewFromFloat(amount).Round(int32(precision)))
}

// FormatPercentage renders value with exactly precision fractional digits.
func FormatPercentage(value float64, precision int) string {
	return toFixed(value, precision) + "%"
}

// FormatCompact abbreviates thousands and millions.
func FormatCompact(value float64) string {
	d := decimal.NewFromFloat(value)
	switch {
	case value >= 1_000_000:
		return d.Div(decimal.NewFromInt(1_000_000)).StringFixed(1) + "M"
	case value >= 1_000:
		return d.Div(decimal.NewFromInt(1_000)).StringFixed(1) + "K"
	default:
		return groupThousands(d.Round(3))
	}
}

// FormatUSD renders a plain two-digit dollar figure without thousands separators.
func FormatUSD(amount float64) string {
	return "$" + toFixed(amount, 2)
}

// toFixed rounds the exact binary value of value, so 1.005 (stored as
// 1.00499...) becomes "1.00". Non-finite values render as zero.
func toFixed(value float64, precision int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	return decimal.NewFromFloatWithExponent(value, -int32(precision)).StringFixed(int32(precision))
}

func groupThousands(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	text := d.String()
	intPart, frac, _ := strings.Cut(text, ".")
	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return sign + text
	}
	out := humanize.BigComma(whole)
	if frac != "" {
		out += "." + frac
	}
	return sign + out
}
