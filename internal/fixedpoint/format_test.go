package fixedpoint

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTokenAmount(t *testing.T) {
	assert.Equal(t, "0", FormatTokenAmount(nil, 18, 4))
	assert.Equal(t, "0", FormatTokenAmount(big.NewInt(0), 18, 4))
	assert.Equal(t, "<0.0001", FormatTokenAmount(big.NewInt(1), 18, 4))

	raw := new(big.Int).Mul(big.NewInt(1234567891), pow10(14)) // 123456.7891
	assert.Equal(t, "123,456.7891", FormatTokenAmount(raw, 18, 4))
	assert.Equal(t, "123,456.79", FormatTokenAmount(raw, 18, 2))
	assert.Equal(t, "1", FormatTokenAmount(pow10(18), 18, 4))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0", FormatCurrency(0, 2))
	assert.Equal(t, "<$0.01", FormatCurrency(0.004, 2))
	assert.Equal(t, "$1,234.5", FormatCurrency(1234.5, 2))
	assert.Equal(t, "$1,000,000", FormatCurrency(1_000_000, 2))
	assert.Equal(t, "$2.35", FormatCurrency(2.345, 2))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "5.0%", FormatPercentage(5, 1))
	assert.Equal(t, "1.05%", FormatPercentage(1.05, 2))
	assert.Equal(t, "12.3000%", FormatPercentage(12.3, 4))
}

func TestFormatPercentageRoundsBinaryValue(t *testing.T) {
	assert.Equal(t, "1.00%", FormatPercentage(1.005, 2))
	assert.Equal(t, "2.67%", FormatPercentage(2.675, 2))
	assert.Equal(t, "0.13%", FormatPercentage(0.125, 2))
	assert.Equal(t, "-0.13%", FormatPercentage(-0.125, 2))
	assert.Equal(t, "0.0%", FormatPercentage(math.NaN(), 1))
	assert.Equal(t, "$1.00", FormatUSD(1.005))
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "1.2M", FormatCompact(1_234_567))
	assert.Equal(t, "3.4K", FormatCompact(3_400))
	assert.Equal(t, "999", FormatCompact(999))
	assert.Equal(t, "12.346", FormatCompact(12.3456))
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$0.25", FormatUSD(0.25))
	assert.Equal(t, "$1.50", FormatUSD(1.5))
}
