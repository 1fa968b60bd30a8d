package solana

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ToBaseUnits scales a human amount by 10^decimals.
// Rejects negative amounts, amounts with more precision than the token supports,
// and results that do not fit in a u64.
func ToBaseUnits(amount float64, decimals uint8) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("invalid amount: %v", amount)
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount must not be negative: %v", amount)
	}

	scaled := decimal.NewFromFloat(amount).Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %v has more than %d decimal places", amount, decimals)
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("amount %v overflows u64 at %d decimals", amount, decimals)
	}

	return scaled.BigInt().Uint64(), nil
}

// SOLToLamports converts a SOL amount to lamports.
func SOLToLamports(amount float64) (uint64, error) {
	return ToBaseUnits(amount, 9)
}

// FromBaseUnits formats base units as a human-readable decimal string.
func FromBaseUnits(units uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals)).String()
}

// ParseAmount parses a decimal string such as "1.25" into base units.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", s, decimals)
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("amount %s overflows u64 at %d decimals", s, decimals)
	}
	return scaled.BigInt().Uint64(), nil
}
