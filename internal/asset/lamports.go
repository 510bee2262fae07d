// Package asset converts between lamports and SOL.
package asset

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// SOLDecimals is the number of decimal places in one SOL.
const SOLDecimals = 9

// LamportsPerSOL is 10^9.
const LamportsPerSOL = 1_000_000_000

var (
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for SOL")
	ErrOverflow        = errors.New("asset: amount exceeds lamport range")
)

var maxLamports = decimal.NewFromUint64(math.MaxUint64)

// Lamports is an amount in the smallest SOL unit.
type Lamports uint64

// ToDecimal converts to SOL for display.
// This is a BOUNDARY function - use only for UI/display, not calculations.
func (l Lamports) ToDecimal() decimal.Decimal {
	return decimal.NewFromUint64(uint64(l)).Shift(-SOLDecimals)
}

// String returns a human-readable value such as "1.5 SOL".
func (l Lamports) String() string {
	return fmt.Sprintf("%s SOL", l.ToDecimal().String())
}

// StringFixed formats with a fixed number of decimal places.
func (l Lamports) StringFixed(places int32) string {
	return fmt.Sprintf("%s SOL", l.ToDecimal().StringFixed(places))
}

// ParseSOL parses a decimal SOL string such as "0.25".
func ParseSOL(s string) (Lamports, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return FromSOL(d)
}

// FromSOL converts a SOL amount to lamports. Fractions below one lamport
// are rejected.
func FromSOL(d decimal.Decimal) (Lamports, error) {
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	scaled := d.Shift(SOLDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	if scaled.GreaterThan(maxLamports) {
		return 0, ErrOverflow
	}
	return Lamports(scaled.BigInt().Uint64()), nil
}

// FromInt64 converts a signed circuit amount, clamping negatives to zero.
func FromInt64(v int64) Lamports {
	if v < 0 {
		return 0
	}
	return Lamports(v)
}
