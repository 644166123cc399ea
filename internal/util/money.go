package util

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// maxAmountCent caps a single amount at 10 million units.
const maxAmountCent = 10_000_000_00

// ParseAmountCent converts a decimal amount string (e.g. "12.34") to cents.
// Rejects non-positive values, more than two decimal places and values above
// the cap, so nothing is silently rounded on the way into the ledger.
func ParseAmountCent(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	// trailing zeros ("1.230") are exact and accepted; anything that does
	// not land on a whole cent is sub-cent precision
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %s", s)
	}
	if v >= maxAmountCent {
		return 0, fmt.Errorf("amount too large, got %s", s)
	}
	return v, nil
}

// ParseSignedCent converts a decimal amount string to cents, allowing zero
// and negative values. Used for opening balances; transaction amounts go
// through ParseAmountCent instead.
func ParseSignedCent(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	v := cents.IntPart()
	if v <= -maxAmountCent || v >= maxAmountCent {
		return 0, fmt.Errorf("amount too large, got %s", s)
	}
	return v, nil
}

// FormatCent renders cents as a decimal amount string with two places.
func FormatCent(cent int64) string {
	return decimal.New(cent, -2).StringFixed(2)
}
