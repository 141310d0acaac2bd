package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of base units per whole unit of value.
const EtherDecimals = 18

// MaxAmount is the largest representable balance (2^256 - 1 base units).
var MaxAmount = decimal.NewFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
	0,
)

// ParseAmount parses a base-unit amount. Amounts are non-negative integers no
// larger than MaxAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d is usable as a base-unit amount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d.String())
	}
	if !d.IsInteger() {
		return fmt.Errorf("%w: %s is fractional", ErrInvalidAmount, d.String())
	}
	if d.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s exceeds maximum", ErrOverflow, d.String())
	}
	return nil
}

// CheckedAdd returns a+b, or ErrOverflow when the sum exceeds MaxAmount.
func CheckedAdd(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)
	if sum.GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s + %s", ErrOverflow, a.String(), b.String())
	}
	return sum, nil
}

// CheckedSub returns a-b, or ErrInsufficientFunds when b exceeds a.
func CheckedSub(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.GreaterThan(a) {
		return decimal.Zero, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, a.String(), b.String())
	}
	return a.Sub(b), nil
}

// ParseEther converts a whole-unit string such as "10" or "0.5" to base units.
func ParseEther(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	wei := d.Shift(EtherDecimals)
	if err := ValidateAmount(wei); err != nil {
		return decimal.Zero, err
	}
	return wei, nil
}

// FormatEther renders a base-unit amount in whole units.
func FormatEther(wei decimal.Decimal) string {
	return wei.Shift(-EtherDecimals).String()
}
