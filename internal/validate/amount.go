package validate

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals between ether and wei
const EtherDecimals = 18

var ErrInvalidAmount = errors.New("invalid amount")

var decimalLiteral = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// ParseAmount parses a display-unit decimal string (e.g. "0.5") into wei.
// Digits beyond 18 decimals are truncated; a positive literal that truncates
// to zero is rejected. "0" parses to zero.
func ParseAmount(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

// ParseUnits parses a display-unit decimal string into the smallest unit of a
// currency with the given number of decimals.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: amount must not be negative: %q", ErrInvalidAmount, s)
	}
	if !decimalLiteral.MatchString(s) || s == "." {
		return nil, fmt.Errorf("%w: not a decimal number: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: not a decimal number: %q", ErrInvalidAmount, s)
	}

	units := d.Shift(decimals).BigInt()
	if d.IsPositive() && units.Sign() == 0 {
		return nil, fmt.Errorf("%w: %q is below the smallest unit", ErrInvalidAmount, s)
	}
	return units, nil
}

// IsPositive reports whether amount is strictly greater than zero
func IsPositive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}

// ParseSmallestUnit parses a stored smallest-unit integer string
func ParseSmallestUnit(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: not an integer amount: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// ToDisplay converts wei into ether as an exact decimal
func ToDisplay(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// FormatUnits renders a smallest-unit amount in display units, always with a
// fractional part ("1.0", "0.5").
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(amount, -decimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatEther renders wei as ether
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}
