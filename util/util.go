package util

import (
	"fmt"
	"math/big"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/shopspring/decimal"
)

var ten = big.NewInt(10)

// ToMinorUnits converts an amount expressed in major (display) units to the
// chain's minor units, multiplying by 10^decimals and truncating any
// remaining fraction.
func ToMinorUnits(major decimal.Decimal, decimals uint32) *big.Int {
	return major.Shift(int32(decimals)).BigInt()
}

// FromMinorUnits converts a minor unit amount back to major units. It's only
// meant for display.
func FromMinorUnits(minor *big.Int, decimals uint32) decimal.Decimal {
	if minor == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(minor, -int32(decimals))
}

// Pow10 returns 10^n.
func Pow10(n uint32) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// ParseMinorUnits parses a base-10 non-negative integer string as returned by
// the balances index.
func ParseMinorUnits(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// ParseMajorUnits parses a decimal amount in major units, rejecting negative
// values.
func ParseMajorUnits(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing decimal %q: %s", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}

// ExpandPath expands a leading ~ to the user home directory.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding homedir: %s", err)
	}
	return expanded, nil
}
