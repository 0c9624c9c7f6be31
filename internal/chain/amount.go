package chain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// ParseAmount converts a decimal string such as "1.5" into base units with
// the given number of decimals. Negative values, values with more fractional
// digits than decimals, and values above 2^256-1 are rejected.
func ParseAmount(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, invalidAmount(s, "not a number")
	}
	if d.IsNegative() {
		return nil, invalidAmount(s, "negative")
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, invalidAmount(s, fmt.Sprintf("more than %d decimal places", decimals))
	}

	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, invalidAmount(s, "exceeds 256 bits")
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string without trailing zeros.
func FormatAmount(v *uint256.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals).String()
}

func invalidAmount(s, reason string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{
		"amount": s,
		"reason": reason,
	})
}
