// Package utxo selects unspent outputs to fund a transfer and computes change.
//
// Selection is first-fit in the order the data source returned the outputs:
// each output is taken until the running total covers the requirement. It
// does not minimize input count or dust; reordering the input changes which
// outputs are spent.
package utxo

import (
	"fmt"

	"github.com/holiman/uint256"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// UTXO is a spendable output reference.
type UTXO struct {
	TxHash   [32]byte
	OutIndex uint32
	Value    *uint256.Int
}

// Selection is the result of a successful Select.
type Selection struct {
	Inputs []UTXO
	Total  *uint256.Int
	Change *uint256.Int
}

// HasChange reports whether a change output is needed.
func (s *Selection) HasChange() bool {
	return s.Change != nil && !s.Change.IsZero()
}

// InsufficientFundsError reports the shortfall of a failed selection.
// It matches errors.ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	Required  *uint256.Int
	Available *uint256.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: required %s, available %s",
		walleterr.ErrInsufficientFunds.Message, e.Required.Dec(), e.Available.Dec())
}

// Is lets errors.Is match the insufficient-funds sentinel.
func (e *InsufficientFundsError) Is(target error) bool {
	return walleterr.Is(walleterr.ErrInsufficientFunds, target)
}

// Unwrap exposes the sentinel so exit codes and categories resolve.
func (e *InsufficientFundsError) Unwrap() error {
	return walleterr.WithDetails(walleterr.ErrInsufficientFunds, map[string]string{
		"required":  e.Required.Dec(),
		"available": e.Available.Dec(),
	})
}

// Required returns amount + networkFee + validatorFee, failing on overflow.
func Required(amount, networkFee, validatorFee *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: amount must be positive", walleterr.ErrInvalidAmount)
	}
	total := amount.Clone()
	for _, fee := range []*uint256.Int{networkFee, validatorFee} {
		if fee == nil {
			continue
		}
		if _, overflow := total.AddOverflow(total, fee); overflow {
			return nil, fmt.Errorf("%w: amount plus fees overflows 256 bits", walleterr.ErrInvalidAmount)
		}
	}
	return total, nil
}

// Select takes outputs in source order until their sum reaches required.
func Select(utxos []UTXO, required *uint256.Int) (*Selection, error) {
	if required == nil || required.IsZero() {
		return nil, fmt.Errorf("%w: required amount must be positive", walleterr.ErrInvalidAmount)
	}

	total := new(uint256.Int)
	var inputs []UTXO
	for _, u := range utxos {
		if u.Value == nil || u.Value.IsZero() {
			continue
		}
		inputs = append(inputs, u)
		if _, overflow := total.AddOverflow(total, u.Value); overflow {
			return nil, fmt.Errorf("%w: output values overflow 256 bits", walleterr.ErrInvalidAmount)
		}
		if total.Cmp(required) >= 0 {
			return &Selection{
				Inputs: inputs,
				Total:  total,
				Change: new(uint256.Int).Sub(total, required),
			}, nil
		}
	}

	return nil, &InsufficientFundsError{Required: required.Clone(), Available: total}
}

// Sum returns the total value of utxos.
func Sum(utxos []UTXO) *uint256.Int {
	total := new(uint256.Int)
	for _, u := range utxos {
		if u.Value != nil {
			total.Add(total, u.Value)
		}
	}
	return total
}
