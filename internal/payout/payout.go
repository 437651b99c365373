// Package payout computes redemption shares from reported payout numerators.
//
// All arithmetic is on uint64 with explicit overflow checks; the
// amount×numerator product is carried in 128 bits before dividing.
package payout

import (
	"fmt"
	"math/bits"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Payout errors.
var (
	ErrOverflow        = fmt.Errorf("%w: payout overflow", ctferr.ErrArithmetic)
	ErrZeroDenominator = fmt.Errorf("%w: zero payout denominator", ctferr.ErrArithmetic)
)

// Numerator returns the sum of numerators[i] for every slot i set in s.
// Slots beyond len(numerators) contribute nothing.
func Numerator(numerators []uint64, s types.IndexSet) (uint64, error) {
	var sum uint64
	for i, n := range numerators {
		if !s.Has(i) {
			continue
		}
		next, carry := bits.Add64(sum, n, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: numerator sum at slot %d", ErrOverflow, i)
		}
		sum = next
	}
	return sum, nil
}

// Denominator returns the checked sum of all numerators.
func Denominator(numerators []uint64) (uint64, error) {
	var sum uint64
	for i, n := range numerators {
		next, carry := bits.Add64(sum, n, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: denominator sum at slot %d", ErrOverflow, i)
		}
		sum = next
	}
	return sum, nil
}

// Share returns floor(amount * numerator / denominator).
func Share(amount, numerator, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return 0, ErrZeroDenominator
	}
	hi, lo := bits.Mul64(amount, numerator)
	if hi >= denominator {
		return 0, fmt.Errorf("%w: %d*%d/%d exceeds 64 bits", ErrOverflow, amount, numerator, denominator)
	}
	q, _ := bits.Div64(hi, lo, denominator)
	return q, nil
}

// Add returns a+b, failing on overflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}
