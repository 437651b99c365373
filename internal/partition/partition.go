// Package partition checks that a set of index sets is a valid partition
// of a condition's outcome space.
package partition

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Partition errors.
var (
	ErrTrivial         = fmt.Errorf("%w: partition needs at least 2 index sets", ctferr.ErrValidation)
	ErrOverlap         = fmt.Errorf("%w: index sets overlap", ctferr.ErrValidation)
	ErrOutOfRange      = fmt.Errorf("%w: index set exceeds outcome range", ctferr.ErrValidation)
	ErrIncompleteCover = fmt.Errorf("%w: partition does not cover every outcome slot", ctferr.ErrValidation)
	ErrSlotCount       = fmt.Errorf("%w: outcome slot count out of range", ctferr.ErrValidation)
)

// Check returns nil if sets disjointly cover all outcomeSlotCount slots,
// or an error naming the first rule violated. Sets are examined in order.
func Check(sets []types.IndexSet, outcomeSlotCount int) error {
	if len(sets) < 2 {
		return ErrTrivial
	}
	if outcomeSlotCount < 1 || outcomeSlotCount > types.IndexSetBits {
		return fmt.Errorf("%w: %d", ErrSlotCount, outcomeSlotCount)
	}

	full := types.FullIndexSet(outcomeSlotCount)
	var union types.IndexSet
	for i, s := range sets {
		if !union.And(s).IsZero() {
			return fmt.Errorf("%w: element %d (%s)", ErrOverlap, i, s)
		}
		if s.Cmp(full) > 0 {
			return fmt.Errorf("%w: element %d (%s > %s)", ErrOutOfRange, i, s, full)
		}
		union = union.Or(s)
	}
	if union != full {
		return fmt.Errorf("%w: union %s, want %s", ErrIncompleteCover, union, full)
	}
	return nil
}

// Validate reports whether sets is a valid partition of outcomeSlotCount slots.
func Validate(sets []types.IndexSet, outcomeSlotCount int) bool {
	return Check(sets, outcomeSlotCount) == nil
}
