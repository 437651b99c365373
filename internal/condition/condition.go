// Package condition implements the condition registry: creation of
// conditions and their one-way resolution by the designated oracle.
package condition

import (
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Outcome slot bounds.
const (
	MinOutcomeSlots = 2
	MaxOutcomeSlots = types.IndexSetBits
)

// Registry errors.
var (
	ErrSlotCount        = fmt.Errorf("%w: outcome slot count must be in [%d,%d]", ctferr.ErrValidation, MinOutcomeSlots, MaxOutcomeSlots)
	ErrConditionExists  = fmt.Errorf("%w: condition already prepared", ctferr.ErrState)
	ErrUnknownCondition = fmt.Errorf("%w: condition", ctferr.ErrNotFound)
	ErrAlreadyResolved  = fmt.Errorf("%w: condition already resolved", ctferr.ErrState)
	ErrNotResolved      = fmt.Errorf("%w: condition not resolved", ctferr.ErrState)
	ErrNotOracle        = fmt.Errorf("%w: caller is not the condition oracle", ctferr.ErrAuthorization)
	ErrPayoutLength     = fmt.Errorf("%w: payout numerator count differs from outcome slot count", ctferr.ErrValidation)
	ErrZeroPayout       = fmt.Errorf("%w: payout numerators sum to zero", ctferr.ErrValidation)
)

// Condition is a question with a designated oracle and a fixed number of
// mutually exclusive outcomes.
type Condition struct {
	ID               types.ConditionID `json:"conditionId"`
	Oracle           types.Address     `json:"oracle"`
	QuestionID       types.QuestionID  `json:"questionId"`
	OutcomeSlotCount int               `json:"outcomeSlotCount"`
	Resolved         bool              `json:"isResolved"`
	// PayoutNumerators is empty until resolution, then has exactly
	// OutcomeSlotCount entries.
	PayoutNumerators []uint64 `json:"payoutNumerators"`
	// PayoutDenominator is the sum of PayoutNumerators, 0 while unresolved.
	PayoutDenominator uint64 `json:"payoutDenominator"`
}

// ID derives a condition id:
// keccak256(oracle(20) || questionId(32) || uint16be(outcomeSlotCount)).
func ID(oracle types.Address, questionID types.QuestionID, outcomeSlotCount int) types.ConditionID {
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(outcomeSlotCount))
	return types.ConditionID(crypto.Keccak256(oracle[:], questionID[:], n[:]))
}

// ValidSlotCount reports whether n is an allowed outcome slot count.
func ValidSlotCount(n int) bool {
	return n >= MinOutcomeSlots && n <= MaxOutcomeSlots
}

// Full returns the index set covering every outcome slot of c.
func (c *Condition) Full() types.IndexSet {
	return types.FullIndexSet(c.OutcomeSlotCount)
}

func (c *Condition) clone() *Condition {
	out := *c
	out.PayoutNumerators = append([]uint64{}, c.PayoutNumerators...)
	return &out
}
