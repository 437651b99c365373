// Package ctferr defines the error kinds shared by every ledger component.
//
// Components declare their own sentinel errors wrapping one of these kinds:
//
//	var ErrInvalidPartition = fmt.Errorf("%w: invalid partition", ctferr.ErrValidation)
//
// so callers can branch on the kind with errors.Is while still seeing the
// specific cause in the message.
package ctferr

import "errors"

// Error kinds.
var (
	// ErrValidation marks malformed input: bad slot counts, partitions,
	// index sets, or payout vectors.
	ErrValidation = errors.New("validation error")
	// ErrAuthorization marks a caller that is not the oracle, owner, or
	// authority required by the operation.
	ErrAuthorization = errors.New("authorization error")
	// ErrState marks an operation that is illegal in the current lifecycle
	// state (already resolved, not yet resolved, already prepared).
	ErrState = errors.New("state error")
	// ErrArithmetic marks a checked-arithmetic overflow or division by zero.
	ErrArithmetic = errors.New("arithmetic error")
	// ErrCustody marks a failed transfer, mint, or burn.
	ErrCustody = errors.New("custody error")
	// ErrNotFound marks a lookup of an unknown condition or asset.
	ErrNotFound = errors.New("not found")
)

// Kind returns the kind sentinel err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrAuthorization, ErrState, ErrArithmetic, ErrCustody, ErrNotFound} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Label returns a short metric/log label for err's kind: "ok" for nil,
// "internal" for errors that wrap no kind.
func Label(err error) string {
	if err == nil {
		return "ok"
	}
	switch Kind(err) {
	case ErrValidation:
		return "validation"
	case ErrAuthorization:
		return "authorization"
	case ErrState:
		return "state"
	case ErrArithmetic:
		return "arithmetic"
	case ErrCustody:
		return "custody"
	case ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
