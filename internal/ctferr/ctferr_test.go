package ctferr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"direct", ErrState, ErrState},
		{"wrapped once", fmt.Errorf("%w: already resolved", ErrState), ErrState},
		{"wrapped twice", fmt.Errorf("redeem: %w", fmt.Errorf("%w: overflow", ErrArithmetic)), ErrArithmetic},
		{"custody", fmt.Errorf("%w: insufficient balance", ErrCustody), ErrCustody},
		{"unrelated", errors.New("boom"), nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: bad partition", ErrValidation), "validation"},
		{ErrAuthorization, "authorization"},
		{ErrState, "state"},
		{ErrArithmetic, "arithmetic"},
		{ErrCustody, "custody"},
		{ErrNotFound, "not_found"},
		{errors.New("disk full"), "internal"},
	}
	for _, tt := range tests {
		if got := Label(tt.err); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
