package partition

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

func sets(vs ...uint64) []types.IndexSet {
	out := make([]types.IndexSet, len(vs))
	for i, v := range vs {
		out[i] = types.IndexSetFromUint64(v)
	}
	return out
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		sets    []types.IndexSet
		n       int
		wantErr error
	}{
		{"empty", nil, 2, ErrTrivial},
		{"single", sets(0b01), 2, ErrTrivial},
		{"single full", sets(0b11), 2, ErrTrivial},
		{"overlap", sets(0b01, 0b01), 2, ErrOverlap},
		{"out of range", sets(0b01, 0b100), 2, ErrOutOfRange},
		{"gap", sets(0b001, 0b010), 3, ErrIncompleteCover},
		{"binary", sets(0b01, 0b10), 2, nil},
		{"binary reversed", sets(0b10, 0b01), 2, nil},
		{"three way", sets(0b001, 0b010, 0b100), 3, nil},
		{"coarse", sets(0b011, 0b100), 3, nil},
		{"zero element", sets(0b01, 0, 0b10), 2, nil},
		{"partial overlap", sets(0b011, 0b110), 3, ErrOverlap},
		{"overlap before range", sets(0b01, 0b101), 2, ErrOverlap},
		{"bad slot count", sets(0b01, 0b10), 0, ErrSlotCount},
		{"slot count too large", sets(0b01, 0b10), 257, ErrSlotCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.sets, tt.n)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Check() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ctferr.ErrValidation) {
				t.Errorf("Check() error %v is not a validation error", err)
			}
		})
	}
}

func TestValidate_TruthTable(t *testing.T) {
	for n := 2; n <= 8; n++ {
		if Validate(nil, n) {
			t.Errorf("Validate([], %d) = true", n)
		}
		if Validate(sets(0b01), n) {
			t.Errorf("Validate([0b01], %d) = true", n)
		}
	}
	if Validate(sets(0b01, 0b01), 2) {
		t.Error("Validate([0b01,0b01], 2) = true")
	}
	if Validate(sets(0b01, 0b100), 2) {
		t.Error("Validate([0b01,0b100], 2) = true")
	}
	if !Validate(sets(0b01, 0b10), 2) {
		t.Error("Validate([0b01,0b10], 2) = false")
	}
}

func TestValidate_WideSlots(t *testing.T) {
	// Split 256 slots into the low and high halves.
	low := types.IndexSet{^uint64(0), ^uint64(0)}
	high := types.IndexSet{0, 0, ^uint64(0), ^uint64(0)}
	if !Validate([]types.IndexSet{low, high}, 256) {
		t.Error("halves of a 256-slot condition should validate")
	}

	// Slot 200 alone against everything else.
	var one types.IndexSet
	one[200/64] = 1 << (200 % 64)
	rest := types.FullIndexSet(256)
	rest[200/64] &^= 1 << (200 % 64)
	if !Validate([]types.IndexSet{one, rest}, 256) {
		t.Error("single high slot partition should validate")
	}

	// Slot 10 is outside a 10-slot condition.
	if Validate([]types.IndexSet{types.FullIndexSet(10), types.IndexSetFromUint64(1 << 10)}, 10) {
		t.Error("bit 10 must be out of range for n=10")
	}
}
