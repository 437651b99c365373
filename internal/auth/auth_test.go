package auth

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

type splitPayload struct {
	Amount uint64 `json:"amount"`
}

func TestSignVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	env, err := Sign("ctf_splitPosition", key, 1, splitPayload{Amount: 10})
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	addr, err := env.Verify("ctf_splitPosition", crypto.SchnorrVerifier{})
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if addr != key.Address() {
		t.Errorf("Verify() address = %s, want %s", addr, key.Address())
	}

	var p splitPayload
	if err := env.Decode(&p); err != nil || p.Amount != 10 {
		t.Errorf("Decode() = %+v, %v", p, err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()

	tests := []struct {
		name    string
		method  string
		mutate  func(e *Envelope)
		wantErr error
	}{
		{"other method", "ctf_mergePositions", func(e *Envelope) {}, ErrBadSignature},
		{"tampered payload", "ctf_splitPosition", func(e *Envelope) { e.Payload = []byte(`{"amount":11}`) }, ErrBadSignature},
		{"other nonce", "ctf_splitPosition", func(e *Envelope) { e.Nonce = 2 }, ErrBadSignature},
		{"other key", "ctf_splitPosition", func(e *Envelope) {
			o, _ := Sign("ctf_splitPosition", other, 1, splitPayload{Amount: 10})
			e.PubKey = o.PubKey
		}, ErrBadSignature},
		{"zero nonce", "ctf_splitPosition", func(e *Envelope) { e.Nonce = 0 }, ErrMalformed},
		{"bad pubkey", "ctf_splitPosition", func(e *Envelope) { e.PubKey = "zz" }, ErrMalformed},
		{"short signature", "ctf_splitPosition", func(e *Envelope) { e.Signature = "abcd" }, ErrMalformed},
		{"empty payload", "ctf_splitPosition", func(e *Envelope) { e.Payload = nil }, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := Sign("ctf_splitPosition", key, 1, splitPayload{Amount: 10})
			tt.mutate(env)
			if _, err := env.Verify(tt.method, crypto.SchnorrVerifier{}); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDigest_MethodSeparator(t *testing.T) {
	// "ab" + payload "c..." must not collide with "a" + payload "bc...".
	if Digest("ab", 1, []byte("c")) == Digest("a", 1, []byte("bc")) {
		t.Error("method and payload boundaries must be unambiguous")
	}
}

func TestNonceStore(t *testing.T) {
	s := NewNonceStore(storage.NewMemory())
	addr := types.Address{0x01}

	next, err := s.Next(addr)
	if err != nil || next != 1 {
		t.Fatalf("Next() = %d, %v; want 1", next, err)
	}
	if err := s.Use(addr, 1); err != nil {
		t.Fatalf("Use(1) error: %v", err)
	}

	// Replays and gaps are both rejected.
	for _, n := range []uint64{0, 1, 3} {
		err := s.Use(addr, n)
		if !errors.Is(err, ErrBadNonce) || !errors.Is(err, ctferr.ErrAuthorization) {
			t.Errorf("Use(%d) error = %v, want ErrBadNonce", n, err)
		}
	}
	if err := s.Use(addr, 2); err != nil {
		t.Fatalf("Use(2) error: %v", err)
	}
	if last, _ := s.Last(addr); last != 2 {
		t.Errorf("Last() = %d, want 2", last)
	}

	// Identities are independent.
	if next, _ := s.Next(types.Address{0x02}); next != 1 {
		t.Errorf("other identity Next() = %d, want 1", next)
	}
}
