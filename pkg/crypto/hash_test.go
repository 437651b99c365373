package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("Hash(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	h1 := Hash(data)
	h2 := Hash(data)
	if h1 != h2 {
		t.Errorf("Hash is not deterministic: %s != %s", h1, h2)
	}
}

func TestHash_DifferentInputs(t *testing.T) {
	h1 := Hash([]byte("input A"))
	h2 := Hash([]byte("input B"))
	if h1 == h2 {
		t.Error("different inputs produced the same hash")
	}
}

func TestHashParts_EqualsConcat(t *testing.T) {
	a := []byte("vault")
	b := []byte{0x01, 0x02, 0x03}
	c := []byte{}

	want := Hash(append(append([]byte{}, a...), b...))
	if got := HashParts(a, b, c); got != want {
		t.Errorf("HashParts = %s, want %s", got, want)
	}
	if HashParts(b, a) == want {
		t.Error("HashParts must depend on part order")
	}
}

func TestKeccak256(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keccak256(tt.input)
			if got != hexToHash(t, tt.want) {
				t.Errorf("Keccak256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeccak256_Parts(t *testing.T) {
	if Keccak256([]byte("hel"), []byte("lo")) != Keccak256([]byte("hello")) {
		t.Error("Keccak256 over parts should equal Keccak256 over the concatenation")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	pub := make([]byte, 33)
	pub[0] = 0x02
	addr := AddressFromPubKey(pub)
	h := Hash(pub)
	if string(addr[:]) != string(h[:types.AddressSize]) {
		t.Errorf("AddressFromPubKey = %s, want first 20 bytes of %s", addr, h)
	}
}
