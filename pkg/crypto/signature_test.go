package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// curveOrder is the secp256k1 group order n.
const curveOrder = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"

func mustKey(t *testing.T) *PrivateKey {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return key
}

func TestGenerateKey(t *testing.T) {
	a, b := mustKey(t), mustKey(t)
	if len(a.PublicKey()) != PubKeySize {
		t.Errorf("PublicKey() length = %d, want %d", len(a.PublicKey()), PubKeySize)
	}
	if len(a.Serialize()) != PrivateKeySize {
		t.Errorf("Serialize() length = %d, want %d", len(a.Serialize()), PrivateKeySize)
	}
	if a.Address() == b.Address() {
		t.Error("two generated keys share an address")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 1
	orderMinusOne, _ := hex.DecodeString(strings.TrimSuffix(curveOrder, "41") + "40")
	order, _ := hex.DecodeString(curveOrder)

	tests := []struct {
		name    string
		secret  []byte
		wantErr bool
	}{
		{name: "one", secret: one},
		{name: "order minus one", secret: orderMinusOne},
		{name: "zero", secret: make([]byte, 32), wantErr: true},
		{name: "curve order", secret: order, wantErr: true},
		{name: "all ones", secret: bytes.Repeat([]byte{0xff}, 32), wantErr: true},
		{name: "short", secret: one[:16], wantErr: true},
		{name: "long", secret: append(one, 0), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := PrivateKeyFromBytes(tt.secret)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("error = %v, want ErrInvalidKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PrivateKeyFromBytes() error: %v", err)
			}
			if !bytes.Equal(key.Serialize(), tt.secret) {
				t.Errorf("Serialize() = %x, want %x", key.Serialize(), tt.secret)
			}
		})
	}
}

// The generator point G is the public key of scalar 1.
func TestPrivateKey_KnownPublicKey(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 1
	key, err := PrivateKeyFromBytes(one)
	if err != nil {
		t.Fatal(err)
	}
	const g = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	if got := hex.EncodeToString(key.PublicKey()); got != g {
		t.Errorf("PublicKey() = %s, want %s", got, g)
	}
	if key.Address() != AddressFromPubKey(key.PublicKey()) {
		t.Error("Address() disagrees with AddressFromPubKey")
	}
}

func TestPrivateKeyFromHex(t *testing.T) {
	key := mustKey(t)
	secret := hex.EncodeToString(key.Serialize())

	for _, in := range []string{secret, "0x" + secret, "  0x" + secret + "\n"} {
		restored, err := PrivateKeyFromHex(in)
		if err != nil {
			t.Fatalf("PrivateKeyFromHex(%q) error: %v", in, err)
		}
		if restored.Address() != key.Address() {
			t.Errorf("PrivateKeyFromHex(%q) address = %s, want %s", in, restored.Address(), key.Address())
		}
	}
	for _, in := range []string{"", "zz", "abcd", strings.Repeat("0", 64)} {
		if _, err := PrivateKeyFromHex(in); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("PrivateKeyFromHex(%q) error = %v, want ErrInvalidKey", in, err)
		}
	}
}

func TestSchnorrVerifier(t *testing.T) {
	key, other := mustKey(t), mustKey(t)
	digest := Hash([]byte("ctf_splitPosition"))
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}

	flipped := append([]byte(nil), sig...)
	flipped[10] ^= 0x01
	otherDigest := digest
	otherDigest[0] ^= 0x01

	tests := []struct {
		name   string
		digest types.Hash
		sig    []byte
		pub    []byte
		want   bool
	}{
		{"valid", digest, sig, key.PublicKey(), true},
		{"other digest", otherDigest, sig, key.PublicKey(), false},
		{"other key", digest, sig, other.PublicKey(), false},
		{"corrupted signature", digest, flipped, key.PublicKey(), false},
		{"truncated signature", digest, sig[:63], key.PublicKey(), false},
		{"empty signature", digest, nil, key.PublicKey(), false},
		{"short key", digest, sig, key.PublicKey()[:32], false},
		{"garbage key", digest, sig, bytes.Repeat([]byte{0x05}, PubKeySize), false},
	}
	var v Verifier = SchnorrVerifier{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Verify(tt.digest, tt.sig, tt.pub); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	key := mustKey(t)
	digest := Hash([]byte("bank_mint"))
	a, err := key.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	b, err := key.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("signing the same digest twice gave different signatures")
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key := mustKey(t)
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, PrivateKeySize)) {
		t.Error("Serialize() after Zero should be all zeros")
	}
}

func TestPrivateKey_IsSigner(t *testing.T) {
	var s Signer = mustKey(t)
	digest := HashParts([]byte("ctf-call"), []byte("ctf_mergePositions"))
	sig, err := s.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	if !(SchnorrVerifier{}).Verify(digest, sig, s.PublicKey()) {
		t.Error("signature from Signer should verify")
	}
}
