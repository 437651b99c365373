package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Wire sizes of keys and signatures carried in signed calls.
const (
	PrivateKeySize = 32
	PubKeySize     = 33 // compressed secp256k1
	SignatureSize  = 64 // BIP-340 style Schnorr
)

// ErrInvalidKey is returned for secrets that are not a valid secp256k1 scalar.
var ErrInvalidKey = errors.New("invalid private key")

// Signer signs call digests on behalf of an identity.
type Signer interface {
	Sign(digest types.Hash) ([]byte, error)
	PublicKey() []byte
}

// Verifier checks the signature on a call digest.
type Verifier interface {
	Verify(digest types.Hash, signature, publicKey []byte) bool
}

// PrivateKey is a secp256k1 identity key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a random identity key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes loads a 32-byte big-endian scalar. Zero and values
// at or above the curve order are rejected rather than reduced.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(b))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidKey)
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// PrivateKeyFromHex is PrivateKeyFromBytes for hex input with an optional 0x prefix.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return PrivateKeyFromBytes(b)
}

func (pk *PrivateKey) Sign(digest types.Hash) ([]byte, error) {
	sig, err := schnorr.Sign(pk.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Address returns the ledger identity controlled by this key.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPubKey(pk.PublicKey())
}

// Serialize returns the secret scalar. Callers own the returned slice
// and should wipe it when done.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero clears the secret scalar; the key is unusable afterwards.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SchnorrVerifier is the Verifier used by the RPC server.
type SchnorrVerifier struct{}

// Verify reports whether signature is valid for digest under publicKey.
// Malformed keys or signatures verify as false.
func (SchnorrVerifier) Verify(digest types.Hash, signature, publicKey []byte) bool {
	if len(publicKey) != PubKeySize || len(signature) != SignatureSize {
		return false
	}
	pub, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest[:], pub)
}
