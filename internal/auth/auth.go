// Package auth verifies signed calls and tracks per-identity nonces.
//
// A signed call carries an Envelope. The signer's identity is the address
// derived from its public key; the nonce binds the signature to a single
// use.
package auth

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Auth errors.
var (
	ErrMalformed    = fmt.Errorf("%w: malformed signed call", ctferr.ErrValidation)
	ErrBadSignature = fmt.Errorf("%w: invalid signature", ctferr.ErrAuthorization)
	ErrBadNonce     = fmt.Errorf("%w: unexpected nonce", ctferr.ErrAuthorization)
)

var digestDomain = []byte("ctf-call")

// Envelope is a signed call.
type Envelope struct {
	Payload   json.RawMessage `json:"payload"`
	PubKey    string          `json:"pubkey"`    // hex, compressed secp256k1
	Nonce     uint64          `json:"nonce"`     // must be the signer's last nonce + 1
	Signature string          `json:"signature"` // hex, 64-byte Schnorr
}

// Digest is the hash a signer commits to:
// blake3("ctf-call" || method || 0x00 || uint64be(nonce) || payload).
func Digest(method string, nonce uint64, payload []byte) types.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.HashParts(digestDomain, []byte(method), []byte{0}, n[:], payload)
}

// Sign builds an envelope for method with the JSON encoding of payload.
func Sign(method string, signer crypto.Signer, nonce uint64, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	digest := Digest(method, nonce, raw)
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Payload:   raw,
		PubKey:    hex.EncodeToString(signer.PublicKey()),
		Nonce:     nonce,
		Signature: hex.EncodeToString(sig),
	}, nil
}

// Verify checks the envelope's signature for method and returns the
// signer's address. It does not check the nonce against any store.
func (e *Envelope) Verify(method string, v crypto.Verifier) (types.Address, error) {
	if e.Nonce == 0 {
		return types.Address{}, fmt.Errorf("%w: nonce must start at 1", ErrMalformed)
	}
	if len(e.Payload) == 0 {
		return types.Address{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	pub, err := hex.DecodeString(e.PubKey)
	if err != nil || len(pub) != crypto.PubKeySize {
		return types.Address{}, fmt.Errorf("%w: public key", ErrMalformed)
	}
	sig, err := hex.DecodeString(e.Signature)
	if err != nil || len(sig) != crypto.SignatureSize {
		return types.Address{}, fmt.Errorf("%w: signature encoding", ErrMalformed)
	}
	digest := Digest(method, e.Nonce, e.Payload)
	if !v.Verify(digest, sig, pub) {
		return types.Address{}, ErrBadSignature
	}
	return crypto.AddressFromPubKey(pub), nil
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return nil
}
