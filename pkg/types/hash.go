// Package types defines the primitive identifiers shared by the CTF ledger.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// ConditionID is the content-addressed identity of a condition.
type ConditionID Hash

// QuestionID is the opaque 32-byte question identifier chosen by a condition's creator.
type QuestionID Hash

// AssetID identifies a custody asset: a collateral token or an outcome position.
type AssetID Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash decodes 64 hex characters with an optional 0x prefix.
func HexToHash(s string) (Hash, error) {
	var h Hash
	if err := decodeFixed(h[:], s); err != nil {
		return Hash{}, fmt.Errorf("invalid hash: %w", err)
	}
	return h, nil
}

// IsZero returns true if the condition ID is all zeros.
func (c ConditionID) IsZero() bool {
	return Hash(c).IsZero()
}

// String returns the hex-encoded condition ID.
func (c ConditionID) String() string {
	return Hash(c).String()
}

// MarshalJSON encodes the condition ID as a hex string.
func (c ConditionID) MarshalJSON() ([]byte, error) {
	return Hash(c).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into a condition ID.
func (c *ConditionID) UnmarshalJSON(data []byte) error {
	return (*Hash)(c).UnmarshalJSON(data)
}

// String returns the hex-encoded question ID.
func (q QuestionID) String() string {
	return Hash(q).String()
}

// MarshalJSON encodes the question ID as a hex string.
func (q QuestionID) MarshalJSON() ([]byte, error) {
	return Hash(q).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into a question ID.
func (q *QuestionID) UnmarshalJSON(data []byte) error {
	return (*Hash)(q).UnmarshalJSON(data)
}

// IsZero returns true if the asset ID is all zeros.
func (a AssetID) IsZero() bool {
	return Hash(a).IsZero()
}

// String returns the hex-encoded asset ID.
func (a AssetID) String() string {
	return Hash(a).String()
}

// MarshalJSON encodes the asset ID as a hex string.
func (a AssetID) MarshalJSON() ([]byte, error) {
	return Hash(a).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into an asset ID.
func (a *AssetID) UnmarshalJSON(data []byte) error {
	return (*Hash)(a).UnmarshalJSON(data)
}
