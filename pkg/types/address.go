package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address identifies a holder, an oracle, or a derived capability
// (vault, mint authority). Key-backed addresses are BLAKE3(pubkey)[:20].
type Address [AddressSize]byte

func (a Address) IsZero() bool { return a == Address{} }

// String renders the address as 0x-prefixed lowercase hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText makes addresses usable as JSON strings, JSON object keys
// and TOML values.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts the forms ParseAddress accepts. Empty input
// decodes to the zero address.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes 40 hex characters with an optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixed(a[:], s); err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}

// decodeFixed fills dst from hex s, requiring an exact length match.
func decodeFixed(dst []byte, s string) error {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 2*len(dst) {
		return fmt.Errorf("want %d hex chars, got %d", 2*len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
