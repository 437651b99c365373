package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Identity path: m/44'/CoinType'/account'/0/0
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeCTF is the coin type used for ledger identities (hardened).
	CoinTypeCTF = bip32.FirstHardenedChild + 8889
)

// DeriveIdentity derives the signing key of an account from a BIP-39 seed.
func DeriveIdentity(seed []byte, account uint32) (*crypto.PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	if account >= bip32.FirstHardenedChild {
		return nil, fmt.Errorf("account index %d out of range", account)
	}
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	path := []uint32{PurposeBIP44, CoinTypeCTF, bip32.FirstHardenedChild + account, 0, 0}
	for _, idx := range path {
		if key, err = key.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}

	// bip32 private keys are 33 bytes with a leading 0x00.
	raw := key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}
