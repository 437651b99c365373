package auth

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

var prefixNonce = []byte("n/") // n/<address(20)> -> last used nonce

// NonceStore records the last nonce each identity used.
type NonceStore struct {
	db storage.DB
}

// NewNonceStore creates a nonce store over db.
func NewNonceStore(db storage.DB) *NonceStore {
	return &NonceStore{db: db}
}

// Last returns the last nonce used by addr, 0 if none.
func (s *NonceStore) Last(addr types.Address) (uint64, error) {
	data, err := s.db.Get(nonceKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("nonce get: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("nonce get: corrupt value of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Next returns the nonce addr must sign its next call with.
func (s *NonceStore) Next(addr types.Address) (uint64, error) {
	last, err := s.Last(addr)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Use consumes nonce for addr. It must be exactly Last(addr)+1.
func (s *NonceStore) Use(addr types.Address, nonce uint64) error {
	last, err := s.Last(addr)
	if err != nil {
		return err
	}
	if nonce != last+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrBadNonce, nonce, last+1)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return s.db.Put(nonceKey(addr), buf[:])
}

func nonceKey(addr types.Address) []byte {
	key := make([]byte, len(prefixNonce)+types.AddressSize)
	copy(key, prefixNonce)
	copy(key[len(prefixNonce):], addr[:])
	return key
}
