package condition

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

var (
	prefixCondition = []byte("c/") // c/<conditionID(32)> -> Condition JSON
	prefixQuestion  = []byte("k/") // k/<oracle(20)><questionID(32)> -> conditionID
)

// Store persists conditions.
type Store struct {
	db storage.DB
}

// NewStore creates a condition store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Put stores c and its (oracle, questionId) index entry.
func (s *Store) Put(c *Condition) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("condition marshal: %w", err)
	}
	if err := s.db.Put(conditionKey(c.ID), data); err != nil {
		return fmt.Errorf("condition put: %w", err)
	}
	if err := s.db.Put(questionKey(c.Oracle, c.QuestionID), c.ID[:]); err != nil {
		return fmt.Errorf("condition index put: %w", err)
	}
	return nil
}

// Get retrieves a condition by id.
func (s *Store) Get(id types.ConditionID) (*Condition, error) {
	data, err := s.db.Get(conditionKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w %s", ErrUnknownCondition, id)
	}
	if err != nil {
		return nil, fmt.Errorf("condition get: %w", err)
	}
	var c Condition
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("condition unmarshal: %w", err)
	}
	if c.PayoutNumerators == nil {
		c.PayoutNumerators = []uint64{}
	}
	return &c, nil
}

// Lookup returns the id prepared for (oracle, questionID), if any.
func (s *Store) Lookup(oracle types.Address, questionID types.QuestionID) (types.ConditionID, bool, error) {
	data, err := s.db.Get(questionKey(oracle, questionID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return types.ConditionID{}, false, nil
	}
	if err != nil {
		return types.ConditionID{}, false, fmt.Errorf("condition index get: %w", err)
	}
	var id types.ConditionID
	copy(id[:], data)
	return id, true, nil
}

// ForEach iterates over every stored condition in id order.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEach(fn func(*Condition) error) error {
	return s.db.ForEach(prefixCondition, func(key, value []byte) error {
		if len(key) != len(prefixCondition)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var c Condition
		if err := json.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("condition unmarshal: %w", err)
		}
		if c.PayoutNumerators == nil {
			c.PayoutNumerators = []uint64{}
		}
		return fn(&c)
	})
}

func conditionKey(id types.ConditionID) []byte {
	key := make([]byte, len(prefixCondition)+types.HashSize)
	copy(key, prefixCondition)
	copy(key[len(prefixCondition):], id[:])
	return key
}

func questionKey(oracle types.Address, questionID types.QuestionID) []byte {
	key := make([]byte, 0, len(prefixQuestion)+types.AddressSize+types.HashSize)
	key = append(key, prefixQuestion...)
	key = append(key, oracle[:]...)
	key = append(key, questionID[:]...)
	return key
}
