package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"math/bits"
	"strings"
)

// IndexSetBits is the width of an index set. It matches the largest
// permitted outcome slot count, so every slot of any condition is addressable.
const IndexSetBits = 256

const indexSetWords = IndexSetBits / 64

// IndexSet is a bitmask over a condition's outcome slots. Bit i set means
// the position covers outcome slot i. Words are little-endian: w[0] holds
// slots 0-63.
type IndexSet [indexSetWords]uint64

// IndexSetFromUint64 builds an index set covering the low 64 slots.
func IndexSetFromUint64(v uint64) IndexSet {
	return IndexSet{v}
}

// FullIndexSet returns the set with the low n bits set, i.e. (1 << n) - 1.
// n is clamped to [0, IndexSetBits].
func FullIndexSet(n int) IndexSet {
	var s IndexSet
	if n <= 0 {
		return s
	}
	if n > IndexSetBits {
		n = IndexSetBits
	}
	for i := 0; i < indexSetWords; i++ {
		switch {
		case n >= 64:
			s[i] = ^uint64(0)
			n -= 64
		case n > 0:
			s[i] = (uint64(1) << uint(n)) - 1
			n = 0
		}
	}
	return s
}

// IsZero reports whether no slot is set.
func (s IndexSet) IsZero() bool {
	return s == IndexSet{}
}

// And returns the intersection of s and o.
func (s IndexSet) And(o IndexSet) IndexSet {
	var r IndexSet
	for i := range s {
		r[i] = s[i] & o[i]
	}
	return r
}

// Or returns the union of s and o.
func (s IndexSet) Or(o IndexSet) IndexSet {
	var r IndexSet
	for i := range s {
		r[i] = s[i] | o[i]
	}
	return r
}

// Has reports whether slot i is set.
func (s IndexSet) Has(i int) bool {
	if i < 0 || i >= IndexSetBits {
		return false
	}
	return s[i/64]&(uint64(1)<<uint(i%64)) != 0
}

// Cmp compares s and o as unsigned 256-bit integers, returning -1, 0 or +1.
func (s IndexSet) Cmp(o IndexSet) int {
	for i := indexSetWords - 1; i >= 0; i-- {
		switch {
		case s[i] > o[i]:
			return 1
		case s[i] < o[i]:
			return -1
		}
	}
	return 0
}

// Count returns the number of set slots.
func (s IndexSet) Count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Bytes returns the 32-byte big-endian encoding used in hashes and keys.
func (s IndexSet) Bytes() []byte {
	b := make([]byte, indexSetWords*8)
	for i := 0; i < indexSetWords; i++ {
		binary.BigEndian.PutUint64(b[(indexSetWords-1-i)*8:], s[i])
	}
	return b
}

// String returns the minimal 0x-prefixed hex form, e.g. "0x5".
func (s IndexSet) String() string {
	return "0x" + s.big().Text(16)
}

func (s IndexSet) big() *big.Int {
	return new(big.Int).SetBytes(s.Bytes())
}

// ParseIndexSet parses "0x"-prefixed hex, "0b"-prefixed binary or decimal.
func ParseIndexSet(str string) (IndexSet, error) {
	str = strings.TrimSpace(str)
	base := 10
	digits := str
	switch {
	case strings.HasPrefix(str, "0x"), strings.HasPrefix(str, "0X"):
		base, digits = 16, str[2:]
	case strings.HasPrefix(str, "0b"), strings.HasPrefix(str, "0B"):
		base, digits = 2, str[2:]
	}
	if digits == "" {
		return IndexSet{}, fmt.Errorf("invalid index set %q", str)
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok || v.Sign() < 0 {
		return IndexSet{}, fmt.Errorf("invalid index set %q", str)
	}
	if v.BitLen() > IndexSetBits {
		return IndexSet{}, fmt.Errorf("index set %q wider than %d bits", str, IndexSetBits)
	}
	var buf [indexSetWords * 8]byte
	v.FillBytes(buf[:])
	var s IndexSet
	for i := 0; i < indexSetWords; i++ {
		s[i] = binary.BigEndian.Uint64(buf[(indexSetWords-1-i)*8:])
	}
	return s, nil
}

// MarshalJSON encodes the index set as a hex string.
func (s IndexSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a string (hex, binary or decimal) or a bare JSON number.
func (s *IndexSet) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseIndexSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
