package storage

// Scope confines a DB to the keys under one prefix. Ledger state and
// replay-protection nonces share the root database through two scopes.
type Scope struct {
	inner  DB
	prefix []byte
}

// NewScope returns a view of inner restricted to keys starting with prefix.
func NewScope(inner DB, prefix []byte) *Scope {
	return &Scope{inner: inner, prefix: append([]byte(nil), prefix...)}
}

func (s *Scope) full(key []byte) []byte {
	k := make([]byte, 0, len(s.prefix)+len(key))
	k = append(k, s.prefix...)
	return append(k, key...)
}

func (s *Scope) Get(key []byte) ([]byte, error) { return s.inner.Get(s.full(key)) }

func (s *Scope) Put(key, value []byte) error { return s.inner.Put(s.full(key), value) }

func (s *Scope) Delete(key []byte) error { return s.inner.Delete(s.full(key)) }

func (s *Scope) Has(key []byte) (bool, error) { return s.inner.Has(s.full(key)) }

// ForEach visits keys under prefix inside the scope. Keys handed to fn are
// relative to the scope.
func (s *Scope) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(s.prefix)
	return s.inner.ForEach(s.full(prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

// Close does nothing; the root database owns the lifecycle.
func (s *Scope) Close() error { return nil }
