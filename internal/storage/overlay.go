package storage

import (
	"sort"
	"strings"
)

// Overlay is a write set layered over a committed DB. Reads see the
// overlay's own pending writes first, then the inner DB. Nothing reaches
// the inner DB until Commit, which applies the whole write set through a
// single Batch when the inner DB is a Batcher.
//
// An Overlay is not safe for concurrent use; the engine owns one per
// logical operation.
type Overlay struct {
	inner  DB
	writes map[string][]byte // nil value marks a pending delete
}

// NewOverlay creates an empty write set over inner.
func NewOverlay(inner DB) *Overlay {
	return &Overlay{inner: inner, writes: make(map[string][]byte)}
}

// Get returns the pending value for key, falling back to the inner DB.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if v, ok := o.writes[string(key)]; ok {
		if v == nil {
			return nil, ErrKeyNotFound
		}
		return v, nil
	}
	return o.inner.Get(key)
}

// Put buffers a write.
func (o *Overlay) Put(key, value []byte) error {
	o.writes[string(key)] = copyBytes(value)
	return nil
}

// Delete buffers a delete.
func (o *Overlay) Delete(key []byte) error {
	o.writes[string(key)] = nil
	return nil
}

// Has checks pending writes, then the inner DB.
func (o *Overlay) Has(key []byte) (bool, error) {
	if v, ok := o.writes[string(key)]; ok {
		return v != nil, nil
	}
	return o.inner.Has(key)
}

// ForEach iterates the merged view in key order.
func (o *Overlay) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	err := o.inner.ForEach(prefix, func(key, value []byte) error {
		if _, shadowed := o.writes[string(key)]; !shadowed {
			merged[string(key)] = copyBytes(value)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p := string(prefix)
	for k, v := range o.writes {
		if v != nil && strings.HasPrefix(k, p) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of pending writes.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Commit applies the pending writes to the inner DB and clears the overlay.
func (o *Overlay) Commit() error {
	if len(o.writes) == 0 {
		return nil
	}
	var b Batch
	if batcher, ok := o.inner.(Batcher); ok {
		b = batcher.NewBatch()
	} else {
		b = &directBatch{db: o.inner}
	}

	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var err error
		if v := o.writes[k]; v == nil {
			err = b.Delete([]byte(k))
		} else {
			err = b.Put([]byte(k), v)
		}
		if err != nil {
			return err
		}
	}
	if err := b.Commit(); err != nil {
		return err
	}
	o.Discard()
	return nil
}

// Discard drops every pending write.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
}

// Close is a no-op; the inner DB manages its own lifecycle.
func (o *Overlay) Close() error {
	return nil
}

// directBatch applies writes one by one to a DB without batch support.
type directBatch struct {
	db  DB
	ops []batchOp
}

func (d *directBatch) Put(key, value []byte) error {
	d.ops = append(d.ops, batchOp{key: copyBytes(key), value: copyBytes(value)})
	return nil
}

func (d *directBatch) Delete(key []byte) error {
	d.ops = append(d.ops, batchOp{key: copyBytes(key)})
	return nil
}

func (d *directBatch) Commit() error {
	for _, op := range d.ops {
		var err error
		if op.value == nil {
			err = d.db.Delete(op.key)
		} else {
			err = d.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
