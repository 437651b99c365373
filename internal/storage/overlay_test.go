package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestOverlay_ReadThrough(t *testing.T) {
	inner := NewMemory()
	inner.Put([]byte("a"), []byte("1"))

	o := NewOverlay(inner)
	val, err := o.Get([]byte("a"))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(val, []byte("1")) {
		t.Errorf("Get() = %q, want %q", val, "1")
	}
}

func TestOverlay_WritesStayPending(t *testing.T) {
	inner := NewMemory()
	inner.Put([]byte("a"), []byte("1"))

	o := NewOverlay(inner)
	o.Put([]byte("a"), []byte("2"))
	o.Put([]byte("b"), []byte("3"))

	if val, _ := o.Get([]byte("a")); !bytes.Equal(val, []byte("2")) {
		t.Errorf("overlay Get(a) = %q, want %q", val, "2")
	}
	if val, _ := inner.Get([]byte("a")); !bytes.Equal(val, []byte("1")) {
		t.Errorf("inner Get(a) = %q before commit, want %q", val, "1")
	}
	if ok, _ := inner.Has([]byte("b")); ok {
		t.Error("inner should not see b before commit")
	}
	if o.Len() != 2 {
		t.Errorf("Len() = %d, want 2", o.Len())
	}
}

func TestOverlay_DeleteShadowsInner(t *testing.T) {
	inner := NewMemory()
	inner.Put([]byte("a"), []byte("1"))

	o := NewOverlay(inner)
	o.Delete([]byte("a"))

	if ok, _ := o.Has([]byte("a")); ok {
		t.Error("Has() = true after overlay delete")
	}
	if _, err := o.Get([]byte("a")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
	if ok, _ := inner.Has([]byte("a")); !ok {
		t.Error("inner lost key before commit")
	}
}

func TestOverlay_Commit(t *testing.T) {
	inner := NewMemory()
	inner.Put([]byte("gone"), []byte("x"))

	o := NewOverlay(inner)
	o.Put([]byte("new"), []byte("y"))
	o.Delete([]byte("gone"))
	if err := o.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	if ok, _ := inner.Has([]byte("gone")); ok {
		t.Error("delete not applied on commit")
	}
	if val, _ := inner.Get([]byte("new")); !bytes.Equal(val, []byte("y")) {
		t.Errorf("inner Get(new) = %q, want %q", val, "y")
	}
	if o.Len() != 0 {
		t.Errorf("Len() after commit = %d, want 0", o.Len())
	}
}

func TestOverlay_Discard(t *testing.T) {
	inner := NewMemory()
	o := NewOverlay(inner)
	o.Put([]byte("a"), []byte("1"))
	o.Discard()

	if err := o.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if ok, _ := inner.Has([]byte("a")); ok {
		t.Error("discarded write reached inner DB")
	}
}

func TestOverlay_ForEachMerged(t *testing.T) {
	inner := NewMemory()
	inner.Put([]byte("p/1"), []byte("inner1"))
	inner.Put([]byte("p/2"), []byte("inner2"))
	inner.Put([]byte("p/3"), []byte("inner3"))
	inner.Put([]byte("q/1"), []byte("other"))

	o := NewOverlay(inner)
	o.Put([]byte("p/2"), []byte("over2"))
	o.Delete([]byte("p/3"))
	o.Put([]byte("p/0"), []byte("over0"))
	o.Put([]byte("q/2"), []byte("other"))

	var keys, vals []string
	err := o.ForEach([]byte("p/"), func(k, v []byte) error {
		keys = append(keys, string(k))
		vals = append(vals, string(v))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}

	wantKeys := []string{"p/0", "p/1", "p/2"}
	wantVals := []string{"over0", "inner1", "over2"}
	if len(keys) != len(wantKeys) {
		t.Fatalf("ForEach keys = %v, want %v", keys, wantKeys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] || vals[i] != wantVals[i] {
			t.Errorf("entry %d = %s:%s, want %s:%s", i, keys[i], vals[i], wantKeys[i], wantVals[i])
		}
	}
}

func TestOverlay_CommitThroughBadger(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()

	o := NewOverlay(NewScope(db, []byte("ns/")))
	o.Put([]byte("k1"), []byte("v1"))
	o.Put([]byte("k2"), []byte("v2"))
	if err := o.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	for _, k := range []string{"ns/k1", "ns/k2"} {
		if ok, _ := db.Has([]byte(k)); !ok {
			t.Errorf("badger missing %s after commit", k)
		}
	}
}

func TestOverlay_Nested(t *testing.T) {
	inner := NewMemory()
	outer := NewOverlay(inner)
	outer.Put([]byte("a"), []byte("1"))

	nested := NewOverlay(outer)
	nested.Put([]byte("b"), []byte("2"))
	if val, _ := nested.Get([]byte("a")); !bytes.Equal(val, []byte("1")) {
		t.Errorf("nested Get(a) = %q, want %q", val, "1")
	}
	if err := nested.Commit(); err != nil {
		t.Fatalf("nested Commit() error: %v", err)
	}
	if ok, _ := inner.Has([]byte("b")); ok {
		t.Error("nested commit leaked past outer overlay")
	}
	if ok, _ := outer.Has([]byte("b")); !ok {
		t.Error("nested commit did not reach outer overlay")
	}
}
