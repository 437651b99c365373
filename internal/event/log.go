package event

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
)

// Key prefixes for event data.
var (
	prefixRecord = []byte("e/") // e/<seq> -> Record JSON
	keySeq       = []byte("n")  // last assigned seq
)

// Log appends records to a storage.DB. Records appended through one Log
// are also kept in memory so the caller can publish them after commit.
type Log struct {
	db      storage.DB
	pending []*Record
}

// NewLog creates an event log over db.
func NewLog(db storage.DB) *Log {
	return &Log{db: db}
}

func recordKey(seq uint64) []byte {
	key := make([]byte, len(prefixRecord)+8)
	copy(key, prefixRecord)
	binary.BigEndian.PutUint64(key[len(prefixRecord):], seq)
	return key
}

// LastSeq returns the sequence number of the newest record, or 0.
func (l *Log) LastSeq() (uint64, error) {
	data, err := l.db.Get(keySeq)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read event seq: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt event seq: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Append assigns the next sequence number to rec and stores it.
func (l *Log) Append(rec *Record) error {
	last, err := l.LastSeq()
	if err != nil {
		return err
	}
	rec.Seq = last + 1

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := l.db.Put(recordKey(rec.Seq), data); err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], rec.Seq)
	if err := l.db.Put(keySeq, seq[:]); err != nil {
		return fmt.Errorf("store event seq: %w", err)
	}
	l.pending = append(l.pending, rec)
	return nil
}

// Emit implements Recorder.
func (l *Log) Emit(typ Type, data any) error {
	rec, err := NewRecord(typ, data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	return l.Append(rec)
}

// Pending returns the records appended through this Log, oldest first.
func (l *Log) Pending() []*Record {
	return l.pending
}

// Get returns the record with the given sequence number.
func (l *Log) Get(seq uint64) (*Record, error) {
	data, err := l.db.Get(recordKey(seq))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode event %d: %w", seq, err)
	}
	return &rec, nil
}

// List returns up to limit records with seq > after, oldest first.
// A limit <= 0 means no limit. If typ is non-empty only records of that
// type are returned.
func (l *Log) List(after uint64, limit int, typ Type) ([]*Record, error) {
	var out []*Record
	stop := errors.New("stop")
	err := l.db.ForEach(prefixRecord, func(key, value []byte) error {
		if len(key) != len(prefixRecord)+8 {
			return nil
		}
		if binary.BigEndian.Uint64(key[len(prefixRecord):]) <= after {
			return nil
		}
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if typ != "" && rec.Type != typ {
			return nil
		}
		out = append(out, &rec)
		if limit > 0 && len(out) >= limit {
			return stop
		}
		return nil
	})
	if err != nil && !errors.Is(err, stop) {
		return nil, err
	}
	return out, nil
}
