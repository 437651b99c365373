// Package engine is the transactional host of the ledger. It serializes
// mutating operations, runs each one against a buffered write set, commits
// the write set atomically, and publishes the operation's events once the
// commit succeeds.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/internal/auth"
	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/custody"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	"github.com/Klingon-tech/klingnet-ctf/internal/ledger"
	"github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/metrics"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Namespaces within the root database.
var (
	NamespaceLedger = []byte("ctf/")
	NamespaceAuth   = []byte("auth/")
)

// Caller is the verified identity behind a call. Nonce 0 marks a trusted
// in-process call that is not replay-tracked; any other nonce is consumed
// in the same commit as the operation.
type Caller struct {
	Address types.Address
	Nonce   uint64
}

// Tx is the view of the ledger an operation runs against. All of its
// components share one write set.
type Tx struct {
	Conditions *condition.Registry
	Bank       *custody.Bank
	Ledger     *ledger.Ledger
	Events     *event.Log
	Nonces     *auth.NonceStore
}

func newTx(db storage.DB) *Tx {
	ctf := storage.NewScope(db, NamespaceLedger)
	events := event.NewLog(ctf)
	conditions := condition.NewRegistry(ctf, events)
	bank := custody.NewBank(ctf)
	return &Tx{
		Conditions: conditions,
		Bank:       bank,
		Ledger:     ledger.New(conditions, bank, events),
		Events:     events,
		Nonces:     auth.NewNonceStore(storage.NewScope(db, NamespaceAuth)),
	}
}

// Engine applies ledger operations atomically over a storage.DB.
type Engine struct {
	mu     sync.RWMutex
	db     storage.DB
	fanout *event.Fanout
	// pubMu is taken before mu is released, so committed records reach
	// the fanout in seq order.
	pubMu sync.Mutex
}

// New creates an engine over db. Committed events are handed to fanout,
// which may be nil.
func New(db storage.DB, fanout *event.Fanout) *Engine {
	if fanout == nil {
		fanout = event.NewFanout()
	}
	return &Engine{db: db, fanout: fanout}
}

// Update runs fn as one atomic operation named op. Writes made through tx
// are committed only if fn returns nil and ctx is still live; otherwise
// nothing is written. Events are published after commit; a caller that
// goes away after the commit does not cancel their delivery.
func (e *Engine) Update(ctx context.Context, op string, caller Caller, fn func(tx *Tx) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(op, ctferr.Label(err), start)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	recs, err := e.commit(ctx, op, caller, fn)
	if err != nil {
		return err
	}
	defer e.pubMu.Unlock()

	observeCommitted(recs)
	e.fanout.Publish(context.WithoutCancel(ctx), recs)
	return nil
}

// commit applies fn under the write lock. On success it returns holding
// pubMu, which the caller must release after publishing.
func (e *Engine) commit(ctx context.Context, op string, caller Caller, fn func(tx *Tx) error) ([]*event.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	overlay := storage.NewOverlay(e.db)
	tx := newTx(overlay)

	if caller.Nonce != 0 {
		if err := tx.Nonces.Use(caller.Address, caller.Nonce); err != nil {
			return nil, err
		}
	}
	if err := fn(tx); err != nil {
		overlay.Discard()
		log.Engine.Debug().Err(err).Str("op", op).Str("caller", caller.Address.String()).Msg("Operation rejected")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		overlay.Discard()
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		log.Engine.Error().Err(err).Str("op", op).Msg("Commit failed")
		return nil, fmt.Errorf("commit %s: %w", op, err)
	}
	e.pubMu.Lock()
	return tx.Events.Pending(), nil
}

// View runs fn against the committed state under the read lock. Writes
// made by fn are discarded.
func (e *Engine) View(fn func(tx *Tx) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	overlay := storage.NewOverlay(e.db)
	defer overlay.Discard()
	return fn(newTx(overlay))
}

func observeCommitted(recs []*event.Record) {
	for _, rec := range recs {
		switch rec.Type {
		case event.ConditionPrepared:
			metrics.Conditions.WithLabelValues("prepared").Inc()
		case event.ConditionResolved:
			metrics.Conditions.WithLabelValues("resolved").Inc()
		case event.PositionSplit, event.PositionsMerged:
			var p event.Position
			if rec.Decode(&p) == nil {
				dir := "lock"
				if rec.Type == event.PositionsMerged {
					dir = "unlock"
				}
				metrics.CollateralMoved.WithLabelValues(dir).Add(float64(p.Amount))
			}
		case event.PositionsRedeemed:
			var r event.Redeemed
			if rec.Decode(&r) == nil {
				metrics.CollateralMoved.WithLabelValues("payout").Add(float64(r.Payout))
			}
		}
	}
}
