package condition

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	"github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/payout"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Registry owns condition creation and the one-way resolution transition.
//
// A Registry does no locking of its own. Callers that need atomic,
// serialized operations run it over a storage.Overlay (see package engine).
type Registry struct {
	store  *Store
	events event.Recorder
}

// NewRegistry creates a registry over db. A nil recorder discards events.
func NewRegistry(db storage.DB, events event.Recorder) *Registry {
	if events == nil {
		events = event.Discard
	}
	return &Registry{store: NewStore(db), events: events}
}

// Prepare creates a condition for (oracle, questionID) with
// outcomeSlotCount outcomes and returns its id. The id is returned even when
// the condition already exists, alongside ErrConditionExists.
func (r *Registry) Prepare(oracle types.Address, questionID types.QuestionID, outcomeSlotCount int) (types.ConditionID, error) {
	if !ValidSlotCount(outcomeSlotCount) {
		return types.ConditionID{}, fmt.Errorf("%w: got %d", ErrSlotCount, outcomeSlotCount)
	}
	id := ID(oracle, questionID, outcomeSlotCount)

	if existing, ok, err := r.store.Lookup(oracle, questionID); err != nil {
		return id, err
	} else if ok {
		return id, fmt.Errorf("%w: %s", ErrConditionExists, existing)
	}

	c := &Condition{
		ID:               id,
		Oracle:           oracle,
		QuestionID:       questionID,
		OutcomeSlotCount: outcomeSlotCount,
		PayoutNumerators: []uint64{},
	}
	if err := r.store.Put(c); err != nil {
		return id, err
	}
	if err := r.events.Emit(event.ConditionPrepared, event.Prepared{
		ConditionID:      id,
		Oracle:           oracle,
		QuestionID:       questionID,
		OutcomeSlotCount: outcomeSlotCount,
	}); err != nil {
		return id, err
	}

	log.Registry.Info().
		Str("condition_id", id.String()).
		Str("oracle", oracle.String()).
		Int("outcome_slots", outcomeSlotCount).
		Msg("Condition prepared")
	return id, nil
}

// ReportPayout resolves a condition. Checks run in order: the condition
// must be unresolved, the caller must be its oracle, and the numerators
// must have one entry per slot with a non-zero, non-overflowing sum.
func (r *Registry) ReportPayout(id types.ConditionID, caller types.Address, numerators []uint64) error {
	c, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if c.Resolved {
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}
	if caller != c.Oracle {
		return fmt.Errorf("%w: %s", ErrNotOracle, caller)
	}
	if len(numerators) != c.OutcomeSlotCount {
		return fmt.Errorf("%w: got %d, want %d", ErrPayoutLength, len(numerators), c.OutcomeSlotCount)
	}
	den, err := payout.Denominator(numerators)
	if err != nil {
		return err
	}
	if den == 0 {
		return ErrZeroPayout
	}

	c.Resolved = true
	c.PayoutNumerators = append([]uint64{}, numerators...)
	c.PayoutDenominator = den
	if err := r.store.Put(c); err != nil {
		return err
	}
	if err := r.events.Emit(event.ConditionResolved, event.Resolved{
		ConditionID:      id,
		Oracle:           c.Oracle,
		QuestionID:       c.QuestionID,
		OutcomeSlotCount: c.OutcomeSlotCount,
		PayoutNumerators: c.PayoutNumerators,
	}); err != nil {
		return err
	}

	log.Registry.Info().
		Str("condition_id", id.String()).
		Uint64("denominator", den).
		Msg("Condition resolved")
	return nil
}

// Get returns a copy of the condition with the given id.
func (r *Registry) Get(id types.ConditionID) (*Condition, error) {
	c, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	return c.clone(), nil
}

// GetByQuestion returns the condition prepared by oracle for questionID.
func (r *Registry) GetByQuestion(oracle types.Address, questionID types.QuestionID) (*Condition, error) {
	id, ok, err := r.store.Lookup(oracle, questionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w for oracle %s question %s", ErrUnknownCondition, oracle, questionID)
	}
	return r.Get(id)
}

// List returns every condition in id order.
func (r *Registry) List() ([]*Condition, error) {
	out := []*Condition{}
	err := r.store.ForEach(func(c *Condition) error {
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
