// Package ledger implements the position ledger: splitting collateral into
// outcome tokens, merging them back, and redeeming them once a condition
// is resolved.
//
// The ledger orchestrates custody calls but holds no state of its own. Every
// method performs several custody mutations; atomicity is the caller's job
// (package engine runs each call over a discardable storage.Overlay).
package ledger

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/custody"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	"github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/partition"
	"github.com/Klingon-tech/klingnet-ctf/internal/payout"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Ledger errors.
var (
	ErrZeroAmount       = fmt.Errorf("%w: amount must be positive", ctferr.ErrValidation)
	ErrEmptyIndexSets   = fmt.Errorf("%w: no index sets to redeem", ctferr.ErrValidation)
	ErrNotCollateral    = fmt.Errorf("%w: asset is not a collateral asset", ctferr.ErrValidation)
	ErrTooManyIndexSets = fmt.Errorf("%w: too many index sets", ctferr.ErrValidation)
)

// MaxIndexSets bounds the partition or index-set list of one call.
const MaxIndexSets = types.IndexSetBits

// Ledger splits, merges and redeems positions.
type Ledger struct {
	conditions *condition.Registry
	bank       custody.Custody
	events     event.Recorder
}

// New creates a ledger. A nil recorder discards events.
func New(conditions *condition.Registry, bank custody.Custody, events event.Recorder) *Ledger {
	if events == nil {
		events = event.Discard
	}
	return &Ledger{conditions: conditions, bank: bank, events: events}
}

// Split locks amount of collateral from caller in the condition's vault and
// mints amount of every partition element's outcome token to caller.
func (l *Ledger) Split(caller types.Address, collateral types.AssetID, conditionID types.ConditionID, amount uint64, sets []types.IndexSet) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	c, err := l.prepare(collateral, conditionID, sets)
	if err != nil {
		return err
	}

	vault := custody.VaultAddress(conditionID, collateral)
	if err := l.bank.Transfer(collateral, caller, vault, amount, caller); err != nil {
		return fmt.Errorf("lock collateral: %w", err)
	}

	minter := custody.MintAuthority(conditionID)
	for _, s := range sets {
		pos, err := l.ensurePosition(collateral, c, s)
		if err != nil {
			return err
		}
		if err := l.bank.MintTo(pos, caller, amount, minter); err != nil {
			return fmt.Errorf("mint %s: %w", s, err)
		}
	}

	if err := l.events.Emit(event.PositionSplit, event.Position{
		User:        caller,
		Collateral:  collateral,
		ConditionID: conditionID,
		Partition:   sets,
		Amount:      amount,
	}); err != nil {
		return err
	}

	log.Ledger.Info().
		Str("condition_id", conditionID.String()).
		Str("user", caller.String()).
		Int("parts", len(sets)).
		Uint64("amount", amount).
		Msg("Position split")
	return nil
}

// Merge burns amount of every partition element's outcome token from caller
// and returns amount of collateral from the vault.
func (l *Ledger) Merge(caller types.Address, collateral types.AssetID, conditionID types.ConditionID, amount uint64, sets []types.IndexSet) error {
	if _, err := l.prepare(collateral, conditionID, sets); err != nil {
		return err
	}

	for _, s := range sets {
		pos := custody.PositionID(collateral, conditionID, s)
		if err := l.bank.Burn(pos, caller, amount, caller); err != nil {
			return fmt.Errorf("burn %s: %w", s, err)
		}
	}

	vault := custody.VaultAddress(conditionID, collateral)
	if err := l.bank.Transfer(collateral, vault, caller, amount, vault); err != nil {
		return fmt.Errorf("release collateral: %w", err)
	}

	if err := l.events.Emit(event.PositionsMerged, event.Position{
		User:        caller,
		Collateral:  collateral,
		ConditionID: conditionID,
		Partition:   sets,
		Amount:      amount,
	}); err != nil {
		return err
	}

	log.Ledger.Info().
		Str("condition_id", conditionID.String()).
		Str("user", caller.String()).
		Int("parts", len(sets)).
		Uint64("amount", amount).
		Msg("Positions merged")
	return nil
}

// Redeem burns amount of each listed outcome token from caller and pays out
// the collateral share the resolved payout assigns to them, in one transfer.
// Each index set's share is floored independently; the remainder stays in
// the vault. It returns the total paid.
func (l *Ledger) Redeem(caller types.Address, collateral types.AssetID, conditionID types.ConditionID, indexSets []types.IndexSet, amount uint64) (uint64, error) {
	c, err := l.conditions.Get(conditionID)
	if err != nil {
		return 0, err
	}
	if !c.Resolved {
		return 0, fmt.Errorf("%w: %s", condition.ErrNotResolved, conditionID)
	}
	if len(indexSets) == 0 {
		return 0, ErrEmptyIndexSets
	}
	if len(indexSets) > MaxIndexSets {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyIndexSets, len(indexSets), MaxIndexSets)
	}

	den, err := payout.Denominator(c.PayoutNumerators)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, s := range indexSets {
		num, err := payout.Numerator(c.PayoutNumerators, s)
		if err != nil {
			return 0, err
		}
		share, err := payout.Share(amount, num, den)
		if err != nil {
			return 0, err
		}
		if total, err = payout.Add(total, share); err != nil {
			return 0, err
		}
		pos := custody.PositionID(collateral, conditionID, s)
		if err := l.bank.Burn(pos, caller, amount, caller); err != nil {
			return 0, fmt.Errorf("burn %s: %w", s, err)
		}
	}

	vault := custody.VaultAddress(conditionID, collateral)
	if err := l.bank.Transfer(collateral, vault, caller, total, vault); err != nil {
		return 0, fmt.Errorf("pay out collateral: %w", err)
	}

	if err := l.events.Emit(event.PositionsRedeemed, event.Redeemed{
		User:        caller,
		Collateral:  collateral,
		ConditionID: conditionID,
		IndexSets:   indexSets,
		Payout:      total,
	}); err != nil {
		return 0, err
	}

	log.Ledger.Info().
		Str("condition_id", conditionID.String()).
		Str("user", caller.String()).
		Uint64("amount", amount).
		Uint64("payout", total).
		Msg("Positions redeemed")
	return total, nil
}

// PositionBalance returns holder's balance of one outcome token.
func (l *Ledger) PositionBalance(holder types.Address, collateral types.AssetID, conditionID types.ConditionID, s types.IndexSet) (uint64, error) {
	return l.bank.Balance(custody.PositionID(collateral, conditionID, s), holder)
}

// VaultBalance returns the collateral locked against a condition.
func (l *Ledger) VaultBalance(collateral types.AssetID, conditionID types.ConditionID) (uint64, error) {
	return l.bank.Balance(collateral, custody.VaultAddress(conditionID, collateral))
}

// prepare loads the condition and validates the collateral and partition
// shared by split and merge.
func (l *Ledger) prepare(collateral types.AssetID, conditionID types.ConditionID, sets []types.IndexSet) (*condition.Condition, error) {
	c, err := l.conditions.Get(conditionID)
	if err != nil {
		return nil, err
	}
	if len(sets) > MaxIndexSets {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyIndexSets, len(sets), MaxIndexSets)
	}
	if err := partition.Check(sets, c.OutcomeSlotCount); err != nil {
		return nil, err
	}
	a, err := l.bank.Asset(collateral)
	if err != nil {
		return nil, err
	}
	if a.Kind != custody.KindCollateral {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotCollateral, collateral, a.Kind)
	}
	return c, nil
}

// ensurePosition registers the outcome-token asset for s on first use.
func (l *Ledger) ensurePosition(collateral types.AssetID, c *condition.Condition, s types.IndexSet) (types.AssetID, error) {
	id := custody.PositionID(collateral, c.ID, s)
	_, err := l.bank.Asset(id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, custody.ErrUnknownAsset) {
		return id, err
	}
	cid, col, set := c.ID, collateral, s
	err = l.bank.RegisterAsset(&custody.Asset{
		ID:          id,
		Kind:        custody.KindPosition,
		Authority:   custody.MintAuthority(c.ID),
		Collateral:  &col,
		ConditionID: &cid,
		IndexSet:    &set,
	})
	return id, err
}
