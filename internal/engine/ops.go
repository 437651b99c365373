package engine

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/custody"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// PrepareCondition creates a condition. The computed id is returned even
// if preparation fails because the condition exists.
func (e *Engine) PrepareCondition(ctx context.Context, caller Caller, oracle types.Address, questionID types.QuestionID, outcomeSlotCount int) (types.ConditionID, error) {
	var id types.ConditionID
	err := e.Update(ctx, "prepare", caller, func(tx *Tx) error {
		var err error
		id, err = tx.Conditions.Prepare(oracle, questionID, outcomeSlotCount)
		return err
	})
	return id, err
}

// ReportPayout resolves a condition on behalf of caller.
func (e *Engine) ReportPayout(ctx context.Context, caller Caller, conditionID types.ConditionID, numerators []uint64) error {
	return e.Update(ctx, "report", caller, func(tx *Tx) error {
		return tx.Conditions.ReportPayout(conditionID, caller.Address, numerators)
	})
}

// Split splits collateral into outcome tokens for caller.
func (e *Engine) Split(ctx context.Context, caller Caller, collateral types.AssetID, conditionID types.ConditionID, amount uint64, partition []types.IndexSet) error {
	return e.Update(ctx, "split", caller, func(tx *Tx) error {
		return tx.Ledger.Split(caller.Address, collateral, conditionID, amount, partition)
	})
}

// Merge merges outcome tokens back into collateral for caller.
func (e *Engine) Merge(ctx context.Context, caller Caller, collateral types.AssetID, conditionID types.ConditionID, amount uint64, partition []types.IndexSet) error {
	return e.Update(ctx, "merge", caller, func(tx *Tx) error {
		return tx.Ledger.Merge(caller.Address, collateral, conditionID, amount, partition)
	})
}

// Redeem redeems caller's outcome tokens and returns the collateral paid.
func (e *Engine) Redeem(ctx context.Context, caller Caller, collateral types.AssetID, conditionID types.ConditionID, indexSets []types.IndexSet, amount uint64) (uint64, error) {
	var paid uint64
	err := e.Update(ctx, "redeem", caller, func(tx *Tx) error {
		var err error
		paid, err = tx.Ledger.Redeem(caller.Address, collateral, conditionID, indexSets, amount)
		return err
	})
	return paid, err
}

// CreateAsset registers a collateral asset with caller as its mint authority.
func (e *Engine) CreateAsset(ctx context.Context, caller Caller, symbol string) (types.AssetID, error) {
	id := custody.CollateralID(caller.Address, symbol)
	if symbol == "" {
		return id, fmt.Errorf("%w: empty symbol", custody.ErrInvalidAsset)
	}
	err := e.Update(ctx, "create_asset", caller, func(tx *Tx) error {
		if err := tx.Bank.RegisterAsset(&custody.Asset{
			ID:        id,
			Kind:      custody.KindCollateral,
			Authority: caller.Address,
			Symbol:    symbol,
		}); err != nil {
			return err
		}
		return tx.Events.Emit(event.AssetCreated, event.Asset{Asset: id, To: caller.Address, Symbol: symbol})
	})
	return id, err
}

// Mint issues amount of a collateral asset to to. Caller must be the
// asset's authority.
func (e *Engine) Mint(ctx context.Context, caller Caller, asset types.AssetID, to types.Address, amount uint64) error {
	return e.Update(ctx, "mint", caller, func(tx *Tx) error {
		a, err := tx.Bank.Asset(asset)
		if err != nil {
			return err
		}
		if a.Kind != custody.KindCollateral {
			return fmt.Errorf("%w: outcome tokens are minted by splitting", ctferr.ErrAuthorization)
		}
		if err := tx.Bank.MintTo(asset, to, amount, caller.Address); err != nil {
			return err
		}
		return tx.Events.Emit(event.AssetMinted, event.Asset{Asset: asset, To: to, Amount: amount})
	})
}

// Transfer moves amount of any asset, collateral or outcome token, from
// caller to to.
func (e *Engine) Transfer(ctx context.Context, caller Caller, asset types.AssetID, to types.Address, amount uint64) error {
	return e.Update(ctx, "transfer", caller, func(tx *Tx) error {
		if err := tx.Bank.Transfer(asset, caller.Address, to, amount, caller.Address); err != nil {
			return err
		}
		return tx.Events.Emit(event.AssetTransferred, event.Asset{Asset: asset, From: caller.Address, To: to, Amount: amount})
	})
}

// Condition returns a condition by id.
func (e *Engine) Condition(id types.ConditionID) (*condition.Condition, error) {
	var c *condition.Condition
	err := e.View(func(tx *Tx) error {
		var err error
		c, err = tx.Conditions.Get(id)
		return err
	})
	return c, err
}

// ConditionByQuestion returns the condition oracle prepared for questionID.
func (e *Engine) ConditionByQuestion(oracle types.Address, questionID types.QuestionID) (*condition.Condition, error) {
	var c *condition.Condition
	err := e.View(func(tx *Tx) error {
		var err error
		c, err = tx.Conditions.GetByQuestion(oracle, questionID)
		return err
	})
	return c, err
}

// Conditions lists every condition.
func (e *Engine) Conditions() ([]*condition.Condition, error) {
	var list []*condition.Condition
	err := e.View(func(tx *Tx) error {
		var err error
		list, err = tx.Conditions.List()
		return err
	})
	return list, err
}

// Asset returns an asset definition.
func (e *Engine) Asset(id types.AssetID) (*custody.Asset, error) {
	var a *custody.Asset
	err := e.View(func(tx *Tx) error {
		var err error
		a, err = tx.Bank.Asset(id)
		return err
	})
	return a, err
}

// Balance returns holder's balance of asset.
func (e *Engine) Balance(asset types.AssetID, holder types.Address) (uint64, error) {
	var bal uint64
	err := e.View(func(tx *Tx) error {
		var err error
		bal, err = tx.Bank.Balance(asset, holder)
		return err
	})
	return bal, err
}

// Supply returns the outstanding supply of asset.
func (e *Engine) Supply(asset types.AssetID) (uint64, error) {
	var s uint64
	err := e.View(func(tx *Tx) error {
		var err error
		s, err = tx.Bank.Supply(asset)
		return err
	})
	return s, err
}

// Events lists committed event records.
func (e *Engine) Events(after uint64, limit int, typ event.Type) ([]*event.Record, error) {
	var recs []*event.Record
	err := e.View(func(tx *Tx) error {
		var err error
		recs, err = tx.Events.List(after, limit, typ)
		return err
	})
	return recs, err
}

// NextNonce returns the nonce addr must sign its next call with.
func (e *Engine) NextNonce(addr types.Address) (uint64, error) {
	var n uint64
	err := e.View(func(tx *Tx) error {
		var err error
		n, err = tx.Nonces.Next(addr)
		return err
	})
	return n, err
}

// LastEventSeq returns the sequence number of the newest committed event,
// 0 for an empty ledger.
func (e *Engine) LastEventSeq() (uint64, error) {
	var seq uint64
	err := e.View(func(tx *Tx) error {
		var err error
		seq, err = tx.Events.LastSeq()
		return err
	})
	return seq, err
}
