// Package event defines the ledger's append-only event records and the
// sinks they are fanned out to after commit.
package event

import (
	"encoding/json"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
	"github.com/google/uuid"
)

// Type names an event kind.
type Type string

// Event kinds.
const (
	ConditionPrepared Type = "condition_prepared"
	ConditionResolved Type = "condition_resolved"
	PositionSplit     Type = "position_split"
	PositionsMerged   Type = "positions_merged"
	PositionsRedeemed Type = "positions_redeemed"
	AssetCreated      Type = "asset_created"
	AssetMinted       Type = "asset_minted"
	AssetTransferred  Type = "asset_transferred"
)

// Prepared is the payload of ConditionPrepared.
type Prepared struct {
	ConditionID      types.ConditionID `json:"conditionId"`
	Oracle           types.Address     `json:"oracle"`
	QuestionID       types.QuestionID  `json:"questionId"`
	OutcomeSlotCount int               `json:"outcomeSlotCount"`
}

// Resolved is the payload of ConditionResolved.
type Resolved struct {
	ConditionID      types.ConditionID `json:"conditionId"`
	Oracle           types.Address     `json:"oracle"`
	QuestionID       types.QuestionID  `json:"questionId"`
	OutcomeSlotCount int               `json:"outcomeSlotCount"`
	PayoutNumerators []uint64          `json:"payoutNumerators"`
}

// Position is the payload of PositionSplit and PositionsMerged.
type Position struct {
	User        types.Address     `json:"user"`
	Collateral  types.AssetID     `json:"collateral"`
	ConditionID types.ConditionID `json:"conditionId"`
	Partition   []types.IndexSet  `json:"partition"`
	Amount      uint64            `json:"amount"`
}

// Redeemed is the payload of PositionsRedeemed.
type Redeemed struct {
	User        types.Address     `json:"user"`
	Collateral  types.AssetID     `json:"collateral"`
	ConditionID types.ConditionID `json:"conditionId"`
	IndexSets   []types.IndexSet  `json:"indexSets"`
	Payout      uint64            `json:"payout"`
}

// Asset is the payload of the bank events.
type Asset struct {
	Asset  types.AssetID `json:"asset"`
	From   types.Address `json:"from"`
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount,omitempty"`
	Symbol string        `json:"symbol,omitempty"`
}

// Record is one entry of the event log.
type Record struct {
	ID   uuid.UUID       `json:"id"`
	Seq  uint64          `json:"seq"`
	Type Type            `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

// NewRecord wraps data in a record with a fresh id. Seq is assigned by the log.
func NewRecord(typ Type, data any) (*Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:   uuid.New(),
		Type: typ,
		Time: time.Now().UTC(),
		Data: raw,
	}, nil
}

// Decode unmarshals the record payload into v.
func (r *Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Recorder accepts events emitted by ledger components.
type Recorder interface {
	Emit(typ Type, data any) error
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Emit(Type, any) error { return nil }
