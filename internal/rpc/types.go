package rpc

import (
	"encoding/json"

	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/custody"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000

	// Ledger error kinds.
	CodeValidation    = -32010
	CodeAuthorization = -32011
	CodeState         = -32012
	CodeArithmetic    = -32013
	CodeCustody       = -32014
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData accompanies ledger errors.
type ErrorData struct {
	Kind string `json:"kind"`
	// ConditionID is set when a prepare fails because the condition
	// already exists.
	ConditionID string `json:"conditionId,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// ConditionIDParam is used by ctf_getConditionId and ctf_prepareCondition.
type ConditionIDParam struct {
	Oracle           types.Address    `json:"oracle"`
	QuestionID       types.QuestionID `json:"questionId"`
	OutcomeSlotCount int              `json:"outcomeSlotCount"`
}

// GetConditionParam is used by ctf_getCondition. Either ConditionID or
// the (Oracle, QuestionID) pair identifies the condition.
type GetConditionParam struct {
	ConditionID types.ConditionID `json:"conditionId,omitempty"`
	Oracle      types.Address     `json:"oracle,omitempty"`
	QuestionID  types.QuestionID  `json:"questionId,omitempty"`
}

// ListConditionsParam filters ctf_listConditions. All fields are optional.
type ListConditionsParam struct {
	Oracle   types.Address `json:"oracle,omitempty"`
	Resolved *bool         `json:"resolved,omitempty"`
}

// ReportPayoutParam is the signed payload of ctf_reportPayout.
type ReportPayoutParam struct {
	ConditionID      types.ConditionID `json:"conditionId"`
	PayoutNumerators []uint64          `json:"payoutNumerators"`
}

// PositionParam is the signed payload of ctf_splitPosition and
// ctf_mergePositions.
type PositionParam struct {
	Collateral  types.AssetID     `json:"collateral"`
	ConditionID types.ConditionID `json:"conditionId"`
	Partition   []types.IndexSet  `json:"partition"`
	Amount      uint64            `json:"amount"`
}

// RedeemParam is the signed payload of ctf_redeemPositions.
type RedeemParam struct {
	Collateral  types.AssetID     `json:"collateral"`
	ConditionID types.ConditionID `json:"conditionId"`
	IndexSets   []types.IndexSet  `json:"indexSets"`
	Amount      uint64            `json:"amount"`
}

// PositionIDParam is used by ctf_getPositionId. Holder is optional; when
// set the holder's balance of the position is returned too.
type PositionIDParam struct {
	Collateral  types.AssetID     `json:"collateral"`
	ConditionID types.ConditionID `json:"conditionId"`
	IndexSet    types.IndexSet    `json:"indexSet"`
	Holder      types.Address     `json:"holder,omitempty"`
}

// VaultParam is used by ctf_getVault.
type VaultParam struct {
	Collateral  types.AssetID     `json:"collateral"`
	ConditionID types.ConditionID `json:"conditionId"`
}

// CreateAssetParam is the signed payload of bank_createAsset.
type CreateAssetParam struct {
	Symbol string `json:"symbol"`
}

// MintParam is the signed payload of bank_mint.
type MintParam struct {
	Asset  types.AssetID `json:"asset"`
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

// TransferParam is the signed payload of bank_transfer.
type TransferParam struct {
	Asset  types.AssetID `json:"asset"`
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

// AssetParam is used by bank_getAsset.
type AssetParam struct {
	Asset types.AssetID `json:"asset"`
}

// BalanceParam is used by bank_getBalance.
type BalanceParam struct {
	Asset  types.AssetID `json:"asset"`
	Holder types.Address `json:"holder"`
}

// EventListParam is used by event_list. All fields are optional.
type EventListParam struct {
	After uint64     `json:"after,omitempty"`
	Limit int        `json:"limit,omitempty"`
	Type  event.Type `json:"type,omitempty"`
}

// AddressParam is used by auth_getNonce.
type AddressParam struct {
	Address types.Address `json:"address"`
}

// ── Result types ────────────────────────────────────────────────────────

// ConditionIDResult is returned by ctf_getConditionId and
// ctf_prepareCondition.
type ConditionIDResult struct {
	ConditionID types.ConditionID `json:"conditionId"`
}

// ConditionListResult is returned by ctf_listConditions.
type ConditionListResult struct {
	Conditions []*condition.Condition `json:"conditions"`
}

// OKResult is returned by mutating calls with nothing else to report.
type OKResult struct {
	OK bool `json:"ok"`
}

// RedeemResult is returned by ctf_redeemPositions.
type RedeemResult struct {
	Payout uint64 `json:"payout"`
}

// PositionIDResult is returned by ctf_getPositionId.
type PositionIDResult struct {
	PositionID types.AssetID `json:"positionId"`
	Balance    *uint64       `json:"balance,omitempty"`
	Supply     uint64        `json:"supply"`
}

// VaultResult is returned by ctf_getVault.
type VaultResult struct {
	Address types.Address `json:"address"`
	Balance uint64        `json:"balance"`
}

// AssetResult is returned by bank_getAsset.
type AssetResult struct {
	*custody.Asset
	Supply uint64 `json:"supply"`
}

// CreateAssetResult is returned by bank_createAsset.
type CreateAssetResult struct {
	Asset types.AssetID `json:"asset"`
}

// BalanceResult is returned by bank_getBalance.
type BalanceResult struct {
	Asset   types.AssetID `json:"asset"`
	Holder  types.Address `json:"holder"`
	Balance uint64        `json:"balance"`
}

// EventListResult is returned by event_list.
type EventListResult struct {
	Events []*event.Record `json:"events"`
}

// NonceResult is returned by auth_getNonce.
type NonceResult struct {
	Address types.Address `json:"address"`
	Nonce   uint64        `json:"nonce"`
}
