// Package custody implements the asset bank the ledger moves collateral
// and outcome tokens through: balances, supplies, mint, burn and transfer,
// each gated by an explicit authority.
package custody

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Custody errors.
var (
	ErrUnknownAsset        = fmt.Errorf("%w: unknown asset", ctferr.ErrCustody)
	ErrAssetExists         = fmt.Errorf("%w: asset already registered", ctferr.ErrCustody)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ctferr.ErrCustody)
	ErrWrongAuthority      = fmt.Errorf("%w: authority does not control the funds", ctferr.ErrAuthorization)
	ErrBalanceOverflow     = fmt.Errorf("%w: balance overflow", ctferr.ErrArithmetic)
	ErrInvalidAsset        = fmt.Errorf("%w: invalid asset", ctferr.ErrValidation)
)

// Kind distinguishes collateral assets from outcome tokens.
type Kind string

// Asset kinds.
const (
	KindCollateral Kind = "collateral"
	KindPosition   Kind = "position"
)

// MaxSymbolLen bounds collateral symbols.
const MaxSymbolLen = 32

// Asset describes a registered asset.
type Asset struct {
	ID   types.AssetID `json:"id"`
	Kind Kind          `json:"kind"`
	// Authority may mint the asset.
	Authority types.Address `json:"authority"`
	Symbol    string        `json:"symbol,omitempty"`

	// Outcome token metadata, set for KindPosition.
	Collateral  *types.AssetID     `json:"collateral,omitempty"`
	ConditionID *types.ConditionID `json:"conditionId,omitempty"`
	IndexSet    *types.IndexSet    `json:"indexSet,omitempty"`
}

// Custody is the asset service consumed by the position ledger. Each call
// either fully succeeds or returns an error with no effect.
type Custody interface {
	Transfer(asset types.AssetID, from, to types.Address, amount uint64, authority types.Address) error
	MintTo(asset types.AssetID, to types.Address, amount uint64, authority types.Address) error
	Burn(asset types.AssetID, from types.Address, amount uint64, authority types.Address) error

	RegisterAsset(a *Asset) error
	Asset(id types.AssetID) (*Asset, error)
	Balance(asset types.AssetID, holder types.Address) (uint64, error)
	Supply(asset types.AssetID) (uint64, error)
}
