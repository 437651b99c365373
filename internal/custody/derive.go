package custody

import (
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Derivation domains.
var (
	domainVault    = []byte("vault")
	domainMint     = []byte("mint-authority")
	domainPosition = []byte("position")
	domainAsset    = []byte("asset")
)

// VaultAddress is the custody address holding collateral locked against
// a condition: blake3("vault" || conditionId || collateral)[:20].
func VaultAddress(conditionID types.ConditionID, collateral types.AssetID) types.Address {
	return toAddress(crypto.HashParts(domainVault, conditionID[:], collateral[:]))
}

// MintAuthority is the only identity allowed to mint a condition's
// outcome tokens: blake3("mint-authority" || conditionId)[:20].
func MintAuthority(conditionID types.ConditionID) types.Address {
	return toAddress(crypto.HashParts(domainMint, conditionID[:]))
}

// PositionID is the outcome-token asset for one index set of a condition
// split from a given collateral.
func PositionID(collateral types.AssetID, conditionID types.ConditionID, indexSet types.IndexSet) types.AssetID {
	return types.AssetID(crypto.HashParts(domainPosition, collateral[:], conditionID[:], indexSet.Bytes()))
}

// CollateralID is the id of a collateral asset created by creator under symbol.
func CollateralID(creator types.Address, symbol string) types.AssetID {
	return types.AssetID(crypto.HashParts(domainAsset, creator[:], []byte(symbol)))
}

func toAddress(h types.Hash) types.Address {
	var a types.Address
	copy(a[:], h[:types.AddressSize])
	return a
}
