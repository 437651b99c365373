package custody

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/payout"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

var (
	prefixAsset   = []byte("a/") // a/<assetID(32)> -> Asset JSON
	prefixBalance = []byte("b/") // b/<assetID(32)><holder(20)> -> uint64
	prefixSupply  = []byte("s/") // s/<assetID(32)> -> uint64
)

// Bank implements Custody over a storage.DB.
//
// Transfers and burns require the authority to be the holder itself.
// Vaults are plain holders whose address is derived, so only code that
// derives the vault address can move vault funds.
type Bank struct {
	db storage.DB
}

// NewBank creates a bank over db.
func NewBank(db storage.DB) *Bank {
	return &Bank{db: db}
}

var _ Custody = (*Bank)(nil)

// RegisterAsset stores a new asset definition.
func (b *Bank) RegisterAsset(a *Asset) error {
	if a.ID.IsZero() {
		return fmt.Errorf("%w: zero id", ErrInvalidAsset)
	}
	if len(a.Symbol) > MaxSymbolLen {
		return fmt.Errorf("%w: symbol longer than %d bytes", ErrInvalidAsset, MaxSymbolLen)
	}
	switch a.Kind {
	case KindCollateral:
	case KindPosition:
		if a.Collateral == nil || a.ConditionID == nil || a.IndexSet == nil {
			return fmt.Errorf("%w: position asset missing metadata", ErrInvalidAsset)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidAsset, a.Kind)
	}

	exists, err := b.db.Has(assetKey(a.ID))
	if err != nil {
		return fmt.Errorf("asset has: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAssetExists, a.ID)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("asset marshal: %w", err)
	}
	if err := b.db.Put(assetKey(a.ID), data); err != nil {
		return fmt.Errorf("asset put: %w", err)
	}
	log.Custody.Debug().Str("asset", a.ID.String()).Str("kind", string(a.Kind)).Msg("Asset registered")
	return nil
}

// Asset returns the definition of a registered asset.
func (b *Bank) Asset(id types.AssetID) (*Asset, error) {
	data, err := b.db.Get(assetKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	if err != nil {
		return nil, fmt.Errorf("asset get: %w", err)
	}
	var a Asset
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("asset unmarshal: %w", err)
	}
	return &a, nil
}

// Balance returns holder's balance of asset. Unknown holders have 0.
func (b *Bank) Balance(asset types.AssetID, holder types.Address) (uint64, error) {
	return b.getUint(balanceKey(asset, holder))
}

// Supply returns the outstanding supply of asset.
func (b *Bank) Supply(asset types.AssetID) (uint64, error) {
	return b.getUint(supplyKey(asset))
}

// Transfer moves amount of asset from one holder to another.
func (b *Bank) Transfer(asset types.AssetID, from, to types.Address, amount uint64, authority types.Address) error {
	if _, err := b.Asset(asset); err != nil {
		return err
	}
	if authority != from {
		return fmt.Errorf("%w: %s cannot move funds of %s", ErrWrongAuthority, authority, from)
	}
	if amount == 0 || from == to {
		return b.requireBalance(asset, from, amount)
	}

	fromBal, err := b.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, from, fromBal, amount)
	}
	toBal, err := b.Balance(asset, to)
	if err != nil {
		return err
	}
	newTo, err := payout.Add(toBal, amount)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to)
	}

	if err := b.putUint(balanceKey(asset, from), fromBal-amount); err != nil {
		return err
	}
	return b.putUint(balanceKey(asset, to), newTo)
}

// MintTo creates amount new units of asset for to.
func (b *Bank) MintTo(asset types.AssetID, to types.Address, amount uint64, authority types.Address) error {
	a, err := b.Asset(asset)
	if err != nil {
		return err
	}
	if authority != a.Authority {
		return fmt.Errorf("%w: %s is not the mint authority of %s", ErrWrongAuthority, authority, asset)
	}
	if amount == 0 {
		return nil
	}

	supply, err := b.Supply(asset)
	if err != nil {
		return err
	}
	newSupply, err := payout.Add(supply, amount)
	if err != nil {
		return fmt.Errorf("%w: supply of %s", ErrBalanceOverflow, asset)
	}
	bal, err := b.Balance(asset, to)
	if err != nil {
		return err
	}
	// bal <= supply, so this cannot overflow once the supply check passed.
	if err := b.putUint(balanceKey(asset, to), bal+amount); err != nil {
		return err
	}
	return b.putUint(supplyKey(asset), newSupply)
}

// Burn destroys amount units of asset held by from.
func (b *Bank) Burn(asset types.AssetID, from types.Address, amount uint64, authority types.Address) error {
	if _, err := b.Asset(asset); err != nil {
		return err
	}
	if authority != from {
		return fmt.Errorf("%w: %s cannot burn funds of %s", ErrWrongAuthority, authority, from)
	}
	bal, err := b.Balance(asset, from)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, from, bal, amount)
	}
	if amount == 0 {
		return nil
	}
	supply, err := b.Supply(asset)
	if err != nil {
		return err
	}
	if err := b.putUint(balanceKey(asset, from), bal-amount); err != nil {
		return err
	}
	return b.putUint(supplyKey(asset), supply-amount)
}

// Holding is one holder's balance of an asset.
type Holding struct {
	Holder  types.Address `json:"holder"`
	Balance uint64        `json:"balance"`
}

// Holders lists every non-zero balance of asset in holder order.
func (b *Bank) Holders(asset types.AssetID) ([]Holding, error) {
	prefix := make([]byte, 0, len(prefixBalance)+types.HashSize)
	prefix = append(prefix, prefixBalance...)
	prefix = append(prefix, asset[:]...)

	out := []Holding{}
	err := b.db.ForEach(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+types.AddressSize || len(value) != 8 {
			return nil
		}
		var h Holding
		copy(h.Holder[:], key[len(prefix):])
		h.Balance = binary.BigEndian.Uint64(value)
		if h.Balance > 0 {
			out = append(out, h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Bank) requireBalance(asset types.AssetID, holder types.Address, amount uint64) error {
	bal, err := b.Balance(asset, holder)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, holder, bal, amount)
	}
	return nil
}

func (b *Bank) getUint(key []byte) (uint64, error) {
	data, err := b.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("bank get: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("bank get: corrupt value of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (b *Bank) putUint(key []byte, v uint64) error {
	if v == 0 {
		return b.db.Delete(key)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return b.db.Put(key, buf[:])
}

func assetKey(id types.AssetID) []byte {
	key := make([]byte, len(prefixAsset)+types.HashSize)
	copy(key, prefixAsset)
	copy(key[len(prefixAsset):], id[:])
	return key
}

func balanceKey(asset types.AssetID, holder types.Address) []byte {
	key := make([]byte, 0, len(prefixBalance)+types.HashSize+types.AddressSize)
	key = append(key, prefixBalance...)
	key = append(key, asset[:]...)
	key = append(key, holder[:]...)
	return key
}

func supplyKey(asset types.AssetID) []byte {
	key := make([]byte, len(prefixSupply)+types.HashSize)
	copy(key, prefixSupply)
	copy(key[len(prefixSupply):], asset[:])
	return key
}
