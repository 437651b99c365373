package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// Secret kinds.
const (
	KindMnemonic = "mnemonic"
	KindKey      = "key"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// walletFile is the on-disk JSON format for an encrypted wallet.
type walletFile struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Kind      string        `json:"kind"`
	Account   uint32        `json:"account,omitempty"` // BIP-44 account, mnemonic wallets only
	Address   types.Address `json:"address"`
	Secret    []byte        `json:"secret"` // sealed mnemonic or private key
}

// Info describes a wallet without unlocking it.
type Info struct {
	Name      string
	Kind      string
	Account   uint32
	Address   types.Address
	CreatedAt time.Time
}

// Keystore manages encrypted wallet files in a directory.
type Keystore struct {
	path   string
	params EncryptionParams
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string, params EncryptionParams) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path, params: params}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// CreateFromMnemonic stores the identity derived from mnemonic at the
// given BIP-44 account and returns its address.
func (ks *Keystore) CreateFromMnemonic(name, mnemonic string, account uint32, password []byte) (types.Address, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return types.Address{}, err
	}
	defer wipe(seed)
	key, err := DeriveIdentity(seed, account)
	if err != nil {
		return types.Address{}, err
	}
	defer key.Zero()

	return ks.create(name, &walletFile{Kind: KindMnemonic, Account: account, Address: key.Address()}, []byte(mnemonic), password)
}

// ImportKey stores a raw private key and returns its address.
func (ks *Keystore) ImportKey(name string, key *crypto.PrivateKey, password []byte) (types.Address, error) {
	secret := key.Serialize()
	defer wipe(secret)
	return ks.create(name, &walletFile{Kind: KindKey, Address: key.Address()}, secret, password)
}

func (ks *Keystore) create(name string, wf *walletFile, secret, password []byte) (types.Address, error) {
	if !validName.MatchString(name) {
		return types.Address{}, fmt.Errorf("invalid wallet name %q", name)
	}
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return types.Address{}, fmt.Errorf("wallet %q already exists", name)
	}

	sealed, err := Seal(secret, password, []byte(name), ks.params)
	if err != nil {
		return types.Address{}, fmt.Errorf("encrypt secret: %w", err)
	}
	wf.Version = 1
	wf.CreatedAt = time.Now().UTC()
	wf.Secret = sealed
	if err := ks.writeFile(path, wf); err != nil {
		return types.Address{}, err
	}
	return wf.Address, nil
}

// Info returns a wallet's metadata.
func (ks *Keystore) Info(name string) (*Info, error) {
	wf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}
	return &Info{Name: name, Kind: wf.Kind, Account: wf.Account, Address: wf.Address, CreatedAt: wf.CreatedAt}, nil
}

// Unlock decrypts a wallet and returns its signing key.
func (ks *Keystore) Unlock(name string, password []byte) (*crypto.PrivateKey, error) {
	wf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}
	secret, err := Open(wf.Secret, password, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("unlock wallet %q: %w", name, err)
	}
	defer wipe(secret)

	var key *crypto.PrivateKey
	switch wf.Kind {
	case KindMnemonic:
		seed, err := SeedFromMnemonic(string(secret), "")
		if err != nil {
			return nil, err
		}
		defer wipe(seed)
		key, err = DeriveIdentity(seed, wf.Account)
		if err != nil {
			return nil, err
		}
	case KindKey:
		key, err = crypto.PrivateKeyFromBytes(secret)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown wallet kind %q", wf.Kind)
	}

	if key.Address() != wf.Address {
		key.Zero()
		return nil, fmt.Errorf("wallet %q: key does not match stored address", name)
	}
	return key, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*walletFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if wf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", wf.Version)
	}
	return &wf, nil
}
