package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-ctf/internal/wallet"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: ctf-cli wallet <create|import|list|address|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(env, args[1:])
	case "import":
		cmdWalletImport(env, args[1:])
	case "list":
		cmdWalletList(env)
	case "address":
		cmdWalletAddress(env, args[1:])
	case "delete":
		cmdWalletDelete(env, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: ctf-cli wallet <create|import|list|address|delete> [flags]", args[0])
	}
}

func openKeystore(env *cliEnv) *wallet.Keystore {
	ks, err := wallet.NewKeystore(env.walletDir, wallet.DefaultParams())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

// newPassword prompts for a password twice.
func newPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	return password
}

func cmdWalletCreate(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	account := fs.Uint("account", 0, "BIP-44 account index")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ctf-cli wallet create --name <name> [--account <i>]")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password := newPassword()
	addr, err := openKeystore(env).CreateFromMnemonic(*name, mnemonic, uint32(*account), password)
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("\nWallet created: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletImport(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	keyHex := fs.String("key", "", "Raw secp256k1 private key (hex)")
	account := fs.Uint("account", 0, "BIP-44 account index (mnemonic only)")
	fs.Parse(args)

	if *name == "" || (*mnemonic == "") == (*keyHex == "") {
		fatal("Usage: ctf-cli wallet import --name <name> (--mnemonic \"word1 word2 ...\" | --key <hex>)")
	}

	if *mnemonic != "" && !wallet.ValidateMnemonic(wallet.NormalizeMnemonic(*mnemonic)) {
		fatal("invalid mnemonic")
	}
	var key *crypto.PrivateKey
	if *keyHex != "" {
		var err error
		if key, err = crypto.PrivateKeyFromHex(*keyHex); err != nil {
			fatal("%v", err)
		}
		defer key.Zero()
	}

	password := newPassword()
	ks := openKeystore(env)

	var err error
	var addr types.Address
	if key != nil {
		addr, err = ks.ImportKey(*name, key, password)
	} else {
		addr, err = ks.CreateFromMnemonic(*name, *mnemonic, uint32(*account), password)
	}
	if err != nil {
		fatal("import wallet: %v", err)
	}

	fmt.Printf("Wallet imported: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletList(env *cliEnv) {
	ks := openKeystore(env)
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}

	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}

	for _, name := range names {
		info, err := ks.Info(name)
		if err != nil {
			fmt.Printf("%-20s (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Printf("%-20s %s  %s\n", name, info.Address, info.Kind)
	}
}

func cmdWalletAddress(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ctf-cli wallet address --wallet <name>")
	}

	info, err := openKeystore(env).Info(*name)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(info.Address)
}

func cmdWalletDelete(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ctf-cli wallet delete --name <name>")
	}
	if err := openKeystore(env).Delete(*name); err != nil {
		fatal("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Wallet deleted: %s\n", *name)
}
