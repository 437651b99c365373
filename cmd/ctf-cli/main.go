// ctf-cli is a command-line client for a ctfd ledger node.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-ctf/config"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpcclient"
)

const defaultRPC = "http://127.0.0.1:8745"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := defaultRPC
	if v := os.Getenv("CTF_RPC"); v != "" {
		rpcURL = v
	}
	dataDir := config.DefaultDataDir()

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	env := &cliEnv{
		client:    rpcclient.New(rpcURL),
		walletDir: (&config.Config{DataDir: dataDir}).WalletDir(),
	}
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(env, cmdArgs)
	case "condition":
		cmdCondition(env, cmdArgs)
	case "position":
		cmdPosition(env, cmdArgs)
	case "asset":
		cmdAsset(env, cmdArgs)
	case "events":
		cmdEvents(env, cmdArgs)
	case "nonce":
		cmdNonce(env, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

// cliEnv carries what every command needs.
type cliEnv struct {
	client    *rpcclient.Client
	walletDir string
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ctf-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: %s, or $CTF_RPC)
  --datadir <path>    Data directory holding wallets/ (default: ~/.ctfd)

Wallets:
  wallet create --name <n> [--account <i>]
                                  Create a wallet from a new mnemonic
  wallet import --name <n> (--mnemonic "..." [--account <i>] | --key <hex>)
                                  Import a mnemonic or raw private key
  wallet list                     List wallets
  wallet address --wallet <w>     Show a wallet's address
  wallet delete --name <n>        Delete a wallet file

Conditions:
  condition id --oracle <addr> --question <hex> --slots <n>
                                  Compute a condition id
  condition prepare --oracle <addr> --question <hex> --slots <n>
                                  Register a condition
  condition get <id> | --oracle <addr> --question <hex>
                                  Show a condition
  condition list [--oracle <addr>] [--resolved true|false]
                                  List conditions
  condition report --wallet <w> --condition <id> --payouts <n,n,...>
                                  Report payouts as the oracle

Positions:
  position split --wallet <w> --collateral <asset> --condition <id> --partition <s,s,...> --amount <n>
  position merge --wallet <w> --collateral <asset> --condition <id> --partition <s,s,...> --amount <n>
  position redeem --wallet <w> --collateral <asset> --condition <id> --index-sets <s,...> [--amount <n>]
  position id --collateral <asset> --condition <id> --index-set <s> [--holder <addr>]
  position vault --collateral <asset> --condition <id>

  Index sets are written as 0b101, 0x5 or 5.

Assets:
  asset create --wallet <w> --symbol <SYM>
  asset mint --wallet <w> --asset <id> --to <addr> --amount <n>
  asset transfer --wallet <w> --asset <id> --to <addr> --amount <n>
  asset info <id>
  asset balance <id> <addr>

Other:
  events [--after <seq>] [--limit <n>] [--type <type>]
                                  List ledger events
  nonce <addr>                    Show the next call nonce for an address
`, defaultRPC)
}
