package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpc"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// ── asset ───────────────────────────────────────────────────────────────

func cmdAsset(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: ctf-cli asset <create|mint|transfer|info|balance> [flags]")
	}

	switch args[0] {
	case "create":
		cmdAssetCreate(env, args[1:])
	case "mint":
		cmdAssetMove(env, args[1:], "bank_mint")
	case "transfer":
		cmdAssetMove(env, args[1:], "bank_transfer")
	case "info":
		if len(args) < 2 {
			fatal("Usage: ctf-cli asset info <asset_id>")
		}
		cmdAssetInfo(env, args[1])
	case "balance":
		if len(args) < 3 {
			fatal("Usage: ctf-cli asset balance <asset_id> <address>")
		}
		cmdAssetBalance(env, args[1], args[2])
	default:
		fatal("Unknown asset command: %s\nUsage: ctf-cli asset <create|mint|transfer|info|balance> [flags]", args[0])
	}
}

func cmdAssetCreate(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("asset create", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet that becomes the mint authority")
	symbol := fs.String("symbol", "", "Asset symbol")
	fs.Parse(args)

	if *walletName == "" || *symbol == "" {
		fatal("Usage: ctf-cli asset create --wallet <w> --symbol <SYM>")
	}

	var result rpc.CreateAssetResult
	submit(env, *walletName, "bank_createAsset", rpc.CreateAssetParam{Symbol: *symbol}, &result)

	fmt.Println("Asset created!")
	fmt.Printf("  Asset ID: %s\n", result.Asset)
	fmt.Printf("  Symbol:   %s\n", *symbol)
}

func cmdAssetMove(env *cliEnv, args []string, method string) {
	fs := flag.NewFlagSet(method, flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	assetStr := fs.String("asset", "", "Asset id")
	toStr := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount")
	fs.Parse(args)

	if *walletName == "" || *assetStr == "" || *toStr == "" || *amountStr == "" {
		fatal("Usage: ctf-cli asset %s --wallet <w> --asset <id> --to <addr> --amount <n>",
			strings.TrimPrefix(method, "bank_"))
	}
	asset, err := parseAssetID(*assetStr)
	if err != nil {
		fatal("%v", err)
	}
	to, err := types.ParseAddress(*toStr)
	if err != nil {
		fatal("%v", err)
	}
	amount, err := parseAmount(*amountStr)
	if err != nil {
		fatal("%v", err)
	}

	var result rpc.OKResult
	if method == "bank_mint" {
		submit(env, *walletName, method, rpc.MintParam{Asset: asset, To: to, Amount: amount}, &result)
		fmt.Printf("Minted %d to %s\n", amount, to)
		return
	}
	submit(env, *walletName, method, rpc.TransferParam{Asset: asset, To: to, Amount: amount}, &result)
	fmt.Printf("Transferred %d to %s\n", amount, to)
}

func cmdAssetInfo(env *cliEnv, idStr string) {
	id, err := parseAssetID(idStr)
	if err != nil {
		fatal("%v", err)
	}
	var result rpc.AssetResult
	if err := env.client.Call("bank_getAsset", rpc.AssetParam{Asset: id}, &result); err != nil {
		fatal("bank_getAsset: %v", err)
	}
	printJSON(result)
}

func cmdAssetBalance(env *cliEnv, idStr, holderStr string) {
	id, err := parseAssetID(idStr)
	if err != nil {
		fatal("%v", err)
	}
	holder, err := types.ParseAddress(holderStr)
	if err != nil {
		fatal("%v", err)
	}
	var result rpc.BalanceResult
	if err := env.client.Call("bank_getBalance", rpc.BalanceParam{Asset: id, Holder: holder}, &result); err != nil {
		fatal("bank_getBalance: %v", err)
	}
	fmt.Printf("Asset:   %s\n", result.Asset)
	fmt.Printf("Holder:  %s\n", result.Holder)
	fmt.Printf("Balance: %d\n", result.Balance)
}

// ── events ──────────────────────────────────────────────────────────────

func cmdEvents(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	after := fs.Uint64("after", 0, "Only events after this sequence number")
	limit := fs.Int("limit", 0, "Maximum number of events (server default: 100)")
	typ := fs.String("type", "", "Only events of this type, e.g. position_split")
	raw := fs.Bool("json", false, "Print full records as JSON")
	fs.Parse(args)

	var result rpc.EventListResult
	if err := env.client.Call("event_list", rpc.EventListParam{
		After: *after,
		Limit: *limit,
		Type:  event.Type(*typ),
	}, &result); err != nil {
		fatal("event_list: %v", err)
	}

	if *raw {
		printJSON(result.Events)
		return
	}
	if len(result.Events) == 0 {
		fmt.Println("No events found.")
		return
	}
	for _, rec := range result.Events {
		fmt.Printf("%6d  %s  %-20s %s\n", rec.Seq, rec.Time.Format(time.RFC3339), rec.Type, rec.Data)
	}
}

// ── nonce ───────────────────────────────────────────────────────────────

func cmdNonce(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: ctf-cli nonce <address>")
	}
	addr, err := types.ParseAddress(args[0])
	if err != nil {
		fatal("%v", err)
	}
	nonce, err := env.client.Nonce(addr)
	if err != nil {
		fatal("auth_getNonce: %v", err)
	}
	fmt.Println(nonce)
}
