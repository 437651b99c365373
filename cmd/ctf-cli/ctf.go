package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpc"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

// ── condition ───────────────────────────────────────────────────────────

func cmdCondition(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: ctf-cli condition <id|prepare|get|list|report> [flags]")
	}

	switch args[0] {
	case "id":
		cmdConditionID(env, "id", args[1:], "ctf_getConditionId")
	case "prepare":
		cmdConditionID(env, "prepare", args[1:], "ctf_prepareCondition")
	case "get":
		cmdConditionGet(env, args[1:])
	case "list":
		cmdConditionList(env, args[1:])
	case "report":
		cmdConditionReport(env, args[1:])
	default:
		fatal("Unknown condition command: %s\nUsage: ctf-cli condition <id|prepare|get|list|report> [flags]", args[0])
	}
}

// questionFlags registers --question and --question-text on fs. The text
// form hashes a human-readable question into a question id.
func questionFlags(fs *flag.FlagSet) func() (types.QuestionID, error) {
	question := fs.String("question", "", "Question id (32-byte hex)")
	text := fs.String("question-text", "", "Question text, hashed into the question id")
	return func() (types.QuestionID, error) {
		switch {
		case *question != "" && *text != "":
			return types.QuestionID{}, fmt.Errorf("use either --question or --question-text")
		case *text != "":
			return types.QuestionID(crypto.Keccak256([]byte(*text))), nil
		default:
			return parseQuestionID(*question)
		}
	}
}

func cmdConditionID(env *cliEnv, sub string, args []string, method string) {
	fs := flag.NewFlagSet("condition "+sub, flag.ExitOnError)
	oracleStr := fs.String("oracle", "", "Oracle address")
	slots := fs.Int("slots", 0, "Outcome slot count")
	question := questionFlags(fs)
	fs.Parse(args)

	if *oracleStr == "" || *slots == 0 {
		fatal("Usage: ctf-cli condition %s --oracle <addr> (--question <hex> | --question-text <text>) --slots <n>", sub)
	}
	oracle, err := types.ParseAddress(*oracleStr)
	if err != nil {
		fatal("%v", err)
	}
	qid, err := question()
	if err != nil {
		fatal("%v", err)
	}
	if !condition.ValidSlotCount(*slots) {
		fatal("outcome slot count must be in [%d,%d]", condition.MinOutcomeSlots, condition.MaxOutcomeSlots)
	}

	var result rpc.ConditionIDResult
	if err := env.client.Call(method, rpc.ConditionIDParam{
		Oracle:           oracle,
		QuestionID:       qid,
		OutcomeSlotCount: *slots,
	}, &result); err != nil {
		var rpcErr *rpcclient.RPCError
		if errors.As(err, &rpcErr) && errors.Is(err, ctferr.ErrState) {
			if id := rpcErr.Details().ConditionID; id != "" {
				fatal("condition already prepared: %s", id)
			}
		}
		fatal("%s: %v", method, err)
	}

	if method == "ctf_prepareCondition" {
		fmt.Println("Condition prepared!")
		fmt.Printf("  Condition ID: %s\n", result.ConditionID)
		fmt.Printf("  Question ID:  %s\n", qid)
		return
	}
	fmt.Println(result.ConditionID)
}

func cmdConditionGet(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("condition get", flag.ExitOnError)
	oracleStr := fs.String("oracle", "", "Oracle address")
	question := questionFlags(fs)
	fs.Parse(args)

	var params rpc.GetConditionParam
	switch {
	case fs.NArg() == 1:
		id, err := parseConditionID(fs.Arg(0))
		if err != nil {
			fatal("%v", err)
		}
		params.ConditionID = id
	case *oracleStr != "":
		oracle, err := types.ParseAddress(*oracleStr)
		if err != nil {
			fatal("%v", err)
		}
		qid, err := question()
		if err != nil {
			fatal("%v", err)
		}
		params.Oracle, params.QuestionID = oracle, qid
	default:
		fatal("Usage: ctf-cli condition get <condition_id> | --oracle <addr> --question <hex>")
	}

	var c condition.Condition
	if err := env.client.Call("ctf_getCondition", params, &c); err != nil {
		fatal("ctf_getCondition: %v", err)
	}
	printCondition(&c)
}

func printCondition(c *condition.Condition) {
	fmt.Printf("Condition ID: %s\n", c.ID)
	fmt.Printf("Oracle:       %s\n", c.Oracle)
	fmt.Printf("Question ID:  %s\n", c.QuestionID)
	fmt.Printf("Outcomes:     %d\n", c.OutcomeSlotCount)
	if !c.Resolved {
		fmt.Println("Resolved:     no")
		return
	}
	fmt.Println("Resolved:     yes")
	for i, num := range c.PayoutNumerators {
		fmt.Printf("  slot %-3d    %d/%d\n", i, num, c.PayoutDenominator)
	}
}

func cmdConditionList(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("condition list", flag.ExitOnError)
	oracleStr := fs.String("oracle", "", "Only conditions of this oracle")
	resolvedStr := fs.String("resolved", "", "Filter by resolution (true or false)")
	fs.Parse(args)

	var params rpc.ListConditionsParam
	if *oracleStr != "" {
		oracle, err := types.ParseAddress(*oracleStr)
		if err != nil {
			fatal("%v", err)
		}
		params.Oracle = oracle
	}
	if *resolvedStr != "" {
		resolved, err := strconv.ParseBool(*resolvedStr)
		if err != nil {
			fatal("--resolved must be true or false")
		}
		params.Resolved = &resolved
	}

	var result rpc.ConditionListResult
	if err := env.client.Call("ctf_listConditions", params, &result); err != nil {
		fatal("ctf_listConditions: %v", err)
	}

	if len(result.Conditions) == 0 {
		fmt.Println("No conditions found.")
		return
	}

	fmt.Printf("Conditions: %d\n\n", len(result.Conditions))
	for _, c := range result.Conditions {
		state := "open"
		if c.Resolved {
			state = fmt.Sprintf("resolved %v", c.PayoutNumerators)
		}
		fmt.Printf("  %s\n", c.ID)
		fmt.Printf("      Oracle:   %s\n", c.Oracle)
		fmt.Printf("      Outcomes: %d (%s)\n", c.OutcomeSlotCount, state)
	}
}

func cmdConditionReport(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("condition report", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Oracle wallet")
	condStr := fs.String("condition", "", "Condition id")
	payoutsStr := fs.String("payouts", "", "Payout numerators, comma-separated")
	fs.Parse(args)

	if *walletName == "" || *condStr == "" || *payoutsStr == "" {
		fatal("Usage: ctf-cli condition report --wallet <w> --condition <id> --payouts <n,n,...>")
	}
	id, err := parseConditionID(*condStr)
	if err != nil {
		fatal("%v", err)
	}
	payouts, err := parseUints(*payoutsStr)
	if err != nil {
		fatal("payouts: %v", err)
	}

	var result rpc.OKResult
	submit(env, *walletName, "ctf_reportPayout", rpc.ReportPayoutParam{
		ConditionID:      id,
		PayoutNumerators: payouts,
	}, &result)

	fmt.Println("Payout reported!")
	fmt.Printf("  Condition ID: %s\n", id)
	fmt.Printf("  Numerators:   %v\n", payouts)
}

// ── position ────────────────────────────────────────────────────────────

func cmdPosition(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: ctf-cli position <split|merge|redeem|id|vault> [flags]")
	}

	switch args[0] {
	case "split":
		cmdPositionMove(env, args[1:], "ctf_splitPosition")
	case "merge":
		cmdPositionMove(env, args[1:], "ctf_mergePositions")
	case "redeem":
		cmdPositionRedeem(env, args[1:])
	case "id":
		cmdPositionID(env, args[1:])
	case "vault":
		cmdPositionVault(env, args[1:])
	default:
		fatal("Unknown position command: %s\nUsage: ctf-cli position <split|merge|redeem|id|vault> [flags]", args[0])
	}
}

// positionTarget registers the --collateral and --condition flags.
func positionTarget(fs *flag.FlagSet) func() (types.AssetID, types.ConditionID) {
	collateral := fs.String("collateral", "", "Collateral asset id")
	cond := fs.String("condition", "", "Condition id")
	return func() (types.AssetID, types.ConditionID) {
		if *collateral == "" || *cond == "" {
			fs.Usage()
			os.Exit(1)
		}
		asset, err := parseAssetID(*collateral)
		if err != nil {
			fatal("%v", err)
		}
		id, err := parseConditionID(*cond)
		if err != nil {
			fatal("%v", err)
		}
		return asset, id
	}
}

func cmdPositionMove(env *cliEnv, args []string, method string) {
	fs := flag.NewFlagSet(method, flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	partitionStr := fs.String("partition", "", "Disjoint index sets, comma-separated")
	amountStr := fs.String("amount", "", "Amount")
	target := positionTarget(fs)
	fs.Parse(args)

	collateral, id := target()
	partition, err := parseIndexSets(*partitionStr)
	if err != nil {
		fatal("partition: %v", err)
	}
	amount, err := parseAmount(*amountStr)
	if err != nil {
		fatal("%v", err)
	}

	var result rpc.OKResult
	submit(env, *walletName, method, rpc.PositionParam{
		Collateral:  collateral,
		ConditionID: id,
		Partition:   partition,
		Amount:      amount,
	}, &result)

	verb := "Split"
	if method == "ctf_mergePositions" {
		verb = "Merged"
	}
	fmt.Printf("%s %d across %d positions.\n", verb, amount, len(partition))
}

func cmdPositionRedeem(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("position redeem", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	setsStr := fs.String("index-sets", "", "Index sets to redeem, comma-separated")
	amountStr := fs.String("amount", "", "Amount of each position to redeem (default: full balance of each)")
	target := positionTarget(fs)
	fs.Parse(args)

	collateral, id := target()
	sets, err := parseIndexSets(*setsStr)
	if err != nil {
		fatal("index sets: %v", err)
	}

	key := unlockWallet(env, *walletName)
	defer key.Zero()

	// Without --amount, redeem each position in full, one call per set.
	var calls []rpc.RedeemParam
	if *amountStr != "" {
		amount, err := parseAmount(*amountStr)
		if err != nil {
			fatal("%v", err)
		}
		calls = append(calls, rpc.RedeemParam{Collateral: collateral, ConditionID: id, IndexSets: sets, Amount: amount})
	} else {
		for _, set := range sets {
			var pos rpc.PositionIDResult
			if err := env.client.Call("ctf_getPositionId", rpc.PositionIDParam{
				Collateral:  collateral,
				ConditionID: id,
				IndexSet:    set,
				Holder:      key.Address(),
			}, &pos); err != nil {
				fatal("ctf_getPositionId: %v", err)
			}
			if pos.Balance == nil || *pos.Balance == 0 {
				continue
			}
			calls = append(calls, rpc.RedeemParam{Collateral: collateral, ConditionID: id, IndexSets: []types.IndexSet{set}, Amount: *pos.Balance})
		}
		if len(calls) == 0 {
			fatal("no balance in the given positions")
		}
	}

	var total uint64
	for _, call := range calls {
		var result rpc.RedeemResult
		if err := env.client.Submit("ctf_redeemPositions", key, call, &result); err != nil {
			fatal("ctf_redeemPositions: %v", err)
		}
		total += result.Payout
	}
	fmt.Printf("Redeemed! Payout: %d\n", total)
}

func cmdPositionID(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("position id", flag.ExitOnError)
	setStr := fs.String("index-set", "", "Index set")
	holderStr := fs.String("holder", "", "Also show this holder's balance")
	target := positionTarget(fs)
	fs.Parse(args)

	collateral, id := target()
	set, err := types.ParseIndexSet(*setStr)
	if err != nil {
		fatal("index set: %v", err)
	}
	params := rpc.PositionIDParam{Collateral: collateral, ConditionID: id, IndexSet: set}
	if *holderStr != "" {
		if params.Holder, err = types.ParseAddress(*holderStr); err != nil {
			fatal("%v", err)
		}
	}

	var result rpc.PositionIDResult
	if err := env.client.Call("ctf_getPositionId", params, &result); err != nil {
		fatal("ctf_getPositionId: %v", err)
	}
	fmt.Printf("Position ID: %s\n", result.PositionID)
	fmt.Printf("Supply:      %d\n", result.Supply)
	if result.Balance != nil {
		fmt.Printf("Balance:     %d\n", *result.Balance)
	}
}

func cmdPositionVault(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("position vault", flag.ExitOnError)
	target := positionTarget(fs)
	fs.Parse(args)

	collateral, id := target()
	var result rpc.VaultResult
	if err := env.client.Call("ctf_getVault", rpc.VaultParam{Collateral: collateral, ConditionID: id}, &result); err != nil {
		fatal("ctf_getVault: %v", err)
	}
	fmt.Printf("Vault:   %s\n", result.Address)
	fmt.Printf("Locked:  %d\n", result.Balance)
}
