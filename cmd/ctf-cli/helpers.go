package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/Klingon-tech/klingnet-ctf/internal/wallet"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
	"golang.org/x/term"
)

// ── Parsing helpers ─────────────────────────────────────────────────────

func parseHash(s string) (types.Hash, error) {
	if s == "" {
		return types.Hash{}, fmt.Errorf("empty id")
	}
	return types.HexToHash(s)
}

func parseConditionID(s string) (types.ConditionID, error) {
	h, err := parseHash(s)
	if err != nil {
		return types.ConditionID{}, fmt.Errorf("condition id: %w", err)
	}
	return types.ConditionID(h), nil
}

func parseQuestionID(s string) (types.QuestionID, error) {
	h, err := parseHash(s)
	if err != nil {
		return types.QuestionID{}, fmt.Errorf("question id: %w", err)
	}
	return types.QuestionID(h), nil
}

func parseAssetID(s string) (types.AssetID, error) {
	h, err := parseHash(s)
	if err != nil {
		return types.AssetID{}, fmt.Errorf("asset id: %w", err)
	}
	return types.AssetID(h), nil
}

// parseIndexSets parses a comma-separated list such as "0b01,0b10".
func parseIndexSets(s string) ([]types.IndexSet, error) {
	var out []types.IndexSet
	for _, part := range splitList(s) {
		set, err := types.ParseIndexSet(part)
		if err != nil {
			return nil, fmt.Errorf("index set %q: %w", part, err)
		}
		out = append(out, set)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no index sets given")
	}
	return out, nil
}

// parseUints parses a comma-separated list of unsigned integers.
func parseUints(s string) ([]uint64, error) {
	var out []uint64
	for _, part := range splitList(s) {
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// ── Signing ─────────────────────────────────────────────────────────────

// unlockWallet prompts for the wallet password and returns its key. The
// CTF_WALLET_PASSWORD variable skips the prompt for scripted use.
func unlockWallet(env *cliEnv, name string) *crypto.PrivateKey {
	if name == "" {
		fatal("--wallet is required")
	}
	ks, err := wallet.NewKeystore(env.walletDir, wallet.DefaultParams())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	password := []byte(os.Getenv("CTF_WALLET_PASSWORD"))
	if len(password) == 0 {
		password, err = readPassword(fmt.Sprintf("Password for %s: ", name))
		if err != nil {
			fatal("read password: %v", err)
		}
	}
	key, err := ks.Unlock(name, password)
	if err != nil {
		fatal("%v", err)
	}
	return key
}

// submit signs payload with the named wallet and sends it.
func submit(env *cliEnv, walletName, method string, payload, result interface{}) {
	key := unlockWallet(env, walletName)
	defer key.Zero()
	if err := env.client.Submit(method, key, payload, result); err != nil {
		fatal("%s: %v", method, err)
	}
}

// ── Output helpers ──────────────────────────────────────────────────────

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode result: %v", err)
	}
	fmt.Println(string(data))
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
