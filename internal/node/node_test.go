package node

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/klingnet-ctf/config"
	"github.com/Klingon-tech/klingnet-ctf/internal/engine"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpc"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.DB.Backend = backend
	cfg.RPC.Addr = "127.0.0.1"
	cfg.RPC.Port = 0
	cfg.Log.Level = "error"
	cfg.Log.File = filepath.Join(cfg.DataDir, "test.log")
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	return cfg
}

func TestNode_ServesRPC(t *testing.T) {
	n, err := New(testConfig(t, config.BackendMemory))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer n.Stop()

	if n.RPCAddr() == "" {
		t.Fatal("RPCAddr() is empty after Start")
	}
	client := rpcclient.New("http://" + n.RPCAddr())

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	var prepared rpc.ConditionIDResult
	err = client.Call("ctf_prepareCondition", rpc.ConditionIDParam{
		Oracle:           key.Address(),
		QuestionID:       types.QuestionID{0x01},
		OutcomeSlotCount: 2,
	}, &prepared)
	if err != nil {
		t.Fatalf("ctf_prepareCondition error: %v", err)
	}

	if _, err := n.Engine().Condition(prepared.ConditionID); err != nil {
		t.Errorf("engine does not see the prepared condition: %v", err)
	}

	var asset rpc.CreateAssetResult
	if err := client.Submit("bank_createAsset", key, rpc.CreateAssetParam{Symbol: "USD"}, &asset); err != nil {
		t.Fatalf("bank_createAsset error: %v", err)
	}
	if nonce, err := client.Nonce(key.Address()); err != nil || nonce != 2 {
		t.Errorf("Nonce() = %d, %v, want 2", nonce, err)
	}
}

func TestNode_RPCDisabled(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer n.Stop()

	if n.RPCAddr() != "" {
		t.Errorf("RPCAddr() = %q, want empty", n.RPCAddr())
	}
}

func TestNode_BadgerPersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t, config.BackendBadger)
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	oracle := types.Address{0x0a}
	id, err := n.Engine().PrepareCondition(context.Background(), engine.Caller{}, oracle, types.QuestionID{0x02}, 3)
	if err != nil {
		t.Fatalf("PrepareCondition() error: %v", err)
	}
	n.Stop()

	n, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer n.Stop()

	c, err := n.Engine().Condition(id)
	if err != nil {
		t.Fatalf("Condition() after restart error: %v", err)
	}
	if c.OutcomeSlotCount != 3 || c.Oracle != oracle {
		t.Errorf("condition after restart = %+v", c)
	}
	if seq, err := n.Engine().LastEventSeq(); err != nil || seq != 1 {
		t.Errorf("LastEventSeq() = %d, %v, want 1", seq, err)
	}
}

func TestNode_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Events.Redis.Enabled = true
	cfg.Events.Redis.Addr = "127.0.0.1:1"

	if _, err := New(cfg); err == nil {
		t.Fatal("New() should fail when redis is unreachable")
	}
}

func TestOpenDB(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.DB.Backend = "leveldb"
	if _, err := openDB(cfg); err == nil {
		t.Error("unknown backend should fail")
	}
}
