package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/config"
	"github.com/Klingon-tech/klingnet-ctf/internal/auth"
	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/engine"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	klog "github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/storage"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
	"github.com/gorilla/websocket"
)

// testEnv holds all components for an RPC test.
type testEnv struct {
	server *Server
	engine *engine.Engine
	hub    *event.Hub
	key    *crypto.PrivateKey
	addr   types.Address
	nonce  uint64
	url    string
}

func setupTestEnv(t *testing.T, rpcCfg ...config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	hub := event.NewHub()
	t.Cleanup(hub.Close)
	eng := engine.New(storage.NewMemory(), event.NewFanout(hub))

	// Create and start RPC server on random port.
	srv := New("127.0.0.1:0", eng, hub, rpcCfg...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server: srv,
		engine: eng,
		hub:    hub,
		key:    key,
		addr:   key.Address(),
		url:    "http://" + srv.Addr() + "/",
	}
}

// rpcCall sends a JSON-RPC request and returns the parsed response.
func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  raw,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

// signedCall signs payload with the env key and the next nonce.
func (env *testEnv) signedCall(t *testing.T, method string, payload interface{}) Response {
	t.Helper()
	env.nonce++
	e, err := auth.Sign(method, env.key, env.nonce, payload)
	if err != nil {
		t.Fatalf("sign %s: %v", method, err)
	}
	resp := rpcCall(t, env.url, method, e)
	if resp.Error != nil {
		// A failed call does not consume its nonce.
		env.nonce--
	}
	return resp
}

// decodeResult re-marshals resp.Result into v.
func decodeResult(t *testing.T, resp Response, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
}

func wantCode(t *testing.T, resp Response, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error code %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Fatalf("error code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, code)
	}
}

// fundedCondition creates a USD asset, mints to the env key and prepares a
// binary condition with the env key as oracle.
func (env *testEnv) fundedCondition(t *testing.T, mint uint64) (types.AssetID, types.ConditionID) {
	t.Helper()
	var created CreateAssetResult
	decodeResult(t, env.signedCall(t, "bank_createAsset", CreateAssetParam{Symbol: "USD"}), &created)
	var ok OKResult
	decodeResult(t, env.signedCall(t, "bank_mint", MintParam{Asset: created.Asset, To: env.addr, Amount: mint}), &ok)

	var prepared ConditionIDResult
	decodeResult(t, rpcCall(t, env.url, "ctf_prepareCondition", ConditionIDParam{
		Oracle: env.addr, QuestionID: types.QuestionID{0x01}, OutcomeSlotCount: 2,
	}), &prepared)
	return created.Asset, prepared.ConditionID
}

var yesNo = []types.IndexSet{types.IndexSetFromUint64(0b01), types.IndexSetFromUint64(0b10)}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_GetConditionID(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "ctf_getConditionId", ConditionIDParam{
		Oracle:           types.Address{0x0a},
		QuestionID:       types.QuestionID{0x51},
		OutcomeSlotCount: 3,
	})
	var result ConditionIDResult
	decodeResult(t, resp, &result)

	const want = "a6593e383d1cde5a11286a4a9f1b4a37b8ffc49c3a33b24a92100c67851ff8e0"
	if result.ConditionID.String() != want {
		t.Errorf("conditionId = %s, want %s", result.ConditionID, want)
	}
}

func TestRPC_GetConditionID_BadSlotCount(t *testing.T) {
	env := setupTestEnv(t)

	for _, n := range []int{0, 1, 257} {
		resp := rpcCall(t, env.url, "ctf_getConditionId", ConditionIDParam{OutcomeSlotCount: n})
		wantCode(t, resp, CodeValidation)
	}
}

func TestRPC_PrepareAndGetCondition(t *testing.T) {
	env := setupTestEnv(t)
	oracle := types.Address{0x0a}
	qid := types.QuestionID{0x51}

	var prepared ConditionIDResult
	decodeResult(t, rpcCall(t, env.url, "ctf_prepareCondition", ConditionIDParam{
		Oracle: oracle, QuestionID: qid, OutcomeSlotCount: 3,
	}), &prepared)

	var byID condition.Condition
	decodeResult(t, rpcCall(t, env.url, "ctf_getCondition", GetConditionParam{ConditionID: prepared.ConditionID}), &byID)
	if byID.Oracle != oracle || byID.OutcomeSlotCount != 3 || byID.Resolved {
		t.Errorf("condition = %+v", byID)
	}

	var byQuestion condition.Condition
	decodeResult(t, rpcCall(t, env.url, "ctf_getCondition", GetConditionParam{Oracle: oracle, QuestionID: qid}), &byQuestion)
	if byQuestion.ID != prepared.ConditionID {
		t.Errorf("lookup by question = %s, want %s", byQuestion.ID, prepared.ConditionID)
	}

	// Same (oracle, question) again fails but reports the id.
	resp := rpcCall(t, env.url, "ctf_prepareCondition", ConditionIDParam{Oracle: oracle, QuestionID: qid, OutcomeSlotCount: 3})
	wantCode(t, resp, CodeState)
	data, _ := json.Marshal(resp.Error.Data)
	if !strings.Contains(string(data), prepared.ConditionID.String()) {
		t.Errorf("error data %s should carry the condition id", data)
	}
}

func TestRPC_GetCondition_Errors(t *testing.T) {
	env := setupTestEnv(t)

	wantCode(t, rpcCall(t, env.url, "ctf_getCondition", nil), CodeInvalidParams)
	wantCode(t, rpcCall(t, env.url, "ctf_getCondition", GetConditionParam{}), CodeInvalidParams)
	wantCode(t, rpcCall(t, env.url, "ctf_getCondition", GetConditionParam{ConditionID: types.ConditionID{0x01}}), CodeNotFound)
}

func TestRPC_ListConditions(t *testing.T) {
	env := setupTestEnv(t)
	_, cid := env.fundedCondition(t, 10)

	other := ConditionIDParam{Oracle: types.Address{0xbb}, QuestionID: types.QuestionID{0x09}, OutcomeSlotCount: 4}
	decodeResult(t, rpcCall(t, env.url, "ctf_prepareCondition", other), &ConditionIDResult{})
	decodeResult(t, env.signedCall(t, "ctf_reportPayout", ReportPayoutParam{ConditionID: cid, PayoutNumerators: []uint64{1, 1}}), &OKResult{})

	tests := []struct {
		name   string
		params interface{}
		want   int
	}{
		{"no params", nil, 2},
		{"by oracle", ListConditionsParam{Oracle: env.addr}, 1},
		{"resolved", map[string]interface{}{"resolved": true}, 1},
		{"unresolved", map[string]interface{}{"resolved": false}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result ConditionListResult
			decodeResult(t, rpcCall(t, env.url, "ctf_listConditions", tt.params), &result)
			if len(result.Conditions) != tt.want {
				t.Errorf("got %d conditions, want %d", len(result.Conditions), tt.want)
			}
		})
	}
}

func TestRPC_SplitMergeRedeem(t *testing.T) {
	env := setupTestEnv(t)
	usd, cid := env.fundedCondition(t, 100)

	decodeResult(t, env.signedCall(t, "ctf_splitPosition", PositionParam{
		Collateral: usd, ConditionID: cid, Partition: yesNo, Amount: 60,
	}), &OKResult{})

	var pos PositionIDResult
	decodeResult(t, rpcCall(t, env.url, "ctf_getPositionId", PositionIDParam{
		Collateral: usd, ConditionID: cid, IndexSet: yesNo[0], Holder: env.addr,
	}), &pos)
	if pos.Balance == nil || *pos.Balance != 60 || pos.Supply != 60 {
		t.Errorf("position = %+v, want balance and supply 60", pos)
	}

	decodeResult(t, env.signedCall(t, "ctf_mergePositions", PositionParam{
		Collateral: usd, ConditionID: cid, Partition: yesNo, Amount: 20,
	}), &OKResult{})

	var vault VaultResult
	decodeResult(t, rpcCall(t, env.url, "ctf_getVault", VaultParam{Collateral: usd, ConditionID: cid}), &vault)
	if vault.Balance != 40 {
		t.Errorf("vault balance = %d, want 40", vault.Balance)
	}

	// Redeem before resolution is a state error.
	wantCode(t, env.signedCall(t, "ctf_redeemPositions", RedeemParam{
		Collateral: usd, ConditionID: cid, IndexSets: yesNo, Amount: 40,
	}), CodeState)

	decodeResult(t, env.signedCall(t, "ctf_reportPayout", ReportPayoutParam{
		ConditionID: cid, PayoutNumerators: []uint64{3, 1},
	}), &OKResult{})

	var redeemed RedeemResult
	decodeResult(t, env.signedCall(t, "ctf_redeemPositions", RedeemParam{
		Collateral: usd, ConditionID: cid, IndexSets: yesNo[:1], Amount: 40,
	}), &redeemed)
	if redeemed.Payout != 30 {
		t.Errorf("payout = %d, want 30", redeemed.Payout)
	}

	var bal BalanceResult
	decodeResult(t, rpcCall(t, env.url, "bank_getBalance", BalanceParam{Asset: usd, Holder: env.addr}), &bal)
	if bal.Balance != 90 {
		t.Errorf("collateral balance = %d, want 90", bal.Balance)
	}
}

func TestRPC_LedgerErrorCodes(t *testing.T) {
	env := setupTestEnv(t)
	usd, cid := env.fundedCondition(t, 10)

	tests := []struct {
		name    string
		method  string
		payload interface{}
		code    int
	}{
		{"overlapping partition", "ctf_splitPosition",
			PositionParam{Collateral: usd, ConditionID: cid, Partition: []types.IndexSet{yesNo[0], yesNo[0]}, Amount: 1}, CodeValidation},
		{"insufficient collateral", "ctf_splitPosition",
			PositionParam{Collateral: usd, ConditionID: cid, Partition: yesNo, Amount: 11}, CodeCustody},
		{"unknown condition", "ctf_splitPosition",
			PositionParam{Collateral: usd, ConditionID: types.ConditionID{0x01}, Partition: yesNo, Amount: 1}, CodeNotFound},
		{"wrong payout length", "ctf_reportPayout",
			ReportPayoutParam{ConditionID: cid, PayoutNumerators: []uint64{1}}, CodeValidation},
		{"overflowing payout", "ctf_reportPayout",
			ReportPayoutParam{ConditionID: cid, PayoutNumerators: []uint64{^uint64(0), 1}}, CodeArithmetic},
		{"mint unknown asset", "bank_mint",
			MintParam{Asset: types.AssetID{0x01}, To: env.addr, Amount: 1}, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantCode(t, env.signedCall(t, tt.method, tt.payload), tt.code)
		})
	}
}

func TestRPC_ReportPayout_NotOracle(t *testing.T) {
	env := setupTestEnv(t)

	var prepared ConditionIDResult
	decodeResult(t, rpcCall(t, env.url, "ctf_prepareCondition", ConditionIDParam{
		Oracle: types.Address{0xee}, QuestionID: types.QuestionID{0x01}, OutcomeSlotCount: 2,
	}), &prepared)

	resp := env.signedCall(t, "ctf_reportPayout", ReportPayoutParam{ConditionID: prepared.ConditionID, PayoutNumerators: []uint64{1, 0}})
	wantCode(t, resp, CodeAuthorization)
}

func TestRPC_SignedCall_Rejected(t *testing.T) {
	env := setupTestEnv(t)
	payload := CreateAssetParam{Symbol: "USD"}

	t.Run("tampered payload", func(t *testing.T) {
		e, _ := auth.Sign("bank_createAsset", env.key, 1, payload)
		e.Payload = json.RawMessage(`{"symbol":"EUR"}`)
		wantCode(t, rpcCall(t, env.url, "bank_createAsset", e), CodeAuthorization)
	})
	t.Run("signed for another method", func(t *testing.T) {
		e, _ := auth.Sign("bank_mint", env.key, 1, payload)
		wantCode(t, rpcCall(t, env.url, "bank_createAsset", e), CodeAuthorization)
	})
	t.Run("zero nonce", func(t *testing.T) {
		e, _ := auth.Sign("bank_createAsset", env.key, 0, payload)
		wantCode(t, rpcCall(t, env.url, "bank_createAsset", e), CodeValidation)
	})
	t.Run("skipped nonce", func(t *testing.T) {
		e, _ := auth.Sign("bank_createAsset", env.key, 5, payload)
		wantCode(t, rpcCall(t, env.url, "bank_createAsset", e), CodeAuthorization)
	})
	t.Run("missing envelope", func(t *testing.T) {
		wantCode(t, rpcCall(t, env.url, "bank_createAsset", nil), CodeInvalidParams)
	})

	var nonce NonceResult
	decodeResult(t, rpcCall(t, env.url, "auth_getNonce", AddressParam{Address: env.addr}), &nonce)
	if nonce.Nonce != 1 {
		t.Errorf("rejected calls must not consume nonces, next = %d", nonce.Nonce)
	}
}

func TestRPC_GetAsset(t *testing.T) {
	env := setupTestEnv(t)
	usd, _ := env.fundedCondition(t, 25)

	var result AssetResult
	decodeResult(t, rpcCall(t, env.url, "bank_getAsset", AssetParam{Asset: usd}), &result)
	if result.Asset == nil || result.Symbol != "USD" || result.Authority != env.addr || result.Supply != 25 {
		t.Errorf("asset = %+v", result)
	}

	wantCode(t, rpcCall(t, env.url, "bank_getAsset", AssetParam{Asset: types.AssetID{0x01}}), CodeNotFound)
}

func TestRPC_Transfer(t *testing.T) {
	env := setupTestEnv(t)
	usd, _ := env.fundedCondition(t, 25)
	to := types.Address{0x42}

	decodeResult(t, env.signedCall(t, "bank_transfer", TransferParam{Asset: usd, To: to, Amount: 5}), &OKResult{})

	var bal BalanceResult
	decodeResult(t, rpcCall(t, env.url, "bank_getBalance", BalanceParam{Asset: usd, Holder: to}), &bal)
	if bal.Balance != 5 {
		t.Errorf("recipient balance = %d, want 5", bal.Balance)
	}
}

// Signed payloads must verify over the exact bytes the client signed,
// whatever their field order or numeric range.
func TestRPC_SignedMultiFieldPayload(t *testing.T) {
	env := setupTestEnv(t)
	var created CreateAssetResult
	decodeResult(t, env.signedCall(t, "bank_createAsset", CreateAssetParam{Symbol: "USD"}), &created)

	const big = uint64(1)<<53 + 1
	for _, amount := range []uint64{5, big} {
		resp := env.signedCall(t, "bank_mint", MintParam{Asset: created.Asset, To: env.addr, Amount: amount})
		decodeResult(t, resp, &OKResult{})
	}

	var bal BalanceResult
	decodeResult(t, rpcCall(t, env.url, "bank_getBalance", BalanceParam{Asset: created.Asset, Holder: env.addr}), &bal)
	if bal.Balance != big+5 {
		t.Errorf("balance = %d, want %d", bal.Balance, big+5)
	}
}

// Keys out of struct order must still verify: the server never re-encodes.
func TestRPC_SignedPayloadKeyOrder(t *testing.T) {
	env := setupTestEnv(t)
	var created CreateAssetResult
	decodeResult(t, env.signedCall(t, "bank_createAsset", CreateAssetParam{Symbol: "USD"}), &created)

	payload := json.RawMessage(`{"to":"` + env.addr.String() + `","amount":7,"asset":"` + created.Asset.String() + `"}`)
	decodeResult(t, env.signedCall(t, "bank_mint", payload), &OKResult{})

	var bal BalanceResult
	decodeResult(t, rpcCall(t, env.url, "bank_getBalance", BalanceParam{Asset: created.Asset, Holder: env.addr}), &bal)
	if bal.Balance != 7 {
		t.Errorf("balance = %d, want 7", bal.Balance)
	}
}

func TestRPC_EventList(t *testing.T) {
	env := setupTestEnv(t)
	env.fundedCondition(t, 1)

	var all EventListResult
	decodeResult(t, rpcCall(t, env.url, "event_list", nil), &all)
	want := []event.Type{event.AssetCreated, event.AssetMinted, event.ConditionPrepared}
	if len(all.Events) != len(want) {
		t.Fatalf("got %d events, want %d", len(all.Events), len(want))
	}
	for i, rec := range all.Events {
		if rec.Type != want[i] || rec.Seq != uint64(i+1) {
			t.Errorf("event %d = %s seq %d", i, rec.Type, rec.Seq)
		}
	}

	var filtered EventListResult
	decodeResult(t, rpcCall(t, env.url, "event_list", EventListParam{After: 1, Type: event.ConditionPrepared}), &filtered)
	if len(filtered.Events) != 1 || filtered.Events[0].Seq != 3 {
		t.Errorf("filtered = %+v", filtered.Events)
	}
}

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)
	wantCode(t, rpcCall(t, env.url, "chain_getInfo", nil), CodeMethodNotFound)
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)
	wantCode(t, rpcCall(t, env.url, "bank_getBalance", map[string]string{"asset": "zz"}), CodeInvalidParams)
	wantCode(t, rpcCall(t, env.url, "auth_getNonce", AddressParam{}), CodeInvalidParams)
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantCode(t, rpcResp, CodeParseError)
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"jsonrpc":"1.0","method":"auth_getNonce","params":null,"id":7}`
	resp, err := http.Post(env.url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_AllowedIPs(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{AllowedIPs: []string{"10.0.0.0/8"}, Metrics: true})

	for _, path := range []string{"", "metrics"} {
		resp, err := http.Post(env.url+path, "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("/%s status = %d, want 403", path, resp.StatusCode)
		}
	}
}

func TestRPC_CORSPreflight(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{CORSOrigins: []string{"http://app.test"}})

	req, _ := http.NewRequest(http.MethodOptions, env.url, nil)
	req.Header.Set("Origin", "http://app.test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestRPC_Metrics(t *testing.T) {
	env := setupTestEnv(t)
	rpcCall(t, env.url, "auth_getNonce", AddressParam{Address: env.addr})

	resp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `ctf_rpc_requests_total{method="auth_getNonce",status="success"}`) {
		t.Error("metrics output should count the auth_getNonce request")
	}
}

func TestRPC_AuxEndpointsDisabled(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{})

	resp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	// Falls through to the JSON-RPC handler, which only accepts POST.
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("disabled /metrics should not serve Prometheus output")
	}
}

func TestRPC_WebSocketStream(t *testing.T) {
	env := setupTestEnv(t)

	wsURL := "ws://" + env.server.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	decodeResult(t, rpcCall(t, env.url, "ctf_prepareCondition", ConditionIDParam{
		Oracle: env.addr, QuestionID: types.QuestionID{0x07}, OutcomeSlotCount: 2,
	}), &ConditionIDResult{})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	var rec event.Record
	if err := json.Unmarshal(msg, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Type != event.ConditionPrepared || rec.Seq != 1 {
		t.Errorf("streamed %s seq %d, want condition_prepared seq 1", rec.Type, rec.Seq)
	}
}
