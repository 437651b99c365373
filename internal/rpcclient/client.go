// Package rpcclient provides a JSON-RPC 2.0 client for ctfd nodes.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/internal/auth"
	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/rpc"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ctf/pkg/types"
)

const defaultTimeout = 10 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 8 << 20

// Client talks to one node over HTTP. It is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	lastID   atomic.Uint64
}

// New returns a client for endpoint with the default timeout.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, defaultTimeout)
}

// NewWithTimeout returns a client whose requests give up after timeout.
// A non-positive timeout selects the default.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      uint64      `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
	ID json.RawMessage `json:"id"`
}

// RPCError is an error object returned by the node. Ledger errors unwrap
// to their ctferr kind, so errors.Is(err, ctferr.ErrState) works across
// the wire.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage // rpc.ErrorData for ledger errors
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	switch e.Code {
	case rpc.CodeValidation, rpc.CodeInvalidParams:
		return ctferr.ErrValidation
	case rpc.CodeAuthorization:
		return ctferr.ErrAuthorization
	case rpc.CodeState:
		return ctferr.ErrState
	case rpc.CodeArithmetic:
		return ctferr.ErrArithmetic
	case rpc.CodeCustody:
		return ctferr.ErrCustody
	case rpc.CodeNotFound:
		return ctferr.ErrNotFound
	}
	return nil
}

// Details decodes the ledger error payload. It returns the zero value
// when the error carries none.
func (e *RPCError) Details() rpc.ErrorData {
	var d rpc.ErrorData
	if len(e.Data) > 0 {
		_ = json.Unmarshal(e.Data, &d)
	}
	return d
}

// Call is CallContext with a background context.
func (c *Client) Call(method string, params, result interface{}) error {
	return c.CallContext(context.Background(), method, params, result)
}

// CallContext invokes method and decodes the result into result, which
// may be nil to discard it.
func (c *Client) CallContext(ctx context.Context, method string, params, result interface{}) error {
	id := c.lastID.Add(1)
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(data))
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if r.Error != nil {
		return &RPCError{Code: r.Error.Code, Message: r.Error.Message, Data: r.Error.Data}
	}
	if got := string(r.ID); got != fmt.Sprint(id) {
		return fmt.Errorf("response id %s does not match request id %d", got, id)
	}
	if result != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// CallSigned wraps payload in an envelope signed with nonce and calls
// method with it.
func (c *Client) CallSigned(method string, signer crypto.Signer, nonce uint64, payload, result interface{}) error {
	env, err := auth.Sign(method, signer, nonce, payload)
	if err != nil {
		return fmt.Errorf("sign %s: %w", method, err)
	}
	return c.Call(method, env, result)
}

// Nonce returns the nonce addr must sign its next call with.
func (c *Client) Nonce(addr types.Address) (uint64, error) {
	var result rpc.NonceResult
	if err := c.Call("auth_getNonce", rpc.AddressParam{Address: addr}, &result); err != nil {
		return 0, err
	}
	return result.Nonce, nil
}

// Submit fetches the signer's next nonce and makes a signed call with it.
// Concurrent submits from one signer race for the same nonce; the loser
// gets an authorization error and may retry.
func (c *Client) Submit(method string, signer crypto.Signer, payload, result interface{}) error {
	nonce, err := c.Nonce(crypto.AddressFromPubKey(signer.PublicKey()))
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	return c.CallSigned(method, signer, nonce, payload, result)
}
