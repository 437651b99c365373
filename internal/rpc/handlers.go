package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ctf/internal/auth"
	"github.com/Klingon-tech/klingnet-ctf/internal/condition"
	"github.com/Klingon-tech/klingnet-ctf/internal/ctferr"
	"github.com/Klingon-tech/klingnet-ctf/internal/custody"
	"github.com/Klingon-tech/klingnet-ctf/internal/engine"
)

// Event list limits.
const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// ledgerError maps a ledger error to a JSON-RPC error by kind.
func ledgerError(err error) *Error {
	code := CodeInternalError
	switch ctferr.Kind(err) {
	case ctferr.ErrValidation:
		code = CodeValidation
	case ctferr.ErrAuthorization:
		code = CodeAuthorization
	case ctferr.ErrState:
		code = CodeState
	case ctferr.ErrArithmetic:
		code = CodeArithmetic
	case ctferr.ErrCustody:
		code = CodeCustody
	case ctferr.ErrNotFound:
		code = CodeNotFound
	}
	return &Error{Code: code, Message: err.Error(), Data: &ErrorData{Kind: ctferr.Label(err)}}
}

// openSigned verifies the signed envelope in req's params, decodes its
// payload into payload and returns the signer as a nonce-tracked caller.
func (s *Server) openSigned(req *Request, payload interface{}) (engine.Caller, *Error) {
	var env auth.Envelope
	if err := parseParams(req, &env); err != nil {
		return engine.Caller{}, err
	}
	addr, err := env.Verify(req.Method, s.verifier)
	if err != nil {
		return engine.Caller{}, ledgerError(err)
	}
	if err := env.Decode(payload); err != nil {
		return engine.Caller{}, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return engine.Caller{Address: addr, Nonce: env.Nonce}, nil
}

// ── Condition endpoints ─────────────────────────────────────────────────

func (s *Server) handleGetConditionID(_ context.Context, req *Request) (interface{}, *Error) {
	var params ConditionIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if !condition.ValidSlotCount(params.OutcomeSlotCount) {
		return nil, ledgerError(fmt.Errorf("%w: %d", condition.ErrSlotCount, params.OutcomeSlotCount))
	}
	return &ConditionIDResult{
		ConditionID: condition.ID(params.Oracle, params.QuestionID, params.OutcomeSlotCount),
	}, nil
}

func (s *Server) handlePrepareCondition(ctx context.Context, req *Request) (interface{}, *Error) {
	var params ConditionIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, err := s.engine.PrepareCondition(ctx, engine.Caller{}, params.Oracle, params.QuestionID, params.OutcomeSlotCount)
	if err != nil {
		rpcErr := ledgerError(err)
		if errors.Is(err, condition.ErrConditionExists) {
			rpcErr.Data = &ErrorData{Kind: ctferr.Label(err), ConditionID: id.String()}
		}
		return nil, rpcErr
	}
	return &ConditionIDResult{ConditionID: id}, nil
}

func (s *Server) handleGetCondition(_ context.Context, req *Request) (interface{}, *Error) {
	var params GetConditionParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	var (
		c   *condition.Condition
		err error
	)
	switch {
	case !params.ConditionID.IsZero():
		c, err = s.engine.Condition(params.ConditionID)
	case !params.Oracle.IsZero():
		c, err = s.engine.ConditionByQuestion(params.Oracle, params.QuestionID)
	default:
		return nil, &Error{Code: CodeInvalidParams, Message: "conditionId or oracle is required"}
	}
	if err != nil {
		return nil, ledgerError(err)
	}
	return c, nil
}

func (s *Server) handleListConditions(_ context.Context, req *Request) (interface{}, *Error) {
	var params ListConditionsParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}

	all, err := s.engine.Conditions()
	if err != nil {
		return nil, ledgerError(err)
	}
	out := make([]*condition.Condition, 0, len(all))
	for _, c := range all {
		if !params.Oracle.IsZero() && c.Oracle != params.Oracle {
			continue
		}
		if params.Resolved != nil && c.Resolved != *params.Resolved {
			continue
		}
		out = append(out, c)
	}
	return &ConditionListResult{Conditions: out}, nil
}

func (s *Server) handleReportPayout(ctx context.Context, req *Request) (interface{}, *Error) {
	var params ReportPayoutParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.ReportPayout(ctx, caller, params.ConditionID, params.PayoutNumerators); err != nil {
		return nil, ledgerError(err)
	}
	return &OKResult{OK: true}, nil
}

// ── Position endpoints ──────────────────────────────────────────────────

func (s *Server) handleSplitPosition(ctx context.Context, req *Request) (interface{}, *Error) {
	var params PositionParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Split(ctx, caller, params.Collateral, params.ConditionID, params.Amount, params.Partition); err != nil {
		return nil, ledgerError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleMergePositions(ctx context.Context, req *Request) (interface{}, *Error) {
	var params PositionParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Merge(ctx, caller, params.Collateral, params.ConditionID, params.Amount, params.Partition); err != nil {
		return nil, ledgerError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleRedeemPositions(ctx context.Context, req *Request) (interface{}, *Error) {
	var params RedeemParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	paid, err := s.engine.Redeem(ctx, caller, params.Collateral, params.ConditionID, params.IndexSets, params.Amount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &RedeemResult{Payout: paid}, nil
}

func (s *Server) handleGetPositionID(_ context.Context, req *Request) (interface{}, *Error) {
	var params PositionIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.IndexSet.IsZero() {
		return nil, &Error{Code: CodeInvalidParams, Message: "indexSet must be non-zero"}
	}

	id := custody.PositionID(params.Collateral, params.ConditionID, params.IndexSet)
	result := &PositionIDResult{PositionID: id}
	supply, err := s.engine.Supply(id)
	if err != nil {
		return nil, ledgerError(err)
	}
	result.Supply = supply
	if !params.Holder.IsZero() {
		bal, err := s.engine.Balance(id, params.Holder)
		if err != nil {
			return nil, ledgerError(err)
		}
		result.Balance = &bal
	}
	return result, nil
}

func (s *Server) handleGetVault(_ context.Context, req *Request) (interface{}, *Error) {
	var params VaultParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	vault := custody.VaultAddress(params.ConditionID, params.Collateral)
	bal, err := s.engine.Balance(params.Collateral, vault)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &VaultResult{Address: vault, Balance: bal}, nil
}

// ── Bank endpoints ──────────────────────────────────────────────────────

func (s *Server) handleCreateAsset(ctx context.Context, req *Request) (interface{}, *Error) {
	var params CreateAssetParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.engine.CreateAsset(ctx, caller, params.Symbol)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &CreateAssetResult{Asset: id}, nil
}

func (s *Server) handleMint(ctx context.Context, req *Request) (interface{}, *Error) {
	var params MintParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Mint(ctx, caller, params.Asset, params.To, params.Amount); err != nil {
		return nil, ledgerError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleTransfer(ctx context.Context, req *Request) (interface{}, *Error) {
	var params TransferParam
	caller, rpcErr := s.openSigned(req, &params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Transfer(ctx, caller, params.Asset, params.To, params.Amount); err != nil {
		return nil, ledgerError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleGetAsset(_ context.Context, req *Request) (interface{}, *Error) {
	var params AssetParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	a, err := s.engine.Asset(params.Asset)
	if err != nil {
		return nil, ledgerError(err)
	}
	supply, err := s.engine.Supply(params.Asset)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &AssetResult{Asset: a, Supply: supply}, nil
}

func (s *Server) handleGetBalance(_ context.Context, req *Request) (interface{}, *Error) {
	var params BalanceParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Holder.IsZero() {
		return nil, &Error{Code: CodeInvalidParams, Message: "holder is required"}
	}
	bal, err := s.engine.Balance(params.Asset, params.Holder)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &BalanceResult{Asset: params.Asset, Holder: params.Holder, Balance: bal}, nil
}

// ── Event and auth endpoints ────────────────────────────────────────────

func (s *Server) handleEventList(_ context.Context, req *Request) (interface{}, *Error) {
	var params EventListParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	recs, err := s.engine.Events(params.After, limit, params.Type)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &EventListResult{Events: recs}, nil
}

func (s *Server) handleGetNonce(_ context.Context, req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address.IsZero() {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	n, err := s.engine.NextNonce(params.Address)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &NonceResult{Address: params.Address, Nonce: n}, nil
}
