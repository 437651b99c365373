// Package rpc implements the JSON-RPC 2.0 API server.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingnet-ctf/config"
	"github.com/Klingon-tech/klingnet-ctf/internal/engine"
	"github.com/Klingon-tech/klingnet-ctf/internal/event"
	klog "github.com/Klingon-tech/klingnet-ctf/internal/log"
	"github.com/Klingon-tech/klingnet-ctf/internal/metrics"
	"github.com/Klingon-tech/klingnet-ctf/pkg/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// handlerFunc serves one JSON-RPC method.
type handlerFunc func(ctx context.Context, req *Request) (interface{}, *Error)

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	engine      *engine.Engine
	hub         *event.Hub      // Live event stream on /ws (nil = disabled).
	verifier    crypto.Verifier // Checks signed-call envelopes.
	methods     map[string]handlerFunc
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

// New creates a new RPC server. The rpcCfg parameter controls IP filtering,
// CORS and the auxiliary endpoints. Without it all IPs are allowed, CORS is
// disabled and /ws and /metrics are served.
func New(addr string, eng *engine.Engine, hub *event.Hub, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:     addr,
		engine:   eng,
		hub:      hub,
		verifier: crypto.SchnorrVerifier{},
		logger:   klog.WithComponent("rpc"),
	}
	s.methods = s.routes()

	serveWS, serveMetrics := true, true
	if len(rpcCfg) > 0 {
		s.allowedNets = parseAllowedIPs(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
		serveWS = rpcCfg[0].WebSocket
		serveMetrics = rpcCfg[0].Metrics
	}

	mux := http.NewServeMux()
	mux.Handle("/", s.guard(http.HandlerFunc(s.handleRequest)))
	if serveWS && hub != nil {
		mux.Handle("/ws", s.guard(hub))
	}
	if serveMetrics {
		mux.Handle("/metrics", s.guard(promhttp.Handler()))
	}

	// No WriteTimeout: /ws connections are long-lived.
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// routes returns the method table.
func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"ctf_getConditionId":   s.handleGetConditionID,
		"ctf_prepareCondition": s.handlePrepareCondition,
		"ctf_getCondition":     s.handleGetCondition,
		"ctf_listConditions":   s.handleListConditions,
		"ctf_reportPayout":     s.handleReportPayout,
		"ctf_splitPosition":    s.handleSplitPosition,
		"ctf_mergePositions":   s.handleMergePositions,
		"ctf_redeemPositions":  s.handleRedeemPositions,
		"ctf_getPositionId":    s.handleGetPositionID,
		"ctf_getVault":         s.handleGetVault,
		"bank_createAsset":     s.handleCreateAsset,
		"bank_mint":            s.handleMint,
		"bank_transfer":        s.handleTransfer,
		"bank_getAsset":        s.handleGetAsset,
		"bank_getBalance":      s.handleGetBalance,
		"event_list":           s.handleEventList,
		"auth_getNonce":        s.handleGetNonce,
	}
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("RPC server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// guard rejects requests from addresses outside the allow-list.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedNets) > 0 {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ip := net.ParseIP(host)
			if ip == nil || !s.isIPAllowed(ip) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	// CORS headers.
	s.setCORSHeaders(w, r)

	// Handle CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	result, rpcErr := s.dispatch(r.Context(), &req)
	if rpcErr != nil {
		writeJSON(w, Response{
			JSONRPC: "2.0",
			Error:   rpcErr,
			ID:      req.ID,
		})
		return
	}

	writeJSON(w, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	h, ok := s.methods[req.Method]
	if !ok {
		metrics.RPCRequests.WithLabelValues("unknown", "error").Inc()
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}

	result, rpcErr := h(ctx, req)
	status := "success"
	if rpcErr != nil {
		status = "error"
		s.logger.Debug().
			Str("method", req.Method).
			Int("code", rpcErr.Code).
			Str("error", rpcErr.Message).
			Msg("RPC call failed")
	}
	metrics.RPCRequests.WithLabelValues(req.Method, status).Inc()
	return result, rpcErr
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	// Check if origin is allowed.
	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if !hasParams(req) {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	return parseOptionalParams(req, target)
}

// parseOptionalParams is parseParams for methods whose params may be
// omitted; target keeps its zero value then. Params are decoded straight
// from the request bytes so a signed payload reaches Verify unchanged.
func parseOptionalParams(req *Request, target interface{}) *Error {
	if !hasParams(req) {
		return nil
	}
	if err := json.Unmarshal(req.Params, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func hasParams(req *Request) bool {
	p := bytes.TrimSpace(req.Params)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}
