package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stablecore/native/stable"
	"stablecore/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeStateConflict  = -32010
	codeUnavailable    = -32020
)

// Server exposes the engine's operations and query surface over JSON-RPC.
type Server struct {
	engine  *stable.Engine
	logger  *slog.Logger
	metrics *metrics.StableMetrics
}

func NewServer(engine *stable.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, logger: logger, metrics: metrics.Stable()}
}

// Router builds the HTTP surface: JSON-RPC on POST /, liveness on /healthz
// and prometheus metrics on /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}
	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "unknown method", req.Method)
		return
	}
	handler(w, &req)
}

type methodHandler func(http.ResponseWriter, *RPCRequest)

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"stable_depositCollateral":     s.handleDepositCollateral,
		"stable_redeemCollateral":      s.handleRedeemCollateral,
		"stable_mint":                  s.handleMint,
		"stable_burn":                  s.handleBurn,
		"stable_depositAndMint":        s.handleDepositAndMint,
		"stable_redeemForStable":       s.handleRedeemForStable,
		"stable_liquidate":             s.handleLiquidate,
		"stable_getAccount":            s.handleGetAccount,
		"stable_getHealthFactor":       s.handleGetHealthFactor,
		"stable_getCollateralBalance":  s.handleGetCollateralBalance,
		"stable_getCollateralAssets":   s.handleGetCollateralAssets,
		"stable_getParams":             s.handleGetParams,
		"stable_getUsdValue":           s.handleGetUsdValue,
		"stable_getTokenAmountFromUsd": s.handleGetTokenAmountFromUsd,
	}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError translates engine error kinds into JSON-RPC error codes
// and HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, stable.ErrInvalidAmount),
		errors.Is(err, stable.ErrAssetNotAllowed):
		s.metrics.ObserveRejection("invalid_params")
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, stable.ErrInvalidPriceFeed),
		errors.Is(err, stable.ErrEnginePaused),
		errors.Is(err, stable.ErrReentrantCall):
		s.metrics.ObserveRejection("unavailable")
		writeError(w, http.StatusServiceUnavailable, id, codeUnavailable, err.Error(), nil)
	case errors.Is(err, stable.ErrHealthFactorBroken),
		errors.Is(err, stable.ErrHealthFactorOk),
		errors.Is(err, stable.ErrLiquidationDidNotImprove),
		errors.Is(err, stable.ErrInsufficientCollateral),
		errors.Is(err, stable.ErrInsufficientDebt),
		errors.Is(err, stable.ErrTransferFailed),
		errors.Is(err, stable.ErrMintFailed),
		errors.Is(err, stable.ErrBurnFailed):
		s.metrics.ObserveRejection("state_conflict")
		writeError(w, http.StatusConflict, id, codeStateConflict, err.Error(), nil)
	default:
		s.metrics.ObserveRejection("internal")
		s.logger.Error("rpc: internal error", "err", err)
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", nil)
	}
}
