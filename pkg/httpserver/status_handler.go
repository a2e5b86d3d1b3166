package httpserver

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// NonceSource exposes the in-memory nonce counter, if synchronized.
type NonceSource interface {
	Current() (uint64, bool)
}

// RPCHealth reports whether the RPC circuit breaker admits calls.
type RPCHealth interface {
	Healthy() bool
}

// ProfitSource reports cumulative paper-trading results.
type ProfitSource interface {
	PaperProfit() (totalUSD float64, trades uint64)
}

// StatusHandler handles HTTP requests for pipeline status.
type StatusHandler struct {
	mode      string
	startTime time.Time
	nonces    NonceSource
	rpc       RPCHealth
	profit    ProfitSource
	logger    *zap.Logger
}

// NewStatusHandler creates a new status handler. Nonce, RPC, and profit
// sources are optional; paper mode runs without a nonce manager.
func NewStatusHandler(mode string, nonces NonceSource, rpc RPCHealth, profit ProfitSource, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startTime: time.Now(),
		nonces:    nonces,
		rpc:       rpc,
		profit:    profit,
		logger:    logger,
	}
}

// NonceStatus reports nonce manager state.
type NonceStatus struct {
	Synchronized bool   `json:"synchronized"`
	Next         uint64 `json:"next,omitempty"`
}

// PaperStatus reports cumulative paper-trading results.
type PaperStatus struct {
	ProfitUSD float64 `json:"profit_usd"`
	Trades    uint64  `json:"trades"`
}

// StatusResponse represents the HTTP response for pipeline status.
type StatusResponse struct {
	Mode       string       `json:"mode"`
	Uptime     string       `json:"uptime"`
	RPCHealthy *bool        `json:"rpc_healthy,omitempty"`
	Nonce      *NonceStatus `json:"nonce,omitempty"`
	Paper      *PaperStatus `json:"paper,omitempty"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleStatus handles GET /api/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{
		Mode:   h.mode,
		Uptime: time.Since(h.startTime).String(),
	}

	if h.rpc != nil {
		healthy := h.rpc.Healthy()
		response.RPCHealthy = &healthy
	}

	if h.nonces != nil {
		next, ok := h.nonces.Current()
		status := NonceStatus{Synchronized: ok}
		if ok {
			status.Next = next
		}
		response.Nonce = &status
	}

	if h.profit != nil {
		total, trades := h.profit.PaperProfit()
		response.Paper = &PaperStatus{ProfitUSD: total, Trades: trades}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *StatusHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
