package feed

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
)

// DecodedSwap is one structured swap extracted from a pending
// transaction by the upstream feed. Read-only once decoded.
type DecodedSwap struct {
	TxHash       common.Hash
	Router       common.Address
	RouterName   string
	FunctionName string
	Path         []common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	BlockNumber  uint64
	ObservedAt   time.Time
}

// envelope mirrors the feed's wire format.
type envelope struct {
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"`
	Payload   payload `json:"payload"`
}

type payload struct {
	Hash         string       `json:"hash"`
	From         string       `json:"from"`
	To           string       `json:"to"`
	Value        string       `json:"value,omitempty"`
	GasPrice     string       `json:"gasPrice,omitempty"`
	MaxFeePerGas string       `json:"maxFeePerGas,omitempty"`
	BlockNumber  uint64       `json:"blockNumber,omitempty"`
	DecodedInput decodedInput `json:"decodedInput"`
}

type decodedInput struct {
	FunctionName string   `json:"functionName"`
	Path         []string `json:"path"`
	AmountIn     string   `json:"amountIn,omitempty"`
	AmountOutMin string   `json:"amountOutMin,omitempty"`
	RouterName   string   `json:"routerName"`
}

// DecodeMessage parses one feed message into a DecodedSwap. Messages
// that cannot enter the pipeline (unknown type, short path, non-address
// router) return an error; the consumer drops them with a debug trace.
func DecodeMessage(raw []byte) (*DecodedSwap, error) {
	var env envelope
	err := json.Unmarshal(raw, &env)
	if err != nil {
		return nil, fmt.Errorf("unmarshal feed message: %w", err)
	}

	if env.Type != "decoded_transaction" && env.Type != "transaction" {
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}

	if !common.IsHexAddress(env.Payload.To) {
		return nil, fmt.Errorf("router %q is not an address", env.Payload.To)
	}

	if len(env.Payload.DecodedInput.Path) < 2 {
		return nil, fmt.Errorf("swap path has %d entries, need at least 2", len(env.Payload.DecodedInput.Path))
	}

	path := make([]common.Address, 0, len(env.Payload.DecodedInput.Path))
	for _, hop := range env.Payload.DecodedInput.Path {
		if !common.IsHexAddress(hop) {
			return nil, fmt.Errorf("path entry %q is not an address", hop)
		}
		path = append(path, common.HexToAddress(hop))
	}

	observedAt := time.Now()
	if env.Timestamp > 0 {
		observedAt = time.UnixMilli(env.Timestamp)
	}

	return &DecodedSwap{
		TxHash:       common.HexToHash(env.Payload.Hash),
		Router:       common.HexToAddress(env.Payload.To),
		RouterName:   env.Payload.DecodedInput.RouterName,
		FunctionName: env.Payload.DecodedInput.FunctionName,
		Path:         path,
		AmountIn:     parseAmount(env.Payload.DecodedInput.AmountIn),
		AmountOutMin: parseAmount(env.Payload.DecodedInput.AmountOutMin),
		BlockNumber:  env.Payload.BlockNumber,
		ObservedAt:   observedAt,
	}, nil
}

// parseAmount accepts decimal or 0x-hex integer strings. Missing or
// malformed amounts decode to nil, not zero: absent is not the same as
// free.
func parseAmount(raw string) *big.Int {
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		v, ok := new(big.Int).SetString(raw[2:], 16)
		if !ok {
			return nil
		}
		return v
	}

	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil
	}
	return v
}
