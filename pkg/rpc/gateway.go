package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client is the node surface the gateway wraps. *ethclient.Client
// satisfies it; tests substitute mocks.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// FeeData is a snapshot of current network fee conditions.
type FeeData struct {
	BaseFee      *big.Int
	SuggestedTip *big.Int
}

// Gateway wraps node calls with bounded retry (linear backoff) and a
// per-endpoint circuit breaker. Exhausted retries surface as a typed
// failure; an open breaker fails fast without touching the network.
type Gateway struct {
	client      Client
	endpoint    string
	breaker     *Breaker
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// Config holds gateway configuration.
type Config struct {
	Endpoint         string
	Client           Client // optional; dialed from Endpoint when nil
	MaxAttempts      int
	Backoff          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Logger           *zap.Logger
}

// NewGateway creates a gateway for one endpoint.
func NewGateway(cfg *Config) (g *Gateway, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	if cfg.BreakerThreshold <= 0 {
		return nil, errors.New("breaker threshold must be positive")
	}
	if cfg.BreakerCooldown <= 0 {
		return nil, errors.New("breaker cooldown must be positive")
	}

	client := cfg.Client
	if client == nil {
		client, err = ethclient.Dial(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
		}
	}

	g = &Gateway{
		client:      client,
		endpoint:    cfg.Endpoint,
		breaker:     NewBreaker(cfg.Endpoint, cfg.BreakerThreshold, cfg.BreakerCooldown, cfg.Logger),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		logger:      cfg.Logger,
	}

	return g, nil
}

// BlockNumber returns the latest block number.
func (g *Gateway) BlockNumber(ctx context.Context) (number uint64, err error) {
	err = g.do(ctx, "eth_blockNumber", func() error {
		number, err = g.client.BlockNumber(ctx)
		return err
	})
	return number, err
}

// FeeData returns the latest base fee and suggested priority fee.
func (g *Gateway) FeeData(ctx context.Context) (fees *FeeData, err error) {
	err = g.do(ctx, "eth_feeData", func() error {
		header, herr := g.client.HeaderByNumber(ctx, nil)
		if herr != nil {
			return fmt.Errorf("latest header: %w", herr)
		}
		if header.BaseFee == nil {
			return errors.New("latest header has no base fee")
		}

		tip, terr := g.client.SuggestGasTipCap(ctx)
		if terr != nil {
			return fmt.Errorf("suggest tip: %w", terr)
		}

		fees = &FeeData{
			BaseFee:      new(big.Int).Set(header.BaseFee),
			SuggestedTip: tip,
		}
		return nil
	})
	return fees, err
}

// CallContract executes a read-only contract call at the given block
// (nil for latest).
func (g *Gateway) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (result []byte, err error) {
	err = g.do(ctx, "eth_call", func() error {
		result, err = g.client.CallContract(ctx, msg, blockNumber)
		return err
	})
	return result, err
}

// PendingNonceAt returns the account's pending transaction count, the
// authoritative source for nonce resynchronization.
func (g *Gateway) PendingNonceAt(ctx context.Context, account common.Address) (nonce uint64, err error) {
	err = g.do(ctx, "eth_getTransactionCount", func() error {
		nonce, err = g.client.PendingNonceAt(ctx, account)
		return err
	})
	return nonce, err
}

// SendTransaction broadcasts a signed transaction.
func (g *Gateway) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	return g.do(ctx, "eth_sendRawTransaction", func() error {
		return g.client.SendTransaction(ctx, tx)
	})
}

// Healthy reports whether the endpoint's breaker is closed.
func (g *Gateway) Healthy() bool {
	return !g.breaker.IsOpen()
}

// do runs fn under the breaker with bounded linear-backoff retry.
func (g *Gateway) do(ctx context.Context, method string, fn func() error) error {
	start := time.Now()
	defer func() {
		CallDurationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if !g.breaker.Allow() {
		CallsTotal.WithLabelValues(method, "circuit_open").Inc()
		return fmt.Errorf("%s on %s: %w", method, g.endpoint, types.ErrCircuitOpen)
	}

	var last error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			RetriesTotal.WithLabelValues(method).Inc()
			select {
			case <-ctx.Done():
				// A client-side cancellation says nothing about endpoint
				// health; it must not count toward opening the breaker.
				CallsTotal.WithLabelValues(method, "cancelled").Inc()
				return ctx.Err()
			case <-time.After(g.backoff * time.Duration(attempt-1)):
			}
		}

		last = fn()
		if last == nil {
			g.breaker.RecordSuccess()
			CallsTotal.WithLabelValues(method, "success").Inc()
			return nil
		}

		g.logger.Debug("rpc-call-failed",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Error(last))
	}

	g.breaker.RecordFailure()
	CallsTotal.WithLabelValues(method, "failure").Inc()

	return fmt.Errorf("%s after %d attempts: %w: %v",
		method, g.maxAttempts, types.ErrRetriesExhausted, last)
}
