package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"dexarb/pkg/cache"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const aggregatorABIJSON = `[{"constant":true,"inputs":[],"name":"latestAnswer","outputs":[{"name":"","type":"int256"}],"payable":false,"stateMutability":"view","type":"function"}]`

// PriceSource yields the base asset's USD price. Advisory/display-grade:
// it feeds the USD ceiling gate and reporting, never the core
// profitability integer math.
type PriceSource interface {
	PriceUSD(ctx context.Context) (float64, error)
}

// StaticPrice is a configured constant price.
type StaticPrice float64

// PriceUSD returns the configured price.
func (s StaticPrice) PriceUSD(ctx context.Context) (float64, error) {
	return float64(s), nil
}

// OraclePrice reads a Chainlink-style aggregator's latestAnswer
// (8 decimals) over eth_call.
type OraclePrice struct {
	caller     ContractCaller
	aggregator common.Address
	oracleABI  abi.ABI
}

// NewOraclePrice creates an oracle-backed price source.
func NewOraclePrice(caller ContractCaller, aggregator common.Address) (*OraclePrice, error) {
	if caller == nil {
		return nil, errors.New("caller cannot be nil")
	}
	if aggregator == (common.Address{}) {
		return nil, errors.New("aggregator cannot be the zero address")
	}

	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator ABI: %w", err)
	}

	return &OraclePrice{
		caller:     caller,
		aggregator: aggregator,
		oracleABI:  parsed,
	}, nil
}

// PriceUSD returns the aggregator's latest answer scaled to a float.
func (o *OraclePrice) PriceUSD(ctx context.Context) (price float64, err error) {
	data, err := o.oracleABI.Pack("latestAnswer")
	if err != nil {
		return 0, fmt.Errorf("pack latestAnswer: %w", err)
	}

	raw, err := o.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &o.aggregator,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("call latestAnswer: %w", err)
	}

	unpacked, err := o.oracleABI.Unpack("latestAnswer", raw)
	if err != nil {
		return 0, fmt.Errorf("unpack latestAnswer: %w", err)
	}

	answer, ok := unpacked[0].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return 0, fmt.Errorf("aggregator %s returned non-positive answer", o.aggregator.Hex())
	}

	scaled, _ := new(big.Float).Quo(
		new(big.Float).SetInt(answer),
		big.NewFloat(1e8)).Float64()

	return scaled, nil
}

const priceCacheKey = "base_price_usd"

// CachedPrice wraps a PriceSource with a short-TTL cache. Concurrent
// readers are fine; a miss fetches fresh rather than waiting on anyone
// else's write.
type CachedPrice struct {
	cache  cache.Cache
	source PriceSource
	ttl    time.Duration
}

// NewCachedPrice creates a caching price source.
func NewCachedPrice(c cache.Cache, source PriceSource, ttl time.Duration) *CachedPrice {
	return &CachedPrice{
		cache:  c,
		source: source,
		ttl:    ttl,
	}
}

// PriceUSD returns the cached price, fetching on miss.
func (c *CachedPrice) PriceUSD(ctx context.Context) (price float64, err error) {
	if v, ok := c.cache.Get(priceCacheKey); ok {
		if p, ok := v.(float64); ok {
			return p, nil
		}
	}

	price, err = c.source.PriceUSD(ctx)
	if err != nil {
		return 0, err
	}

	c.cache.Set(priceCacheKey, price, c.ttl)

	return price, nil
}
