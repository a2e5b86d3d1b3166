package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"dexarb/pkg/amm"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const pairABIJSON = `[{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"_reserve0","type":"uint112"},{"name":"_reserve1","type":"uint112"},{"name":"_blockTimestampLast","type":"uint32"}],"payable":false,"stateMutability":"view","type":"function"}]`

// PoolLookup resolves pools for a token pair. *amm.Registry satisfies it.
type PoolLookup interface {
	PoolsForPair(a, b common.Address) []amm.Pool
}

// ReserveQuerier prices swap legs locally from on-chain pair reserves
// using constant-product math with the configured swap fee, instead of
// asking the venue's router. One eth_call per hop reads the reserves;
// the arithmetic itself matches what a UniswapV2 router would return for
// the same fee setting.
type ReserveQuerier struct {
	caller  ContractCaller
	pools   PoolLookup
	feeBps  int64
	pairABI abi.ABI
}

// NewReserveQuerier creates a reserve-based querier. swapFeeBps is the
// per-hop fee deducted from the input side; 0 disables the deduction.
func NewReserveQuerier(caller ContractCaller, pools PoolLookup, swapFeeBps int64) (*ReserveQuerier, error) {
	if caller == nil {
		return nil, errors.New("caller cannot be nil")
	}
	if pools == nil {
		return nil, errors.New("pool lookup cannot be nil")
	}
	if swapFeeBps < 0 || swapFeeBps >= 10000 {
		return nil, fmt.Errorf("swap fee bps out of range: %d", swapFeeBps)
	}

	parsed, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse pair ABI: %w", err)
	}

	return &ReserveQuerier{
		caller:  caller,
		pools:   pools,
		feeBps:  swapFeeBps,
		pairABI: parsed,
	}, nil
}

// AmountsOut computes the final output for amountIn along path, hop by
// hop. Each hop must resolve to a registered pool behind the given
// router; an unregistered pair or drained pool is a descriptive error,
// mirroring the router's INSUFFICIENT_LIQUIDITY revert.
func (q *ReserveQuerier) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path needs at least 2 tokens, got %d", len(path))
	}

	amount := amountIn
	for i := 0; i < len(path)-1; i++ {
		pool, ok := q.poolOnRouter(router, path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("no registered pool for %s/%s behind router %s",
				path[i].Hex(), path[i+1].Hex(), router.Hex())
		}

		reserve0, reserve1, err := q.reserves(ctx, pool.Address)
		if err != nil {
			return nil, err
		}

		reserveIn, reserveOut := reserve0, reserve1
		if pool.Token0.Address != path[i] {
			reserveIn, reserveOut = reserve1, reserve0
		}

		amount = amm.AmountOut(amount, reserveIn, reserveOut, q.feeBps)
		if amount.Sign() == 0 {
			return nil, fmt.Errorf("pool %s has insufficient liquidity for the requested amount",
				pool.Address.Hex())
		}
	}

	return amount, nil
}

func (q *ReserveQuerier) poolOnRouter(router common.Address, tokenIn, tokenOut common.Address) (amm.Pool, bool) {
	for _, p := range q.pools.PoolsForPair(tokenIn, tokenOut) {
		if p.Venue.Router == router {
			return p, true
		}
	}
	return amm.Pool{}, false
}

func (q *ReserveQuerier) reserves(ctx context.Context, pool common.Address) (reserve0, reserve1 *big.Int, err error) {
	data, err := q.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("pack getReserves: %w", err)
	}

	raw, err := q.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &pool,
		Data: data,
	}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("call getReserves on %s: %w", pool.Hex(), err)
	}

	unpacked, err := q.pairABI.Unpack("getReserves", raw)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getReserves: %w", err)
	}
	if len(unpacked) < 2 {
		return nil, nil, fmt.Errorf("getReserves on %s returned %d values", pool.Hex(), len(unpacked))
	}

	reserve0, ok0 := unpacked[0].(*big.Int)
	reserve1, ok1 := unpacked[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("getReserves on %s returned unexpected types", pool.Hex())
	}

	return reserve0, reserve1, nil
}
