package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const routerABIJSON = `[{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"payable":false,"stateMutability":"view","type":"function"}]`

// ContractCaller is the read-only RPC surface the querier needs.
// *rpc.Gateway satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// AmountsQuerier replays one swap leg against a venue's router.
type AmountsQuerier interface {
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) (*big.Int, error)
}

// RouterQuerier queries UniswapV2-style routers over eth_call.
type RouterQuerier struct {
	caller    ContractCaller
	routerABI abi.ABI
}

// NewRouterQuerier creates a querier.
func NewRouterQuerier(caller ContractCaller) (*RouterQuerier, error) {
	if caller == nil {
		return nil, errors.New("caller cannot be nil")
	}

	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse router ABI: %w", err)
	}

	return &RouterQuerier{
		caller:    caller,
		routerABI: parsed,
	}, nil
}

// AmountsOut returns the router's quoted output for amountIn along path.
func (q *RouterQuerier) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	data, err := q.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("pack getAmountsOut: %w", err)
	}

	raw, err := q.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &router,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call getAmountsOut on %s: %w", router.Hex(), err)
	}

	unpacked, err := q.routerABI.Unpack("getAmountsOut", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack getAmountsOut: %w", err)
	}

	amounts, ok := unpacked[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("getAmountsOut on %s returned no amounts", router.Hex())
	}

	return amounts[len(amounts)-1], nil
}
