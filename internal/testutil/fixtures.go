package testutil

import (
	"math/big"
	"time"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// Deterministic addresses used across package tests.
var (
	WETH = types.TokenDescriptor{
		Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Symbol:   "WETH",
		Decimals: 18,
	}
	USDC = types.TokenDescriptor{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Symbol:   "USDC",
		Decimals: 6,
	}

	PoolA = common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852")
	PoolB = common.HexToAddress("0x397FF1542f962076d0BFE58eA045FfA2d347ACa0")

	RouterA = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	RouterB = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")

	BotAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

// Opportunity builds a two-hop WETH->USDC->WETH opportunity across two
// venues with stable addresses.
func Opportunity() *types.ArbitrageOpportunity {
	leg1 := types.PathSegment{
		PoolAddress: PoolA,
		DexName:     "uniswap-v2",
		Router:      RouterA,
		TokenIn:     WETH,
		TokenOut:    USDC,
	}
	leg2 := types.PathSegment{
		PoolAddress: PoolB,
		DexName:     "sushiswap",
		Router:      RouterB,
		TokenIn:     USDC,
		TokenOut:    WETH,
	}

	opp := types.NewOpportunity(
		common.HexToHash("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
		leg1, leg2,
		WETH,
		big.NewInt(1e18),
		100,
	)
	opp.DiscoveredAt = time.Now()
	return opp
}

// SimulationResult builds a profitable simulation over Opportunity().
func SimulationResult() *types.SimulationResult {
	return &types.SimulationResult{
		Opportunity:   Opportunity(),
		AmountInLeg1:  big.NewInt(1e18),
		AmountOutLeg1: big.NewInt(3000e6),
		AmountOutLeg2: big.NewInt(1.02e18),
		GrossProfit:   big.NewInt(2e16),
		GasCost:       big.NewInt(4e15),
		NetProfit:     big.NewInt(1.6e16),
		NetProfitUSD:  48.0,
		Profitable:    true,
	}
}

// ExecutionResult builds a successful paper execution record.
func ExecutionResult() *types.ExecutionResult {
	return &types.ExecutionResult{
		AttemptID:     "attempt-1",
		OpportunityID: Opportunity().ID,
		Mode:          types.ModePaper,
		Submission:    types.SubmitBroadcast,
		SubmittedAt:   time.Now(),
		Nonce:         7,
		Success:       true,
	}
}
