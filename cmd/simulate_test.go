package cmd

import (
	"math/big"
	"testing"
	"time"

	"dexarb/internal/feed"
	"dexarb/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func simulateConfig() *config.Config {
	return &config.Config{
		BaseTokenAddress:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		BaseTokenSymbol:   "WETH",
		BaseTokenDecimals: 18,
		TokenWhitelist: []config.TokenConfig{
			{
				Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				Symbol:   "USDC",
				Decimals: 6,
			},
		},
		Venues: []config.VenueConfig{
			{Name: "uniswap-v2", Router: common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")},
			{Name: "sushiswap", Router: common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")},
		},
		Pools: []config.PoolConfig{
			{
				Address: common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"),
				Venue:   "uniswap-v2",
				Token0:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Token1:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			},
			{
				Address: common.HexToAddress("0x397FF1542f962076d0BFE58eA045FfA2d347ACa0"),
				Venue:   "sushiswap",
				Token0:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				Token1:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			},
		},
		EntryAmountWei: big.NewInt(1e18),
	}
}

func TestBuildFinder(t *testing.T) {
	finder, registry, err := buildFinder(simulateConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, finder)
	require.NotNil(t, registry)

	swap := &feed.DecodedSwap{
		TxHash: common.HexToHash("0xabc"),
		Router: common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Path: []common.Address{
			common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		},
		BlockNumber: 18_500_000,
		ObservedAt:  time.Now(),
	}

	opps := finder.FindOpportunities(swap)
	require.Len(t, opps, 1)
	assert.Equal(t, "sushiswap", opps[0].Path[1].DexName)
	assert.Equal(t, "USDC", opps[0].Path[0].TokenOut.Symbol)
}

func TestBuildFinder_DuplicatePoolsRejected(t *testing.T) {
	cfg := simulateConfig()
	cfg.Pools = append(cfg.Pools, cfg.Pools[0])

	_, _, err := buildFinder(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildFinder_MissingEntryAmountRejected(t *testing.T) {
	cfg := simulateConfig()
	cfg.EntryAmountWei = nil

	_, _, err := buildFinder(cfg, zap.NewNop())
	assert.Error(t, err)
}
