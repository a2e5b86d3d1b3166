package storage

import (
	"context"
	"fmt"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// StoreSimulation pretty-prints a simulation result to console.
func (c *ConsoleStorage) StoreSimulation(ctx context.Context, sim *types.SimulationResult) error {
	opp := sim.Opportunity

	fmt.Println("\n" + rule)
	fmt.Printf("🎯 ARBITRAGE OPPORTUNITY SIMULATED\n")
	fmt.Println(rule)
	fmt.Printf("ID:        %s\n", opp.ID)
	fmt.Printf("Source Tx: %s\n", opp.SourceTxHash.Hex())
	fmt.Printf("Time:      %s\n", opp.DiscoveredAt.Format("2006-01-02 15:04:05"))
	fmt.Println(rule)
	fmt.Printf("🛣  PATH\n")
	fmt.Printf("  Leg 1:  %s via %s (%s)\n", opp.Path[0].TokenIn.Symbol, opp.Path[0].DexName, opp.Path[0].PoolAddress.Hex())
	fmt.Printf("  Leg 2:  %s via %s (%s)\n", opp.Path[1].TokenIn.Symbol, opp.Path[1].DexName, opp.Path[1].PoolAddress.Hex())
	fmt.Println(rule)
	fmt.Printf("💰 PROFIT ANALYSIS\n")
	fmt.Printf("  Entry:           %.6f %s\n", types.FormatUnits(sim.AmountInLeg1, opp.EntryToken.Decimals), opp.EntryToken.Symbol)
	fmt.Printf("  Out Leg 2:       %.6f %s\n", types.FormatUnits(sim.AmountOutLeg2, opp.EntryToken.Decimals), opp.EntryToken.Symbol)
	fmt.Printf("  Gross Profit:    %.6f %s\n", types.FormatUnits(sim.GrossProfit, opp.EntryToken.Decimals), opp.EntryToken.Symbol)
	fmt.Printf("  Gas Cost:        %.6f %s\n", types.FormatUnits(sim.GasCost, opp.EntryToken.Decimals), opp.EntryToken.Symbol)
	fmt.Printf("  Net Profit:      %.6f %s ($%.2f)\n", types.FormatUnits(sim.NetProfit, opp.EntryToken.Decimals), opp.EntryToken.Symbol, sim.NetProfitUSD)
	if sim.Profitable {
		fmt.Printf("  ✅ PROFITABLE after gas!\n")
	} else if reason := sim.Flags.Reason(); reason != "" {
		fmt.Printf("  ❌ REJECTED: %s\n", reason)
	} else {
		fmt.Printf("  ❌ NOT profitable after gas\n")
	}
	fmt.Println(rule)

	return nil
}

// StoreExecution pretty-prints an execution attempt to console.
func (c *ConsoleStorage) StoreExecution(ctx context.Context, res *types.ExecutionResult) error {
	fmt.Println("\n" + rule)
	fmt.Printf("🚀 EXECUTION ATTEMPT (%s / %s)\n", res.Mode, res.Submission)
	fmt.Println(rule)
	fmt.Printf("Attempt:     %s\n", res.AttemptID)
	fmt.Printf("Opportunity: %s\n", res.OpportunityID)
	fmt.Printf("Nonce:       %d\n", res.Nonce)
	if res.TxHash != (common.Hash{}) {
		fmt.Printf("Tx Hash:     %s\n", res.TxHash.Hex())
	}
	if res.BundleHash != "" {
		fmt.Printf("Bundle Hash: %s\n", res.BundleHash)
	}
	if res.Success {
		fmt.Printf("✅ SUBMITTED\n")
	} else {
		fmt.Printf("❌ FAILED: %v\n", res.Err)
	}
	fmt.Println(rule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
