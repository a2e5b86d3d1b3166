package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"dexarb/internal/feed"
	"dexarb/internal/identifier"
	"dexarb/internal/simulation"
	"dexarb/internal/storage"
	"dexarb/pkg/amm"
	"dexarb/pkg/config"
	"dexarb/pkg/rpc"
	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var simulateCmd = &cobra.Command{
	Use:   "simulate <feed-message.json>",
	Short: "Value one feed message without executing",
	Long: `Reads a single mempool feed message from a JSON file, enumerates the
round-trip candidates it triggers, values each against live router
quotes, and pretty-prints the results. Nothing is executed or persisted
beyond the console.

Useful for replaying captured feed messages against current chain state.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Duration("timeout", 30*time.Second, "Overall timeout for RPC calls")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read feed message: %w", err)
	}

	swap, err := feed.DecodeMessage(raw)
	if err != nil {
		return fmt.Errorf("decode feed message: %w", err)
	}
	// A captured message is stale by definition; restart its clock so
	// the freshness gate judges the replay, not the capture.
	swap.ObservedAt = time.Now()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	gateway, err := rpc.NewGateway(&rpc.Config{
		Endpoint:         cfg.RPCEndpoint,
		MaxAttempts:      cfg.RPCMaxAttempts,
		Backoff:          cfg.RPCRetryBackoff,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("create rpc gateway: %w", err)
	}

	finder, registry, err := buildFinder(cfg, logger)
	if err != nil {
		return fmt.Errorf("create identifier: %w", err)
	}

	var querier simulation.AmountsQuerier
	if cfg.QuoteSource == "reserves" {
		querier, err = simulation.NewReserveQuerier(gateway, registry, cfg.SwapFeeBps)
	} else {
		querier, err = simulation.NewRouterQuerier(gateway)
	}
	if err != nil {
		return fmt.Errorf("create leg querier: %w", err)
	}

	var price simulation.PriceSource = simulation.StaticPrice(cfg.BasePriceUSD)
	if cfg.PriceOracle != (common.Address{}) {
		oracle, oerr := simulation.NewOraclePrice(gateway, cfg.PriceOracle)
		if oerr != nil {
			return fmt.Errorf("create price oracle: %w", oerr)
		}
		price = oracle
	}

	engine, err := simulation.New(&simulation.Config{
		Querier:        querier,
		Fees:           gateway,
		Price:          price,
		FreshnessLimit: cfg.FreshnessLimit,
		MaxBlockAge:    cfg.MaxBlockAge,
		PerLegGasUnits: cfg.PerLegGasUnits,
		MaxRealismBps:  cfg.MaxRealismBps,
		MaxProfitUSD:   cfg.MaxProfitUSD,
		MinNetProfit:   cfg.MinNetProfitWei,
		BaseDecimals:   cfg.BaseTokenDecimals,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create simulation engine: %w", err)
	}

	opportunities := finder.FindOpportunities(swap)
	if len(opportunities) == 0 {
		fmt.Println("No round-trip candidates for this swap.")
		return nil
	}

	currentBlock, err := gateway.BlockNumber(ctx)
	if err != nil {
		fmt.Printf("Warning: block number unavailable (%v), block age gate disabled\n", err)
		currentBlock = 0
	}

	console := storage.NewConsoleStorage(logger)
	for _, opp := range opportunities {
		sim := engine.Simulate(ctx, opp, currentBlock, nil)
		if sim.Err != nil {
			fmt.Printf("Simulation error for %s: %v\n", opp.ID, sim.Err)
			continue
		}
		_ = console.StoreSimulation(ctx, sim)
	}

	return nil
}

func buildFinder(cfg *config.Config, logger *zap.Logger) (*identifier.Finder, *amm.Registry, error) {
	venues := make([]amm.Venue, 0, len(cfg.Venues))
	byName := make(map[string]amm.Venue, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venue := amm.Venue{Name: v.Name, Router: v.Router, Factory: v.Factory}
		venues = append(venues, venue)
		byName[v.Name] = venue
	}

	whitelist := make([]types.TokenDescriptor, 0, len(cfg.TokenWhitelist))
	byAddr := make(map[common.Address]types.TokenDescriptor, len(cfg.TokenWhitelist)+1)
	for _, t := range cfg.TokenWhitelist {
		desc := types.TokenDescriptor{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		}
		whitelist = append(whitelist, desc)
		byAddr[t.Address] = desc
	}
	byAddr[cfg.BaseTokenAddress] = types.TokenDescriptor{
		Address:  cfg.BaseTokenAddress,
		Symbol:   cfg.BaseTokenSymbol,
		Decimals: cfg.BaseTokenDecimals,
	}
	resolve := func(addr common.Address) types.TokenDescriptor {
		if d, ok := byAddr[addr]; ok {
			return d
		}
		return types.TokenDescriptor{Address: addr}
	}

	pools := make([]amm.Pool, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		pools = append(pools, amm.Pool{
			Address: p.Address,
			Venue:   byName[p.Venue],
			Token0:  resolve(p.Token0),
			Token1:  resolve(p.Token1),
		})
	}

	registry, err := amm.NewRegistry(venues, pools)
	if err != nil {
		return nil, nil, err
	}

	finder, err := identifier.New(&identifier.Config{
		BaseToken: types.TokenDescriptor{
			Address:  cfg.BaseTokenAddress,
			Symbol:   cfg.BaseTokenSymbol,
			Decimals: cfg.BaseTokenDecimals,
		},
		Whitelist:   whitelist,
		Registry:    registry,
		EntryAmount: cfg.EntryAmountWei,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	return finder, registry, nil
}
