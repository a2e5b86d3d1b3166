package app

import (
	"context"
	"errors"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dexarb/internal/features"
	"dexarb/internal/feed"
	"dexarb/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.String("base-token", a.cfg.BaseTokenSymbol),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("feed-url", a.cfg.FeedWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	a.wg.Add(1)
	go a.runFeedConsumer()

	a.wg.Add(1)
	go a.runPipeline()

	a.wg.Add(1)
	go a.runHealthWatcher()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runFeedConsumer() {
	defer a.wg.Done()
	err := a.feedConsumer.Run(a.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("feed-consumer-error", zap.Error(err))
	}
}

// runHealthWatcher keeps the RPC readiness check current.
func (a *App) runHealthWatcher() {
	defer a.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.healthChecker.SetCheck("rpc", a.gateway.Healthy())
		}
	}
}

// runPipeline consumes decoded swaps until the feed channel closes. Each
// swap is handled on its own goroutine; candidates within one swap are
// processed sequentially so nonce pressure stays bounded.
func (a *App) runPipeline() {
	defer a.wg.Done()

	for swap := range a.feedConsumer.Events() {
		swap := swap
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleSwap(a.ctx, swap)
		}()
	}
}

func (a *App) handleSwap(ctx context.Context, swap *feed.DecodedSwap) {
	opportunities := a.finder.FindOpportunities(swap)
	if len(opportunities) == 0 {
		return
	}

	a.logger.Debug("opportunities-found",
		zap.String("tx_hash", swap.TxHash.Hex()),
		zap.Int("count", len(opportunities)))

	for _, opp := range opportunities {
		if ctx.Err() != nil {
			return
		}
		a.processOpportunity(ctx, opp)
	}
}

// processOpportunity runs one candidate through valuation, scoring, and
// execution. Each stage's failure is terminal for this candidate only.
func (a *App) processOpportunity(ctx context.Context, opp *types.ArbitrageOpportunity) {
	currentBlock, err := a.gateway.BlockNumber(ctx)
	if err != nil {
		// Block age gating degrades gracefully; freshness still guards
		// against stale premises.
		a.logger.Warn("block-number-unavailable", zap.Error(err))
		currentBlock = 0
	}

	sim := a.engine.Simulate(ctx, opp, currentBlock, nil)

	err = a.store.StoreSimulation(ctx, sim)
	if err != nil {
		a.logger.Error("store-simulation-failed",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err))
	}

	if sim.Err != nil {
		a.logger.Warn("simulation-failed",
			zap.String("opportunity_id", opp.ID),
			zap.Error(sim.Err))
		return
	}
	if !sim.Profitable {
		return
	}

	score := a.scoreOpportunity(ctx, sim, currentBlock)
	if score >= 0 && score < a.cfg.MinExecutionScore {
		a.logger.Info("opportunity-skipped-low-score",
			zap.String("opportunity_id", opp.ID),
			zap.Float64("score", score),
			zap.Float64("min_score", a.cfg.MinExecutionScore))
		return
	}

	gas := a.gasStrategy.ComputeGas(ctx, score)

	minAmountsOut := [2]*big.Int{
		a.slippage.MinAmountOut(sim.AmountOutLeg1, score),
		a.slippage.MinAmountOut(sim.AmountOutLeg2, score),
	}

	result := a.sequencer.Execute(ctx, sim, gas, minAmountsOut)

	err = a.store.StoreExecution(ctx, result)
	if err != nil {
		a.logger.Error("store-execution-failed",
			zap.String("attempt_id", result.AttemptID),
			zap.Error(err))
	}

	if result.Success {
		a.logger.Info("opportunity-executed",
			zap.String("opportunity_id", opp.ID),
			zap.String("attempt_id", result.AttemptID),
			zap.String("submission", result.Submission))
	}
}

// scoreOpportunity asks the model for an execution success probability.
// A preliminary unbumped fee estimate feeds the feature vector; the
// returned score then drives the final fee computation. Scoring failures
// degrade to the no-score sentinel rather than blocking execution.
func (a *App) scoreOpportunity(ctx context.Context, sim *types.SimulationResult, currentBlock uint64) float64 {
	preliminaryGas := a.gasStrategy.ComputeGas(ctx, -1)

	var baseFee *big.Int
	if fees, err := a.gateway.FeeData(ctx); err == nil {
		baseFee = fees.BaseFee
	}

	gasCostUSD := 0.0
	if price, err := a.price.PriceUSD(ctx); err == nil {
		gasCostUSD = types.FormatUnits(sim.GasCost, a.cfg.BaseTokenDecimals) * price
	}

	vector := a.schema.Vector(features.Inputs{
		Sim:          sim,
		Gas:          preliminaryGas,
		GasCostUSD:   gasCostUSD,
		CurrentBlock: currentBlock,
		BaseFee:      baseFee,
	})

	score, err := a.scorer.Score(ctx, vector)
	if err != nil {
		a.logger.Warn("scoring-failed",
			zap.String("opportunity_id", sim.Opportunity.ID),
			zap.Error(err))
		return -1
	}

	return score
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
