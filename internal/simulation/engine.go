package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"dexarb/pkg/rpc"
	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// FeeReader is the fee surface the engine needs. *rpc.Gateway satisfies it.
type FeeReader interface {
	FeeData(ctx context.Context) (*rpc.FeeData, error)
}

// Engine values one opportunity at a time: risk gates first, then leg
// replay against live routers, gas costing, and exact integer profit
// math. Errors come back as data on the result; nothing escapes the
// per-opportunity boundary.
type Engine struct {
	querier        AmountsQuerier
	fees           FeeReader
	price          PriceSource
	freshnessLimit time.Duration
	maxBlockAge    uint64
	perLegGasUnits uint64
	maxRealismBps  int64
	maxProfitUSD   float64
	minNetProfit   *big.Int
	baseDecimals   uint8
	logger         *zap.Logger
}

// Config holds engine configuration.
type Config struct {
	Querier        AmountsQuerier
	Fees           FeeReader
	Price          PriceSource
	FreshnessLimit time.Duration
	MaxBlockAge    uint64
	PerLegGasUnits uint64
	MaxRealismBps  int64
	MaxProfitUSD   float64
	MinNetProfit   *big.Int
	BaseDecimals   uint8
	Logger         *zap.Logger
}

// New creates a simulation engine.
func New(cfg *Config) (e *Engine, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Querier == nil {
		return nil, errors.New("querier cannot be nil")
	}
	if cfg.Fees == nil {
		return nil, errors.New("fee reader cannot be nil")
	}
	if cfg.Price == nil {
		return nil, errors.New("price source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.FreshnessLimit <= 0 {
		return nil, errors.New("freshness limit must be positive")
	}
	if cfg.PerLegGasUnits == 0 {
		return nil, errors.New("per-leg gas units must be positive")
	}
	if cfg.MinNetProfit == nil || cfg.MinNetProfit.Sign() < 0 {
		return nil, errors.New("min net profit must be non-negative")
	}

	e = &Engine{
		querier:        cfg.Querier,
		fees:           cfg.Fees,
		price:          cfg.Price,
		freshnessLimit: cfg.FreshnessLimit,
		maxBlockAge:    cfg.MaxBlockAge,
		perLegGasUnits: cfg.PerLegGasUnits,
		maxRealismBps:  cfg.MaxRealismBps,
		maxProfitUSD:   cfg.MaxProfitUSD,
		minNetProfit:   cfg.MinNetProfit,
		baseDecimals:   cfg.BaseDecimals,
		logger:         cfg.Logger,
	}

	return e, nil
}

// Simulate values one opportunity. Gates short-circuit in order:
// freshness, block age, leg replay, gas costing, profit realism, USD
// ceiling. A gate rejection is an outcome, not an error.
func (e *Engine) Simulate(ctx context.Context, opp *types.ArbitrageOpportunity, currentBlock uint64, gasOverride *types.GasParams) *types.SimulationResult {
	start := time.Now()
	defer func() {
		SimulationDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	result := &types.SimulationResult{
		Opportunity:   opp,
		AmountInLeg1:  new(big.Int).Set(opp.EntryAmount),
		AmountOutLeg1: new(big.Int),
		AmountOutLeg2: new(big.Int),
		GrossProfit:   new(big.Int),
		GasCost:       new(big.Int),
		NetProfit:     new(big.Int),
	}

	// Gate 1: freshness. Stale opportunities never touch the network.
	if opp.Age() > e.freshnessLimit {
		result.Flags.Freshness = true
		e.reject(result)
		return result
	}

	// Gate 2: block age. A premise more than maxBlockAge blocks old has
	// likely already been arbitraged or invalidated.
	if opp.SourceBlockNumber > 0 && currentBlock > opp.SourceBlockNumber &&
		currentBlock-opp.SourceBlockNumber > e.maxBlockAge {
		result.Flags.BlockAge = true
		e.reject(result)
		return result
	}

	// Leg replay, sequentially: leg 2 consumes leg 1's output.
	out1, err := e.querier.AmountsOut(ctx, opp.Path[0].Router, opp.EntryAmount,
		[]common.Address{opp.Path[0].TokenIn.Address, opp.Path[0].TokenOut.Address})
	if err != nil {
		result.Err = fmt.Errorf("simulate leg 1 (%s): %w", opp.Path[0].DexName, err)
		SimulationErrorsTotal.Inc()
		return result
	}
	result.AmountOutLeg1 = out1

	out2, err := e.querier.AmountsOut(ctx, opp.Path[1].Router, out1,
		[]common.Address{opp.Path[1].TokenIn.Address, opp.Path[1].TokenOut.Address})
	if err != nil {
		result.Err = fmt.Errorf("simulate leg 2 (%s): %w", opp.Path[1].DexName, err)
		SimulationErrorsTotal.Inc()
		return result
	}
	result.AmountOutLeg2 = out2

	// Gas costing. No fee estimate means no valuation: assuming free gas
	// would misprice every opportunity.
	gasCost, err := e.gasCost(ctx, gasOverride)
	if err != nil {
		result.Err = fmt.Errorf("gas costing: %w", err)
		SimulationErrorsTotal.Inc()
		return result
	}
	result.GasCost = gasCost

	// Exact integer profit math.
	result.GrossProfit = new(big.Int).Sub(out2, opp.EntryAmount)
	result.NetProfit = new(big.Int).Sub(result.GrossProfit, gasCost)

	usd, err := e.netProfitUSD(ctx, result.NetProfit)
	if err != nil {
		result.Err = fmt.Errorf("usd conversion: %w", err)
		SimulationErrorsTotal.Inc()
		return result
	}
	result.NetProfitUSD = usd

	// Gate 3: profit realism. Implausibly high percentage profit means
	// stale or mispriced reserves, not free money.
	if result.GrossProfit.Sign() > 0 {
		bps := new(big.Int).Mul(result.GrossProfit, big.NewInt(10000))
		bps.Div(bps, opp.EntryAmount)
		if bps.Cmp(big.NewInt(e.maxRealismBps)) > 0 {
			result.Flags.ProfitRealism = true
		}
	}

	// Gate 4: absolute USD ceiling, same rationale.
	if result.NetProfitUSD > e.maxProfitUSD {
		result.Flags.MaxProfitUSD = true
	}

	if result.Flags.Any() {
		e.reject(result)
		return result
	}

	result.Profitable = result.NetProfit.Cmp(e.minNetProfit) > 0

	if result.Profitable {
		ProfitableTotal.Inc()
		NetProfitUSD.Observe(result.NetProfitUSD)
	} else {
		RejectedTotal.WithLabelValues("below_threshold").Inc()
	}

	return result
}

// gasCost prices the two-leg transaction. The override's max fee wins
// when supplied; otherwise the live estimate (base fee + tip) is used.
func (e *Engine) gasCost(ctx context.Context, gasOverride *types.GasParams) (*big.Int, error) {
	gasUnits := new(big.Int).SetUint64(e.perLegGasUnits * 2)

	if gasOverride != nil && gasOverride.MaxFeePerGas != nil {
		return new(big.Int).Mul(gasOverride.MaxFeePerGas, gasUnits), nil
	}

	fees, err := e.fees.FeeData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNoFeeData, err)
	}

	gasPrice := new(big.Int).Add(fees.BaseFee, fees.SuggestedTip)
	return gasPrice.Mul(gasPrice, gasUnits), nil
}

// netProfitUSD converts the integer net profit to display dollars.
func (e *Engine) netProfitUSD(ctx context.Context, netProfit *big.Int) (float64, error) {
	price, err := e.price.PriceUSD(ctx)
	if err != nil {
		return 0, err
	}
	return types.FormatUnits(netProfit, e.baseDecimals) * price, nil
}

func (e *Engine) reject(result *types.SimulationResult) {
	reason := result.Flags.Reason()
	RejectedTotal.WithLabelValues(reason).Inc()
	e.logger.Debug("opportunity-rejected",
		zap.String("opportunity_id", result.Opportunity.ID),
		zap.String("reason", reason))
}
