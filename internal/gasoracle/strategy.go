package gasoracle

import (
	"context"
	"errors"
	"math/big"

	"dexarb/internal/simulation"
	"dexarb/pkg/types"
	"go.uber.org/zap"
)

// Strategy computes EIP-1559 fee bounds from live network fee data,
// nudged by opportunity confidence and capped by a hard ceiling. It
// always returns parameters; the decision to abort on a degenerate
// ceiling belongs to the caller.
type Strategy struct {
	fees              simulation.FeeReader
	minPriorityFee    *big.Int
	maxFeeCeiling     *big.Int
	defaultBaseFee    *big.Int
	defaultTip        *big.Int
	highConfidence    float64
	confidenceTipBump float64
	logger            *zap.Logger
}

// Config holds strategy configuration.
type Config struct {
	Fees              simulation.FeeReader
	MinPriorityFee    *big.Int
	MaxFeeCeiling     *big.Int
	DefaultBaseFee    *big.Int
	DefaultTip        *big.Int
	HighConfidence    float64
	ConfidenceTipBump float64
	Logger            *zap.Logger
}

// New creates a fee strategy.
func New(cfg *Config) (s *Strategy, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Fees == nil {
		return nil, errors.New("fee reader cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.MaxFeeCeiling == nil || cfg.MaxFeeCeiling.Sign() <= 0 {
		return nil, errors.New("max fee ceiling must be positive")
	}
	if cfg.MinPriorityFee == nil || cfg.MinPriorityFee.Sign() < 0 {
		return nil, errors.New("min priority fee must be non-negative")
	}
	if cfg.DefaultBaseFee == nil || cfg.DefaultTip == nil {
		return nil, errors.New("default fees cannot be nil")
	}

	s = &Strategy{
		fees:              cfg.Fees,
		minPriorityFee:    cfg.MinPriorityFee,
		maxFeeCeiling:     cfg.MaxFeeCeiling,
		defaultBaseFee:    cfg.DefaultBaseFee,
		defaultTip:        cfg.DefaultTip,
		highConfidence:    cfg.HighConfidence,
		confidenceTipBump: cfg.ConfidenceTipBump,
		logger:            cfg.Logger,
	}

	return s, nil
}

// ComputeGas derives fee bounds for one submission. confidence < 0 means
// no score is available and no bump is applied.
//
// Invariants on the result: maxPriorityFeePerGas <= maxFeePerGas and
// maxFeePerGas <= the configured ceiling, always.
func (s *Strategy) ComputeGas(ctx context.Context, confidence float64) *types.GasParams {
	baseFee, tip := s.networkFees(ctx)

	// Priority fee floor: an underpriced tip is a guaranteed non-inclusion.
	if tip.Cmp(s.minPriorityFee) < 0 {
		tip = new(big.Int).Set(s.minPriorityFee)
	}

	// High confidence buys inclusion odds.
	if confidence >= s.highConfidence {
		bump := new(big.Float).Mul(
			new(big.Float).SetInt(tip),
			big.NewFloat(s.confidenceTipBump))
		bumpInt, _ := bump.Int(nil)
		tip = new(big.Int).Add(tip, bumpInt)
		ConfidenceBumpsTotal.Inc()
	}

	// Standard headroom: tolerate one more base-fee doubling.
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)

	// Ceiling clamp; priority fee may never exceed maxFee - baseFee so
	// the bid stays internally consistent. A ceiling below the current
	// base fee clamps the tip to zero; the caller decides whether to
	// abort.
	if maxFee.Cmp(s.maxFeeCeiling) > 0 {
		maxFee = new(big.Int).Set(s.maxFeeCeiling)
		maxTip := new(big.Int).Sub(maxFee, baseFee)
		if maxTip.Sign() < 0 {
			maxTip = new(big.Int)
		}
		if tip.Cmp(maxTip) > 0 {
			tip = maxTip
		}
		CeilingClampsTotal.Inc()

		s.logger.Warn("gas-ceiling-clamped",
			zap.String("base_fee", baseFee.String()),
			zap.String("max_fee", maxFee.String()),
			zap.String("priority_fee", tip.String()))
	}

	// Degenerate but possible with a tiny ceiling: keep the tip within
	// the max fee.
	if tip.Cmp(maxFee) > 0 {
		tip = new(big.Int).Set(maxFee)
	}

	MaxFeeGwei.Set(float64(new(big.Int).Div(maxFee, big.NewInt(1e9)).Int64()))

	return &types.GasParams{
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
	}
}

// networkFees returns live fee data, falling back to configured defaults
// when the network is unreadable. Zero is never assumed.
func (s *Strategy) networkFees(ctx context.Context) (baseFee, tip *big.Int) {
	fees, err := s.fees.FeeData(ctx)
	if err != nil {
		FeeFallbacksTotal.Inc()
		s.logger.Warn("fee-data-unavailable-using-defaults", zap.Error(err))
		return new(big.Int).Set(s.defaultBaseFee), new(big.Int).Set(s.defaultTip)
	}

	return new(big.Int).Set(fees.BaseFee), new(big.Int).Set(fees.SuggestedTip)
}
