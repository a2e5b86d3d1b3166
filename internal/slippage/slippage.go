package slippage

import (
	"errors"
	"math/big"
)

// Confidence bands. Lower confidence tightens tolerance: a trade we are
// less sure about gets less room to degrade before reverting.
const (
	moderateConfidence = 0.65
	lowConfidence      = 0.5
)

const bpsDenominator = 10000

// Controller computes per-leg minimum acceptable outputs from a
// confidence-adjusted tolerance.
type Controller struct {
	baseToleranceBps int64
	floorBps         int64
}

// New creates a controller. The floor keeps tightened tolerances away
// from zero, which would deadlock against normal block-to-block reserve
// drift.
func New(baseToleranceBps, floorBps int64) (c *Controller, err error) {
	if baseToleranceBps <= 0 || baseToleranceBps >= bpsDenominator {
		return nil, errors.New("base tolerance must be in (0, 10000) bps")
	}
	if floorBps < 1 || floorBps > baseToleranceBps {
		return nil, errors.New("floor must be in [1, base tolerance] bps")
	}

	return &Controller{
		baseToleranceBps: baseToleranceBps,
		floorBps:         floorBps,
	}, nil
}

// ToleranceBps returns the tolerance for a confidence score.
// confidence < 0 means no score; the base tolerance applies.
func (c *Controller) ToleranceBps(confidence float64) int64 {
	tolerance := c.baseToleranceBps

	switch {
	case confidence < 0 || confidence >= moderateConfidence:
		// Base tolerance.
	case confidence >= lowConfidence:
		tolerance = c.baseToleranceBps * 3 / 4
	default:
		tolerance = c.baseToleranceBps / 2
	}

	if tolerance < c.floorBps {
		tolerance = c.floorBps
	}

	return tolerance
}

// MinAmountOut returns the minimum acceptable output for an expected
// amount, rounding down: the guaranteed minimum is never overstated.
func (c *Controller) MinAmountOut(expected *big.Int, confidence float64) *big.Int {
	if expected == nil || expected.Sign() <= 0 {
		return new(big.Int)
	}

	tolerance := c.ToleranceBps(confidence)

	minOut := new(big.Int).Mul(expected, big.NewInt(bpsDenominator-tolerance))
	return minOut.Div(minOut, big.NewInt(bpsDenominator))
}
