package types

import "math/big"

// FailureFlags records which risk gates rejected an opportunity. Gate
// rejections are first-class outcomes, not errors.
type FailureFlags struct {
	Freshness     bool
	BlockAge      bool
	ProfitRealism bool
	MaxProfitUSD  bool
}

// Any reports whether any gate tripped.
func (f FailureFlags) Any() bool {
	return f.Freshness || f.BlockAge || f.ProfitRealism || f.MaxProfitUSD
}

// Reason returns the first tripped gate name, or "" when none tripped.
func (f FailureFlags) Reason() string {
	switch {
	case f.Freshness:
		return "freshness"
	case f.BlockAge:
		return "block_age"
	case f.ProfitRealism:
		return "profit_realism"
	case f.MaxProfitUSD:
		return "max_profit_usd"
	default:
		return ""
	}
}

// SimulationResult is the valuation of one opportunity. Profit fields are
// exact integers in the base asset's smallest unit; NetProfitUSD is a
// display-grade conversion and never drives the profitability decision.
type SimulationResult struct {
	Opportunity   *ArbitrageOpportunity
	AmountInLeg1  *big.Int
	AmountOutLeg1 *big.Int
	AmountOutLeg2 *big.Int
	GrossProfit   *big.Int
	GasCost       *big.Int
	NetProfit     *big.Int
	NetProfitUSD  float64
	Flags         FailureFlags
	Profitable    bool
	Err           error
}

// GasParams are the EIP-1559 fee bounds for one submission.
// Invariant: MaxPriorityFeePerGas <= MaxFeePerGas, both non-negative.
type GasParams struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}
