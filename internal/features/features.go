package features

import (
	"fmt"
	"math/big"

	"dexarb/pkg/types"
)

// Feature names of the execution-success model contract. The model owns
// the list; this side only knows how to populate these keys from
// pipeline state.
const (
	FeatNetProfitUSD       = "estimatedNetProfitUsd_PreEsp"
	FeatGasCostUSD         = "estimatedGasCostUsd_Initial"
	FeatPathLength         = "pathLength"
	FeatUsesFlashLoan      = "usesFlashLoan"
	FeatFlashLoanAmountUSD = "flashLoanAmountUsd"
	FeatFlashLoanFeeUSD    = "flashLoanFeeUsd_Estimate"
	FeatTokenCount         = "involvedTokenCount_Unique"
	FeatDexCount           = "involvedDexCount_Unique"
	FeatMinLiquidityUSD    = "minPathLiquidityUsd"
	FeatAvgLiquidityUSD    = "avgPathLiquidityUsd"
	FeatCrossDex           = "isCrossDexArbitrage"
	FeatOpportunityAgeMS   = "opportunityAgeMs"
	FeatBlockNumber        = "currentBlockNumber"
	FeatBaseFeeGwei        = "currentBaseFeeGwei"
	FeatMaxFeeGwei         = "botProposedMaxFeePerGasGwei"
	FeatPriorityFeeGwei    = "botProposedMaxPriorityFeePerGasGwei"
)

// knownFeatures is every name this side can populate, in contract order.
var knownFeatures = []string{
	FeatNetProfitUSD,
	FeatGasCostUSD,
	FeatPathLength,
	FeatUsesFlashLoan,
	FeatFlashLoanAmountUSD,
	FeatFlashLoanFeeUSD,
	FeatTokenCount,
	FeatDexCount,
	FeatMinLiquidityUSD,
	FeatAvgLiquidityUSD,
	FeatCrossDex,
	FeatOpportunityAgeMS,
	FeatBlockNumber,
	FeatBaseFeeGwei,
	FeatMaxFeeGwei,
	FeatPriorityFeeGwei,
}

// Schema is the validated, ordered feature list for one model version.
// Construction fails on any name this side cannot populate; inventing
// semantics at runtime by silently defaulting an unknown feature is
// exactly the failure mode a schema exists to prevent.
type Schema struct {
	names []string
}

// NewSchema validates the model's expected feature list. An empty list
// means the full known contract.
func NewSchema(expected []string) (s *Schema, err error) {
	if len(expected) == 0 {
		return &Schema{names: knownFeatures}, nil
	}

	known := make(map[string]bool, len(knownFeatures))
	for _, name := range knownFeatures {
		known[name] = true
	}

	for _, name := range expected {
		if !known[name] {
			return nil, fmt.Errorf("model expects feature %q, which this pipeline cannot populate", name)
		}
	}

	return &Schema{names: expected}, nil
}

// Names returns the schema's feature names in model order.
func (s *Schema) Names() []string {
	return s.names
}

// Inputs carries the pipeline state a vector is derived from.
type Inputs struct {
	Sim          *types.SimulationResult
	Gas          *types.GasParams
	GasCostUSD   float64
	CurrentBlock uint64
	BaseFee      *big.Int
}

// Vector populates the schema's features from pipeline state. Keys the
// pipeline knows but cannot compute for this opportunity (flash loans,
// liquidity depth) carry their neutral defaults.
func (s *Schema) Vector(in Inputs) map[string]float64 {
	opp := in.Sim.Opportunity

	crossDex := 0.0
	if opp.Path[0].DexName != opp.Path[1].DexName {
		crossDex = 1.0
	}

	full := map[string]float64{
		FeatNetProfitUSD:       in.Sim.NetProfitUSD,
		FeatGasCostUSD:         in.GasCostUSD,
		FeatPathLength:         2,
		FeatUsesFlashLoan:      0,
		FeatFlashLoanAmountUSD: 0,
		FeatFlashLoanFeeUSD:    0,
		FeatTokenCount:         2,
		FeatDexCount:           1 + crossDex,
		FeatMinLiquidityUSD:    0,
		FeatAvgLiquidityUSD:    0,
		FeatCrossDex:           crossDex,
		FeatOpportunityAgeMS:   float64(opp.Age().Milliseconds()),
		FeatBlockNumber:        float64(in.CurrentBlock),
		FeatBaseFeeGwei:        toGwei(in.BaseFee),
		FeatMaxFeeGwei:         toGwei(in.Gas.MaxFeePerGas),
		FeatPriorityFeeGwei:    toGwei(in.Gas.MaxPriorityFeePerGas),
	}

	out := make(map[string]float64, len(s.names))
	for _, name := range s.names {
		out[name] = full[name]
	}
	return out
}

func toGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	gwei, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		big.NewFloat(1e9)).Float64()
	return gwei
}
