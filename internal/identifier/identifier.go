package identifier

import (
	"errors"
	"math/big"

	"dexarb/internal/feed"
	"dexarb/pkg/amm"
	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Finder enumerates candidate two-hop round trips back to the base asset
// for one triggering swap. Pure over its inputs plus the read-only pool
// registry; no ranking is performed, every candidate goes to simulation.
type Finder struct {
	baseToken   types.TokenDescriptor
	whitelist   map[common.Address]types.TokenDescriptor
	registry    *amm.Registry
	entryAmount *big.Int
	logger      *zap.Logger
}

// Config holds finder configuration.
type Config struct {
	BaseToken   types.TokenDescriptor
	Whitelist   []types.TokenDescriptor
	Registry    *amm.Registry
	EntryAmount *big.Int
	Logger      *zap.Logger
}

// New creates a finder.
func New(cfg *Config) (f *Finder, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.EntryAmount == nil || cfg.EntryAmount.Sign() <= 0 {
		return nil, errors.New("entry amount must be positive")
	}

	whitelist := make(map[common.Address]types.TokenDescriptor, len(cfg.Whitelist)+1)
	for _, t := range cfg.Whitelist {
		whitelist[t.Address] = t
	}
	whitelist[cfg.BaseToken.Address] = cfg.BaseToken

	f = &Finder{
		baseToken:   cfg.BaseToken,
		whitelist:   whitelist,
		registry:    cfg.Registry,
		entryAmount: cfg.EntryAmount,
		logger:      cfg.Logger,
	}

	return f, nil
}

// FindOpportunities returns every candidate two-hop path triggered by the
// swap. Only the "mempool buys X with the base asset, we sell X back"
// direction is handled; any other directionality yields an empty result.
// That is a documented limitation of the strategy, not a gap to paper
// over here.
func (f *Finder) FindOpportunities(swap *feed.DecodedSwap) []*types.ArbitrageOpportunity {
	if swap == nil || len(swap.Path) < 2 {
		return nil
	}

	origin, originKnown := f.whitelist[swap.Path[0]]
	target, targetKnown := f.whitelist[swap.Path[len(swap.Path)-1]]
	if !originKnown || !targetKnown {
		f.logger.Debug("swap-tokens-unresolvable",
			zap.String("tx_hash", swap.TxHash.Hex()),
			zap.Bool("origin_known", originKnown),
			zap.Bool("target_known", targetKnown))
		return nil
	}

	if origin.Address != f.baseToken.Address || target.Address == f.baseToken.Address {
		f.logger.Debug("swap-direction-unsupported",
			zap.String("tx_hash", swap.TxHash.Hex()),
			zap.String("origin", origin.Symbol),
			zap.String("target", target.Symbol))
		return nil
	}

	leg1Pool, ok := f.leg1Pool(swap, target.Address)
	if !ok {
		f.logger.Debug("leg1-pool-unknown",
			zap.String("tx_hash", swap.TxHash.Hex()),
			zap.String("router", swap.Router.Hex()))
		return nil
	}

	leg1 := types.PathSegment{
		PoolAddress: leg1Pool.Address,
		DexName:     leg1Pool.Venue.Name,
		Router:      leg1Pool.Venue.Router,
		TokenIn:     f.baseToken,
		TokenOut:    target,
	}

	var opportunities []*types.ArbitrageOpportunity
	for _, pool := range f.registry.PoolsForPair(target.Address, f.baseToken.Address) {
		// A round trip through the same pool arbitrages against itself.
		if pool.Address == leg1Pool.Address {
			continue
		}

		leg2 := types.PathSegment{
			PoolAddress: pool.Address,
			DexName:     pool.Venue.Name,
			Router:      pool.Venue.Router,
			TokenIn:     target,
			TokenOut:    f.baseToken,
		}

		opp := types.NewOpportunity(
			swap.TxHash, leg1, leg2, f.baseToken, f.entryAmount, swap.BlockNumber)
		opp.DiscoveredAt = swap.ObservedAt

		opportunities = append(opportunities, opp)
	}

	OpportunitiesFoundTotal.Add(float64(len(opportunities)))

	return opportunities
}

// leg1Pool resolves the pool the triggering swap traded through: the
// registry pool for (base, intermediate) on the venue whose router the
// swap called.
func (f *Finder) leg1Pool(swap *feed.DecodedSwap, intermediate common.Address) (amm.Pool, bool) {
	for _, pool := range f.registry.PoolsForPair(f.baseToken.Address, intermediate) {
		if pool.Venue.Router == swap.Router {
			return pool, true
		}
	}
	return amm.Pool{}, false
}
