package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ArbitrageOpportunity is a candidate two-hop round trip back to the base
// asset, derived from one observed mempool swap. Immutable after creation;
// it makes exactly one pass through the pipeline and is never persisted
// in-process beyond that.
type ArbitrageOpportunity struct {
	ID                string
	Path              [2]PathSegment
	EntryToken        TokenDescriptor
	EntryAmount       *big.Int
	SourceTxHash      common.Hash
	DiscoveredAt      time.Time
	SourceBlockNumber uint64 // 0 when the feed did not report a block
}

// NewOpportunity builds an opportunity with a deterministic ID so that
// duplicate detections of the same (source tx, leg1 pool, leg2 pool)
// triple collapse to the same identity.
func NewOpportunity(
	sourceTxHash common.Hash,
	leg1, leg2 PathSegment,
	entryToken TokenDescriptor,
	entryAmount *big.Int,
	sourceBlockNumber uint64,
) *ArbitrageOpportunity {
	return &ArbitrageOpportunity{
		ID:                OpportunityID(sourceTxHash, leg1.PoolAddress, leg2.PoolAddress),
		Path:              [2]PathSegment{leg1, leg2},
		EntryToken:        entryToken,
		EntryAmount:       new(big.Int).Set(entryAmount),
		SourceTxHash:      sourceTxHash,
		DiscoveredAt:      time.Now(),
		SourceBlockNumber: sourceBlockNumber,
	}
}

// OpportunityID derives the deterministic opportunity identity.
func OpportunityID(sourceTxHash common.Hash, leg1Pool, leg2Pool common.Address) string {
	digest := crypto.Keccak256(sourceTxHash.Bytes(), leg1Pool.Bytes(), leg2Pool.Bytes())
	return hexutil.Encode(digest[:16])
}

// Age returns the elapsed time since discovery.
func (o *ArbitrageOpportunity) Age() time.Duration {
	return time.Since(o.DiscoveredAt)
}

// String returns a human-readable representation of the opportunity.
func (o *ArbitrageOpportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s->%s->%s via %s/%s entry=%s %s",
		o.ID[:10],
		o.EntryToken.Symbol,
		o.Path[0].TokenOut.Symbol,
		o.Path[1].TokenOut.Symbol,
		o.Path[0].DexName,
		o.Path[1].DexName,
		o.EntryAmount.String(),
		o.EntryToken.Symbol,
	)
}
