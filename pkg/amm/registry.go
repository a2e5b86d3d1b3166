package amm

import (
	"fmt"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// Venue is one configured DEX deployment.
type Venue struct {
	Name    string
	Router  common.Address
	Factory common.Address
}

// Pool is one known liquidity pool on a venue.
type Pool struct {
	Address common.Address
	Venue   Venue
	Token0  types.TokenDescriptor
	Token1  types.TokenDescriptor
}

// Supports reports whether the pool can swap between the two tokens,
// in either direction.
func (p Pool) Supports(a, b common.Address) bool {
	return (p.Token0.Address == a && p.Token1.Address == b) ||
		(p.Token0.Address == b && p.Token1.Address == a)
}

// Registry is the read-only lookup of known pools and venues, built once
// at startup from configuration.
type Registry struct {
	venues []Venue
	pools  []Pool
	byAddr map[common.Address]Pool
}

// NewRegistry builds a registry. Duplicate pool addresses are a
// configuration error.
func NewRegistry(venues []Venue, pools []Pool) (*Registry, error) {
	byAddr := make(map[common.Address]Pool, len(pools))
	for _, p := range pools {
		if _, dup := byAddr[p.Address]; dup {
			return nil, fmt.Errorf("duplicate pool address %s", p.Address.Hex())
		}
		byAddr[p.Address] = p
	}

	return &Registry{
		venues: venues,
		pools:  pools,
		byAddr: byAddr,
	}, nil
}

// Venues returns the configured venues.
func (r *Registry) Venues() []Venue {
	return r.venues
}

// PoolByAddress looks up a pool by its contract address.
func (r *Registry) PoolByAddress(addr common.Address) (Pool, bool) {
	p, ok := r.byAddr[addr]
	return p, ok
}

// PoolsForPair returns every pool able to swap between the two tokens.
func (r *Registry) PoolsForPair(a, b common.Address) []Pool {
	var out []Pool
	for _, p := range r.pools {
		if p.Supports(a, b) {
			out = append(out, p)
		}
	}
	return out
}
