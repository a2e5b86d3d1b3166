package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenDescriptor describes a token resolved once at startup from the
// whitelist plus the configured base asset. Shared read-only.
type TokenDescriptor struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// PathSegment is one swap leg on one venue. Token symbols and decimals
// are denormalized so downstream stages never need a registry lookup.
type PathSegment struct {
	PoolAddress common.Address
	DexName     string
	Router      common.Address
	TokenIn     TokenDescriptor
	TokenOut    TokenDescriptor
}

// FormatUnits converts an integer token amount into a display float using
// the token's decimals. Display-grade only; never feed the result back
// into profit math.
func FormatUnits(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, scale).Float64()
	return out
}
