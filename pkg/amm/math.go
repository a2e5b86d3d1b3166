package amm

import "math/big"

const bpsDenominator = 10000

// AmountOut computes the constant-product output for amountIn against
// (reserveIn, reserveOut), deducting swapFeeBps from the input side the
// way UniswapV2 routers do. swapFeeBps = 0 disables the fee deduction.
// Zero input or a zero reserve yields zero, never an error: pools drain,
// and a drained pool is simply worth nothing.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, swapFeeBps int64) *big.Int {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return new(big.Int)
	}
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(bpsDenominator-swapFeeBps))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, big.NewInt(bpsDenominator)),
		amountInWithFee,
	)
	return numerator.Div(numerator, denominator)
}

// AmountIn computes the input required for a desired output, rounding up.
// Returns nil when amountOut cannot be satisfied by reserveOut.
func AmountIn(amountOut, reserveIn, reserveOut *big.Int, swapFeeBps int64) *big.Int {
	if amountOut == nil || reserveIn == nil || reserveOut == nil {
		return nil
	}
	if amountOut.Sign() <= 0 || reserveIn.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil
	}

	numerator := new(big.Int).Mul(
		new(big.Int).Mul(reserveIn, amountOut),
		big.NewInt(bpsDenominator),
	)
	denominator := new(big.Int).Mul(
		new(big.Int).Sub(reserveOut, amountOut),
		big.NewInt(bpsDenominator-swapFeeBps),
	)
	in := new(big.Int).Div(numerator, denominator)
	return in.Add(in, big.NewInt(1))
}
