package types

import "errors"

// Sentinel errors shared across the pipeline. Callers match with
// errors.Is; everything else is wrapped context.
var (
	// ErrCircuitOpen is returned by the RPC gateway while an endpoint's
	// breaker is open. Fail fast, no network attempt is made.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetriesExhausted is returned when a bounded retry loop gives up.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrNoFeeData is returned when live fee data cannot be obtained and
	// no configured fallback exists. Gas is never silently assumed free.
	ErrNoFeeData = errors.New("no fee data available")

	// ErrNonceUnknown is returned when the sequencer cannot synchronize
	// its counter against the network.
	ErrNonceUnknown = errors.New("nonce unknown")

	// ErrSignerMismatch is returned when neither recovery-bit candidate
	// recovers the configured account address from a remote signature.
	ErrSignerMismatch = errors.New("signature does not recover account address")
)
