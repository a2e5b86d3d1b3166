package rpc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Breaker is a consecutive-failure circuit breaker for one RPC endpoint.
// After threshold consecutive errors it opens for cooldown, during which
// Allow reports false and callers fail fast without touching the network.
// The first call after cooldown is allowed through as a probe; its
// outcome closes the breaker or re-arms the cooldown.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	endpoint  string
	logger    *zap.Logger

	mu          sync.Mutex
	consecutive int
	openedAt    time.Time
	open        bool
	probing     bool
}

// NewBreaker creates a breaker. threshold and cooldown must be positive.
func NewBreaker(endpoint string, threshold int, cooldown time.Duration, logger *zap.Logger) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		endpoint:  endpoint,
		logger:    logger,
	}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}

	if time.Since(b.openedAt) < b.cooldown {
		return false
	}

	// Cooldown elapsed: let one probe through.
	if b.probing {
		return false
	}
	b.probing = true

	b.logger.Info("circuit-breaker-probing",
		zap.String("endpoint", b.endpoint))

	return true
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive = 0
	b.probing = false
	if b.open {
		b.open = false
		BreakerState.WithLabelValues(b.endpoint).Set(0)
		b.logger.Info("circuit-breaker-closed",
			zap.String("endpoint", b.endpoint))
	}
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failed probe re-opens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive++
	b.probing = false

	if b.open {
		// Failed probe: restart the cooldown window.
		b.openedAt = time.Now()
		return
	}

	if b.consecutive >= b.threshold {
		b.open = true
		b.openedAt = time.Now()
		BreakerState.WithLabelValues(b.endpoint).Set(1)
		BreakerOpensTotal.WithLabelValues(b.endpoint).Inc()

		b.logger.Warn("circuit-breaker-opened",
			zap.String("endpoint", b.endpoint),
			zap.Int("consecutive_failures", b.consecutive),
			zap.Duration("cooldown", b.cooldown))
	}
}

// IsOpen reports the current state without consuming the probe slot.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && time.Since(b.openedAt) < b.cooldown
}
