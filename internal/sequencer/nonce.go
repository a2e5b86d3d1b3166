package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// NonceReader is the authoritative source for the account's pending
// transaction count. *rpc.Gateway satisfies it.
type NonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// NonceManager owns the account's next transaction sequence number, the
// only mutable shared state in the core. A mutex serializes acquisition:
// no second caller observes the counter while one is in flight.
// Allocation is optimistic; the counter advances without waiting for
// network confirmation, and any submission failure forces a
// resynchronization because the failure may or may not have consumed
// the nonce on-chain.
type NonceManager struct {
	account common.Address
	reader  NonceReader
	logger  *zap.Logger

	mu   sync.Mutex
	next *uint64 // nil while (re)synchronizing
}

// NewNonceManager creates a nonce manager in the Unknown state.
func NewNonceManager(account common.Address, reader NonceReader, logger *zap.Logger) (m *NonceManager, err error) {
	if reader == nil {
		return nil, errors.New("nonce reader cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &NonceManager{
		account: account,
		reader:  reader,
		logger:  logger,
	}, nil
}

// AcquireNext returns the next usable nonce and advances the in-memory
// counter. Synchronizes from the network first when the state is
// unknown.
func (m *NonceManager) AcquireNext(ctx context.Context) (nonce uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.next == nil {
		err = m.syncLocked(ctx)
		if err != nil {
			return 0, err
		}
	}

	nonce = *m.next
	advanced := nonce + 1
	m.next = &advanced

	NonceGauge.Set(float64(advanced))

	return nonce, nil
}

// Resync discards the in-memory counter and reloads it from the
// network's pending count. Called unconditionally after any submission
// failure.
func (m *NonceManager) Resync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next = nil
	NonceResyncsTotal.Inc()

	return m.syncLocked(ctx)
}

// Current returns the in-memory counter, if synchronized.
func (m *NonceManager) Current() (nonce uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.next == nil {
		return 0, false
	}
	return *m.next, true
}

func (m *NonceManager) syncLocked(ctx context.Context) error {
	pending, err := m.reader.PendingNonceAt(ctx, m.account)
	if err != nil {
		m.next = nil
		return fmt.Errorf("%w: %v", types.ErrNonceUnknown, err)
	}

	m.next = &pending
	NonceGauge.Set(float64(pending))

	m.logger.Info("nonce-synchronized",
		zap.String("account", m.account.Hex()),
		zap.Uint64("next_nonce", pending))

	return nil
}
