package sequencer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"dexarb/internal/testutil"
	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

type stubBroadcaster struct {
	mu   sync.Mutex
	err  error
	sent []*ethtypes.Transaction
}

func (s *stubBroadcaster) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, tx)
	return nil
}

type stubBlocks struct {
	number uint64
	err    error
}

func (s *stubBlocks) BlockNumber(ctx context.Context) (uint64, error) {
	return s.number, s.err
}

type stubRelay struct {
	err         error
	bundleHash  string
	targetBlock uint64
	txs         []string
}

func (s *stubRelay) SendBundle(ctx context.Context, signedTxs []string, targetBlock uint64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.txs = signedTxs
	s.targetBlock = targetBlock
	return s.bundleHash, nil
}

func testGas() *types.GasParams {
	return &types.GasParams{
		MaxFeePerGas:         big.NewInt(40e9),
		MaxPriorityFeePerGas: big.NewInt(2e9),
	}
}

func testMinOuts() [2]*big.Int {
	return [2]*big.Int{big.NewInt(2970e6), big.NewInt(1.0098e18)}
}

// liveSequencer wires a sequencer around a locally generated key so
// signatures recover to a real account.
func liveSequencer(t *testing.T, broadcaster Broadcaster, blocks BlockReader, relay BundleSender, reader NonceReader) *Sequencer {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	nonces, err := NewNonceManager(account, reader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNonceManager() error = %v", err)
	}

	s, err := New(&Config{
		Mode:        types.ModeLive,
		ChainID:     1,
		Account:     account,
		Nonces:      nonces,
		Signer:      NewLocalSigner(key),
		Broadcaster: broadcaster,
		Blocks:      blocks,
		Relay:       relay,
		RelayOffset: 1,
		GasLimit:    300_000,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	blocks := &stubBlocks{number: 100}
	reader := &stubNonceReader{pending: 0}
	nonces, err := NewNonceManager(testutil.BotAccount, reader, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNonceManager() error = %v", err)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	valid := func() *Config {
		return &Config{
			Mode:        types.ModeLive,
			ChainID:     1,
			Account:     testutil.BotAccount,
			Nonces:      nonces,
			Signer:      NewLocalSigner(key),
			Broadcaster: broadcaster,
			Blocks:      blocks,
			GasLimit:    300_000,
			Logger:      zap.NewNop(),
		}
	}

	if _, err := New(valid()); err != nil {
		t.Fatalf("valid live config rejected: %v", err)
	}
	if _, err := New(nil); err == nil {
		t.Error("nil config accepted")
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown-mode", func(c *Config) { c.Mode = "dry-run" }},
		{"nil-logger", func(c *Config) { c.Logger = nil }},
		{"live-without-nonces", func(c *Config) { c.Nonces = nil }},
		{"live-without-signer", func(c *Config) { c.Signer = nil }},
		{"live-without-broadcaster", func(c *Config) { c.Broadcaster = nil }},
		{"live-without-blocks", func(c *Config) { c.Blocks = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	t.Run("paper-mode-needs-no-live-deps", func(t *testing.T) {
		_, err := New(&Config{Mode: types.ModePaper, ChainID: 1, Logger: zap.NewNop()})
		if err != nil {
			t.Errorf("paper config rejected: %v", err)
		}
	})
}

func TestExecute_PaperModeShortCircuits(t *testing.T) {
	s, err := New(&Config{Mode: types.ModePaper, ChainID: 1, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res := s.Execute(context.Background(), testutil.SimulationResult(), testGas(), testMinOuts())

	if !res.Success {
		t.Error("paper execution not successful")
	}
	if res.Err != nil {
		t.Errorf("paper execution error = %v", res.Err)
	}
	if res.Mode != types.ModePaper {
		t.Errorf("Mode = %q, want paper", res.Mode)
	}
	if res.TxHash != (common.Hash{}) {
		t.Error("paper execution produced a tx hash")
	}
	if res.AttemptID == "" {
		t.Error("AttemptID not populated")
	}
	if res.OpportunityID == "" {
		t.Error("OpportunityID not populated")
	}

	s.Execute(context.Background(), testutil.SimulationResult(), testGas(), testMinOuts())

	total, trades := s.PaperProfit()
	if trades != 2 {
		t.Errorf("PaperProfit trades = %d, want 2", trades)
	}
	if total != 96.0 {
		t.Errorf("PaperProfit total = %v, want 96.0", total)
	}
}

func TestExecute_LiveBroadcast(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	reader := &stubNonceReader{pending: 7}
	s := liveSequencer(t, broadcaster, &stubBlocks{number: 100}, nil, reader)

	res := s.Execute(context.Background(), testutil.SimulationResult(), testGas(), testMinOuts())

	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if !res.Success {
		t.Fatal("execution not successful")
	}
	if res.Submission != types.SubmitBroadcast {
		t.Errorf("Submission = %q, want broadcast", res.Submission)
	}
	if res.Nonce != 7 {
		t.Errorf("Nonce = %d, want 7", res.Nonce)
	}
	if len(broadcaster.sent) != 1 {
		t.Fatalf("broadcast %d transactions, want 1", len(broadcaster.sent))
	}

	tx := broadcaster.sent[0]
	if res.TxHash != tx.Hash() {
		t.Error("result tx hash does not match broadcast transaction")
	}
	if tx.Nonce() != 7 {
		t.Errorf("tx nonce = %d, want 7", tx.Nonce())
	}
	if tx.Gas() != 300_000 {
		t.Errorf("tx gas limit = %d, want 300000", tx.Gas())
	}
	if *tx.To() != testutil.RouterA {
		t.Errorf("tx to = %s, want leg1 router %s", tx.To().Hex(), testutil.RouterA.Hex())
	}
	if tx.Value().Sign() != 0 {
		t.Errorf("tx value = %s, want 0 for token entry", tx.Value())
	}
	if len(tx.Data()) == 0 {
		t.Error("tx has empty calldata")
	}

	// The signature must recover the sequencer's own account.
	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(1)), tx)
	if err != nil {
		t.Fatalf("Sender() error = %v", err)
	}
	if sender != s.account {
		t.Errorf("recovered sender %s, want %s", sender.Hex(), s.account.Hex())
	}
}

func TestExecute_LiveBundle(t *testing.T) {
	relay := &stubRelay{bundleHash: "0xbundle123"}
	reader := &stubNonceReader{pending: 3}
	s := liveSequencer(t, &stubBroadcaster{}, &stubBlocks{number: 100}, relay, reader)

	res := s.Execute(context.Background(), testutil.SimulationResult(), testGas(), testMinOuts())

	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if res.Submission != types.SubmitBundle {
		t.Errorf("Submission = %q, want bundle", res.Submission)
	}
	if res.BundleHash != "0xbundle123" {
		t.Errorf("BundleHash = %q", res.BundleHash)
	}
	if relay.targetBlock != 101 {
		t.Errorf("target block = %d, want current+offset = 101", relay.targetBlock)
	}
	if len(relay.txs) != 1 {
		t.Fatalf("bundle has %d transactions, want 1", len(relay.txs))
	}
}

func TestExecute_BroadcastFailureResyncsNonce(t *testing.T) {
	broadcaster := &stubBroadcaster{err: errors.New("replacement transaction underpriced")}
	reader := &stubNonceReader{pending: 7}
	s := liveSequencer(t, broadcaster, &stubBlocks{number: 100}, nil, reader)

	res := s.Execute(context.Background(), testutil.SimulationResult(), testGas(), testMinOuts())

	if res.Err == nil {
		t.Fatal("expected error on result")
	}
	if res.Success {
		t.Error("failed execution marked successful")
	}

	// Initial sync plus the unconditional post-failure resync.
	if reader.calls != 2 {
		t.Errorf("reader called %d times, want 2", reader.calls)
	}
}

func TestExecute_NonceFailureDoesNotResync(t *testing.T) {
	reader := &stubNonceReader{err: errors.New("endpoint down")}
	s := liveSequencer(t, &stubBroadcaster{}, &stubBlocks{number: 100}, nil, reader)

	res := s.Execute(context.Background(), testutil.SimulationResult(), testGas(), testMinOuts())

	if !errors.Is(res.Err, types.ErrNonceUnknown) {
		t.Errorf("Err = %v, want ErrNonceUnknown", res.Err)
	}
	// Only the failed acquisition touched the reader; no nonce was
	// consumed so nothing to resynchronize.
	if reader.calls != 1 {
		t.Errorf("reader called %d times, want 1", reader.calls)
	}
}

func TestExecute_NativeEntryUsesValue(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)
	nonces, err := NewNonceManager(account, &stubNonceReader{pending: 0}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNonceManager() error = %v", err)
	}
	broadcaster := &stubBroadcaster{}

	s, err := New(&Config{
		Mode:        types.ModeLive,
		ChainID:     1,
		Account:     account,
		Nonces:      nonces,
		Signer:      NewLocalSigner(key),
		Broadcaster: broadcaster,
		Blocks:      &stubBlocks{number: 100},
		GasLimit:    300_000,
		NativeEntry: true,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sim := testutil.SimulationResult()
	res := s.Execute(context.Background(), sim, testGas(), testMinOuts())
	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}

	tx := broadcaster.sent[0]
	if tx.Value().Cmp(sim.Opportunity.EntryAmount) != 0 {
		t.Errorf("tx value = %s, want entry amount %s", tx.Value(), sim.Opportunity.EntryAmount)
	}
}
