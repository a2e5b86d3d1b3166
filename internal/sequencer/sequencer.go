package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const swapRouterABIJSON = `[{"constant":false,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"payable":false,"stateMutability":"nonpayable","type":"function"},{"constant":false,"inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactETHForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"payable":true,"stateMutability":"payable","type":"function"}]`

const swapDeadline = 60 * time.Second

// Broadcaster submits a signed transaction to the public pool.
// *rpc.Gateway satisfies it.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// BlockReader returns the latest block number. *rpc.Gateway satisfies it.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// BundleSender submits signed raw transactions as a private bundle.
// *relay.Client satisfies it.
type BundleSender interface {
	SendBundle(ctx context.Context, signedTxs []string, targetBlock uint64) (bundleHash string, err error)
}

// Sequencer builds, signs, and submits execution transactions for
// profitable opportunities. It constructs a single router call for the
// first leg only: multi-leg atomic execution needs an on-chain
// execution contract this system does not assume.
type Sequencer struct {
	mode        string
	chainID     *big.Int
	account     common.Address
	nonces      *NonceManager
	signer      DigestSigner
	broadcaster Broadcaster
	blocks      BlockReader
	relay       BundleSender // nil means public broadcast
	relayOffset uint64
	gasLimit    uint64
	nativeEntry bool
	routerABI   abi.ABI
	logger      *zap.Logger

	profitMu       sync.Mutex
	paperProfitUSD float64
	paperTrades    uint64
}

// Config holds sequencer configuration.
type Config struct {
	Mode        string
	ChainID     int64
	Account     common.Address
	Nonces      *NonceManager
	Signer      DigestSigner
	Broadcaster Broadcaster
	Blocks      BlockReader
	Relay       BundleSender
	RelayOffset uint64
	GasLimit    uint64
	NativeEntry bool
	Logger      *zap.Logger
}

// New creates a sequencer.
func New(cfg *Config) (s *Sequencer, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Mode != types.ModePaper && cfg.Mode != types.ModeLive {
		return nil, fmt.Errorf("unknown execution mode %q", cfg.Mode)
	}
	if cfg.Mode == types.ModeLive {
		if cfg.Nonces == nil {
			return nil, errors.New("nonce manager is required in live mode")
		}
		if cfg.Signer == nil {
			return nil, errors.New("signer is required in live mode")
		}
		if cfg.Broadcaster == nil {
			return nil, errors.New("broadcaster is required in live mode")
		}
		if cfg.Blocks == nil {
			return nil, errors.New("block reader is required in live mode")
		}
	}

	parsed, err := abi.JSON(strings.NewReader(swapRouterABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse swap router ABI: %w", err)
	}

	s = &Sequencer{
		mode:        cfg.Mode,
		chainID:     big.NewInt(cfg.ChainID),
		account:     cfg.Account,
		nonces:      cfg.Nonces,
		signer:      cfg.Signer,
		broadcaster: cfg.Broadcaster,
		blocks:      cfg.Blocks,
		relay:       cfg.Relay,
		relayOffset: cfg.RelayOffset,
		gasLimit:    cfg.GasLimit,
		nativeEntry: cfg.NativeEntry,
		routerABI:   parsed,
		logger:      cfg.Logger,
	}

	return s, nil
}

// Execute runs one submission attempt for a profitable simulation. Every
// failure after nonce acquisition triggers an unconditional nonce
// resynchronization: a failed submission may or may not have consumed
// the nonce on-chain, so the in-memory counter is no longer trusted.
func (s *Sequencer) Execute(ctx context.Context, sim *types.SimulationResult, gas *types.GasParams, minAmountsOut [2]*big.Int) *types.ExecutionResult {
	opp := sim.Opportunity
	result := &types.ExecutionResult{
		AttemptID:     uuid.New().String(),
		OpportunityID: opp.ID,
		Mode:          s.mode,
		SubmittedAt:   time.Now(),
	}

	start := time.Now()
	defer func() {
		SubmitDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if s.mode == types.ModePaper {
		result.Success = true
		result.Submission = types.SubmitBroadcast
		ExecutionsTotal.WithLabelValues(s.mode, "success").Inc()

		s.profitMu.Lock()
		s.paperProfitUSD += sim.NetProfitUSD
		s.paperTrades++
		total := s.paperProfitUSD
		s.profitMu.Unlock()
		PaperProfitUSD.Set(total)

		s.logger.Info("paper-execution",
			zap.String("opportunity_id", opp.ID),
			zap.String("net_profit", sim.NetProfit.String()),
			zap.Float64("net_profit_usd", sim.NetProfitUSD),
			zap.Float64("cumulative_profit_usd", total))

		return result
	}

	data, value, err := s.buildLeg1Calldata(opp, minAmountsOut[0])
	if err != nil {
		// No nonce consumed yet, so no resynchronization needed.
		result.Err = fmt.Errorf("build calldata: %w", err)
		ExecutionsTotal.WithLabelValues(s.mode, "failure").Inc()
		return result
	}

	nonce, err := s.nonces.AcquireNext(ctx)
	if err != nil {
		result.Err = fmt.Errorf("acquire nonce: %w", err)
		ExecutionsTotal.WithLabelValues(s.mode, "nonce_error").Inc()
		return result
	}
	result.Nonce = nonce

	router := opp.Path[0].Router
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gas.MaxPriorityFeePerGas,
		GasFeeCap: gas.MaxFeePerGas,
		Gas:       s.gasLimit,
		To:        &router,
		Value:     value,
		Data:      data,
	})

	signed, err := SignTx(ctx, tx, ethtypes.LatestSignerForChainID(s.chainID), s.signer, s.account)
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("sign transaction: %w", err))
	}

	if s.relay != nil {
		return s.submitBundle(ctx, result, signed)
	}
	return s.broadcast(ctx, result, signed)
}

// PaperProfit reports cumulative paper-mode profit in USD and the number
// of paper trades recorded. Always zero in live mode.
func (s *Sequencer) PaperProfit() (totalUSD float64, trades uint64) {
	s.profitMu.Lock()
	defer s.profitMu.Unlock()
	return s.paperProfitUSD, s.paperTrades
}

// buildLeg1Calldata packs the first-leg router call. Native-asset entry
// uses the payable swap with the entry amount as transaction value.
func (s *Sequencer) buildLeg1Calldata(opp *types.ArbitrageOpportunity, minAmountOut *big.Int) (data []byte, value *big.Int, err error) {
	path := []common.Address{opp.Path[0].TokenIn.Address, opp.Path[0].TokenOut.Address}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	if s.nativeEntry {
		data, err = s.routerABI.Pack("swapExactETHForTokens",
			minAmountOut, path, s.account, deadline)
		if err != nil {
			return nil, nil, err
		}
		return data, new(big.Int).Set(opp.EntryAmount), nil
	}

	data, err = s.routerABI.Pack("swapExactTokensForTokens",
		opp.EntryAmount, minAmountOut, path, s.account, deadline)
	if err != nil {
		return nil, nil, err
	}
	return data, new(big.Int), nil
}

func (s *Sequencer) submitBundle(ctx context.Context, result *types.ExecutionResult, signed *ethtypes.Transaction) *types.ExecutionResult {
	result.Submission = types.SubmitBundle

	raw, err := signed.MarshalBinary()
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("encode transaction: %w", err))
	}

	current, err := s.blocks.BlockNumber(ctx)
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("target block: %w", err))
	}

	bundleHash, err := s.relay.SendBundle(ctx, []string{hexutil.Encode(raw)}, current+s.relayOffset)
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("send bundle: %w", err))
	}

	result.Success = true
	result.BundleHash = bundleHash
	result.TxHash = signed.Hash()
	ExecutionsTotal.WithLabelValues(s.mode, "success").Inc()

	s.logger.Info("bundle-submitted",
		zap.String("opportunity_id", result.OpportunityID),
		zap.String("bundle_hash", bundleHash),
		zap.Uint64("target_block", current+s.relayOffset),
		zap.Uint64("nonce", result.Nonce))

	return result
}

func (s *Sequencer) broadcast(ctx context.Context, result *types.ExecutionResult, signed *ethtypes.Transaction) *types.ExecutionResult {
	result.Submission = types.SubmitBroadcast

	err := s.broadcaster.SendTransaction(ctx, signed)
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("broadcast: %w", err))
	}

	result.Success = true
	result.TxHash = signed.Hash()
	ExecutionsTotal.WithLabelValues(s.mode, "success").Inc()

	s.logger.Info("transaction-broadcast",
		zap.String("opportunity_id", result.OpportunityID),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", result.Nonce))

	return result
}

// fail records the error and resynchronizes the nonce counter.
func (s *Sequencer) fail(ctx context.Context, result *types.ExecutionResult, err error) *types.ExecutionResult {
	result.Err = err
	ExecutionsTotal.WithLabelValues(s.mode, "failure").Inc()

	s.logger.Error("execution-failed",
		zap.String("opportunity_id", result.OpportunityID),
		zap.String("attempt_id", result.AttemptID),
		zap.Error(err))

	if s.nonces != nil {
		rerr := s.nonces.Resync(ctx)
		if rerr != nil {
			s.logger.Error("nonce-resync-failed", zap.Error(rerr))
		}
	}

	return result
}
