package app

import (
	"context"
	"fmt"
	"strings"

	"dexarb/internal/features"
	"dexarb/internal/feed"
	"dexarb/internal/gasoracle"
	"dexarb/internal/identifier"
	"dexarb/internal/relay"
	"dexarb/internal/sequencer"
	"dexarb/internal/simulation"
	"dexarb/internal/slippage"
	"dexarb/internal/storage"
	"dexarb/pkg/amm"
	"dexarb/pkg/cache"
	"dexarb/pkg/config"
	"dexarb/pkg/healthprobe"
	"dexarb/pkg/httpserver"
	"dexarb/pkg/rpc"
	"dexarb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// New creates a new application instance. Construction fails fast on any
// misconfiguration; nothing is resolved lazily at first use.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	appCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	gateway, err := setupGateway(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup rpc gateway: %w", err)
	}

	registry, err := setupRegistry(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup pool registry: %w", err)
	}

	feedConsumer, err := setupFeedConsumer(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup feed consumer: %w", err)
	}

	finder, err := setupFinder(cfg, registry, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup identifier: %w", err)
	}

	price, err := setupPriceSource(cfg, gateway, appCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup price source: %w", err)
	}

	engine, err := setupEngine(cfg, gateway, registry, price, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup simulation engine: %w", err)
	}

	gasStrategy, err := setupGasStrategy(cfg, gateway, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup gas strategy: %w", err)
	}

	slippageCtl, err := slippage.New(cfg.SlippageBaseBps, cfg.SlippageFloorBps)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup slippage controller: %w", err)
	}

	schema, err := features.NewSchema(cfg.FeatureList)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup feature schema: %w", err)
	}

	scorer, err := setupScorer(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scorer: %w", err)
	}

	seq, nonces, err := setupSequencer(cfg, gateway, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup sequencer: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, nonces, gateway, seq)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		gateway:       gateway,
		feedConsumer:  feedConsumer,
		finder:        finder,
		engine:        engine,
		gasStrategy:   gasStrategy,
		slippage:      slippageCtl,
		sequencer:     seq,
		nonces:        nonces,
		schema:        schema,
		scorer:        scorer,
		price:         price,
		store:         store,
		appCache:      appCache,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupGateway(cfg *config.Config, logger *zap.Logger) (*rpc.Gateway, error) {
	return rpc.NewGateway(&rpc.Config{
		Endpoint:         cfg.RPCEndpoint,
		MaxAttempts:      cfg.RPCMaxAttempts,
		Backoff:          cfg.RPCRetryBackoff,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		Logger:           logger,
	})
}

func setupRegistry(cfg *config.Config) (*amm.Registry, error) {
	venues := make([]amm.Venue, 0, len(cfg.Venues))
	byName := make(map[string]amm.Venue, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venue := amm.Venue{
			Name:    v.Name,
			Router:  v.Router,
			Factory: v.Factory,
		}
		venues = append(venues, venue)
		byName[v.Name] = venue
	}

	tokens := tokenDescriptors(cfg)
	pools := make([]amm.Pool, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		pools = append(pools, amm.Pool{
			Address: p.Address,
			Venue:   byName[p.Venue],
			Token0:  tokens.resolve(p.Token0),
			Token1:  tokens.resolve(p.Token1),
		})
	}

	return amm.NewRegistry(venues, pools)
}

// tokenSet resolves pool token addresses against the configured
// whitelist plus the base token.
type tokenSet map[common.Address]types.TokenDescriptor

func tokenDescriptors(cfg *config.Config) tokenSet {
	set := make(tokenSet, len(cfg.TokenWhitelist)+1)
	for _, t := range cfg.TokenWhitelist {
		set[t.Address] = types.TokenDescriptor{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		}
	}
	set[cfg.BaseTokenAddress] = types.TokenDescriptor{
		Address:  cfg.BaseTokenAddress,
		Symbol:   cfg.BaseTokenSymbol,
		Decimals: cfg.BaseTokenDecimals,
	}
	return set
}

// resolve returns the known descriptor, or a bare address-only one for
// tokens the whitelist does not name. Such pools exist in the registry
// but never match a whitelisted round trip.
func (s tokenSet) resolve(addr common.Address) types.TokenDescriptor {
	if d, ok := s[addr]; ok {
		return d
	}
	return types.TokenDescriptor{Address: addr}
}

func setupFeedConsumer(cfg *config.Config, logger *zap.Logger) (*feed.Consumer, error) {
	return feed.New(&feed.Config{
		URL:              cfg.FeedWSURL,
		DialTimeout:      cfg.FeedDialTimeout,
		ReconnectInitial: cfg.FeedReconnectInitial,
		ReconnectMax:     cfg.FeedReconnectMax,
		BufferSize:       cfg.FeedMessageBufferSize,
		Logger:           logger,
	})
}

func setupFinder(cfg *config.Config, registry *amm.Registry, logger *zap.Logger) (*identifier.Finder, error) {
	whitelist := make([]types.TokenDescriptor, 0, len(cfg.TokenWhitelist))
	for _, t := range cfg.TokenWhitelist {
		whitelist = append(whitelist, types.TokenDescriptor{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		})
	}

	return identifier.New(&identifier.Config{
		BaseToken: types.TokenDescriptor{
			Address:  cfg.BaseTokenAddress,
			Symbol:   cfg.BaseTokenSymbol,
			Decimals: cfg.BaseTokenDecimals,
		},
		Whitelist:   whitelist,
		Registry:    registry,
		EntryAmount: cfg.EntryAmountWei,
		Logger:      logger,
	})
}

// setupPriceSource prefers the on-chain oracle when configured, cached
// behind a short TTL; otherwise the static configured price. Config
// validation guarantees at least one is present. A configured oracle
// that fails to construct is a startup error, not a silent fallback to
// the static price.
func setupPriceSource(cfg *config.Config, gateway *rpc.Gateway, appCache cache.Cache) (simulation.PriceSource, error) {
	if cfg.PriceOracle != (common.Address{}) {
		oracle, err := simulation.NewOraclePrice(gateway, cfg.PriceOracle)
		if err != nil {
			return nil, fmt.Errorf("price oracle %s: %w", cfg.PriceOracle.Hex(), err)
		}
		return simulation.NewCachedPrice(appCache, oracle, cfg.PriceCacheTTL), nil
	}
	return simulation.StaticPrice(cfg.BasePriceUSD), nil
}

func setupEngine(cfg *config.Config, gateway *rpc.Gateway, registry *amm.Registry, price simulation.PriceSource, logger *zap.Logger) (*simulation.Engine, error) {
	querier, err := setupQuerier(cfg, gateway, registry)
	if err != nil {
		return nil, err
	}

	return simulation.New(&simulation.Config{
		Querier:        querier,
		Fees:           gateway,
		Price:          price,
		FreshnessLimit: cfg.FreshnessLimit,
		MaxBlockAge:    cfg.MaxBlockAge,
		PerLegGasUnits: cfg.PerLegGasUnits,
		MaxRealismBps:  cfg.MaxRealismBps,
		MaxProfitUSD:   cfg.MaxProfitUSD,
		MinNetProfit:   cfg.MinNetProfitWei,
		BaseDecimals:   cfg.BaseTokenDecimals,
		Logger:         logger,
	})
}

// setupQuerier selects leg pricing: router quotes over eth_call, or local
// constant-product math over pair reserves with the configured swap fee.
func setupQuerier(cfg *config.Config, gateway *rpc.Gateway, registry *amm.Registry) (simulation.AmountsQuerier, error) {
	if cfg.QuoteSource == "reserves" {
		return simulation.NewReserveQuerier(gateway, registry, cfg.SwapFeeBps)
	}
	return simulation.NewRouterQuerier(gateway)
}

func setupGasStrategy(cfg *config.Config, gateway *rpc.Gateway, logger *zap.Logger) (*gasoracle.Strategy, error) {
	return gasoracle.New(&gasoracle.Config{
		Fees:              gateway,
		MinPriorityFee:    cfg.MinPriorityFeeWei,
		MaxFeeCeiling:     cfg.MaxFeeCeilingWei,
		DefaultBaseFee:    cfg.DefaultBaseFeeWei,
		DefaultTip:        cfg.DefaultTipWei,
		HighConfidence:    cfg.HighConfidence,
		ConfidenceTipBump: cfg.ConfidenceTipBump,
		Logger:            logger,
	})
}

// setupScorer returns the model client when configured; otherwise a
// constant no-score sentinel so downstream consumers use their
// conservative defaults.
func setupScorer(cfg *config.Config, logger *zap.Logger) (features.Scorer, error) {
	if cfg.ScorerURL == "" {
		logger.Info("scorer-disabled",
			zap.String("note", "no SCORER_URL configured, executing without success predictions"))
		return features.ConstantScorer(-1), nil
	}

	return features.NewHTTPScorer(features.HTTPScorerConfig{
		URL:    cfg.ScorerURL,
		Logger: logger,
	})
}

func setupSequencer(cfg *config.Config, gateway *rpc.Gateway, logger *zap.Logger) (*sequencer.Sequencer, *sequencer.NonceManager, error) {
	seqCfg := &sequencer.Config{
		Mode:        cfg.ExecutionMode,
		ChainID:     cfg.ChainID,
		Account:     cfg.BotAddress,
		RelayOffset: cfg.RelayBlockOffset,
		GasLimit:    cfg.PerLegGasUnits * 2,
		NativeEntry: cfg.NativeEntry,
		Logger:      logger,
	}

	var nonces *sequencer.NonceManager
	if cfg.ExecutionMode == types.ModeLive {
		var err error
		nonces, err = sequencer.NewNonceManager(cfg.BotAddress, gateway, logger)
		if err != nil {
			return nil, nil, err
		}

		signer, err := sequencer.NewHTTPSigner(cfg.SignerURL)
		if err != nil {
			return nil, nil, err
		}

		seqCfg.Nonces = nonces
		seqCfg.Signer = signer
		seqCfg.Broadcaster = gateway
		seqCfg.Blocks = gateway

		if cfg.RelayURL != "" {
			authKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayAuthKeyHex, "0x"))
			if err != nil {
				return nil, nil, fmt.Errorf("parse RELAY_AUTH_KEY: %w", err)
			}

			relayClient, err := relay.New(&relay.Config{
				RelayURL: cfg.RelayURL,
				AuthKey:  authKey,
				Logger:   logger,
			})
			if err != nil {
				return nil, nil, err
			}
			seqCfg.Relay = relayClient
		}
	}

	seq, err := sequencer.New(seqCfg)
	if err != nil {
		return nil, nil, err
	}

	return seq, nonces, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	nonces *sequencer.NonceManager,
	gateway *rpc.Gateway,
	seq *sequencer.Sequencer,
) *httpserver.Server {
	var nonceSource httpserver.NonceSource
	if nonces != nil {
		nonceSource = nonces
	}

	var profit httpserver.ProfitSource
	if cfg.ExecutionMode == types.ModePaper {
		profit = seq
	}

	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Status:        httpserver.NewStatusHandler(cfg.ExecutionMode, nonceSource, gateway, profit, logger),
	})
}
