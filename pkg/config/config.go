package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// TokenConfig is one whitelisted token parsed from the environment.
type TokenConfig struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// VenueConfig is one DEX deployment parsed from the environment.
type VenueConfig struct {
	Name    string
	Router  common.Address
	Factory common.Address
}

// PoolConfig is one known liquidity pool parsed from the environment.
type PoolConfig struct {
	Address common.Address
	Venue   string
	Token0  common.Address
	Token1  common.Address
}

// Config holds all application configuration, populated once at startup.
// Required fields are validated eagerly; nothing is resolved lazily at
// first access.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// RPC gateway
	RPCEndpoint      string
	ChainID          int64
	RPCMaxAttempts   int
	RPCRetryBackoff  time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Mempool feed
	FeedWSURL             string
	FeedDialTimeout       time.Duration
	FeedReconnectInitial  time.Duration
	FeedReconnectMax      time.Duration
	FeedMessageBufferSize int

	// Tokens and venues
	BaseTokenAddress  common.Address
	BaseTokenSymbol   string
	BaseTokenDecimals uint8
	TokenWhitelist    []TokenConfig
	Venues            []VenueConfig
	Pools             []PoolConfig

	// Simulation
	FreshnessLimit  time.Duration
	MaxBlockAge     uint64
	PerLegGasUnits  uint64
	QuoteSource     string // "router" (live eth_call) or "reserves" (local math)
	SwapFeeBps      int64
	MaxRealismBps   int64
	MaxProfitUSD    float64
	MinNetProfitWei *big.Int
	BasePriceUSD    float64
	PriceOracle     common.Address // zero address disables the oracle
	PriceCacheTTL   time.Duration

	// Gas strategy
	MinPriorityFeeWei *big.Int
	MaxFeeCeilingWei  *big.Int
	DefaultBaseFeeWei *big.Int
	DefaultTipWei     *big.Int
	HighConfidence    float64
	ConfidenceTipBump float64

	// Slippage
	SlippageBaseBps  int64
	SlippageFloorBps int64

	// Execution
	ExecutionMode    string
	BotAddress       common.Address
	SignerURL        string
	RelayURL         string
	RelayAuthKeyHex  string
	RelayBlockOffset uint64
	EntryAmountWei   *big.Int
	NativeEntry      bool

	// ESP scorer
	ScorerURL         string
	FeatureList       []string
	MinExecutionScore float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with
// defaults. A .env file in the working directory is honored when present.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	whitelist, err := parseTokenList(os.Getenv("TOKEN_WHITELIST"))
	if err != nil {
		return nil, fmt.Errorf("parse TOKEN_WHITELIST: %w", err)
	}

	venues, err := parseVenueList(os.Getenv("VENUES"))
	if err != nil {
		return nil, fmt.Errorf("parse VENUES: %w", err)
	}

	pools, err := parsePoolList(os.Getenv("POOLS"))
	if err != nil {
		return nil, fmt.Errorf("parse POOLS: %w", err)
	}

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// RPC defaults
		RPCEndpoint:      getEnvOrDefault("RPC_ENDPOINT", "http://localhost:8545"),
		ChainID:          int64(getIntOrDefault("CHAIN_ID", 1)),
		RPCMaxAttempts:   getIntOrDefault("RPC_MAX_ATTEMPTS", 3),
		RPCRetryBackoff:  getDurationOrDefault("RPC_RETRY_BACKOFF", 500*time.Millisecond),
		BreakerThreshold: getIntOrDefault("BREAKER_THRESHOLD", 5),
		BreakerCooldown:  getDurationOrDefault("BREAKER_COOLDOWN", 30*time.Second),

		// Feed defaults
		FeedWSURL:             getEnvOrDefault("FEED_WS_URL", "ws://localhost:8546/stream"),
		FeedDialTimeout:       getDurationOrDefault("FEED_DIAL_TIMEOUT", 10*time.Second),
		FeedReconnectInitial:  getDurationOrDefault("FEED_RECONNECT_INITIAL_DELAY", time.Second),
		FeedReconnectMax:      getDurationOrDefault("FEED_RECONNECT_MAX_DELAY", 30*time.Second),
		FeedMessageBufferSize: getIntOrDefault("FEED_MESSAGE_BUFFER_SIZE", 1000),

		// Token defaults (mainnet WETH)
		BaseTokenAddress:  common.HexToAddress(getEnvOrDefault("BASE_TOKEN_ADDRESS", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")),
		BaseTokenSymbol:   getEnvOrDefault("BASE_TOKEN_SYMBOL", "WETH"),
		BaseTokenDecimals: uint8(getIntOrDefault("BASE_TOKEN_DECIMALS", 18)),
		TokenWhitelist:    whitelist,
		Venues:            venues,
		Pools:             pools,

		// Simulation defaults
		FreshnessLimit:  getDurationOrDefault("FRESHNESS_LIMIT", 15*time.Second),
		MaxBlockAge:     uint64(getIntOrDefault("MAX_BLOCK_AGE", 3)),
		PerLegGasUnits:  uint64(getIntOrDefault("PER_LEG_GAS_UNITS", 200000)),
		QuoteSource:     getEnvOrDefault("QUOTE_SOURCE", "router"),
		SwapFeeBps:      int64(getIntOrDefault("SWAP_FEE_BPS", 30)),
		MaxRealismBps:   int64(getIntOrDefault("MAX_REALISM_BPS", 5000)),
		MaxProfitUSD:    getFloat64OrDefault("MAX_PROFIT_USD", 5000.0),
		MinNetProfitWei: getBigIntOrDefault("MIN_NET_PROFIT_WEI", big.NewInt(1e15)),
		BasePriceUSD:    getFloat64OrDefault("BASE_PRICE_USD", 0),
		PriceOracle:     common.HexToAddress(os.Getenv("PRICE_ORACLE_ADDRESS")),
		PriceCacheTTL:   getDurationOrDefault("PRICE_CACHE_TTL", 10*time.Second),

		// Gas defaults
		MinPriorityFeeWei: getBigIntOrDefault("MIN_PRIORITY_FEE_WEI", big.NewInt(1e9)),
		MaxFeeCeilingWei:  getBigIntOrDefault("MAX_FEE_CEILING_WEI", big.NewInt(300e9)),
		DefaultBaseFeeWei: getBigIntOrDefault("DEFAULT_BASE_FEE_WEI", big.NewInt(20e9)),
		DefaultTipWei:     getBigIntOrDefault("DEFAULT_TIP_WEI", big.NewInt(2e9)),
		HighConfidence:    getFloat64OrDefault("HIGH_CONFIDENCE", 0.75),
		ConfidenceTipBump: getFloat64OrDefault("CONFIDENCE_TIP_BUMP", 0.20),

		// Slippage defaults
		SlippageBaseBps:  int64(getIntOrDefault("SLIPPAGE_BASE_BPS", 10)),
		SlippageFloorBps: int64(getIntOrDefault("SLIPPAGE_FLOOR_BPS", 3)),

		// Execution defaults
		ExecutionMode:    getEnvOrDefault("EXECUTION_MODE", "paper"),
		BotAddress:       common.HexToAddress(os.Getenv("BOT_ADDRESS")),
		SignerURL:        os.Getenv("SIGNER_URL"),
		RelayURL:         os.Getenv("RELAY_URL"),
		RelayAuthKeyHex:  os.Getenv("RELAY_AUTH_KEY"),
		RelayBlockOffset: uint64(getIntOrDefault("RELAY_BLOCK_OFFSET", 1)),
		EntryAmountWei:   getBigIntOrDefault("ENTRY_AMOUNT_WEI", big.NewInt(1e18)),
		NativeEntry:      getBoolOrDefault("NATIVE_ENTRY", false),

		// Scorer defaults
		ScorerURL:         os.Getenv("SCORER_URL"),
		FeatureList:       parseStringList(getEnvOrDefault("FEATURE_LIST", "")),
		MinExecutionScore: getFloat64OrDefault("MIN_EXECUTION_SCORE", 0.3),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "dexarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "dexarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "dexarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RPCEndpoint == "" {
		return fmt.Errorf("RPC_ENDPOINT cannot be empty")
	}

	if c.BaseTokenAddress == (common.Address{}) {
		return fmt.Errorf("BASE_TOKEN_ADDRESS cannot be the zero address")
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'live', got %q", c.ExecutionMode)
	}

	if c.ExecutionMode == "live" {
		if c.BotAddress == (common.Address{}) {
			return fmt.Errorf("BOT_ADDRESS is required in live mode")
		}
		if c.SignerURL == "" {
			return fmt.Errorf("SIGNER_URL is required in live mode")
		}
		if c.RelayURL != "" && c.RelayAuthKeyHex == "" {
			return fmt.Errorf("RELAY_AUTH_KEY is required when RELAY_URL is set")
		}
	}

	if c.QuoteSource != "router" && c.QuoteSource != "reserves" {
		return fmt.Errorf("QUOTE_SOURCE must be 'router' or 'reserves', got %q", c.QuoteSource)
	}

	if c.SwapFeeBps < 0 || c.SwapFeeBps >= 10000 {
		return fmt.Errorf("SWAP_FEE_BPS must be in [0, 10000), got %d", c.SwapFeeBps)
	}

	if c.SlippageBaseBps <= 0 || c.SlippageBaseBps >= 10000 {
		return fmt.Errorf("SLIPPAGE_BASE_BPS must be in (0, 10000), got %d", c.SlippageBaseBps)
	}

	if c.SlippageFloorBps < 1 || c.SlippageFloorBps > c.SlippageBaseBps {
		return fmt.Errorf("SLIPPAGE_FLOOR_BPS must be in [1, SLIPPAGE_BASE_BPS], got %d", c.SlippageFloorBps)
	}

	if c.MaxRealismBps <= 0 {
		return fmt.Errorf("MAX_REALISM_BPS must be positive, got %d", c.MaxRealismBps)
	}

	if c.MinNetProfitWei.Sign() < 0 {
		return fmt.Errorf("MIN_NET_PROFIT_WEI cannot be negative")
	}

	if c.MaxFeeCeilingWei.Sign() <= 0 {
		return fmt.Errorf("MAX_FEE_CEILING_WEI must be positive")
	}

	if c.HighConfidence <= 0 || c.HighConfidence > 1 {
		return fmt.Errorf("HIGH_CONFIDENCE must be in (0, 1], got %f", c.HighConfidence)
	}

	if c.BasePriceUSD == 0 && c.PriceOracle == (common.Address{}) {
		return fmt.Errorf("one of BASE_PRICE_USD or PRICE_ORACLE_ADDRESS must be set")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	names := make(map[string]bool, len(c.Venues))
	for _, v := range c.Venues {
		if names[v.Name] {
			return fmt.Errorf("duplicate venue name %q", v.Name)
		}
		names[v.Name] = true
	}
	for _, p := range c.Pools {
		if !names[p.Venue] {
			return fmt.Errorf("pool %s references unknown venue %q", p.Address.Hex(), p.Venue)
		}
	}

	return nil
}

// parseTokenList parses "0xaddr:SYMBOL:decimals,..." entries.
func parseTokenList(raw string) ([]TokenConfig, error) {
	if raw == "" {
		return nil, nil
	}

	var out []TokenConfig
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("token entry %q must be addr:symbol:decimals", entry)
		}
		if !common.IsHexAddress(parts[0]) {
			return nil, fmt.Errorf("token entry %q has invalid address", entry)
		}
		decimals, err := strconv.Atoi(parts[2])
		if err != nil || decimals < 0 || decimals > 36 {
			return nil, fmt.Errorf("token entry %q has invalid decimals", entry)
		}
		out = append(out, TokenConfig{
			Address:  common.HexToAddress(parts[0]),
			Symbol:   parts[1],
			Decimals: uint8(decimals),
		})
	}
	return out, nil
}

// parseVenueList parses "name:0xrouter:0xfactory,..." entries.
func parseVenueList(raw string) ([]VenueConfig, error) {
	if raw == "" {
		return nil, nil
	}

	var out []VenueConfig
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("venue entry %q must be name:router:factory", entry)
		}
		if !common.IsHexAddress(parts[1]) || !common.IsHexAddress(parts[2]) {
			return nil, fmt.Errorf("venue entry %q has an invalid address", entry)
		}
		out = append(out, VenueConfig{
			Name:    parts[0],
			Router:  common.HexToAddress(parts[1]),
			Factory: common.HexToAddress(parts[2]),
		})
	}
	return out, nil
}

// parsePoolList parses "0xpool:venue:0xtoken0:0xtoken1,..." entries.
func parsePoolList(raw string) ([]PoolConfig, error) {
	if raw == "" {
		return nil, nil
	}

	var out []PoolConfig
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("pool entry %q must be pool:venue:token0:token1", entry)
		}
		if !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[2]) || !common.IsHexAddress(parts[3]) {
			return nil, fmt.Errorf("pool entry %q has an invalid address", entry)
		}
		out = append(out, PoolConfig{
			Address: common.HexToAddress(parts[0]),
			Venue:   parts[1],
			Token0:  common.HexToAddress(parts[2]),
			Token1:  common.HexToAddress(parts[3]),
		})
	}
	return out, nil
}

func parseStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBigIntOrDefault(key string, defaultValue *big.Int) *big.Int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return defaultValue
	}

	return parsed
}
