package app

import (
	"context"
	"sync"

	"dexarb/internal/features"
	"dexarb/internal/feed"
	"dexarb/internal/gasoracle"
	"dexarb/internal/identifier"
	"dexarb/internal/sequencer"
	"dexarb/internal/simulation"
	"dexarb/internal/slippage"
	"dexarb/internal/storage"
	"dexarb/pkg/cache"
	"dexarb/pkg/config"
	"dexarb/pkg/healthprobe"
	"dexarb/pkg/httpserver"
	"dexarb/pkg/rpc"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	gateway       *rpc.Gateway
	feedConsumer  *feed.Consumer
	finder        *identifier.Finder
	engine        *simulation.Engine
	gasStrategy   *gasoracle.Strategy
	slippage      *slippage.Controller
	sequencer     *sequencer.Sequencer
	nonces        *sequencer.NonceManager
	schema        *features.Schema
	scorer        features.Scorer
	price         simulation.PriceSource
	store         storage.Storage
	appCache      cache.Cache
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
