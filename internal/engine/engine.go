// Package engine is the supervisor of the per-market ingestion pipelines.
//
// It wires together the moving parts of the indexer:
//
//  1. Each configured market gets its own pipeline: an unbounded operation
//     queue, a dispatcher goroutine draining it into the repositories, and an
//     indexer goroutine feeding it from the upstream event stream.
//  2. The indexer resumes from the market's durable cursor, falling back to
//     the configured start block on first run.
//  3. Pipelines are independent; one market stalling or erroring never blocks
//     another.
//
// Lifecycle: New() → Start() → [runs until SIGINT/SIGTERM] → Stop()
package engine

import (
	"context"
	"log/slog"
	"sync"

	"sparker/internal/config"
	"sparker/internal/dispatch"
	"sparker/internal/pangea"
)

// StateStore is the cursor access the engine and its dispatchers need.
type StateStore interface {
	dispatch.StateStore
	LatestProcessedBlock(ctx context.Context, marketID string) (*int64, error)
}

// Engine owns the lifecycle of every per-market pipeline.
type Engine struct {
	cfg      *config.Config
	client   pangea.StreamOpener
	provider pangea.ChainProvider
	orders   dispatch.OrderStore
	trades   dispatch.TradeStore
	state    StateStore
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an engine over the given upstream client, chain provider and
// repositories.
func New(
	cfg *config.Config,
	client pangea.StreamOpener,
	provider pangea.ChainProvider,
	orders dispatch.OrderStore,
	trades dispatch.TradeStore,
	state StateStore,
	logger *slog.Logger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:      cfg,
		client:   client,
		provider: provider,
		orders:   orders,
		trades:   trades,
		state:    state,
		logger:   logger.With("component", "engine"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches one pipeline per configured market and returns immediately.
func (e *Engine) Start() {
	for _, market := range e.cfg.Markets {
		e.startPipeline(market)
	}
}

// startPipeline spins up the queue, dispatcher and indexer of one market.
// The queue closes when the indexer goroutine ends, which lets the dispatcher
// drain whatever is buffered and exit.
func (e *Engine) startPipeline(market config.MarketConfig) {
	logger := e.logger.With("market", market.Name)

	queue := dispatch.NewQueue()
	dispatcher := dispatch.NewDispatcher(market.ID, e.orders, e.trades, e.state, logger)
	indexer := pangea.NewIndexer(e.client, e.provider, queue, market.ID, string(e.cfg.Chain), logger)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		dispatcher.Run(e.ctx, queue)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer queue.Close()

		cursor, err := e.state.LatestProcessedBlock(e.ctx, market.ID)
		if err != nil {
			logger.Error("failed to read cursor", "error", err)
			return
		}
		start := e.cfg.PangeaStartBlock
		if cursor != nil {
			start = *cursor
		}
		logger.Info("starting indexer", "from_block", start, "resumed", cursor != nil)

		if err := indexer.Start(e.ctx, start); err != nil && e.ctx.Err() == nil {
			logger.Error("indexer stopped", "error", err)
		}
	}()
}

// Stop cancels every pipeline and waits for them to wind down. Buffered
// operations that were not yet dispatched are dropped; the cursor was not
// advanced past them, so a restart replays them.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")

	e.cancel()
	e.wg.Wait()

	e.logger.Info("shutdown complete")
}
