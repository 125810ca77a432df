// Spark orderbook indexer: follows Spark exchange events on the Fuel network
// and materializes per-market orderbooks into Postgres.
//
// Architecture:
//
//	main.go                 entry point: loads config, starts the engine, waits for SIGINT/SIGTERM
//	engine/engine.go        supervisor: one queue + dispatcher + indexer pipeline per market
//	pangea/client.go        authenticated WebSocket client for the Pangea event stream
//	pangea/indexer.go       prune, historical catch-up in batches, then the live subscription
//	pangea/event.go         raw event decoding, order/trade construction, trade id derivation
//	dispatch/dispatcher.go  applies buffered mutations in phases at block boundaries
//	fuel/provider.go        GraphQL client for the chain head height
//	repo/                   Postgres repositories for orders, trades, and the cursor
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sparker/internal/config"
	"sparker/internal/engine"
	"sparker/internal/fuel"
	"sparker/internal/pangea"
	"sparker/internal/repo"
)

func main() {
	cfgPath := "config.mainnet.json"
	if p := os.Getenv("SPARKER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()

	db, err := repo.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	providerURL, err := cfg.Chain.ProviderURL()
	if err != nil {
		logger.Error("invalid chain", "error", err)
		os.Exit(1)
	}

	eng := engine.New(
		cfg,
		pangea.NewClient(cfg.PangeaHost, cfg.PangeaUsername, cfg.PangeaPassword, logger),
		fuel.NewProvider(providerURL),
		repo.NewOrders(db),
		repo.NewTrades(db),
		repo.NewState(db),
		logger,
	)
	eng.Start()

	logger.Info("indexer started", "chain", cfg.Chain, "markets", len(cfg.Markets))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	eng.Stop()
}
