// Spark orderbook HTTP API: read-only queries over the database the indexer
// maintains. Runs pending schema migrations on startup, so it should come up
// before the indexer and the gRPC server on a fresh database.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sparker/internal/api"
	"sparker/internal/config"
	"sparker/internal/repo"
)

const listenAddr = "0.0.0.0:3011"

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

	if err := repo.Migrate(context.Background(), db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(listenAddr, repo.NewOrders(db), repo.NewTrades(db), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("api started", "addr", listenAddr, "docs", "/swagger-ui")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := server.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}
}
