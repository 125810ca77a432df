// Spark orderbook gRPC server: read queries plus live order update streams.
// Order changes reach subscribers through the Postgres order_updates channel:
// a LISTEN loop feeds the in-process broadcast the streams fan out from.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sparker/internal/config"
	"sparker/internal/notify"
	"sparker/internal/repo"
	"sparker/internal/rpc"
)

const listenAddr = "0.0.0.0:50051"

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcast := notify.NewBroadcast(logger)
	listener := notify.NewListener(cfg.DatabaseURL, broadcast, logger)
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("notification listener failed", "error", err)
		}
	}()

	service := rpc.NewService(repo.NewOrders(db), repo.NewTrades(db), broadcast, logger)
	server := rpc.NewServer(service, logger)
	go func() {
		if err := server.Serve(listenAddr); err != nil {
			logger.Error("grpc server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("grpc started", "addr", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	server.Stop()
}
