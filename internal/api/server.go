// Package api serves the read-only HTTP query surface over the indexed book:
// order and trade listings, the spread, and the OpenAPI document.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server runs the HTTP API.
type Server struct {
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new API server listening on addr.
func NewServer(addr string, orders OrderReader, trades TradeReader, logger *slog.Logger) *Server {
	handlers := NewHandlers(orders, trades, logger)

	server := &http.Server{
		Addr:         addr,
		Handler:      newMux(handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

func newMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /orders/list", h.HandleListOrders)
	mux.HandleFunc("GET /orders/spread", h.HandleSpread)
	mux.HandleFunc("GET /orders/best-bid", h.HandleBestBid)
	mux.HandleFunc("GET /orders/best-ask", h.HandleBestAsk)
	mux.HandleFunc("GET /trades/list", h.HandleListTrades)

	mux.HandleFunc("GET /api-docs/openapi.json", h.HandleOpenAPI)
	mux.HandleFunc("GET /swagger-ui", h.HandleSwaggerUI)

	return mux
}

// Start starts the API server and blocks until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
