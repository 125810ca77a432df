package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"sparker/pkg/orderbookpb"
)

// Server owns the grpc.Server wiring: service registration, keepalive and the
// request logging interceptor.
type Server struct {
	grpc   *grpc.Server
	logger *slog.Logger
}

func NewServer(svc *Service, logger *slog.Logger) *Server {
	logger = logger.With("component", "grpc-server")

	s := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              20 * time.Second,
			Timeout:           time.Second,
		}),
		grpc.UnaryInterceptor(loggingInterceptor(logger)),
	)
	orderbookpb.RegisterOrderbookServer(s, svc)

	return &Server{grpc: s, logger: logger}
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Error("request failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
		} else {
			logger.Debug("request served", "method", info.FullMethod, "duration", time.Since(start))
		}
		return resp, err
	}
}

// Serve listens on addr and blocks until Stop is called.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an established listener and blocks until Stop is
// called.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("grpc server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serve grpc: %w", err)
	}
	return nil
}

// Stop tears the server down. A hard stop on purpose: the subscription
// streams are long-lived and would hold a graceful stop open forever.
func (s *Server) Stop() {
	s.logger.Info("stopping grpc server")
	s.grpc.Stop()
}
