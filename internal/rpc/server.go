// Package rpc serves the orderbook.api.Orderbook gRPC service: unary reads
// backed by the repositories and live order update streams fed by the notify
// broadcast.
package rpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sparker/internal/notify"
	"sparker/pkg/orderbookpb"
	"sparker/pkg/types"
)

// defaultLimit caps list responses when the request leaves Limit unset.
const defaultLimit = 50

// OrderReader is the slice of the order repository the service reads from.
type OrderReader interface {
	Find(ctx context.Context, marketID string, limit, offset uint64) ([]types.Order, error)
	FindByType(ctx context.Context, marketID string, orderType types.OrderType, limit, offset uint64, userNE *string) ([]types.Order, error)
	FindBestBid(ctx context.Context, marketID string, userNE *string) (*types.Order, error)
	FindBestAsk(ctx context.Context, marketID string, userNE *string) (*types.Order, error)
}

// TradeReader is the slice of the trade repository the service reads from.
type TradeReader interface {
	Find(ctx context.Context, marketID string, limit, offset uint64) ([]types.Trade, error)
}

// Service implements orderbookpb.OrderbookServer.
type Service struct {
	orders    OrderReader
	trades    TradeReader
	broadcast *notify.Broadcast
	logger    *slog.Logger
}

func NewService(orders OrderReader, trades TradeReader, broadcast *notify.Broadcast, logger *slog.Logger) *Service {
	return &Service{
		orders:    orders,
		trades:    trades,
		broadcast: broadcast,
		logger:    logger.With("component", "rpc"),
	}
}

// ListOrders returns active orders of the market, newest first. With an
// OrderType filter the listing is price-ordered instead and may exclude one
// user via UserNE.
func (s *Service) ListOrders(ctx context.Context, req *orderbookpb.OrdersRequest) (*orderbookpb.OrdersResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	var (
		orders []types.Order
		err    error
	)
	if req.OrderType != nil {
		orderType, ok := orderTypeFromProto(*req.OrderType)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown order type %d", *req.OrderType)
		}
		orders, err = s.orders.FindByType(ctx, req.MarketID, orderType, limit, 0, req.UserNE)
	} else {
		orders, err = s.orders.Find(ctx, req.MarketID, limit, 0)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := &orderbookpb.OrdersResponse{Orders: make([]*orderbookpb.Order, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, orderToProto(&orders[i]))
	}
	return resp, nil
}

// Spread returns the highest buy and the lowest sell of the market. Either
// side is absent when that side of the book is empty.
func (s *Service) Spread(ctx context.Context, req *orderbookpb.SpreadRequest) (*orderbookpb.SpreadResponse, error) {
	bestBid, err := s.orders.FindBestBid(ctx, req.MarketID, req.UserNE)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	bestAsk, err := s.orders.FindBestAsk(ctx, req.MarketID, req.UserNE)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := &orderbookpb.SpreadResponse{}
	if bestBid != nil {
		resp.BestBid = orderToProto(bestBid)
	}
	if bestAsk != nil {
		resp.BestAsk = orderToProto(bestAsk)
	}
	return resp, nil
}

// ListTrades returns recent trades of the market, newest first.
func (s *Service) ListTrades(ctx context.Context, req *orderbookpb.TradesRequest) (*orderbookpb.TradesResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	trades, err := s.trades.Find(ctx, req.MarketID, limit, 0)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := &orderbookpb.TradesResponse{Trades: make([]*orderbookpb.Trade, 0, len(trades))}
	for i := range trades {
		resp.Trades = append(resp.Trades, tradeToProto(&trades[i]))
	}
	return resp, nil
}

// SubscribeOrderUpdates relays order mutations of the requested market until
// the client goes away. Updates of other markets are filtered out here, as is
// everyone else when the request names a user.
func (s *Service) SubscribeOrderUpdates(req *orderbookpb.OrderRequest, stream orderbookpb.OrderUpdatesStream) error {
	sub := s.broadcast.Subscribe()
	defer sub.Close()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case order, ok := <-sub.Updates():
			if !ok {
				return status.Error(codes.Unavailable, "order update feed closed")
			}
			if order.MarketID != req.MarketID {
				continue
			}
			if req.User != nil && order.User != *req.User {
				continue
			}
			if err := stream.Send(&orderbookpb.OrderResponse{Order: orderToProto(&order)}); err != nil {
				s.logger.Error("SEND_ORDER_UPDATE_ERROR", "error", err, "market_id", req.MarketID)
				return err
			}
		}
	}
}

// SubscribeTrades holds the stream open without sending anything. There is no
// trade feed yet; clients keep the subscription as a liveness handle.
func (s *Service) SubscribeTrades(req *orderbookpb.TradeRequest, stream orderbookpb.TradesStream) error {
	<-stream.Context().Done()
	return stream.Context().Err()
}
