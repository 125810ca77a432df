package rpc

import (
	"sparker/pkg/orderbookpb"
	"sparker/pkg/types"
)

func orderToProto(o *types.Order) *orderbookpb.Order {
	return &orderbookpb.Order{
		TxID:        o.TxID,
		OrderID:     o.OrderID,
		OrderType:   orderTypeToProto(o.OrderType),
		User:        o.User,
		Asset:       o.Asset,
		Amount:      o.Amount,
		Price:       o.Price,
		Status:      statusToProto(o.Status),
		BlockNumber: o.BlockNumber,
		Timestamp:   uint64(o.Timestamp.Unix()),
		MarketID:    o.MarketID,
	}
}

func tradeToProto(t *types.Trade) *orderbookpb.Trade {
	return &orderbookpb.Trade{
		TxID:        t.TxID,
		TradeID:     t.TradeID,
		OrderID:     t.OrderID,
		LimitType:   limitTypeToProto(t.LimitType),
		User:        t.User,
		Size:        t.Size,
		Price:       t.Price,
		BlockNumber: t.BlockNumber,
		Timestamp:   uint64(t.Timestamp.Unix()),
		MarketID:    t.MarketID,
	}
}

func orderTypeToProto(t types.OrderType) orderbookpb.OrderType {
	if t == types.OrderTypeSell {
		return orderbookpb.OrderTypeSell
	}
	return orderbookpb.OrderTypeBuy
}

func orderTypeFromProto(t orderbookpb.OrderType) (types.OrderType, bool) {
	switch t {
	case orderbookpb.OrderTypeBuy:
		return types.OrderTypeBuy, true
	case orderbookpb.OrderTypeSell:
		return types.OrderTypeSell, true
	default:
		return "", false
	}
}

func statusToProto(s types.OrderStatus) orderbookpb.OrderStatus {
	switch s {
	case types.OrderStatusPartiallyMatched:
		return orderbookpb.OrderStatusPartiallyMatched
	case types.OrderStatusMatched:
		return orderbookpb.OrderStatusMatched
	case types.OrderStatusCancelled:
		return orderbookpb.OrderStatusCancelled
	case types.OrderStatusFailed:
		return orderbookpb.OrderStatusFailed
	default:
		return orderbookpb.OrderStatusNew
	}
}

func limitTypeToProto(t types.LimitType) orderbookpb.LimitType {
	switch t {
	case types.LimitTypeIOC:
		return orderbookpb.LimitTypeIOC
	case types.LimitTypeFOK:
		return orderbookpb.LimitTypeFOK
	case types.LimitTypeMKT:
		return orderbookpb.LimitTypeMKT
	default:
		return orderbookpb.LimitTypeGTC
	}
}
