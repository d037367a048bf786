package types

import "time"

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// OrderKind represents the order type
type OrderKind string

const (
	OrderMarket    OrderKind = "market"
	OrderLimit     OrderKind = "limit"
	OrderStop      OrderKind = "stop"
	OrderStopLimit OrderKind = "stop_limit"
)

// TimeInForce represents the order lifetime policy
type TimeInForce string

const (
	TIFDay               TimeInForce = "day"
	TIFGoodTillCancelled TimeInForce = "gtc"
	TIFImmediateOrCancel TimeInForce = "ioc"
	TIFFillOrKill        TimeInForce = "fok"
)

// OrderStatus represents a state in the order lifecycle
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRejected        OrderStatus = "rejected"
)

// ValidOrderTransitions defines the allowed status transitions.
// Terminal states (filled, cancelled, rejected) have no exits.
var ValidOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:         {OrderPartiallyFilled, OrderFilled, OrderCancelled, OrderRejected},
	OrderPartiallyFilled: {OrderFilled, OrderCancelled, OrderRejected},
	OrderFilled:          {},
	OrderCancelled:       {},
	OrderRejected:        {},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	allowed, ok := ValidOrderTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is final
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

// OrderRequest is the ephemeral input to validation and execution
type OrderRequest struct {
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Quantity    int64       `json:"quantity"`
	Kind        OrderKind   `json:"kind"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	StopPrice   float64     `json:"stop_price,omitempty"`
	TimeInForce TimeInForce `json:"time_in_force"`
	PortfolioID string      `json:"portfolio_id"`
	SignalID    string      `json:"signal_id,omitempty"`
}

// Order is the persisted record of a submitted order. Status moves
// only through the executor's single-writer path per order id.
type Order struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Quantity    int64       `json:"quantity"`
	Kind        OrderKind   `json:"kind"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	StopPrice   float64     `json:"stop_price,omitempty"`
	TimeInForce TimeInForce `json:"time_in_force"`
	PortfolioID string      `json:"portfolio_id"`
	SignalID    string      `json:"signal_id,omitempty"`
	Status      OrderStatus `json:"status"`
	Broker      string      `json:"broker"`
	BrokerRef   string      `json:"broker_ref,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`
	FilledAt    *time.Time  `json:"filled_at,omitempty"`
	FilledQty   int64       `json:"filled_qty"`
	FilledPrice float64     `json:"filled_price"`
	Warnings    []string    `json:"warnings,omitempty"`
}
