package types

import (
	"fmt"
	"math"
	"time"
)

// InstrumentKind distinguishes equities from option contracts
type InstrumentKind string

const (
	InstrumentEquity InstrumentKind = "equity"
	InstrumentOption InstrumentKind = "option"
)

// PositionSide represents the direction of a position
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Greeks holds option price sensitivities for a position
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Position represents a single open or closed holding
type Position struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	Kind          InstrumentKind `json:"kind"`
	Side          PositionSide   `json:"side"`
	Quantity      int64          `json:"quantity"` // Non-zero while open
	EntryPrice    float64        `json:"entry_price"`
	CurrentPrice  float64        `json:"current_price"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
	RealizedPnL   float64        `json:"realized_pnl"`
	Greeks        *Greeks        `json:"greeks,omitempty"`
	OpenDate      time.Time      `json:"open_date"`
	CloseDate     *time.Time     `json:"close_date,omitempty"`
	StrategyID    string         `json:"strategy_id,omitempty"`
}

// MarketValue returns quantity x current price
func (p *Position) MarketValue() float64 {
	return float64(p.Quantity) * p.CurrentPrice
}

// IsOpen reports whether the position is still held
func (p *Position) IsOpen() bool {
	return p.CloseDate == nil
}

// MarkToMarket updates the current price and recomputes unrealized P&L.
// Closed positions are frozen: quantity and P&L no longer move.
func (p *Position) MarkToMarket(price float64) {
	if !p.IsOpen() {
		return
	}
	p.CurrentPrice = price
	direction := 1.0
	if p.Side == PositionShort {
		direction = -1.0
	}
	p.UnrealizedPnL = direction * (price - p.EntryPrice) * float64(p.Quantity)
}

// Close marks the position closed at the given price, moving any
// unrealized P&L into realized P&L.
func (p *Position) Close(price float64, at time.Time) {
	if !p.IsOpen() {
		return
	}
	p.MarkToMarket(price)
	p.RealizedPnL += p.UnrealizedPnL
	p.UnrealizedPnL = 0
	t := at
	p.CloseDate = &t
}

// Portfolio is the aggregate root for holdings and cash
type Portfolio struct {
	ID          string      `json:"id"`
	TotalValue  float64     `json:"total_value"`
	CashBalance float64     `json:"cash_balance"`
	Positions   []*Position `json:"positions"`
	Beta        float64     `json:"beta"`
	SharpeRatio float64     `json:"sharpe_ratio"`
	MaxDrawdown float64     `json:"max_drawdown"`
	DailyPnL    float64     `json:"daily_pnl"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OpenPositions returns the positions that are still held
func (pf *Portfolio) OpenPositions() []*Position {
	open := make([]*Position, 0, len(pf.Positions))
	for _, p := range pf.Positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

// PositionValue returns the market value held in the given symbol
func (pf *Portfolio) PositionValue(symbol string) float64 {
	total := 0.0
	for _, p := range pf.Positions {
		if p.IsOpen() && p.Symbol == symbol {
			total += math.Abs(p.MarketValue())
		}
	}
	return total
}

// Reconcile recomputes total value as cash + sum of position market
// values. Called after every position mutation; returns an error when
// the stored total has drifted from the recomputed one.
func (pf *Portfolio) Reconcile() error {
	total := pf.CashBalance
	for _, p := range pf.Positions {
		if p.IsOpen() {
			total += p.MarketValue()
		}
	}
	if pf.TotalValue != 0 && math.Abs(total-pf.TotalValue) > 0.01 {
		drift := total - pf.TotalValue
		pf.TotalValue = total
		return fmt.Errorf("portfolio %s total value drifted by %.2f, reconciled", pf.ID, drift)
	}
	pf.TotalValue = total
	return nil
}
