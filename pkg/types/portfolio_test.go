package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestPosition() *Position {
	return &Position{
		ID:           "pos-1",
		Symbol:       "AAPL",
		Kind:         InstrumentEquity,
		Side:         PositionLong,
		Quantity:     100,
		EntryPrice:   150.0,
		CurrentPrice: 150.0,
		OpenDate:     time.Now(),
	}
}

// TestMarkToMarket_Long tests unrealized P&L on a long position
func TestMarkToMarket_Long(t *testing.T) {
	p := newTestPosition()
	p.MarkToMarket(160.0)

	assert.Equal(t, 160.0, p.CurrentPrice)
	assert.Equal(t, 1000.0, p.UnrealizedPnL)
}

// TestMarkToMarket_Short tests that short positions gain when price falls
func TestMarkToMarket_Short(t *testing.T) {
	p := newTestPosition()
	p.Side = PositionShort
	p.MarkToMarket(140.0)

	assert.Equal(t, 1000.0, p.UnrealizedPnL)
}

// TestClose_FreezesPosition tests that a closed position ignores
// further mark-to-market updates
func TestClose_FreezesPosition(t *testing.T) {
	p := newTestPosition()
	p.Close(160.0, time.Now())

	assert.False(t, p.IsOpen())
	assert.Equal(t, 1000.0, p.RealizedPnL)
	assert.Equal(t, 0.0, p.UnrealizedPnL)

	p.MarkToMarket(200.0)
	assert.Equal(t, 160.0, p.CurrentPrice, "closed position price must not move")
	assert.Equal(t, 0.0, p.UnrealizedPnL)
}

// TestReconcile_TotalIsCashPlusPositions tests the portfolio value invariant
func TestReconcile_TotalIsCashPlusPositions(t *testing.T) {
	pf := &Portfolio{
		ID:          "test",
		CashBalance: 50000.0,
		Positions:   []*Position{newTestPosition()},
	}

	err := pf.Reconcile()
	assert.NoError(t, err)
	assert.Equal(t, 50000.0+100*150.0, pf.TotalValue)
}

// TestReconcile_ReportsDrift tests that a drifted total is corrected and reported
func TestReconcile_ReportsDrift(t *testing.T) {
	pf := &Portfolio{
		ID:          "test",
		CashBalance: 50000.0,
		TotalValue:  99999.0,
		Positions:   []*Position{newTestPosition()},
	}

	err := pf.Reconcile()
	assert.Error(t, err)
	assert.Equal(t, 65000.0, pf.TotalValue, "total must be reconciled even when drifted")
}

// TestReconcile_IgnoresClosedPositions tests that closed positions drop
// out of the total
func TestReconcile_IgnoresClosedPositions(t *testing.T) {
	closed := newTestPosition()
	closed.Close(150.0, time.Now())

	pf := &Portfolio{
		ID:          "test",
		CashBalance: 50000.0,
		Positions:   []*Position{closed},
	}

	assert.NoError(t, pf.Reconcile())
	assert.Equal(t, 50000.0, pf.TotalValue)
}

// TestQuoteMid_FallsBackToLast tests the midpoint fallback when one
// side of the book is empty
func TestQuoteMid_FallsBackToLast(t *testing.T) {
	assert.Equal(t, 101.0, Quote{Bid: 100.0, Ask: 102.0, Last: 99.0}.Mid())
	assert.Equal(t, 99.0, Quote{Bid: 100.0, Last: 99.0}.Mid())
	assert.Equal(t, 99.0, Quote{Last: 99.0}.Mid())
}
