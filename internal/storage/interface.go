package storage

import (
	"context"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// OrderStore persists order history. Orders are append-by-id: saves
// supersede earlier states, records are never deleted.
type OrderStore interface {
	SaveOrder(ctx context.Context, order *types.Order) error
	GetOrder(ctx context.Context, id string) (*types.Order, error)
	ListOrders(ctx context.Context, portfolioID string) ([]*types.Order, error)
}

// PortfolioStore persists portfolio state
type PortfolioStore interface {
	SavePortfolio(ctx context.Context, portfolio *types.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (*types.Portfolio, error)
}

// RiskMetricsStore keeps risk snapshots; the latest-by-timestamp
// snapshot per portfolio is authoritative.
type RiskMetricsStore interface {
	SaveMetrics(ctx context.Context, metrics types.RiskMetrics) error
	LatestMetrics(ctx context.Context, portfolioID string) (types.RiskMetrics, error)
}

// AlertStore keeps alerts until acknowledged or evicted
type AlertStore interface {
	SaveAlert(ctx context.Context, alert *types.Alert) error
	GetAlert(ctx context.Context, id string) (*types.Alert, error)
	ActiveAlerts(ctx context.Context, portfolioID string) ([]*types.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
	EvictBefore(ctx context.Context, cutoff int64) (int, error)
}

// Store bundles the four repositories behind one constructor so the
// wiring can swap memory and sqlite adapters wholesale.
type Store interface {
	OrderStore
	PortfolioStore
	RiskMetricsStore
	AlertStore
	Close() error
}

// ErrNotFound is returned when a record does not exist
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return e.Kind + " " + e.ID + " not found"
}
