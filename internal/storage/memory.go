package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// MemoryStore is the in-memory adapter used by tests and the demo
// wiring. Records are deep-copied through JSON so callers cannot
// mutate stored state behind the store's back.
type MemoryStore struct {
	mu         sync.RWMutex
	orders     map[string]*types.Order
	portfolios map[string]*types.Portfolio
	metrics    map[string][]types.RiskMetrics
	alerts     map[string]*types.Alert
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:     make(map[string]*types.Order),
		portfolios: make(map[string]*types.Portfolio),
		metrics:    make(map[string][]types.RiskMetrics),
		alerts:     make(map[string]*types.Alert),
	}
}

func copyValue[T any](src *T) *T {
	data, err := jsonCodec.Marshal(src)
	if err != nil {
		return src
	}
	out := new(T)
	if err := jsonCodec.Unmarshal(data, out); err != nil {
		return src
	}
	return out
}

// SaveOrder stores or supersedes an order record by id
func (s *MemoryStore) SaveOrder(ctx context.Context, order *types.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = copyValue(order)
	return nil
}

// GetOrder returns the order with the given id
func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, &ErrNotFound{Kind: "order", ID: id}
	}
	return copyValue(order), nil
}

// ListOrders returns the orders for a portfolio sorted by id, which is
// creation order because ids are ULIDs.
func (s *MemoryStore) ListOrders(ctx context.Context, portfolioID string) ([]*types.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Order
	for _, o := range s.orders {
		if portfolioID == "" || o.PortfolioID == portfolioID {
			out = append(out, copyValue(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SavePortfolio stores a portfolio snapshot
func (s *MemoryStore) SavePortfolio(ctx context.Context, portfolio *types.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[portfolio.ID] = copyValue(portfolio)
	return nil
}

// GetPortfolio returns the portfolio with the given id
func (s *MemoryStore) GetPortfolio(ctx context.Context, id string) (*types.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pf, ok := s.portfolios[id]
	if !ok {
		return nil, &ErrNotFound{Kind: "portfolio", ID: id}
	}
	return copyValue(pf), nil
}

// SaveMetrics appends a risk snapshot for a portfolio
func (s *MemoryStore) SaveMetrics(ctx context.Context, metrics types.RiskMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[metrics.PortfolioID] = append(s.metrics[metrics.PortfolioID], metrics)
	return nil
}

// LatestMetrics returns the maximum-timestamp snapshot, tolerating
// out-of-order arrival from concurrent computations.
func (s *MemoryStore) LatestMetrics(ctx context.Context, portfolioID string) (types.RiskMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := s.metrics[portfolioID]
	if len(snapshots) == 0 {
		return types.RiskMetrics{}, &ErrNotFound{Kind: "risk metrics", ID: portfolioID}
	}
	latest := snapshots[0]
	for _, m := range snapshots[1:] {
		if m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	return latest, nil
}

// SaveAlert stores an alert
func (s *MemoryStore) SaveAlert(ctx context.Context, alert *types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = copyValue(alert)
	return nil
}

// GetAlert returns the alert with the given id
func (s *MemoryStore) GetAlert(ctx context.Context, id string) (*types.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, &ErrNotFound{Kind: "alert", ID: id}
	}
	return copyValue(alert), nil
}

// ActiveAlerts returns unacknowledged alerts for a portfolio, newest first
func (s *MemoryStore) ActiveAlerts(ctx context.Context, portfolioID string) ([]*types.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Alert
	for _, a := range s.alerts {
		if a.Acknowledged {
			continue
		}
		if portfolioID == "" || a.PortfolioID == portfolioID {
			out = append(out, copyValue(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AcknowledgeAlert marks an alert acknowledged
func (s *MemoryStore) AcknowledgeAlert(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return &ErrNotFound{Kind: "alert", ID: id}
	}
	alert.Acknowledged = true
	return nil
}

// EvictBefore drops alerts created before the cutoff (unix seconds)
func (s *MemoryStore) EvictBefore(ctx context.Context, cutoff int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	cutoffTime := time.Unix(cutoff, 0)
	for id, a := range s.alerts {
		if a.CreatedAt.Before(cutoffTime) {
			delete(s.alerts, id)
			evicted++
		}
	}
	return evicted, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error { return nil }
