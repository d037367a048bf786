package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// Provider supplies quotes, historical prices, and market-hours state
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (types.Quote, error)
	GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]types.PriceBar, error)
	GetMarketHours(ctx context.Context) (types.MarketHours, error)
}

// StaticProvider serves quotes and history from in-memory maps. Used by
// tests and the demo wiring; production wiring plugs a live feed in.
type StaticProvider struct {
	mu      sync.RWMutex
	quotes  map[string]types.Quote
	history map[string][]types.PriceBar
	hours   types.MarketHours
}

// NewStaticProvider creates an empty static provider with the market open
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		quotes:  make(map[string]types.Quote),
		history: make(map[string][]types.PriceBar),
		hours: types.MarketHours{
			IsOpen:    true,
			NextClose: time.Now().Add(6 * time.Hour),
		},
	}
}

// SetQuote installs or replaces the quote for a symbol
func (p *StaticProvider) SetQuote(q types.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[q.Symbol] = q
}

// SetHistory installs the price history for a symbol
func (p *StaticProvider) SetHistory(symbol string, bars []types.PriceBar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history[symbol] = bars
}

// SetMarketHours overrides the session state
func (p *StaticProvider) SetMarketHours(hours types.MarketHours) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hours = hours
}

// GetQuote returns the stored quote for a symbol
func (p *StaticProvider) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q, ok := p.quotes[symbol]
	if !ok {
		return types.Quote{}, fmt.Errorf("no quote for %s", symbol)
	}
	return q, nil
}

// GetHistoricalPrices returns up to window bars, most recent last
func (p *StaticProvider) GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]types.PriceBar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bars, ok := p.history[symbol]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	if window > 0 && len(bars) > window {
		bars = bars[len(bars)-window:]
	}
	out := make([]types.PriceBar, len(bars))
	copy(out, bars)
	return out, nil
}

// GetMarketHours returns the configured session state
func (p *StaticProvider) GetMarketHours(ctx context.Context) (types.MarketHours, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hours, nil
}
