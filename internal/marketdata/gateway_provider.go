package marketdata

import (
	"context"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// QuoteFunc fetches a live quote for one symbol
type QuoteFunc func(ctx context.Context, symbol string) (types.Quote, error)

// GatewayProvider layers live gateway quotes over a static provider.
// Quotes try the gateway first and fall back to the seeded snapshot;
// history and market hours come from the static side, which the risk
// calculator degrades gracefully without anyway.
type GatewayProvider struct {
	live   QuoteFunc
	static *StaticProvider
}

// NewGatewayProvider wraps a live quote source around a static provider
func NewGatewayProvider(live QuoteFunc, static *StaticProvider) *GatewayProvider {
	return &GatewayProvider{live: live, static: static}
}

func (p *GatewayProvider) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if p.live != nil {
		if q, err := p.live(ctx, symbol); err == nil {
			return q, nil
		}
	}
	return p.static.GetQuote(ctx, symbol)
}

func (p *GatewayProvider) GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]types.PriceBar, error) {
	return p.static.GetHistoricalPrices(ctx, symbol, window)
}

func (p *GatewayProvider) GetMarketHours(ctx context.Context) (types.MarketHours, error) {
	return p.static.GetMarketHours(ctx)
}
