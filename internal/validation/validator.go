package validation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/marketdata"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// Result is the outcome of validating an order request. Errors block
// submission; warnings ride along for operator visibility.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (r *Result) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *Result) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Config tunes the validator bounds
type Config struct {
	MaxQuantity     int64
	MaxOrderValue   float64
	MarketHoursOnly bool
	ImminentExpiry  time.Duration // Warn for options expiring within this window
	PriceSanityBand float64       // Limit/stop must sit within this fraction of the quote
	IlliquidVolume  float64       // Warn for market orders below this daily volume
}

// DefaultConfig returns standard validation bounds
func DefaultConfig() Config {
	return Config{
		MaxQuantity:     100000,
		MaxOrderValue:   500000,
		MarketHoursOnly: true,
		ImminentExpiry:  7 * 24 * time.Hour,
		PriceSanityBand: 0.50,
		IlliquidVolume:  100,
	}
}

// Validator runs the layered pre-submission checks. Side-effect-free
// aside from reading quotes and market-hours state.
type Validator struct {
	config Config
	market marketdata.Provider
	now    func() time.Time
}

// NewValidator creates an order validator
func NewValidator(config Config, market marketdata.Provider) *Validator {
	return &Validator{config: config, market: market, now: time.Now}
}

// Validate runs all layers against the request. Only structurally
// invalid input (missing required fields) short-circuits; later layers
// accumulate so operators see every problem at once.
func (v *Validator) Validate(ctx context.Context, req types.OrderRequest, portfolio *types.Portfolio) Result {
	result := Result{Valid: true}

	if !v.checkRequiredFields(req, &result) {
		return result
	}

	kind := v.checkSymbol(req, &result)
	v.checkQuantity(req, &result)
	quote := v.checkPrices(ctx, req, kind, &result)
	v.checkOrderTypeLegality(req, &result)
	v.checkMarketHours(ctx, req, kind, quote, &result)
	if kind == types.InstrumentOption {
		v.checkOptionContract(req, quote, &result)
	}
	v.checkFunds(req, quote, portfolio, &result)

	return result
}

func (v *Validator) checkRequiredFields(req types.OrderRequest, result *Result) bool {
	if req.Symbol == "" {
		result.addError("symbol is required")
	}
	if req.Side != types.OrderBuy && req.Side != types.OrderSell {
		result.addError("side must be buy or sell, got %q", req.Side)
	}
	if req.Kind == "" {
		result.addError("order kind is required")
	}
	if req.PortfolioID == "" {
		result.addError("portfolio id is required")
	}
	return result.Valid
}

func (v *Validator) checkSymbol(req types.OrderRequest, result *Result) types.InstrumentKind {
	kind, err := InstrumentKindOf(req.Symbol)
	if err != nil {
		result.addError("invalid symbol: %v", err)
		return types.InstrumentEquity
	}
	return kind
}

func (v *Validator) checkQuantity(req types.OrderRequest, result *Result) {
	if req.Quantity <= 0 {
		result.addError("quantity must be a positive integer, got %d", req.Quantity)
		return
	}
	if req.Quantity > v.config.MaxQuantity {
		result.addError("quantity %d exceeds maximum %d", req.Quantity, v.config.MaxQuantity)
	}
}

// checkPrices validates limit/stop prices against the current quote and
// enforces the order-value ceiling. Returns the quote for later layers;
// a missing quote degrades those layers rather than blocking the order.
func (v *Validator) checkPrices(ctx context.Context, req types.OrderRequest, kind types.InstrumentKind, result *Result) *types.Quote {
	switch req.Kind {
	case types.OrderLimit:
		if req.LimitPrice <= 0 {
			result.addError("limit order requires a positive limit price")
		}
	case types.OrderStop:
		if req.StopPrice <= 0 {
			result.addError("stop order requires a positive stop price")
		}
	case types.OrderStopLimit:
		if req.LimitPrice <= 0 || req.StopPrice <= 0 {
			result.addError("stop-limit order requires positive limit and stop prices")
		}
	}

	quote, err := v.market.GetQuote(ctx, req.Symbol)
	if err != nil {
		result.addWarning("no quote available for %s, price sanity checks skipped", req.Symbol)
		return nil
	}

	mid := quote.Mid()
	if mid > 0 && req.LimitPrice > 0 {
		if math.Abs(req.LimitPrice-mid)/mid > v.config.PriceSanityBand {
			result.addError("limit price %.2f is more than %.0f%% away from quote %.2f",
				req.LimitPrice, v.config.PriceSanityBand*100, mid)
		}
	}

	estimate := v.estimateValue(req, &quote)
	if estimate > v.config.MaxOrderValue {
		result.addError("order value %.2f exceeds ceiling %.2f", estimate, v.config.MaxOrderValue)
	}
	return &quote
}

func (v *Validator) checkOrderTypeLegality(req types.OrderRequest, result *Result) {
	switch req.TimeInForce {
	case "", types.TIFDay, types.TIFGoodTillCancelled, types.TIFImmediateOrCancel, types.TIFFillOrKill:
	default:
		result.addError("unknown time-in-force %q", req.TimeInForce)
		return
	}

	if req.Kind == types.OrderMarket && req.TimeInForce == types.TIFGoodTillCancelled {
		result.addWarning("market order with GTC time-in-force; fills at a future unknown price")
	}
	if req.Kind == types.OrderMarket && req.TimeInForce == types.TIFFillOrKill {
		result.addError("fill-or-kill is not valid for market orders")
	}
}

func (v *Validator) checkMarketHours(ctx context.Context, req types.OrderRequest, kind types.InstrumentKind, quote *types.Quote, result *Result) {
	if !v.config.MarketHoursOnly {
		return
	}
	hours, err := v.market.GetMarketHours(ctx)
	if err != nil {
		result.addWarning("market hours unavailable, session check skipped")
		return
	}
	if !hours.IsOpen {
		// The executor converts the time-in-force; validation only warns.
		result.addWarning("market is closed; order will be held good-till-cancelled until %s",
			hours.NextOpen.Format(time.RFC3339))
	}
}

func (v *Validator) checkOptionContract(req types.OrderRequest, quote *types.Quote, result *Result) {
	details, err := ParseOptionSymbol(req.Symbol)
	if err != nil {
		result.addError("option symbol decomposition failed: %v", err)
		return
	}

	now := v.now()
	expiryEOD := details.Expiry.Add(24 * time.Hour)
	if expiryEOD.Before(now) {
		result.addError("option contract expired on %s", details.Expiry.Format("2006-01-02"))
		return
	}
	if details.Expiry.Sub(now) < v.config.ImminentExpiry {
		result.addWarning("option expires within %d days (%s)",
			int(v.config.ImminentExpiry.Hours()/24), details.Expiry.Format("2006-01-02"))
	}

	if details.Strike <= 0 {
		result.addError("option strike must be positive, got %.2f", details.Strike)
	}

	if req.Kind == types.OrderMarket && quote != nil && quote.Volume < v.config.IlliquidVolume {
		result.addWarning("market order on illiquid option (volume %.0f); consider a limit order", quote.Volume)
	}
}

// checkFunds rejects buy orders whose estimated value exceeds the
// portfolio's available cash.
func (v *Validator) checkFunds(req types.OrderRequest, quote *types.Quote, portfolio *types.Portfolio, result *Result) {
	if portfolio == nil || req.Side != types.OrderBuy {
		return
	}
	estimate := v.estimateValue(req, quote)
	if estimate <= 0 {
		return
	}
	if estimate > portfolio.CashBalance {
		result.addError("insufficient funds: order value %.2f exceeds available cash %.2f",
			estimate, portfolio.CashBalance)
	}
}

func (v *Validator) estimateValue(req types.OrderRequest, quote *types.Quote) float64 {
	price := req.LimitPrice
	if price <= 0 && quote != nil {
		price = quote.Mid()
	}
	if price <= 0 {
		return 0
	}
	return price * float64(req.Quantity)
}
