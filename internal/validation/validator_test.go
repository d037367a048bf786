package validation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/options-risk-engine/internal/marketdata"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

func testMarket() *marketdata.StaticProvider {
	m := marketdata.NewStaticProvider()
	m.SetQuote(types.Quote{Symbol: "AAPL", Bid: 149.5, Ask: 150.5, Last: 150.0, Volume: 5_000_000})
	m.SetQuote(types.Quote{Symbol: "AAPL261218C00200000", Bid: 4.9, Ask: 5.1, Last: 5.0, Volume: 500})
	m.SetQuote(types.Quote{Symbol: "AAPL261218C00250000", Bid: 1.0, Ask: 1.2, Last: 1.1, Volume: 10})
	return m
}

func testValidator(market marketdata.Provider) *Validator {
	return NewValidator(DefaultConfig(), market)
}

func fundedPortfolio(cash float64) *types.Portfolio {
	return &types.Portfolio{ID: "val-test", CashBalance: cash, TotalValue: cash}
}

func buyRequest(symbol string, qty int64) types.OrderRequest {
	return types.OrderRequest{
		Symbol:      symbol,
		Side:        types.OrderBuy,
		Quantity:    qty,
		Kind:        types.OrderMarket,
		TimeInForce: types.TIFDay,
		PortfolioID: "val-test",
	}
}

func hasMatch(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// TestValidate_CleanOrder tests that a well-formed order passes with no noise
func TestValidate_CleanOrder(t *testing.T) {
	v := testValidator(testMarket())
	result := v.Validate(context.Background(), buyRequest("AAPL", 100), fundedPortfolio(100_000))

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

// TestValidate_RequiredFieldsShortCircuit tests that structural
// problems stop before any market lookups
func TestValidate_RequiredFieldsShortCircuit(t *testing.T) {
	v := testValidator(testMarket())
	result := v.Validate(context.Background(), types.OrderRequest{}, fundedPortfolio(100_000))

	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "symbol is required"))
	assert.True(t, hasMatch(result.Errors, "portfolio id is required"))
}

// TestValidate_ErrorsAccumulate tests that later layers still run so
// operators see every problem at once
func TestValidate_ErrorsAccumulate(t *testing.T) {
	v := testValidator(testMarket())
	req := buyRequest("AAPL", -5)
	req.Kind = types.OrderLimit // missing limit price

	result := v.Validate(context.Background(), req, fundedPortfolio(100_000))
	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "quantity must be a positive integer"))
	assert.True(t, hasMatch(result.Errors, "limit order requires a positive limit price"))
}

// TestValidate_BadSymbol tests rejection of malformed symbols
func TestValidate_BadSymbol(t *testing.T) {
	v := testValidator(testMarket())
	result := v.Validate(context.Background(), buyRequest("aapl!!", 100), fundedPortfolio(100_000))

	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "invalid symbol"))
}

// TestValidate_InsufficientFunds tests that a buy larger than cash is an error
func TestValidate_InsufficientFunds(t *testing.T) {
	v := testValidator(testMarket())
	result := v.Validate(context.Background(), buyRequest("AAPL", 1000), fundedPortfolio(10_000))

	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "insufficient funds"))
}

// TestValidate_SellNeedsNoFunds tests that sells skip the cash check
func TestValidate_SellNeedsNoFunds(t *testing.T) {
	v := testValidator(testMarket())
	req := buyRequest("AAPL", 1000)
	req.Side = types.OrderSell

	result := v.Validate(context.Background(), req, fundedPortfolio(0))
	assert.True(t, result.Valid)
}

// TestValidate_LimitPriceSanityBand tests the 50% band around the quote
func TestValidate_LimitPriceSanityBand(t *testing.T) {
	v := testValidator(testMarket())
	req := buyRequest("AAPL", 10)
	req.Kind = types.OrderLimit
	req.LimitPrice = 500.0 // quote mid is 150

	result := v.Validate(context.Background(), req, fundedPortfolio(100_000))
	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "away from quote"))
}

// TestValidate_MarketFOKIllegal tests the market + fill-or-kill combination
func TestValidate_MarketFOKIllegal(t *testing.T) {
	v := testValidator(testMarket())
	req := buyRequest("AAPL", 100)
	req.TimeInForce = types.TIFFillOrKill

	result := v.Validate(context.Background(), req, fundedPortfolio(100_000))
	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "fill-or-kill is not valid for market orders"))
}

// TestValidate_MarketGTCWarns tests that market + GTC is flagged but allowed
func TestValidate_MarketGTCWarns(t *testing.T) {
	v := testValidator(testMarket())
	req := buyRequest("AAPL", 100)
	req.TimeInForce = types.TIFGoodTillCancelled

	result := v.Validate(context.Background(), req, fundedPortfolio(100_000))
	assert.True(t, result.Valid)
	assert.True(t, hasMatch(result.Warnings, "market order with GTC"))
}

// TestValidate_ClosedMarketWarnsOnly tests that a closed session is a
// warning, never a rejection
func TestValidate_ClosedMarketWarnsOnly(t *testing.T) {
	market := testMarket()
	market.SetMarketHours(types.MarketHours{IsOpen: false, NextOpen: time.Now().Add(12 * time.Hour)})
	v := testValidator(market)

	result := v.Validate(context.Background(), buyRequest("AAPL", 100), fundedPortfolio(100_000))
	assert.True(t, result.Valid)
	assert.True(t, hasMatch(result.Warnings, "market is closed"))
}

// TestValidate_ExpiredOption tests rejection of expired contracts
func TestValidate_ExpiredOption(t *testing.T) {
	market := testMarket()
	market.SetQuote(types.Quote{Symbol: "AAPL200117C00200000", Bid: 0.1, Ask: 0.2, Volume: 1000})
	v := testValidator(market)

	result := v.Validate(context.Background(), buyRequest("AAPL200117C00200000", 1), fundedPortfolio(100_000))
	assert.False(t, result.Valid)
	assert.True(t, hasMatch(result.Errors, "expired"))
}

// TestValidate_ImminentExpiryWarns tests the near-expiry warning window
func TestValidate_ImminentExpiryWarns(t *testing.T) {
	market := testMarket()
	soon := time.Now().Add(3 * 24 * time.Hour)
	symbol := "AAPL" + soon.Format("060102") + "C00200000"
	market.SetQuote(types.Quote{Symbol: symbol, Bid: 1.0, Ask: 1.2, Volume: 1000})
	v := testValidator(market)

	result := v.Validate(context.Background(), buyRequest(symbol, 1), fundedPortfolio(100_000))
	assert.True(t, result.Valid)
	assert.True(t, hasMatch(result.Warnings, "expires within"))
}

// TestValidate_IlliquidOptionMarketOrder tests the thin-volume warning
func TestValidate_IlliquidOptionMarketOrder(t *testing.T) {
	v := testValidator(testMarket())
	result := v.Validate(context.Background(), buyRequest("AAPL261218C00250000", 1), fundedPortfolio(100_000))

	assert.True(t, result.Valid)
	assert.True(t, hasMatch(result.Warnings, "illiquid"))
}

// TestValidate_MissingQuoteDegrades tests that an unknown symbol with a
// valid format degrades to warnings instead of blocking
func TestValidate_MissingQuoteDegrades(t *testing.T) {
	v := testValidator(testMarket())
	result := v.Validate(context.Background(), buyRequest("MSFT", 100), fundedPortfolio(100_000))

	assert.True(t, result.Valid)
	assert.True(t, hasMatch(result.Warnings, "no quote available"))
}
