package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// BybitConfig holds configuration for the Bybit gateway
type BybitConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // Demo trading environment (paper fills on real quotes)
}

// BybitGateway adapts Bybit's unified trading API to the Gateway
// capability. Option contracts route through the "option" category,
// everything else through "spot".
type BybitGateway struct {
	httpClient *bybit_api.Client
	demo       bool
	testnet    bool

	// Bybit cancel/status calls need category+symbol alongside the
	// order id, so remember them per submitted ref.
	mu   sync.Mutex
	refs map[string]submittedRef
}

type submittedRef struct {
	category string
	symbol   string
}

// NewBybitGateway creates a Bybit-backed gateway
func NewBybitGateway(config BybitConfig) *BybitGateway {
	var baseURL string
	if config.Demo {
		baseURL = "https://api-demo.bybit.com"
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &BybitGateway{
		httpClient: httpClient,
		demo:       config.Demo,
		testnet:    config.Testnet,
		refs:       make(map[string]submittedRef),
	}
}

// Name returns the gateway name
func (g *BybitGateway) Name() string { return "bybit" }

// GetQuote fetches the latest ticker for a symbol
func (g *BybitGateway) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	category := categoryFor(symbol)
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	resp, err := g.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return types.Quote{}, fmt.Errorf("failed to get ticker for %s: %w", symbol, err)
	}
	if err := checkResponse(resp); err != nil {
		return types.Quote{}, err
	}

	var tickerResult struct {
		List []struct {
			Symbol    string `json:"symbol"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
			Volume24h string `json:"volume24h"`
			MarkIv    string `json:"markIv"` // Options only
		} `json:"list"`
	}
	if err := decodeResult(resp, &tickerResult); err != nil {
		return types.Quote{}, fmt.Errorf("failed to decode ticker result: %w", err)
	}
	if len(tickerResult.List) == 0 {
		return types.Quote{}, fmt.Errorf("no ticker data for %s", symbol)
	}

	t := tickerResult.List[0]
	return types.Quote{
		Symbol:            symbol,
		Bid:               parseFloat(t.Bid1Price),
		Ask:               parseFloat(t.Ask1Price),
		Last:              parseFloat(t.LastPrice),
		Volume:            parseFloat(t.Volume24h),
		ImpliedVolatility: parseFloat(t.MarkIv),
		Timestamp:         time.Now(),
	}, nil
}

// SubmitOrder places an order through Bybit's unified trading API
func (g *BybitGateway) SubmitOrder(ctx context.Context, req types.OrderRequest) (OrderHandle, error) {
	category := categoryFor(req.Symbol)
	apiParams := map[string]interface{}{
		"category":  category,
		"symbol":    req.Symbol,
		"side":      bybitSide(req.Side),
		"orderType": bybitOrderType(req.Kind),
		"qty":       strconv.FormatInt(req.Quantity, 10),
	}
	if req.Kind == types.OrderLimit || req.Kind == types.OrderStopLimit {
		apiParams["price"] = strconv.FormatFloat(req.LimitPrice, 'f', -1, 64)
	}
	if req.Kind == types.OrderStop || req.Kind == types.OrderStopLimit {
		apiParams["triggerPrice"] = strconv.FormatFloat(req.StopPrice, 'f', -1, 64)
	}
	if tif := bybitTimeInForce(req.TimeInForce); tif != "" {
		apiParams["timeInForce"] = tif
	}

	resp, err := g.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return OrderHandle{}, fmt.Errorf("failed to place order: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return OrderHandle{}, fmt.Errorf("order rejected: %w", err)
	}

	var orderResult struct {
		OrderID string `json:"orderId"`
	}
	if err := decodeResult(resp, &orderResult); err != nil {
		return OrderHandle{}, fmt.Errorf("failed to decode order result: %w", err)
	}
	if orderResult.OrderID == "" {
		return OrderHandle{}, fmt.Errorf("order response missing orderId")
	}

	g.mu.Lock()
	g.refs[orderResult.OrderID] = submittedRef{category: category, symbol: req.Symbol}
	g.mu.Unlock()

	return OrderHandle{Ref: orderResult.OrderID, Broker: g.Name()}, nil
}

// CancelOrder cancels an order by broker reference
func (g *BybitGateway) CancelOrder(ctx context.Context, ref string) error {
	sub, err := g.lookupRef(ref)
	if err != nil {
		return err
	}

	params := map[string]interface{}{
		"category": sub.category,
		"symbol":   sub.symbol,
		"orderId":  ref,
	}
	resp, err := g.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", ref, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("cancel rejected: %w", err)
	}
	return nil
}

// GetOrderStatus retrieves the current broker-side order state
func (g *BybitGateway) GetOrderStatus(ctx context.Context, ref string) (OrderState, error) {
	sub, err := g.lookupRef(ref)
	if err != nil {
		return OrderState{}, err
	}

	params := map[string]interface{}{
		"category": sub.category,
		"symbol":   sub.symbol,
		"orderId":  ref,
	}
	resp, err := g.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return OrderState{}, fmt.Errorf("failed to get order status: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return OrderState{}, err
	}

	var listResult struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderStatus string `json:"orderStatus"`
			CumExecQty  string `json:"cumExecQty"`
			AvgPrice    string `json:"avgPrice"`
			UpdatedTime string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := decodeResult(resp, &listResult); err != nil {
		return OrderState{}, fmt.Errorf("failed to decode status result: %w", err)
	}

	for _, o := range listResult.List {
		if o.OrderID != ref {
			continue
		}
		return OrderState{
			Ref:         ref,
			Status:      mapBybitStatus(o.OrderStatus),
			FilledQty:   int64(parseFloat(o.CumExecQty)),
			FilledPrice: parseFloat(o.AvgPrice),
			UpdatedAt:   parseTimestamp(o.UpdatedTime),
		}, nil
	}
	return OrderState{}, fmt.Errorf("order %s not found", ref)
}

// checkResponse rejects nil and non-zero RetCode server responses
func checkResponse(resp *bybit_api.ServerResponse) error {
	if resp == nil {
		return fmt.Errorf("empty server response")
	}
	if resp.RetCode != 0 {
		return fmt.Errorf("API error: %s (code: %d)", resp.RetMsg, resp.RetCode)
	}
	return nil
}

// decodeResult re-marshals the untyped Result payload into target
func decodeResult(resp *bybit_api.ServerResponse, target interface{}) error {
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (g *BybitGateway) lookupRef(ref string) (submittedRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.refs[ref]
	if !ok {
		return submittedRef{}, fmt.Errorf("unknown order reference %s", ref)
	}
	return sub, nil
}

// categoryFor maps engine symbols onto Bybit categories. OCC-style
// option symbols are longer than any spot pair.
func categoryFor(symbol string) string {
	if len(symbol) > 12 {
		return "option"
	}
	return "spot"
}

func bybitSide(side types.OrderSide) string {
	if side == types.OrderSell {
		return "Sell"
	}
	return "Buy"
}

func bybitOrderType(kind types.OrderKind) string {
	switch kind {
	case types.OrderLimit, types.OrderStopLimit:
		return "Limit"
	default:
		return "Market"
	}
}

func bybitTimeInForce(tif types.TimeInForce) string {
	switch tif {
	case types.TIFGoodTillCancelled:
		return "GTC"
	case types.TIFImmediateOrCancel:
		return "IOC"
	case types.TIFFillOrKill:
		return "FOK"
	default:
		return ""
	}
}

func mapBybitStatus(status string) types.OrderStatus {
	switch status {
	case "New", "Untriggered", "Created":
		return types.OrderPending
	case "PartiallyFilled":
		return types.OrderPartiallyFilled
	case "Filled":
		return types.OrderFilled
	case "Cancelled", "Deactivated":
		return types.OrderCancelled
	case "Rejected":
		return types.OrderRejected
	default:
		return types.OrderPending
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseTimestamp(ms string) time.Time {
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil || v == 0 {
		return time.Now()
	}
	return time.UnixMilli(v)
}
