package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// OrderHandle is the broker's acknowledgement of a submitted order
type OrderHandle struct {
	Ref    string // Broker-side order reference
	Broker string // Gateway name that accepted the order
}

// OrderState is the broker-side view of an order, mapped onto the
// engine's status vocabulary by each adapter.
type OrderState struct {
	Ref         string
	Status      types.OrderStatus
	FilledQty   int64
	FilledPrice float64
	UpdatedAt   time.Time
}

// Gateway is the capability consumed per broker. GetOrderStatus must be
// idempotent, and SubmitOrder either returns a handle or a
// distinguishable failure, never a silent partial success.
type Gateway interface {
	Name() string
	GetQuote(ctx context.Context, symbol string) (types.Quote, error)
	SubmitOrder(ctx context.Context, req types.OrderRequest) (OrderHandle, error)
	CancelOrder(ctx context.Context, ref string) error
	GetOrderStatus(ctx context.Context, ref string) (OrderState, error)
}

// Route pairs a primary gateway with an optional fallback for one
// instrument kind.
type Route struct {
	Primary  Gateway
	Fallback Gateway
}

// Registry maps instrument kinds to gateways. Registration is a
// capability lookup: new gateways plug in without executor changes.
type Registry struct {
	mu     sync.RWMutex
	routes map[types.InstrumentKind]Route
	byName map[string]Gateway
}

// NewRegistry creates an empty gateway registry
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[types.InstrumentKind]Route),
		byName: make(map[string]Gateway),
	}
}

// Register installs the primary gateway for an instrument kind.
// fallback may be nil.
func (r *Registry) Register(kind types.InstrumentKind, primary, fallback Gateway) error {
	if primary == nil {
		return fmt.Errorf("primary gateway required for %s", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[kind] = Route{Primary: primary, Fallback: fallback}
	r.byName[strings.ToLower(primary.Name())] = primary
	if fallback != nil {
		r.byName[strings.ToLower(fallback.Name())] = fallback
	}
	return nil
}

// RouteFor returns the gateway route for an instrument kind
func (r *Registry) RouteFor(kind types.InstrumentKind) (Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[kind]
	if !ok {
		return Route{}, fmt.Errorf("no gateway registered for instrument kind %q", kind)
	}
	return route, nil
}

// ByName looks up a registered gateway by name
func (r *Registry) ByName(name string) (Gateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gw, ok := r.byName[strings.ToLower(name)]
	return gw, ok
}
