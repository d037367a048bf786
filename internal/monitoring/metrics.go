package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Order flow metrics
	ordersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_orders_submitted_total",
			Help: "Total number of orders submitted to brokers",
		},
		[]string{"symbol", "side"},
	)

	ordersFilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_orders_filled_total",
			Help: "Total number of orders filled",
		},
		[]string{"symbol"},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_orders_rejected_total",
			Help: "Total number of orders rejected",
		},
		[]string{"symbol"},
	)

	fillValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_fill_value_total",
			Help: "Cumulative filled notional value in account currency",
		},
		[]string{"symbol"},
	)

	gatewayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_gateway_failures_total",
			Help: "Broker gateway submission failures",
		},
		[]string{"gateway"},
	)

	// Risk metrics
	portfolioVaR95 = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_portfolio_var95",
			Help: "One-day 95% value at risk per portfolio",
		},
		[]string{"portfolio"},
	)

	portfolioValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_portfolio_value",
			Help: "Total portfolio value including cash",
		},
		[]string{"portfolio"},
	)

	alertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_alerts_raised_total",
			Help: "Risk alerts raised by severity",
		},
		[]string{"severity"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_errors_total",
			Help: "Errors by component and category",
		},
		[]string{"component", "category"},
	)
)

func init() {
	prometheus.MustRegister(
		ordersSubmitted,
		ordersFilled,
		ordersRejected,
		fillValue,
		gatewayFailures,
		portfolioVaR95,
		portfolioValue,
		alertsRaised,
		errorsTotal,
	)
}

// RecordOrderSubmitted increments the submitted order counter
func RecordOrderSubmitted(symbol, side string) {
	ordersSubmitted.WithLabelValues(symbol, side).Inc()
}

// RecordOrderFilled records a fill and its notional value
func RecordOrderFilled(symbol string, value float64) {
	ordersFilled.WithLabelValues(symbol).Inc()
	fillValue.WithLabelValues(symbol).Add(value)
}

// RecordOrderRejected increments the rejected order counter
func RecordOrderRejected(symbol string) {
	ordersRejected.WithLabelValues(symbol).Inc()
}

// RecordGatewayFailure increments the gateway failure counter
func RecordGatewayFailure(gateway string) {
	gatewayFailures.WithLabelValues(gateway).Inc()
}

// RecordPortfolioRisk updates the risk gauges for a portfolio
func RecordPortfolioRisk(portfolioID string, var95, totalValue float64) {
	portfolioVaR95.WithLabelValues(portfolioID).Set(var95)
	portfolioValue.WithLabelValues(portfolioID).Set(totalValue)
}

// RecordAlert increments the alert counter for a severity
func RecordAlert(severity string) {
	alertsRaised.WithLabelValues(severity).Inc()
}

// RecordError increments the error counter
func RecordError(component, category string) {
	errorsTotal.WithLabelValues(component, category).Inc()
}

// MetricsHandler returns the Prometheus scrape handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
