package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ducminhle1904/options-risk-engine/internal/engine"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/monitoring"
)

// NewRouter wires the operator HTTP surface over the engine facade.
//
//	/api/v1/
//	  /portfolios/{id}            GET    portfolio state
//	  /portfolios/{id}/size       POST   size a signal
//	  /portfolios/{id}/risk       GET    risk snapshot
//	  /portfolios/{id}/orders     GET    order history
//	  /portfolios/{id}/alerts     GET    active alerts
//	  /orders                     POST   submit order
//	  /orders/validate            POST   validate without submitting
//	  /orders/{id}                GET    order state
//	  /orders/{id}                DELETE cancel order
//	  /alerts/{id}/ack            POST   acknowledge alert
//	/healthz                      GET    health check
//	/metrics                      GET    prometheus scrape
func NewRouter(eng *engine.Engine, health *monitoring.HealthChecker, log *logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	h := &handlers{engine: eng, log: log}

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/portfolios/{id}", h.getPortfolio).Methods(http.MethodGet)
	v1.HandleFunc("/portfolios/{id}/size", h.sizePosition).Methods(http.MethodPost)
	v1.HandleFunc("/portfolios/{id}/risk", h.getRisk).Methods(http.MethodGet)
	v1.HandleFunc("/portfolios/{id}/orders", h.listOrders).Methods(http.MethodGet)
	v1.HandleFunc("/portfolios/{id}/alerts", h.listAlerts).Methods(http.MethodGet)
	v1.HandleFunc("/orders", h.submitOrder).Methods(http.MethodPost)
	v1.HandleFunc("/orders/validate", h.validateOrder).Methods(http.MethodPost)
	v1.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{id}", h.cancelOrder).Methods(http.MethodDelete)
	v1.HandleFunc("/alerts/{id}/ack", h.acknowledgeAlert).Methods(http.MethodPost)

	router.Handle("/healthz", health).Methods(http.MethodGet)
	router.Handle("/metrics", monitoring.MetricsHandler()).Methods(http.MethodGet)

	return router
}
