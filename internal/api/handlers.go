package api

import (
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/ducminhle1904/options-risk-engine/internal/engine"
	"github.com/ducminhle1904/options-risk-engine/internal/errors"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type handlers struct {
	engine *engine.Engine
	log    *logger.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error categories onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	category := errors.ErrorCategoryFatal
	switch {
	case errors.IsCategory(err, errors.ErrorCategoryValidation):
		status = http.StatusBadRequest
		category = errors.ErrorCategoryValidation
	case errors.IsCategory(err, errors.ErrorCategoryDataUnavailable):
		status = http.StatusServiceUnavailable
		category = errors.ErrorCategoryDataUnavailable
	case errors.IsCategory(err, errors.ErrorCategoryTimeout):
		status = http.StatusGatewayTimeout
		category = errors.ErrorCategoryTimeout
	}
	monitoring.RecordError("api", string(category))
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *handlers) getPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.engine.GetPortfolio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

func (h *handlers) sizePosition(w http.ResponseWriter, r *http.Request) {
	var signal types.Signal
	if err := json.NewDecoder(r.Body).Decode(&signal); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid signal payload: " + err.Error()})
		return
	}
	result, err := h.engine.SizePosition(r.Context(), signal, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) getRisk(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.engine.GetPortfolioRisk(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.ListOrders(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *handlers) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.engine.GetActiveAlerts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *handlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order payload: " + err.Error()})
		return
	}
	order, err := h.engine.SubmitOrder(r.Context(), req)
	if err != nil {
		// A rejected order still carries the audit record back.
		if order != nil {
			writeJSON(w, http.StatusUnprocessableEntity, order)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *handlers) validateOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order payload: " + err.Error()})
		return
	}
	result, err := h.engine.ValidateOrder(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.engine.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CancelOrder(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *handlers) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.AcknowledgeAlert(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
