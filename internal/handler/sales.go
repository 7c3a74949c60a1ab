package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"township-pos-api/internal/model"
	"township-pos-api/internal/service"
	"township-pos-api/pkg/apierror"
	"township-pos-api/pkg/response"
)

// SalesHandler handles sales-related HTTP requests.
type SalesHandler struct {
	salesService *service.SalesService
	gamification *service.GamificationService
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *service.SalesService, gamification *service.GamificationService) *SalesHandler {
	return &SalesHandler{
		salesService: salesService,
		gamification: gamification,
	}
}

// Sell handles POST /api/v1/sell
func (h *SalesHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req model.SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	sale, err := h.salesService.ProcessSale(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}

	if h.gamification != nil {
		h.gamification.InvalidateAnalytics(r.Context())
	}

	response.Created(w, sale)
}

// History handles GET /api/v1/sales-history?limit=
func (h *SalesHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(w, apierror.BadRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	sales, err := h.salesService.History(r.Context(), limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, sales, limit, int64(len(sales)))
}
