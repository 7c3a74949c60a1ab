package handler

import (
	"net/http"

	"township-pos-api/internal/service"
	"township-pos-api/pkg/response"
)

// CreditHandler handles credit score HTTP requests.
type CreditHandler struct {
	creditService *service.CreditService
}

// NewCreditHandler creates a new credit handler.
func NewCreditHandler(creditService *service.CreditService) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
	}
}

// Score handles GET /api/v1/credit-score
func (h *CreditHandler) Score(w http.ResponseWriter, r *http.Request) {
	report, err := h.creditService.Report(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, report)
}
