package handler

import (
	"net/http"

	"township-pos-api/internal/service"
	"township-pos-api/pkg/response"
)

// GamificationHandler handles gamification HTTP requests.
type GamificationHandler struct {
	gamificationService *service.GamificationService
}

// NewGamificationHandler creates a new gamification handler.
func NewGamificationHandler(gamificationService *service.GamificationService) *GamificationHandler {
	return &GamificationHandler{
		gamificationService: gamificationService,
	}
}

// Summary handles GET /api/v1/gamification
func (h *GamificationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.gamificationService.Summary(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, summary)
}

// Analytics handles GET /api/v1/gamification/analytics
func (h *GamificationHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.gamificationService.Analytics(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, analytics)
}
