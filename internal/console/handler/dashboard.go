package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

type StatsService interface {
	GetStats(ctx context.Context) (*domain.GuardStats, error)
}

type DashboardHandler struct {
	service StatsService
}

func NewDashboardHandler(s StatsService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStats — сводка для дашборда: версия правил, число целей, топ отказов.
// GET /v1/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
