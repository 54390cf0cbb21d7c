package engine

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/lang"
)

const maxEventBytes = 16 << 10

type checkResponse struct {
	Allowed    bool              `json:"allowed"`
	Reason     domain.ReasonCode `json:"reason,omitempty"`
	MessageKey string            `json:"message_key,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// CheckHandler — HTTP-вход для хоста: POST /v1/placements/check.
// Хост блокирует постройку, если allowed=false (аналог return true из CanBuild).
type CheckHandler struct {
	guard   *Guard
	catalog *lang.Catalog
	locale  string
	logger  *zap.Logger
}

func NewCheckHandler(guard *Guard, catalog *lang.Catalog, locale string, logger *zap.Logger) *CheckHandler {
	return &CheckHandler{guard: guard, catalog: catalog, locale: locale, logger: logger.Named("check-api")}
}

func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev domain.PlacementEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	d := h.guard.ProcessPlacement(r.Context(), ev)

	resp := checkResponse{Allowed: d.Allowed, Reason: d.Reason}
	if key := d.Reason.MessageKey(); key != "" {
		locale := ev.Locale
		if locale == "" {
			locale = h.locale
		}
		resp.MessageKey = key
		resp.Message = h.catalog.Message(key, locale)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}
