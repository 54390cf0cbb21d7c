package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/rules"
)

// RuleService — то, что handler-у нужно от service.RuleService.
type RuleService interface {
	Get() domain.RuleConfig
	Replace(ctx context.Context, keys []string) (domain.RuleConfig, error)
	Add(ctx context.Context, key string) (domain.RuleConfig, error)
	Remove(ctx context.Context, key string) (domain.RuleConfig, error)
	Reload(ctx context.Context) (domain.RuleConfig, error)
}

type RulesHandler struct {
	service RuleService
	logger  *zap.Logger
}

func NewRulesHandler(s RuleService, logger *zap.Logger) *RulesHandler {
	return &RulesHandler{service: s, logger: logger.Named("rules-api")}
}

type targetsRequest struct {
	Targets []string `json:"targets"`
}

type targetRequest struct {
	Target string `json:"target"`
}

// Get возвращает текущий снапшот в формате файла конфигурации.
// GET /v1/rules
func (h *RulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Get())
}

// Replace заменяет список целиком. Пустой массив: ничего не блокируем.
// PUT /v1/rules/targets
func (h *RulesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req targetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Targets == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cfg, err := h.service.Replace(r.Context(), req.Targets)
	h.respond(w, cfg, err)
}

// Add добавляет одну цель в конец списка.
// POST /v1/rules/targets
func (h *RulesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cfg, err := h.service.Add(r.Context(), req.Target)
	h.respond(w, cfg, err)
}

// Remove удаляет цель. Отсутствующая цель: не ошибка.
// DELETE /v1/rules/targets/{key}
func (h *RulesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Remove(r.Context(), chi.URLParam(r, "key"))
	h.respond(w, cfg, err)
}

// Reload перечитывает хранилище.
// POST /v1/rules/reload
func (h *RulesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Reload(r.Context())
	h.respond(w, cfg, err)
}

func (h *RulesHandler) respond(w http.ResponseWriter, cfg domain.RuleConfig, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, cfg)
	case errors.Is(err, rules.ErrEmptyTargetKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rules.ErrConfigLoad):
		http.Error(w, "Failed to read rules, current rules kept", http.StatusInternalServerError)
	case errors.Is(err, rules.ErrConfigSave):
		http.Error(w, "Failed to persist rules", http.StatusInternalServerError)
	default:
		h.logger.Error("rules request failed", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
