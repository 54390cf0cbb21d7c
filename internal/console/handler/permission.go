package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/nosigns-guard/internal/console/service"
)

type PermissionService interface {
	List(ctx context.Context) ([]string, error)
	Grant(ctx context.Context, actorID string) error
	Revoke(ctx context.Context, actorID string) error
}

type PermissionHandler struct {
	service PermissionService
}

func NewPermissionHandler(s PermissionService) *PermissionHandler {
	return &PermissionHandler{service: s}
}

// List — игроки с bypass.
// GET /v1/permissions
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.List(r.Context())
	if err != nil {
		writeGrantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"actors": ids})
}

// Grant выдает nosignsondeployables.ignore.
// POST /v1/permissions/{actor}
func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Grant(r.Context(), chi.URLParam(r, "actor")); err != nil {
		writeGrantError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Revoke отзывает грант.
// DELETE /v1/permissions/{actor}
func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "actor")); err != nil {
		writeGrantError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeGrantError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrGrantsReadOnly) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, "Failed to update grants: "+err.Error(), http.StatusInternalServerError)
}
