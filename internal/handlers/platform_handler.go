package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/servimatch/backend/internal/platform"
)

// PlatformHandler serves the admin settings endpoints.
type PlatformHandler struct {
	Platform *platform.Service
	Logger   *slog.Logger
}

// GetSettings handles GET /v1/platform/settings.
func (h *PlatformHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Platform.Current(r.Context())
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PATCH /v1/platform/settings. Fields omitted from
// the body keep their current value.
func (h *PlatformHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.Platform.Current(r.Context())
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	next := current
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.Platform.Update(r.Context(), next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, next)
}
