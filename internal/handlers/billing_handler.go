package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/servimatch/backend/internal/billing"
	"github.com/servimatch/backend/internal/middleware"
	"github.com/servimatch/backend/internal/models"
)

// BillingHandler serves the pay-per-click endpoint.
type BillingHandler struct {
	Billing  billing.Service
	Settings SettingsSource
	Logger   *slog.Logger
}

type clickRequest struct {
	ClickType string `json:"click_type"`
}

// RecordClick handles POST /v1/offers/{id}/click: a client opened the
// professional's profile through this offer. The view is always granted;
// whether the professional was charged is reported in the result.
func (h *BillingHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	offerID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}

	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ClickType == "" {
		req.ClickType = models.ClickTypeProfileView
	}
	if req.ClickType != models.ClickTypeProfileView && req.ClickType != models.ClickTypeContactView {
		writeError(w, http.StatusBadRequest, "invalid click_type")
		return
	}

	settings, err := h.Settings.Current(r.Context())
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}

	var res *billing.ClickResult
	err = retryConflict(func() error {
		var err error
		res, err = h.Billing.RecordClickAndCharge(r.Context(), offerID, id.UserID, req.ClickType, settings)
		return err
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
