package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/servimatch/backend/internal/lifecycle"
	"github.com/servimatch/backend/internal/middleware"
	"github.com/servimatch/backend/internal/models"
	"github.com/servimatch/backend/internal/platform"
)

// SettingsSource yields the effective platform settings for one request.
type SettingsSource interface {
	Current(ctx context.Context) (platform.Settings, error)
}

// LifecycleHandler serves the request / offer / job / review endpoints.
type LifecycleHandler struct {
	Lifecycle lifecycle.Service
	Settings  SettingsSource
	Logger    *slog.Logger
}

// --- requests ---

type createRequestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateRequest handles POST /v1/requests.
func (h *LifecycleHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	created, err := h.Lifecycle.CreateRequest(r.Context(), id.UserID, req.Title, req.Description)
	if err != nil {
		if errors.Is(err, lifecycle.ErrTitleRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CancelRequest handles POST /v1/requests/{id}/cancel.
func (h *LifecycleHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	requestID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	err := retryConflict(func() error {
		return h.Lifecycle.CancelRequest(r.Context(), id.UserID, requestID)
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.RequestStatusCancelled})
}

// clientRequestDetail is the owner's view: every offer in full.
type clientRequestDetail struct {
	Request *models.Request `json:"request"`
	Offers  []*models.Offer `json:"offers"`
}

// professionalRequestDetail hides competing bids: the caller sees the
// request, the live offer count and their own offer only.
type professionalRequestDetail struct {
	Request    *models.Request `json:"request"`
	OfferCount int             `json:"offer_count"`
	OwnOffer   *models.Offer   `json:"own_offer,omitempty"`
}

// GetRequest handles GET /v1/requests/{id}. The response shape is selected
// by the caller's role, not by ad hoc field filtering.
func (h *LifecycleHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	requestID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	req, err := h.Lifecycle.GetRequest(r.Context(), requestID)
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	offers, err := h.Lifecycle.ListOffersByRequest(r.Context(), requestID)
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}

	switch id.Role {
	case models.RoleClient:
		if req.ClientID != id.UserID {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if offers == nil {
			offers = []*models.Offer{}
		}
		writeJSON(w, http.StatusOK, clientRequestDetail{Request: req, Offers: offers})
	case models.RoleProfessional:
		detail := professionalRequestDetail{Request: req}
		for _, o := range offers {
			if o.Status != models.OfferStatusWithdrawn {
				detail.OfferCount++
			}
			if o.ProfessionalID == id.UserID {
				detail.OwnOffer = o
			}
		}
		writeJSON(w, http.StatusOK, detail)
	default:
		writeError(w, http.StatusForbidden, "forbidden")
	}
}

// ListRequests handles GET /v1/requests: the client's own requests.
func (h *LifecycleHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.Lifecycle.ListRequestsByClient(r.Context(), id.UserID)
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Request{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- offers ---

type createOfferRequest struct {
	PriceCents int64  `json:"price_cents"`
	Message    string `json:"message"`
}

// CreateOffer handles POST /v1/requests/{id}/offers.
func (h *LifecycleHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	requestID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PriceCents <= 0 {
		writeError(w, http.StatusBadRequest, "price_cents must be > 0")
		return
	}
	settings, err := h.Settings.Current(r.Context())
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}

	var offer *models.Offer
	err = retryConflict(func() error {
		var err error
		offer, err = h.Lifecycle.CreateOffer(r.Context(), id.UserID, requestID, req.PriceCents, req.Message, settings)
		return err
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

// AcceptOffer handles POST /v1/offers/{id}/accept.
func (h *LifecycleHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	offerID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var job *models.Job
	err := retryConflict(func() error {
		var err error
		job, err = h.Lifecycle.AcceptOffer(r.Context(), id.UserID, offerID)
		return err
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// RejectOffer handles POST /v1/offers/{id}/reject.
func (h *LifecycleHandler) RejectOffer(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	offerID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	err := retryConflict(func() error {
		return h.Lifecycle.RejectOffer(r.Context(), id.UserID, offerID)
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.OfferStatusRejected})
}

// WithdrawOffer handles POST /v1/offers/{id}/withdraw.
func (h *LifecycleHandler) WithdrawOffer(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	offerID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	err := retryConflict(func() error {
		return h.Lifecycle.WithdrawOffer(r.Context(), id.UserID, offerID)
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.OfferStatusWithdrawn})
}

// --- jobs ---

// StartJob handles POST /v1/jobs/{id}/start.
func (h *LifecycleHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	jobID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	err := retryConflict(func() error {
		return h.Lifecycle.StartJob(r.Context(), id.UserID, jobID)
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.JobStatusInProgress})
}

// CompleteJob handles POST /v1/jobs/{id}/complete.
func (h *LifecycleHandler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	jobID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	var job *models.Job
	err := retryConflict(func() error {
		var err error
		job, err = h.Lifecycle.CompleteJob(r.Context(), id.UserID, jobID)
		return err
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// CancelJob handles POST /v1/jobs/{id}/cancel.
func (h *LifecycleHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	jobID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	err := retryConflict(func() error {
		return h.Lifecycle.CancelJob(r.Context(), id.UserID, jobID)
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.JobStatusCancelled})
}

// DisputeJob handles POST /v1/jobs/{id}/dispute.
func (h *LifecycleHandler) DisputeJob(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	jobID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	err := retryConflict(func() error {
		return h.Lifecycle.DisputeJob(r.Context(), id.UserID, jobID)
	})
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.JobStatusDisputed})
}

// --- reviews ---

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateReview handles POST /v1/jobs/{id}/review.
func (h *LifecycleHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	jobID, ok := pathUUID(r)
	if id == nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	review, err := h.Lifecycle.CreateReview(r.Context(), id.UserID, jobID, req.Rating, req.Comment)
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}
