package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/servimatch/backend/internal/billing"
	"github.com/servimatch/backend/internal/lifecycle"
	"github.com/servimatch/backend/internal/store"
	"github.com/servimatch/backend/internal/wallet"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps core errors onto HTTP statuses: missing or
// foreign entities are 404, failed lifecycle guards are 409 (except the
// wallet gate on offers, which is 402), lock conflicts that survived the
// retry are 409.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var gv *lifecycle.GuardViolation
	switch {
	case errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, billing.ErrOfferNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &gv):
		if gv.Reason == lifecycle.ReasonInsufficientBalance {
			writeError(w, http.StatusPaymentRequired, gv.Reason)
			return
		}
		writeError(w, http.StatusConflict, gv.Reason)
	case errors.Is(err, wallet.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "concurrent update, please retry")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// retryConflict runs fn, repeating it once when a bounded lock wait or
// serialization failure aborted the transaction.
func retryConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, store.ErrConflict) {
		err = fn()
	}
	return err
}

// pathUUID parses the {id} path value set by the Go 1.22 mux patterns.
func pathUUID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
