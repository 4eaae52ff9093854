package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/servimatch/backend/internal/middleware"
	"github.com/servimatch/backend/internal/wallet"
)

// WalletHandler serves the professional's prepaid wallet endpoints.
type WalletHandler struct {
	Wallet wallet.Service
	Logger *slog.Logger
}

// GetWallet handles GET /v1/wallet. Creates the wallet lazily on first read.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wal, err := h.Wallet.GetOrCreate(r.Context(), id.UserID)
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wal)
}

// ListTransactions handles GET /v1/wallet/transactions: the full ledger for
// the caller's wallet, in creation order.
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txs, err := h.Wallet.ListTransactions(r.Context(), id.UserID)
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type depositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

// Deposit handles POST /v1/wallet/deposit. Payment capture happens upstream;
// this endpoint books the credit into the ledger.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	tx, err := h.Wallet.Deposit(r.Context(), id.UserID, req.AmountCents, "Wallet deposit")
	if err != nil {
		respondServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
