package models

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. CANCELLED and COMPLETED are terminal.
const (
	RequestStatusOpen       = "OPEN"
	RequestStatusInProgress = "IN_PROGRESS"
	RequestStatusCompleted  = "COMPLETED"
	RequestStatusCancelled  = "CANCELLED"
)

// Offer statuses. PENDING is the only non-terminal state.
const (
	OfferStatusPending   = "PENDING"
	OfferStatusAccepted  = "ACCEPTED"
	OfferStatusRejected  = "REJECTED"
	OfferStatusWithdrawn = "WITHDRAWN"
)

// Request is a client's job posting. It owns zero or more offers.
type Request struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Offer is a professional's bid on a request. At most one offer exists per
// (request, professional) pair.
type Offer struct {
	ID             uuid.UUID `json:"id"`
	RequestID      uuid.UUID `json:"request_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	PriceCents     int64     `json:"price_cents"`
	Message        string    `json:"message"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
