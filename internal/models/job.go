package models

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses. A job only ever exists as the side effect of an offer
// acceptance; COMPLETED, CANCELLED and DISPUTED are terminal.
const (
	JobStatusAccepted   = "ACCEPTED"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusCompleted  = "COMPLETED"
	JobStatusCancelled  = "CANCELLED"
	JobStatusDisputed   = "DISPUTED"
)

// Job mirrors the agreed price of the accepted offer it was created from.
type Job struct {
	ID               uuid.UUID  `json:"id"`
	RequestID        uuid.UUID  `json:"request_id"`
	OfferID          uuid.UUID  `json:"offer_id"`
	ClientID         uuid.UUID  `json:"client_id"`
	ProfessionalID   uuid.UUID  `json:"professional_id"`
	AgreedPriceCents int64      `json:"agreed_price_cents"`
	Status           string     `json:"status"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Review is created at most once per job, and only once the job is COMPLETED.
type Review struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	ClientID  uuid.UUID `json:"client_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
