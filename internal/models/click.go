package models

import (
	"time"

	"github.com/google/uuid"
)

// Click types describing how the client reached the profile.
const (
	ClickTypeProfileView = "PROFILE_VIEW"
	ClickTypeContactView = "CONTACT_VIEW"
)

// ClickEvent records a single chargeable profile view. At most one row
// exists per (offer, professional, UTC calendar day); ClickedOn holds the
// UTC date of the charge window. TransactionID is nil when the charge was
// skipped for insufficient balance — the view is still granted.
type ClickEvent struct {
	ID             uuid.UUID  `json:"id"`
	OfferID        uuid.UUID  `json:"offer_id"`
	ProfessionalID uuid.UUID  `json:"professional_id"`
	ClientID       uuid.UUID  `json:"client_id"`
	ClickType      string     `json:"click_type"`
	TransactionID  *uuid.UUID `json:"transaction_id,omitempty"`
	ClickedOn      time.Time  `json:"clicked_on"`
	ClickedAt      time.Time  `json:"clicked_at"`
}
