// Package notify delivers lifecycle notifications as background jobs.
// Delivery is fire-and-forget: enqueue failures are logged and swallowed so
// they can never abort or delay the core transaction they originated from.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// Notification types emitted by the transactional core.
const (
	TypeOfferReceived = "OFFER_RECEIVED"
	TypeOfferAccepted = "OFFER_ACCEPTED"
	TypeReviewPrompt  = "REVIEW_PROMPT"
	TypeLowBalance    = "LOW_BALANCE"
)

// SendNotificationArgs is the River job payload for one notification.
type SendNotificationArgs struct {
	UserID  uuid.UUID       `json:"user_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (SendNotificationArgs) Kind() string { return "send_notification" }

// InsertFunc enqueues a notification job. Provided by main as a closure over
// river.Client.Insert.
type InsertFunc func(ctx context.Context, args SendNotificationArgs) error

// Enqueuer hands notifications off to the background queue after the core
// transaction has committed.
type Enqueuer struct {
	insert InsertFunc
	logger *slog.Logger
}

func NewEnqueuer(insert InsertFunc, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{insert: insert, logger: logger}
}

// Notify enqueues a (userID, type, payload) message. Never returns an error.
func (e *Enqueuer) Notify(ctx context.Context, userID uuid.UUID, notifType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("marshal notification payload", "type", notifType, "error", err)
		return
	}
	args := SendNotificationArgs{UserID: userID, Type: notifType, Payload: raw}
	if err := e.insert(ctx, args); err != nil {
		e.logger.Error("enqueue notification", "type", notifType, "user_id", userID, "error", err)
	}
}
