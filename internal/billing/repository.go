package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servimatch/backend/internal/models"
	"github.com/servimatch/backend/internal/store"
)

// ErrDuplicateClick is returned when a click event already exists for the
// (offer, professional, day) window. The unique index is the backstop
// against concurrent inserts racing past the pre-check.
var ErrDuplicateClick = errors.New("click already recorded for this window")

// ClickOffer is the slice of an offer the billing engine needs.
type ClickOffer struct {
	ID             uuid.UUID
	RequestID      uuid.UUID
	ProfessionalID uuid.UUID
	Status         string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetOfferForClick(ctx context.Context, offerID uuid.UUID) (*ClickOffer, error) {
	var o ClickOffer
	err := r.pool.QueryRow(ctx, `
		SELECT id, request_id, professional_id, status FROM offers WHERE id = $1
	`, offerID).Scan(&o.ID, &o.RequestID, &o.ProfessionalID, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindClickEvent returns the click event for the charge window, or nil if
// none exists yet.
func (r *Repository) FindClickEvent(ctx context.Context, offerID, professionalID uuid.UUID, day time.Time) (*models.ClickEvent, error) {
	var e models.ClickEvent
	err := r.pool.QueryRow(ctx, `
		SELECT id, offer_id, professional_id, client_id, click_type, transaction_id, clicked_on, clicked_at
		FROM click_events
		WHERE offer_id = $1 AND professional_id = $2 AND clicked_on = $3
	`, offerID, professionalID, day).Scan(&e.ID, &e.OfferID, &e.ProfessionalID, &e.ClientID, &e.ClickType, &e.TransactionID, &e.ClickedOn, &e.ClickedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// InsertClickEvent claims the charge window. A unique violation on
// (offer_id, professional_id, clicked_on) maps to ErrDuplicateClick.
func (r *Repository) InsertClickEvent(ctx context.Context, tx pgx.Tx, e *models.ClickEvent) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO click_events (id, offer_id, professional_id, client_id, click_type, transaction_id, clicked_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING clicked_at
	`, e.ID, e.OfferID, e.ProfessionalID, e.ClientID, e.ClickType, e.TransactionID, e.ClickedOn).Scan(&e.ClickedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateClick
		}
		return err
	}
	return nil
}

// LinkTransaction attaches the debit transaction to the click event inside
// the same database transaction that created both.
func (r *Repository) LinkTransaction(ctx context.Context, tx pgx.Tx, clickEventID, transactionID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE click_events SET transaction_id = $1 WHERE id = $2
	`, transactionID, clickEventID)
	return err
}
