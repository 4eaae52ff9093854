package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servimatch/backend/internal/models"
	"github.com/servimatch/backend/internal/notify"
	"github.com/servimatch/backend/internal/platform"
	"github.com/servimatch/backend/internal/wallet"
)

// ErrOfferNotFound is returned when the clicked offer does not exist.
var ErrOfferNotFound = errors.New("offer not found")

// ClickResult reports the outcome of one recorded click.
type ClickResult struct {
	ClickEventID    uuid.UUID `json:"click_event_id"`
	Charged         bool      `json:"charged"`
	AlreadyCounted  bool      `json:"already_counted"`
	ChargeSkipped   bool      `json:"charge_skipped"`
	NewBalanceCents int64     `json:"new_balance_cents"`
}

// Store is the click-event storage interface for the billing service.
type Store interface {
	GetOfferForClick(ctx context.Context, offerID uuid.UUID) (*ClickOffer, error)
	FindClickEvent(ctx context.Context, offerID, professionalID uuid.UUID, day time.Time) (*models.ClickEvent, error)
	InsertClickEvent(ctx context.Context, tx pgx.Tx, e *models.ClickEvent) error
	LinkTransaction(ctx context.Context, tx pgx.Tx, clickEventID, transactionID uuid.UUID) error
}

// Ledger is the slice of the wallet service the billing engine charges
// through.
type Ledger interface {
	GetOrCreate(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error)
	ApplyTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, txType string, amountCents int64, description string) (*models.Transaction, error)
}

// Notifier hands lifecycle events off to the notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType string, payload any)
}

// TxRunner runs fn inside a single database transaction.
type TxRunner func(ctx context.Context, fn func(tx pgx.Tx) error) error

type Service interface {
	RecordClickAndCharge(ctx context.Context, offerID, clientID uuid.UUID, clickType string, settings platform.Settings) (*ClickResult, error)
}

type service struct {
	store    Store
	ledger   Ledger
	notifier Notifier
	runTx    TxRunner
	now      func() time.Time
}

func NewService(store Store, ledger Ledger, notifier Notifier, runTx TxRunner) Service {
	return &service{store: store, ledger: ledger, notifier: notifier, runTx: runTx, now: time.Now}
}

var _ Service = (*service)(nil)

// chargeWindow is the UTC calendar day the click falls into. UTC is the
// fixed day-boundary policy so the once-per-day rule is reproducible
// regardless of server timezone.
func chargeWindow(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordClickAndCharge records a client's profile view reached through an
// offer and debits the per-click fee at most once per (offer, UTC day).
// Insufficient balance never blocks the view: the click event is persisted
// without a transaction link and the result carries ChargeSkipped.
func (s *service) RecordClickAndCharge(ctx context.Context, offerID, clientID uuid.UUID, clickType string, settings platform.Settings) (*ClickResult, error) {
	if clickType == "" {
		clickType = models.ClickTypeProfileView
	}

	offer, err := s.store.GetOfferForClick(ctx, offerID)
	if err != nil {
		return nil, err
	}
	w, err := s.ledger.GetOrCreate(ctx, offer.ProfessionalID)
	if err != nil {
		return nil, err
	}

	window := chargeWindow(s.now())

	// Primary defense against double charging: page reloads and rapid
	// repeat clicks collapse onto the existing event for the window.
	if existing, err := s.store.FindClickEvent(ctx, offerID, offer.ProfessionalID, window); err != nil {
		return nil, err
	} else if existing != nil {
		return s.idempotentResult(ctx, offer.ProfessionalID, existing)
	}

	click := &models.ClickEvent{
		ID:             uuid.New(),
		OfferID:        offerID,
		ProfessionalID: offer.ProfessionalID,
		ClientID:       clientID,
		ClickType:      clickType,
		ClickedOn:      window,
	}
	result := &ClickResult{ClickEventID: click.ID}

	err = s.runTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.InsertClickEvent(ctx, tx, click); err != nil {
			return err
		}
		txn, err := s.ledger.ApplyTransaction(ctx, tx, w.ID, models.TransactionDebit, settings.ClickFeeCents, "Profile view fee")
		if err != nil {
			if errors.Is(err, wallet.ErrInsufficientBalance) {
				// The view is still granted; the click stays unlinked.
				result.ChargeSkipped = true
				return nil
			}
			return err
		}
		if err := s.store.LinkTransaction(ctx, tx, click.ID, txn.ID); err != nil {
			return err
		}
		result.Charged = true
		result.NewBalanceCents = txn.BalanceAfterCents
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateClick) {
			// Lost the insert race to a concurrent click in the same window.
			existing, ferr := s.store.FindClickEvent(ctx, offerID, offer.ProfessionalID, window)
			if ferr != nil || existing == nil {
				return nil, err
			}
			return s.idempotentResult(ctx, offer.ProfessionalID, existing)
		}
		return nil, err
	}

	if result.ChargeSkipped {
		if fresh, err := s.ledger.GetOrCreate(ctx, offer.ProfessionalID); err == nil {
			result.NewBalanceCents = fresh.BalanceCents
		}
		s.notifier.Notify(ctx, offer.ProfessionalID, notify.TypeLowBalance, map[string]any{
			"offer_id":       offerID,
			"required_cents": settings.ClickFeeCents,
			"balance_cents":  result.NewBalanceCents,
			"charge_skipped": true,
		})
	} else if result.NewBalanceCents < settings.LowBalanceThresholdCents {
		s.notifier.Notify(ctx, offer.ProfessionalID, notify.TypeLowBalance, map[string]any{
			"balance_cents":   result.NewBalanceCents,
			"threshold_cents": settings.LowBalanceThresholdCents,
		})
	}
	return result, nil
}

// idempotentResult reports an already-counted click without charging.
func (s *service) idempotentResult(ctx context.Context, professionalID uuid.UUID, existing *models.ClickEvent) (*ClickResult, error) {
	w, err := s.ledger.GetOrCreate(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return &ClickResult{
		ClickEventID:    existing.ID,
		Charged:         false,
		AlreadyCounted:  true,
		NewBalanceCents: w.BalanceCents,
	}, nil
}
