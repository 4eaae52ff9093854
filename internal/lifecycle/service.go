package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servimatch/backend/internal/models"
	"github.com/servimatch/backend/internal/notify"
	"github.com/servimatch/backend/internal/platform"
)

// Store is the lifecycle storage interface for the service.
type Store interface {
	GetAccountStatus(ctx context.Context, accountID uuid.UUID) (string, error)

	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	GetRequestForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Request, error)
	UpdateRequestStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	ListRequestsByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Request, error)

	InsertOffer(ctx context.Context, tx pgx.Tx, o *models.Offer, maxOffers int) error
	GetOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	GetOfferForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Offer, error)
	UpdateOfferStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Offer, error)

	InsertJob(ctx context.Context, tx pgx.Tx, j *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetJobForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, completedAt *time.Time) error

	InsertReview(ctx context.Context, tx pgx.Tx, rev *models.Review) error
}

// Ledger is the read-only wallet view used by the minimum-balance guard.
// The guard is a point-in-time gate, not a reservation: a professional can
// pass it and still fail a later click charge.
type Ledger interface {
	GetOrCreate(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error)
}

// Notifier hands lifecycle events off to the notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType string, payload any)
}

// TxRunner runs fn inside a single database transaction.
type TxRunner func(ctx context.Context, fn func(tx pgx.Tx) error) error

type Service interface {
	CreateRequest(ctx context.Context, clientID uuid.UUID, title, description string) (*models.Request, error)
	CancelRequest(ctx context.Context, clientID, requestID uuid.UUID) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListRequestsByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Request, error)
	ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Offer, error)

	CreateOffer(ctx context.Context, professionalID, requestID uuid.UUID, priceCents int64, message string, settings platform.Settings) (*models.Offer, error)
	AcceptOffer(ctx context.Context, clientID, offerID uuid.UUID) (*models.Job, error)
	RejectOffer(ctx context.Context, clientID, offerID uuid.UUID) error
	WithdrawOffer(ctx context.Context, professionalID, offerID uuid.UUID) error

	StartJob(ctx context.Context, professionalID, jobID uuid.UUID) error
	CompleteJob(ctx context.Context, professionalID, jobID uuid.UUID) (*models.Job, error)
	CancelJob(ctx context.Context, callerID, jobID uuid.UUID) error
	DisputeJob(ctx context.Context, callerID, jobID uuid.UUID) error

	CreateReview(ctx context.Context, clientID, jobID uuid.UUID, rating int, comment string) (*models.Review, error)
}

type service struct {
	store    Store
	ledger   Ledger
	notifier Notifier
	runTx    TxRunner
}

func NewService(store Store, ledger Ledger, notifier Notifier, runTx TxRunner) Service {
	return &service{store: store, ledger: ledger, notifier: notifier, runTx: runTx}
}

var _ Service = (*service)(nil)

// --- requests ---

func (s *service) CreateRequest(ctx context.Context, clientID uuid.UUID, title, description string) (*models.Request, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	req := &models.Request{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Status:      models.RequestStatusOpen,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// CancelRequest cancels the client's own request. Permitted only from OPEN.
func (s *service) CancelRequest(ctx context.Context, clientID, requestID uuid.UUID) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		req, err := s.store.GetRequestForUpdate(ctx, tx, requestID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if req.ClientID != clientID {
			return ErrNotFound
		}
		if req.Status != models.RequestStatusOpen {
			return guard(ReasonRequestNotOpen)
		}
		return s.store.UpdateRequestStatus(ctx, tx, requestID, models.RequestStatusCancelled)
	})
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return req, nil
}

func (s *service) ListRequestsByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Request, error) {
	return s.store.ListRequestsByClient(ctx, clientID)
}

func (s *service) ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Offer, error) {
	return s.store.ListOffersByRequest(ctx, requestID)
}

// --- offers ---

// CreateOffer admits a professional's bid after the guards pass: the
// account is ACTIVE, the wallet clears the minimum-to-offer threshold, the
// request is still OPEN, no prior offer exists from this professional, and
// the request is under its offer cap. The last three are re-checked under
// the request row lock in the same transaction as the insert.
func (s *service) CreateOffer(ctx context.Context, professionalID, requestID uuid.UUID, priceCents int64, message string, settings platform.Settings) (*models.Offer, error) {
	if priceCents <= 0 {
		return nil, errors.New("price must be positive")
	}
	status, err := s.store.GetAccountStatus(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if status != models.AccountStatusActive {
		return nil, guard(ReasonProfessionalInactive)
	}
	w, err := s.ledger.GetOrCreate(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if w.BalanceCents < settings.MinOfferBalanceCents {
		return nil, guard(ReasonInsufficientBalance)
	}

	offer := &models.Offer{
		ID:             uuid.New(),
		RequestID:      requestID,
		ProfessionalID: professionalID,
		PriceCents:     priceCents,
		Message:        message,
		Status:         models.OfferStatusPending,
	}
	var clientID uuid.UUID
	err = s.runTx(ctx, func(tx pgx.Tx) error {
		req, err := s.store.GetRequestForUpdate(ctx, tx, requestID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if req.Status != models.RequestStatusOpen {
			return guard(ReasonRequestNotOpen)
		}
		clientID = req.ClientID
		return s.store.InsertOffer(ctx, tx, offer, settings.MaxOffersPerRequest)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, clientID, notify.TypeOfferReceived, map[string]any{
		"request_id":  requestID,
		"offer_id":    offer.ID,
		"price_cents": priceCents,
	})
	return offer, nil
}

// AcceptOffer atomically marks the offer ACCEPTED, creates the job
// mirroring the agreed price, and moves the request to IN_PROGRESS.
// Competing PENDING offers on the request are left untouched. Acceptance is
// not wallet-gated: a professional with an empty wallet still gets the job.
func (s *service) AcceptOffer(ctx context.Context, clientID, offerID uuid.UUID) (*models.Job, error) {
	var job *models.Job
	var professionalID uuid.UUID
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		offer, err := s.store.GetOfferForUpdate(ctx, tx, offerID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		req, err := s.store.GetRequestForUpdate(ctx, tx, offer.RequestID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if req.ClientID != clientID {
			return ErrNotFound
		}
		if offer.Status != models.OfferStatusPending {
			return guard(ReasonOfferNotPending)
		}
		if req.Status != models.RequestStatusOpen {
			return guard(ReasonRequestNotOpen)
		}

		if err := s.store.UpdateOfferStatus(ctx, tx, offerID, models.OfferStatusAccepted); err != nil {
			return err
		}
		professionalID = offer.ProfessionalID
		job = &models.Job{
			ID:               uuid.New(),
			RequestID:        offer.RequestID,
			OfferID:          offer.ID,
			ClientID:         req.ClientID,
			ProfessionalID:   offer.ProfessionalID,
			AgreedPriceCents: offer.PriceCents,
			Status:           models.JobStatusAccepted,
		}
		if err := s.store.InsertJob(ctx, tx, job); err != nil {
			return err
		}
		return s.store.UpdateRequestStatus(ctx, tx, offer.RequestID, models.RequestStatusInProgress)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, professionalID, notify.TypeOfferAccepted, map[string]any{
		"offer_id": offerID,
		"job_id":   job.ID,
	})
	return job, nil
}

func (s *service) RejectOffer(ctx context.Context, clientID, offerID uuid.UUID) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		offer, err := s.store.GetOfferForUpdate(ctx, tx, offerID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		req, err := s.store.GetRequest(ctx, offer.RequestID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if req.ClientID != clientID {
			return ErrNotFound
		}
		if offer.Status != models.OfferStatusPending {
			return guard(ReasonOfferNotPending)
		}
		return s.store.UpdateOfferStatus(ctx, tx, offerID, models.OfferStatusRejected)
	})
}

// WithdrawOffer lets the professional pull a pending offer back, but only
// while the request is still OPEN.
func (s *service) WithdrawOffer(ctx context.Context, professionalID, offerID uuid.UUID) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		offer, err := s.store.GetOfferForUpdate(ctx, tx, offerID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if offer.ProfessionalID != professionalID {
			return ErrNotFound
		}
		if offer.Status != models.OfferStatusPending {
			return guard(ReasonOfferNotPending)
		}
		req, err := s.store.GetRequest(ctx, offer.RequestID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if req.Status != models.RequestStatusOpen {
			return guard(ReasonRequestNotOpen)
		}
		return s.store.UpdateOfferStatus(ctx, tx, offerID, models.OfferStatusWithdrawn)
	})
}

// --- jobs ---

func (s *service) StartJob(ctx context.Context, professionalID, jobID uuid.UUID) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		job, err := s.store.GetJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if job.ProfessionalID != professionalID {
			return ErrNotFound
		}
		if job.Status != models.JobStatusAccepted {
			return guard(ReasonJobNotAccepted)
		}
		return s.store.UpdateJobStatus(ctx, tx, jobID, models.JobStatusInProgress, nil)
	})
}

// CompleteJob stamps completed_at, moves the owning request to COMPLETED
// and unlocks review creation. Only valid from IN_PROGRESS.
func (s *service) CompleteJob(ctx context.Context, professionalID, jobID uuid.UUID) (*models.Job, error) {
	var job *models.Job
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		var err error
		job, err = s.store.GetJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if job.ProfessionalID != professionalID {
			return ErrNotFound
		}
		if job.Status != models.JobStatusInProgress {
			return guard(ReasonJobNotInProgress)
		}
		now := time.Now().UTC()
		if err := s.store.UpdateJobStatus(ctx, tx, jobID, models.JobStatusCompleted, &now); err != nil {
			return err
		}
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &now
		return s.store.UpdateRequestStatus(ctx, tx, job.RequestID, models.RequestStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, job.ClientID, notify.TypeReviewPrompt, map[string]any{
		"job_id":     jobID,
		"request_id": job.RequestID,
	})
	return job, nil
}

// CancelJob terminates the job from any non-terminal state. Only the job's
// own client or professional may invoke it.
func (s *service) CancelJob(ctx context.Context, callerID, jobID uuid.UUID) error {
	return s.terminateJob(ctx, callerID, jobID, models.JobStatusCancelled)
}

// DisputeJob flags the job for dispute resolution from any non-terminal
// state. Only the job's own client or professional may invoke it.
func (s *service) DisputeJob(ctx context.Context, callerID, jobID uuid.UUID) error {
	return s.terminateJob(ctx, callerID, jobID, models.JobStatusDisputed)
}

func (s *service) terminateJob(ctx context.Context, callerID, jobID uuid.UUID, status string) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		job, err := s.store.GetJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if job.ClientID != callerID && job.ProfessionalID != callerID {
			return ErrNotFound
		}
		switch job.Status {
		case models.JobStatusCompleted, models.JobStatusCancelled, models.JobStatusDisputed:
			return guard(ReasonJobFinished)
		}
		return s.store.UpdateJobStatus(ctx, tx, jobID, status, job.CompletedAt)
	})
}

// --- reviews ---

func (s *service) CreateReview(ctx context.Context, clientID, jobID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, guard(ReasonInvalidRating)
	}
	review := &models.Review{
		ID:       uuid.New(),
		JobID:    jobID,
		ClientID: clientID,
		Rating:   rating,
		Comment:  comment,
	}
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		job, err := s.store.GetJobForUpdate(ctx, tx, jobID)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if job.ClientID != clientID {
			return ErrNotFound
		}
		if job.Status != models.JobStatusCompleted {
			return guard(ReasonJobNotCompleted)
		}
		return s.store.InsertReview(ctx, tx, review)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func notFoundIfNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
