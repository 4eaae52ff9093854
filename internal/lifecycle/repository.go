package lifecycle

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

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const (
	requestColumns = "id, client_id, title, description, status, created_at, updated_at"
	offerColumns   = "id, request_id, professional_id, price_cents, message, status, created_at, updated_at"
	jobColumns     = "id, request_id, offer_id, client_id, professional_id, agreed_price_cents, status, completed_at, created_at, updated_at"
)

// --- accounts ---

func (r *Repository) GetAccountStatus(ctx context.Context, accountID uuid.UUID) (string, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM accounts WHERE id = $1`, accountID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// --- requests ---

func (r *Repository) CreateRequest(ctx context.Context, req *models.Request) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO requests (id, client_id, title, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, req.ID, req.ClientID, req.Title, req.Description, req.Status).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	if err := scanRequest(row, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestForUpdate locks the request row. The lock scopes the
// offer-count check and every status transition to one request, leaving
// unrelated requests fully concurrent.
func (r *Repository) GetRequestForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
	if err := scanRequest(row, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repository) UpdateRequestStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE requests SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

func (r *Repository) ListRequestsByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM requests WHERE client_id = $1 ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Request
	for rows.Next() {
		var req models.Request
		if err := scanRequest(rows, &req); err != nil {
			return nil, err
		}
		list = append(list, &req)
	}
	return list, rows.Err()
}

// --- offers ---

// InsertOffer admits the offer only while the request holds fewer than
// maxOffers live offers (withdrawn ones free their slot). The count runs in
// the same statement as the insert, and the caller already holds the
// request row lock, so concurrent submissions cannot overshoot the limit.
// The unique index on (request_id, professional_id) backs the
// one-offer-per-professional rule.
func (r *Repository) InsertOffer(ctx context.Context, tx pgx.Tx, o *models.Offer, maxOffers int) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO offers (id, request_id, professional_id, price_cents, message, status)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE (SELECT count(*) FROM offers WHERE request_id = $2 AND status <> 'WITHDRAWN') < $7
		RETURNING created_at, updated_at
	`, o.ID, o.RequestID, o.ProfessionalID, o.PriceCents, o.Message, o.Status, maxOffers).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return guard(ReasonOfferLimitReached)
		}
		if store.IsUniqueViolation(err) {
			return guard(ReasonDuplicateOffer)
		}
		return err
	}
	return nil
}

func (r *Repository) GetOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var o models.Offer
	row := r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	if err := scanOffer(row, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetOfferForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Offer, error) {
	var o models.Offer
	row := tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id)
	if err := scanOffer(row, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) UpdateOfferStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE offers SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

func (r *Repository) ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE request_id = $1 ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Offer
	for rows.Next() {
		var o models.Offer
		if err := scanOffer(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// --- jobs ---

// InsertJob creates the job derived from an accepted offer. Unique indexes
// on offer_id and request_id guarantee at most one job per acceptance even
// if a guard check is ever bypassed.
func (r *Repository) InsertJob(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	return tx.QueryRow(ctx, `
		INSERT INTO jobs (id, request_id, offer_id, client_id, professional_id, agreed_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, j.ID, j.RequestID, j.OfferID, j.ClientID, j.ProfessionalID, j.AgreedPriceCents, j.Status).Scan(&j.CreatedAt, &j.UpdatedAt)
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err := scanJob(row, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repository) GetJobForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	row := tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	if err := scanJob(row, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repository) UpdateJobStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, completedAt *time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET status = $1, completed_at = $2, updated_at = now() WHERE id = $3
	`, status, completedAt, id)
	return err
}

// --- reviews ---

// InsertReview appends the job's single review; the unique index on job_id
// rejects a second one.
func (r *Repository) InsertReview(ctx context.Context, tx pgx.Tx, rev *models.Review) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO reviews (id, job_id, client_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, rev.ID, rev.JobID, rev.ClientID, rev.Rating, rev.Comment).Scan(&rev.CreatedAt)
	if err != nil && store.IsUniqueViolation(err) {
		return guard(ReasonReviewExists)
	}
	return err
}

// --- scan helpers ---

func scanRequest(row pgx.Row, req *models.Request) error {
	return row.Scan(&req.ID, &req.ClientID, &req.Title, &req.Description, &req.Status, &req.CreatedAt, &req.UpdatedAt)
}

func scanOffer(row pgx.Row, o *models.Offer) error {
	return row.Scan(&o.ID, &o.RequestID, &o.ProfessionalID, &o.PriceCents, &o.Message, &o.Status, &o.CreatedAt, &o.UpdatedAt)
}

func scanJob(row pgx.Row, j *models.Job) error {
	return row.Scan(&j.ID, &j.RequestID, &j.OfferID, &j.ClientID, &j.ProfessionalID, &j.AgreedPriceCents, &j.Status, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
}
