package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servimatch/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new account. New accounts start ACTIVE.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name, role string) (*models.Account, error) {
	acc := &models.Account{
		Email:  email,
		Name:   name,
		Role:   role,
		Status: models.AccountStatusActive,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, email, passwordHash, name, role, acc.Status).Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetByEmail returns the account and its password hash for login.
// Returns (nil, "", nil) when no account has this email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, string, error) {
	var acc models.Account
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, status, password_hash, created_at, updated_at
		FROM accounts WHERE email = $1
	`, email).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.Role, &acc.Status, &passwordHash, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &acc, passwordHash, nil
}
