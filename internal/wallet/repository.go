package wallet

import (
	"context"

	"github.com/google/uuid"
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

const walletColumns = "id, professional_id, balance_cents, total_spent_cents, created_at, updated_at"

// GetOrCreate returns the professional's wallet, creating an empty one on
// first need. The upsert makes concurrent first calls converge on one row.
func (r *Repository) GetOrCreate(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	row := r.pool.QueryRow(ctx, `
		INSERT INTO wallets (professional_id)
		VALUES ($1)
		ON CONFLICT (professional_id) DO UPDATE SET professional_id = EXCLUDED.professional_id
		RETURNING `+walletColumns+`
	`, professionalID)
	if err := scanWallet(row, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetForUpdate locks the wallet row for the duration of the transaction.
// Every balance mutation goes through this lock, so debits for the same
// wallet are serialized while unrelated wallets stay fully concurrent.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	row := tx.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE
	`, walletID)
	if err := scanWallet(row, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByProfessionalForUpdate creates the wallet if missing, then locks it.
// Call within a transaction.
func (r *Repository) GetByProfessionalForUpdate(ctx context.Context, tx pgx.Tx, professionalID uuid.UUID) (*models.Wallet, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (professional_id) VALUES ($1) ON CONFLICT (professional_id) DO NOTHING
	`, professionalID)
	if err != nil {
		return nil, err
	}
	var w models.Wallet
	row := tx.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE professional_id = $1 FOR UPDATE
	`, professionalID)
	if err := scanWallet(row, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetByProfessional(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	row := r.pool.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE professional_id = $1
	`, professionalID)
	if err := scanWallet(row, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit atomically deducts amount if the balance covers it and bumps
// total_spent_cents. Returns ErrInsufficientBalance when the conditional
// update matches no row. Call after GetForUpdate in the same tx.
func (r *Repository) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amountCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance_cents = balance_cents - $1, total_spent_cents = total_spent_cents + $1, updated_at = now()
		WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amountCents, walletID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, ErrInsufficientBalance
	}
	return newBalance, err
}

// Credit adds amount to the wallet and returns the new balance.
func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amountCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE wallets SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance_cents
	`, amountCents, walletID).Scan(&newBalance)
	return newBalance, err
}

// InsertTransaction appends a ledger row inside the given transaction.
func (r *Repository) InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, wallet_id, tx_type, amount_cents, balance_before_cents, balance_after_cents, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.WalletID, t.Type, t.AmountCents, t.BalanceBeforeCents, t.BalanceAfterCents, t.Description).Scan(&t.CreatedAt)
}

// ListTransactions returns the wallet's ledger in creation order, oldest
// first, so chaining balance_after reproduces the current balance.
func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, wallet_id, tx_type, amount_cents, balance_before_cents, balance_after_cents, description, created_at
		FROM transactions WHERE wallet_id = $1 ORDER BY created_at ASC, id ASC
	`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.AmountCents, &t.BalanceBeforeCents, &t.BalanceAfterCents, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func scanWallet(row pgx.Row, w *models.Wallet) error {
	return row.Scan(&w.ID, &w.ProfessionalID, &w.BalanceCents, &w.TotalSpentCents, &w.CreatedAt, &w.UpdatedAt)
}
