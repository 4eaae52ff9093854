package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servimatch/backend/internal/models"
)

// ErrInsufficientBalance is returned when a DEBIT exceeds the wallet balance
// at the moment of commit. It must never abort an in-progress profile view;
// the billing engine downgrades it to an uncharged click.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrNotFound is returned when the wallet does not exist.
var ErrNotFound = errors.New("wallet not found")

// ErrInvalidAmount is returned for zero or negative transaction amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// Store is the minimal ledger storage interface for the wallet service.
type Store interface {
	GetOrCreate(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error)
	GetByProfessional(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*models.Wallet, error)
	GetByProfessionalForUpdate(ctx context.Context, tx pgx.Tx, professionalID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amountCents int64) (int64, error)
	Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amountCents int64) (int64, error)
	InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID) ([]*models.Transaction, error)
}

// TxRunner runs fn inside a single database transaction. Wired by main as a
// closure over store.WithTx.
type TxRunner func(ctx context.Context, fn func(tx pgx.Tx) error) error

type Service interface {
	GetOrCreate(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error)
	ApplyTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, txType string, amountCents int64, description string) (*models.Transaction, error)
	Deposit(ctx context.Context, professionalID uuid.UUID, amountCents int64, description string) (*models.Transaction, error)
	Refund(ctx context.Context, professionalID uuid.UUID, amountCents int64, description string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, professionalID uuid.UUID) ([]*models.Transaction, error)
}

type service struct {
	store Store
	runTx TxRunner
}

func NewService(store Store, runTx TxRunner) Service {
	return &service{store: store, runTx: runTx}
}

var _ Service = (*service)(nil)

func (s *service) GetOrCreate(ctx context.Context, professionalID uuid.UUID) (*models.Wallet, error) {
	return s.store.GetOrCreate(ctx, professionalID)
}

// ApplyTransaction is the single mutation path for wallet balances. It locks
// the wallet row, applies the typed delta and appends the ledger entry with
// before/after balance snapshots, all inside the caller's transaction. For
// DEBIT the balance check holds at the moment of commit because the row lock
// serializes concurrent callers for the same wallet.
func (s *service) ApplyTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, txType string, amountCents int64, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.store.GetForUpdate(ctx, tx, walletID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var newBalance int64
	switch txType {
	case models.TransactionDebit:
		if w.BalanceCents < amountCents {
			return nil, ErrInsufficientBalance
		}
		newBalance, err = s.store.Debit(ctx, tx, walletID, amountCents)
	case models.TransactionDeposit, models.TransactionRefund:
		newBalance, err = s.store.Credit(ctx, tx, walletID, amountCents)
	default:
		return nil, fmt.Errorf("unknown transaction type %q", txType)
	}
	if err != nil {
		return nil, err
	}

	t := &models.Transaction{
		ID:                 uuid.New(),
		WalletID:           walletID,
		Type:               txType,
		AmountCents:        amountCents,
		BalanceBeforeCents: w.BalanceCents,
		BalanceAfterCents:  newBalance,
		Description:        description,
	}
	if err := s.store.InsertTransaction(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Deposit credits the professional's wallet in its own transaction, creating
// the wallet lazily. Called by the top-up flow after an external payment
// confirmation.
func (s *service) Deposit(ctx context.Context, professionalID uuid.UUID, amountCents int64, description string) (*models.Transaction, error) {
	return s.applyStandalone(ctx, professionalID, models.TransactionDeposit, amountCents, description)
}

// Refund credits the professional's wallet with a REFUND entry.
func (s *service) Refund(ctx context.Context, professionalID uuid.UUID, amountCents int64, description string) (*models.Transaction, error) {
	return s.applyStandalone(ctx, professionalID, models.TransactionRefund, amountCents, description)
}

func (s *service) applyStandalone(ctx context.Context, professionalID uuid.UUID, txType string, amountCents int64, description string) (*models.Transaction, error) {
	var created *models.Transaction
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		w, err := s.store.GetByProfessionalForUpdate(ctx, tx, professionalID)
		if err != nil {
			return err
		}
		created, err = s.ApplyTransaction(ctx, tx, w.ID, txType, amountCents, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ListTransactions(ctx context.Context, professionalID uuid.UUID) ([]*models.Transaction, error) {
	w, err := s.store.GetOrCreate(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, w.ID)
}
