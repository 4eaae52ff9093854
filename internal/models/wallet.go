package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types. AmountCents is always stored as a positive magnitude;
// the type fixes the direction: DEBIT subtracts from the balance,
// DEPOSIT and REFUND add to it.
const (
	TransactionDeposit = "DEPOSIT"
	TransactionDebit   = "DEBIT"
	TransactionRefund  = "REFUND"
)

// Wallet is a professional's prepaid balance, created lazily on first need.
// BalanceCents is only ever mutated through wallet.Service.ApplyTransaction
// and must equal the sum of signed transaction deltas at all times.
type Wallet struct {
	ID              uuid.UUID `json:"id"`
	ProfessionalID  uuid.UUID `json:"professional_id"`
	BalanceCents    int64     `json:"balance_cents"`
	TotalSpentCents int64     `json:"total_spent_cents"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted; replaying them in created_at order reproduces the wallet balance.
type Transaction struct {
	ID                 uuid.UUID `json:"id"`
	WalletID           uuid.UUID `json:"wallet_id"`
	Type               string    `json:"type"`
	AmountCents        int64     `json:"amount_cents"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
}

// SignedDelta returns the delta this transaction applies to the wallet
// balance: negative for DEBIT, positive otherwise.
func (t *Transaction) SignedDelta() int64 {
	if t.Type == TransactionDebit {
		return -t.AmountCents
	}
	return t.AmountCents
}
