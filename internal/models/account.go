package models

import (
	"time"

	"github.com/google/uuid"
)

// Account role and status enums. Admin accounts are seeded directly in the
// database; self-registration only issues client and professional roles.
const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"

	AccountStatusActive    = "ACTIVE"
	AccountStatusSuspended = "SUSPENDED"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
