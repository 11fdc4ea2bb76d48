package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reserved account that collects the unpaid part of a group's costs.
const (
	PartyUsername = "party"
	PartyEmail    = "party@example.com"
	// not a valid bcrypt hash, so nobody can log in as the party account
	PartyPasswordHash = "!"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;size:100" json:"email"`
	PasswordHash string    `gorm:"not null;size:100" json:"-"`
	FCMToken     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsParty reports whether u is the reserved party account.
func (u *User) IsParty() bool {
	return u.Username == PartyUsername
}

// Response struct (what we return to clients)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// UserDebtTotal is one row of GET /api/users/debts
type UserDebtTotal struct {
	Username  string  `json:"username"`
	TotalDebt float64 `json:"total_debt"`
}
