package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Debt is what UserID owes to Receiver.
type Debt struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string     `gorm:"size:100" json:"title"`
	Receiver  string     `gorm:"size:255" json:"receiver"`
	Amount    float64    `json:"amount"`
	UserID    uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	GroupID   *uuid.UUID `gorm:"type:uuid;index" json:"group_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (d *Debt) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type CreateDebtRequest struct {
	Title    string  `json:"title" binding:"required,max=100"`
	Receiver string  `json:"receiver" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	UserID   string  `json:"user_id" binding:"required"`
}

// SplitRequest is the flat split body: one total cost and what each user paid.
type SplitRequest struct {
	Costs    float64            `json:"costs" binding:"gte=0"`
	Payments map[string]float64 `json:"payments" binding:"required,min=1"`
}

type DebtResponse struct {
	Debtor   uuid.UUID `json:"debtor"`
	Creditor uuid.UUID `json:"creditor"`
	Amount   float64   `json:"amount"`
}

type DebtSumResponse struct {
	TotalDebt float64 `json:"total_debt"`
}
