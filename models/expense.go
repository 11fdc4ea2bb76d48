package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Expense struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID      uuid.UUID  `gorm:"type:uuid;index" json:"group_id"`
	PaidBy       *uuid.UUID `gorm:"type:uuid" json:"paid_by"`
	Description  string     `gorm:"size:255" json:"description,omitempty"`
	Amount       float64    `gorm:"not null" json:"amount"`
	Participants []User     `gorm:"many2many:expense_participants" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Request structs
type CreateExpenseRequest struct {
	TotalCost    float64      `json:"total_cost" binding:"gte=0"`
	Description  string       `json:"description"`
	Payers       []PayerInput `json:"payers" binding:"required,min=1,dive"`
	Participants []string     `json:"participants"` // users who didn't pay
}

// PayerInput.Amount is accepted for compatibility; the whole expense is
// attributed to the first payer.
type PayerInput struct {
	UserID string  `json:"user_id" binding:"required"`
	Amount float64 `json:"amount" binding:"gte=0"`
}

// Response
type ExpenseResponse struct {
	ID           uuid.UUID   `json:"id"`
	GroupID      uuid.UUID   `json:"group_id"`
	PaidBy       *uuid.UUID  `json:"paid_by"`
	Description  string      `json:"description,omitempty"`
	Amount       float64     `json:"amount"`
	Participants []uuid.UUID `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (e *Expense) ToResponse() ExpenseResponse {
	ids := make([]uuid.UUID, 0, len(e.Participants))
	for _, p := range e.Participants {
		ids = append(ids, p.ID)
	}
	return ExpenseResponse{
		ID:           e.ID,
		GroupID:      e.GroupID,
		PaidBy:       e.PaidBy,
		Description:  e.Description,
		Amount:       e.Amount,
		Participants: ids,
		CreatedAt:    e.CreatedAt,
	}
}
