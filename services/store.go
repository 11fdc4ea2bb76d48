package services

import (
	"context"

	"debt-splitter/models"

	"github.com/google/uuid"
)

// GroupData is everything a group split needs, already ordered: members by
// join time and expenses by creation time.
type GroupData struct {
	Group    models.Group
	Members  []models.User
	Expenses []models.Expense
}

// Store is the persistence collaborator of the settlement service.
// Missing groups or users are reported with settlement.ErrNotFound.
type Store interface {
	LoadGroup(ctx context.Context, groupID uuid.UUID) (*GroupData, error)
	UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
	// RecordDebts inserts all debts in one transaction. With ensureParty set
	// the party account is found or created inside the same transaction.
	RecordDebts(ctx context.Context, debts []models.Debt, ensureParty bool) error
}
