package database

import (
	"context"
	"errors"
	"fmt"

	"debt-splitter/models"
	"debt-splitter/services"
	"debt-splitter/settlement"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed services.Store.
type Store struct {
	db *gorm.DB
}

var _ services.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadGroup(ctx context.Context, groupID uuid.UUID) (*services.GroupData, error) {
	db := s.db.WithContext(ctx)

	var group models.Group
	if err := db.First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, settlement.ErrNotFound)
		}
		return nil, fmt.Errorf("load group: %w", err)
	}

	var memberships []models.GroupMember
	err := db.Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at ASC, user_id ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	var expenses []models.Expense
	err = db.Preload("Participants").
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	data := &services.GroupData{
		Group:    group,
		Members:  make([]models.User, 0, len(memberships)),
		Expenses: expenses,
	}
	for _, m := range memberships {
		data.Members = append(data.Members, m.User)
	}
	return data, nil
}

func (s *Store) UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("user %s: %w", id, settlement.ErrNotFound)
		}
	}
	return out, nil
}

func (s *Store) RecordDebts(ctx context.Context, debts []models.Debt, ensureParty bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ensureParty {
			if _, err := FindOrCreateParty(tx); err != nil {
				return err
			}
		}
		if len(debts) == 0 {
			return nil
		}
		if err := tx.Create(&debts).Error; err != nil {
			return fmt.Errorf("insert debts: %w", err)
		}
		return nil
	})
}

// FindOrCreateParty returns the party account, creating it if needed. The
// insert ignores conflicts so concurrent callers end up with the same row.
func FindOrCreateParty(tx *gorm.DB) (*models.User, error) {
	party := models.User{
		Username:     models.PartyUsername,
		Email:        models.PartyEmail,
		PasswordHash: models.PartyPasswordHash,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&party).Error; err != nil {
		return nil, fmt.Errorf("create party account: %w", err)
	}

	var existing models.User
	if err := tx.Where("username = ?", models.PartyUsername).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("load party account: %w", err)
	}
	return &existing, nil
}
