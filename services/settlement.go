package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debt-splitter/models"
	"debt-splitter/settlement"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotMember is returned when the caller does not belong to the group.
var ErrNotMember = errors.New("not a member of this group")

// Notifier tells debtors about new debts. Implementations must not block on
// delivery failures.
type Notifier interface {
	NotifyDebts(ctx context.Context, notices []DebtNotice)
}

// Publisher emits settlement events to other services.
type Publisher interface {
	PublishSettlement(ctx context.Context, event SettlementEvent) error
}

type DebtNotice struct {
	Debtor    models.User
	Creditor  string
	Amount    float64
	GroupName string
}

type SettlementService struct {
	store    Store
	cache    *BalanceCache
	notifier Notifier
	events   Publisher
	log      *zap.Logger
}

var settlementService *SettlementService

func NewSettlementService(store Store, cache *BalanceCache, notifier Notifier, events Publisher, log *zap.Logger) *SettlementService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SettlementService{
		store:    store,
		cache:    cache,
		notifier: notifier,
		events:   events,
		log:      log.Named("settlement"),
	}
}

// InitSettlementService installs the instance returned by GetSettlementService.
func InitSettlementService(s *SettlementService) {
	settlementService = s
}

func GetSettlementService() *SettlementService {
	return settlementService
}

// PreviewGroup computes the group split without recording anything.
func (s *SettlementService) PreviewGroup(ctx context.Context, groupID, requester uuid.UUID) (*models.GroupSettlementReport, error) {
	if report, ok := s.cache.Get(ctx, groupID); ok {
		if !report.HasMember(requester) {
			return nil, ErrNotMember
		}
		return report, nil
	}

	gen := s.cache.Generation(ctx, groupID)
	data, err := s.loadForMember(ctx, groupID, requester)
	if err != nil {
		return nil, err
	}

	run, err := splitGroup(data)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, groupID, gen, run.report)
	return run.report, nil
}

// SettleGroup computes the group split and records one debt per transfer.
func (s *SettlementService) SettleGroup(ctx context.Context, groupID, requester uuid.UUID) (*models.GroupSettlementReport, error) {
	data, err := s.loadForMember(ctx, groupID, requester)
	if err != nil {
		return nil, err
	}

	run, err := splitGroup(data)
	if err != nil {
		return nil, err
	}

	debts := make([]models.Debt, 0, len(run.transfers))
	notices := make([]DebtNotice, 0, len(run.transfers))
	needsParty := false
	for _, tr := range run.transfers {
		debtor := run.users[tr.Debtor]
		receiver := run.username(tr.Creditor)
		if tr.Creditor == settlement.PartyID {
			needsParty = true
		}

		debts = append(debts, models.Debt{
			Title:    fmt.Sprintf("Debt to %s", receiver),
			Receiver: receiver,
			Amount:   tr.Amount,
			UserID:   debtor.ID,
			GroupID:  &data.Group.ID,
		})
		notices = append(notices, DebtNotice{
			Debtor:    debtor,
			Creditor:  receiver,
			Amount:    tr.Amount,
			GroupName: data.Group.Name,
		})
	}

	if err := s.store.RecordDebts(ctx, debts, needsParty); err != nil {
		return nil, fmt.Errorf("record debts: %w", err)
	}

	s.log.Info("group settled",
		zap.Stringer("group_id", groupID),
		zap.Int("transfers", len(run.transfers)),
		zap.Bool("party", needsParty))

	s.afterRecord(ctx, newSettlementEvent("group", &groupID, run.transfers), notices)
	return run.report, nil
}

// SplitCosts divides costs evenly between the users in payments (keyed by
// user ID) and records one debt per transfer.
func (s *SettlementService) SplitCosts(ctx context.Context, costs float64, payments map[string]float64) ([]models.DebtResponse, error) {
	ids := make([]uuid.UUID, 0, len(payments))
	byParticipant := make(map[settlement.ParticipantID]float64, len(payments))
	for key, amount := range payments {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("participant %q is not a user id: %w", key, settlement.ErrInvalidInput)
		}
		ids = append(ids, id)
		byParticipant[settlement.ParticipantID(id.String())] = amount
	}
	if len(byParticipant) != len(payments) {
		return nil, fmt.Errorf("participant listed twice: %w", settlement.ErrInvalidInput)
	}

	users, err := s.store.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.IsParty() {
			return nil, fmt.Errorf("the party account cannot take part in a split: %w", settlement.ErrInvalidInput)
		}
	}

	balances, err := settlement.FlatSplit(costs, settlement.PaymentsFromMap(byParticipant))
	if err != nil {
		return nil, err
	}
	transfers, err := settlement.Settle(balances)
	if err != nil {
		return nil, err
	}

	debts := make([]models.Debt, 0, len(transfers))
	notices := make([]DebtNotice, 0, len(transfers))
	resp := make([]models.DebtResponse, 0, len(transfers))
	for _, tr := range transfers {
		debtor := users[uuid.MustParse(string(tr.Debtor))]
		creditor := users[uuid.MustParse(string(tr.Creditor))]

		debts = append(debts, models.Debt{
			Title:    fmt.Sprintf("Debt from User %s to User %s", debtor.Username, creditor.Username),
			Receiver: creditor.Username,
			Amount:   tr.Amount,
			UserID:   debtor.ID,
		})
		notices = append(notices, DebtNotice{Debtor: debtor, Creditor: creditor.Username, Amount: tr.Amount})
		resp = append(resp, models.DebtResponse{Debtor: debtor.ID, Creditor: creditor.ID, Amount: tr.Amount})
	}

	if err := s.store.RecordDebts(ctx, debts, false); err != nil {
		return nil, fmt.Errorf("record debts: %w", err)
	}

	s.log.Info("costs split", zap.Float64("costs", costs), zap.Int("participants", len(payments)), zap.Int("transfers", len(transfers)))

	s.afterRecord(ctx, newSettlementEvent("flat", nil, transfers), notices)
	return resp, nil
}

// InvalidateGroup drops the cached preview after expenses or members change.
func (s *SettlementService) InvalidateGroup(ctx context.Context, groupID uuid.UUID) {
	s.cache.Invalidate(ctx, groupID)
}

func (s *SettlementService) loadForMember(ctx context.Context, groupID, requester uuid.UUID) (*GroupData, error) {
	data, err := s.store.LoadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, m := range data.Members {
		if m.ID == requester {
			return data, nil
		}
	}
	return nil, ErrNotMember
}

func (s *SettlementService) afterRecord(ctx context.Context, event SettlementEvent, notices []DebtNotice) {
	if s.events != nil {
		if err := s.events.PublishSettlement(ctx, event); err != nil {
			s.log.Warn("publishing settlement event", zap.Stringer("event_id", event.ID), zap.Error(err))
		}
	}
	if s.notifier != nil && len(notices) > 0 {
		go s.notifier.NotifyDebts(context.WithoutCancel(ctx), notices)
	}
}

type groupRun struct {
	report    *models.GroupSettlementReport
	transfers []settlement.Transfer
	users     map[settlement.ParticipantID]models.User
}

func (r *groupRun) username(id settlement.ParticipantID) string {
	if id == settlement.PartyID {
		return models.PartyUsername
	}
	return r.users[id].Username
}

func splitGroup(data *GroupData) (*groupRun, error) {
	run := &groupRun{users: make(map[settlement.ParticipantID]models.User, len(data.Members))}

	members := make([]settlement.ParticipantID, 0, len(data.Members))
	for _, u := range data.Members {
		id := participantID(u.ID)
		members = append(members, id)
		run.users[id] = u
	}

	var total float64
	expenses := make([]settlement.Expense, 0, len(data.Expenses))
	for _, e := range data.Expenses {
		exp := settlement.Expense{Amount: e.Amount}
		if e.PaidBy != nil {
			exp.Payer = participantID(*e.PaidBy)
		}
		for _, p := range e.Participants {
			exp.Participants = append(exp.Participants, participantID(p.ID))
		}
		expenses = append(expenses, exp)
		total += e.Amount
	}

	details, err := settlement.GroupSplit(members, expenses)
	if err != nil {
		return nil, err
	}
	run.transfers, err = settlement.SettleWithParty(details, settlement.PartyID)
	if err != nil {
		return nil, err
	}

	report := &models.GroupSettlementReport{
		GroupID:      data.Group.ID,
		GroupName:    data.Group.Name,
		TotalSpent:   total,
		Settlements:  make([]models.Repayment, 0, len(run.transfers)),
		Participants: make([]models.ParticipantSummary, 0, len(details)),
	}
	for _, tr := range run.transfers {
		report.Settlements = append(report.Settlements, models.Repayment{
			Creditor: run.username(tr.Creditor),
			Debtor:   run.username(tr.Debtor),
			Amount:   tr.Amount,
		})
	}
	for _, d := range details {
		report.Participants = append(report.Participants, models.ParticipantSummary{
			UserID:           run.users[d.ID].ID,
			Username:         run.users[d.ID].Username,
			Paid:             d.Paid,
			Share:            d.Share,
			NetBalance:       d.NetBalance,
			RemainingToParty: d.RemainingToParty,
		})
	}
	run.report = report
	return run, nil
}

func participantID(id uuid.UUID) settlement.ParticipantID {
	return settlement.ParticipantID(id.String())
}

// SettlementEvent is published after debts are recorded.
type SettlementEvent struct {
	ID         uuid.UUID       `json:"id"`
	Mode       string          `json:"mode"` // group, flat
	GroupID    *uuid.UUID      `json:"group_id,omitempty"`
	Transfers  []EventTransfer `json:"transfers"`
	RecordedAt time.Time       `json:"recorded_at"`
}

type EventTransfer struct {
	Debtor   string  `json:"debtor"`
	Creditor string  `json:"creditor"`
	Amount   float64 `json:"amount"`
}

func newSettlementEvent(mode string, groupID *uuid.UUID, transfers []settlement.Transfer) SettlementEvent {
	ev := SettlementEvent{
		ID:         uuid.New(),
		Mode:       mode,
		GroupID:    groupID,
		Transfers:  make([]EventTransfer, 0, len(transfers)),
		RecordedAt: time.Now().UTC(),
	}
	for _, tr := range transfers {
		ev.Transfers = append(ev.Transfers, EventTransfer{
			Debtor:   string(tr.Debtor),
			Creditor: string(tr.Creditor),
			Amount:   tr.Amount,
		})
	}
	return ev
}
