package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"debt-splitter/models"
	"debt-splitter/settlement"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	aliceID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bobID   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	carolID = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	partyID = uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	tripID  = uuid.MustParse("10000000-0000-0000-0000-000000000001")
)

type fakeStore struct {
	mu          sync.Mutex
	groups      map[uuid.UUID]*GroupData
	users       map[uuid.UUID]models.User
	recorded    []models.Debt
	ensureParty bool
	recordErr   error
	loads       int
	onLoad      func()
}

func newFakeStore() *fakeStore {
	users := map[uuid.UUID]models.User{
		aliceID: {ID: aliceID, Username: "alice", Email: "alice@example.com"},
		bobID:   {ID: bobID, Username: "bob", Email: "bob@example.com"},
		carolID: {ID: carolID, Username: "carol", Email: "carol@example.com"},
		partyID: {ID: partyID, Username: models.PartyUsername, Email: models.PartyEmail},
	}
	return &fakeStore{groups: map[uuid.UUID]*GroupData{}, users: users}
}

func (f *fakeStore) LoadGroup(_ context.Context, groupID uuid.UUID) (*GroupData, error) {
	if f.onLoad != nil {
		f.onLoad()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	data, ok := f.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, settlement.ErrNotFound)
	}
	return data, nil
}

func (f *fakeStore) UsersByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	for _, id := range ids {
		u, ok := f.users[id]
		if !ok {
			return nil, fmt.Errorf("user %s: %w", id, settlement.ErrNotFound)
		}
		out[id] = u
	}
	return out, nil
}

func (f *fakeStore) RecordDebts(_ context.Context, debts []models.Debt, ensureParty bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, debts...)
	f.ensureParty = f.ensureParty || ensureParty
	return nil
}

type fakeNotifier struct {
	notices chan []DebtNotice
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notices: make(chan []DebtNotice, 4)}
}

func (n *fakeNotifier) NotifyDebts(_ context.Context, notices []DebtNotice) {
	n.notices <- notices
}

func (n *fakeNotifier) wait(t *testing.T) []DebtNotice {
	t.Helper()
	select {
	case got := <-n.notices:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no notification sent")
		return nil
	}
}

type fakePublisher struct {
	events []SettlementEvent
	err    error
}

func (p *fakePublisher) PublishSettlement(_ context.Context, event SettlementEvent) error {
	p.events = append(p.events, event)
	return p.err
}

// tripGroup: alice paid 100 for herself and bob.
func tripGroup(store *fakeStore) {
	alice, bob := store.users[aliceID], store.users[bobID]
	store.groups[tripID] = &GroupData{
		Group:   models.Group{ID: tripID, Name: "Trip"},
		Members: []models.User{alice, bob},
		Expenses: []models.Expense{
			{Amount: 100, PaidBy: &alice.ID, Participants: []models.User{alice, bob}},
		},
	}
}

func TestSettleGroup_RecordsPeerAndPartyDebts(t *testing.T) {
	store := newFakeStore()
	tripGroup(store)
	notifier := newFakeNotifier()
	events := &fakePublisher{}
	svc := NewSettlementService(store, nil, notifier, events, nil)

	report, err := svc.SettleGroup(context.Background(), tripID, aliceID)
	require.NoError(t, err)

	assert.Equal(t, []models.Repayment{
		{Creditor: "alice", Debtor: "bob", Amount: 50},
		{Creditor: "party", Debtor: "bob", Amount: 50},
	}, report.Settlements)
	assert.Equal(t, 100.0, report.TotalSpent)
	require.Len(t, report.Participants, 2)
	assert.Equal(t, models.ParticipantSummary{
		UserID: bobID, Username: "bob", Paid: 0, Share: 50, NetBalance: -50, RemainingToParty: 50,
	}, report.Participants[1])

	require.Len(t, store.recorded, 2)
	assert.True(t, store.ensureParty)
	assert.Equal(t, "Debt to alice", store.recorded[0].Title)
	assert.Equal(t, "alice", store.recorded[0].Receiver)
	assert.Equal(t, bobID, store.recorded[0].UserID)
	assert.Equal(t, "Debt to party", store.recorded[1].Title)
	assert.Equal(t, models.PartyUsername, store.recorded[1].Receiver)
	for _, d := range store.recorded {
		require.NotNil(t, d.GroupID)
		assert.Equal(t, tripID, *d.GroupID)
	}

	require.Len(t, events.events, 1)
	assert.Equal(t, "group", events.events[0].Mode)
	assert.Equal(t, &tripID, events.events[0].GroupID)
	assert.Len(t, events.events[0].Transfers, 2)

	notices := notifier.wait(t)
	require.Len(t, notices, 2)
	assert.Equal(t, "Trip", notices[0].GroupName)
	assert.Equal(t, "bob", notices[0].Debtor.Username)
}

func TestSettleGroup_SettledGroupRecordsNothing(t *testing.T) {
	store := newFakeStore()
	alice, bob := store.users[aliceID], store.users[bobID]
	store.groups[tripID] = &GroupData{
		Group:   models.Group{ID: tripID, Name: "Trip"},
		Members: []models.User{alice, bob},
		Expenses: []models.Expense{
			{Amount: 40, PaidBy: &alice.ID},
			{Amount: 40, PaidBy: &bob.ID},
		},
	}
	svc := NewSettlementService(store, nil, nil, nil, nil)

	report, err := svc.SettleGroup(context.Background(), tripID, bobID)
	require.NoError(t, err)
	assert.Empty(t, report.Settlements)
	assert.Empty(t, store.recorded)
	assert.False(t, store.ensureParty)
}

func TestSettleGroup_Errors(t *testing.T) {
	store := newFakeStore()
	tripGroup(store)
	svc := NewSettlementService(store, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SettleGroup(ctx, uuid.New(), aliceID)
	assert.ErrorIs(t, err, settlement.ErrNotFound)

	_, err = svc.SettleGroup(ctx, tripID, carolID)
	assert.ErrorIs(t, err, ErrNotMember)

	store.recordErr = errors.New("connection reset")
	events := &fakePublisher{}
	svc = NewSettlementService(store, nil, nil, events, nil)
	_, err = svc.SettleGroup(ctx, tripID, aliceID)
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, events.events)
}

func TestSettleGroup_PublishFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	tripGroup(store)
	svc := NewSettlementService(store, nil, nil, &fakePublisher{err: errors.New("broker down")}, nil)

	_, err := svc.SettleGroup(context.Background(), tripID, aliceID)
	require.NoError(t, err)
	assert.Len(t, store.recorded, 2)
}

func TestPreviewGroup_UsesCacheAndRecordsNothing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newFakeStore()
	tripGroup(store)
	svc := NewSettlementService(store, NewBalanceCache(client, time.Minute, nil), nil, nil, nil)
	ctx := context.Background()

	first, err := svc.PreviewGroup(ctx, tripID, aliceID)
	require.NoError(t, err)
	second, err := svc.PreviewGroup(ctx, tripID, bobID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.loads)
	assert.Empty(t, store.recorded)

	_, err = svc.PreviewGroup(ctx, tripID, carolID)
	assert.ErrorIs(t, err, ErrNotMember)

	svc.InvalidateGroup(ctx, tripID)
	_, err = svc.PreviewGroup(ctx, tripID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
}

func TestPreviewGroup_InvalidatedDuringLoadIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newFakeStore()
	tripGroup(store)
	svc := NewSettlementService(store, NewBalanceCache(client, time.Minute, nil), nil, nil, nil)
	ctx := context.Background()

	// a member is added between reading the group and caching its report
	store.onLoad = func() {
		store.onLoad = nil
		svc.InvalidateGroup(ctx, tripID)
	}

	report, err := svc.PreviewGroup(ctx, tripID, aliceID)
	require.NoError(t, err)
	assert.Len(t, report.Settlements, 2)
	assert.False(t, mr.Exists(cacheKey(tripID)))

	_, err = svc.PreviewGroup(ctx, tripID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
	assert.True(t, mr.Exists(cacheKey(tripID)))
}

func TestPreviewGroup_WithoutCache(t *testing.T) {
	store := newFakeStore()
	tripGroup(store)
	svc := NewSettlementService(store, nil, nil, nil, nil)

	report, err := svc.PreviewGroup(context.Background(), tripID, bobID)
	require.NoError(t, err)
	assert.Len(t, report.Settlements, 2)

	_, err = svc.PreviewGroup(context.Background(), tripID, bobID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
}

func TestSplitCosts_SinglePayer(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	events := &fakePublisher{}
	svc := NewSettlementService(store, nil, notifier, events, nil)

	debts, err := svc.SplitCosts(context.Background(), 300, map[string]float64{
		carolID.String(): 0,
		aliceID.String(): 300,
		bobID.String():   0,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DebtResponse{
		{Debtor: bobID, Creditor: aliceID, Amount: 100},
		{Debtor: carolID, Creditor: aliceID, Amount: 100},
	}, debts)

	require.Len(t, store.recorded, 2)
	assert.Equal(t, "Debt from User bob to User alice", store.recorded[0].Title)
	assert.Equal(t, "alice", store.recorded[0].Receiver)
	assert.Nil(t, store.recorded[0].GroupID)
	assert.Equal(t, "Debt from User carol to User alice", store.recorded[1].Title)
	assert.False(t, store.ensureParty)

	require.Len(t, events.events, 1)
	assert.Equal(t, "flat", events.events[0].Mode)
	assert.Nil(t, events.events[0].GroupID)

	notices := notifier.wait(t)
	assert.Len(t, notices, 2)
}

func TestSplitCosts_AlreadySettled(t *testing.T) {
	store := newFakeStore()
	svc := NewSettlementService(store, nil, nil, nil, nil)

	debts, err := svc.SplitCosts(context.Background(), 300, map[string]float64{
		aliceID.String(): 100,
		bobID.String():   100,
		carolID.String(): 100,
	})
	require.NoError(t, err)
	assert.NotNil(t, debts)
	assert.Empty(t, debts)
	assert.Empty(t, store.recorded)
}

func TestSplitCosts_Errors(t *testing.T) {
	cases := []struct {
		name     string
		costs    float64
		payments map[string]float64
		want     error
	}{
		{"not a uuid", 10, map[string]float64{"alice": 10}, settlement.ErrInvalidInput},
		{"same user twice", 10, map[string]float64{
			"00000000-0000-0000-0000-00000000000a": 5,
			"00000000-0000-0000-0000-00000000000A": 5,
		}, settlement.ErrInvalidInput},
		{"unknown user", 10, map[string]float64{uuid.NewString(): 10}, settlement.ErrNotFound},
		{"party account", 10, map[string]float64{partyID.String(): 10, aliceID.String(): 0}, settlement.ErrInvalidInput},
		{"negative payment", 10, map[string]float64{aliceID.String(): -1}, settlement.ErrInvalidInput},
		{"negative cost", -10, map[string]float64{aliceID.String(): 0}, settlement.ErrInvalidInput},
		{"no payments", 10, map[string]float64{}, settlement.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewSettlementService(store, nil, nil, nil, nil)

			_, err := svc.SplitCosts(context.Background(), tc.costs, tc.payments)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, store.recorded)
		})
	}
}
