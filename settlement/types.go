// Package settlement computes who owes whom inside a group of participants.
//
// It holds no state and performs no I/O: callers hand in payments or expenses,
// get balances back, and turn those balances into an ordered list of transfers.
// Persisting the transfers is the caller's job.
package settlement

import (
	"errors"
	"math"
	"sort"
)

// PartyID is the reserved participant that absorbs unpaid shortfalls of a group.
const PartyID ParticipantID = "party"

var (
	// ErrInvalidInput is returned for empty participant sets, negative amounts
	// and references to participants outside the closed set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is used by collaborators when a referenced group or user does
	// not exist in their store.
	ErrNotFound = errors.New("not found")
)

// ParticipantID is an opaque participant key.
type ParticipantID string

// Payment is the amount a participant put in.
type Payment struct {
	ID     ParticipantID
	Amount float64
}

// Balance is paid minus fair share. Positive means the participant is owed money.
type Balance struct {
	ID     ParticipantID
	Amount float64
}

// Balances keeps input order, which is the canonical order used for tie-breaks.
type Balances []Balance

// Sum returns the total of all balances. It should be zero within rounding error.
func (b Balances) Sum() float64 {
	var total float64
	for _, bal := range b {
		total += bal.Amount
	}
	return total
}

// Map returns the balances keyed by participant.
func (b Balances) Map() map[ParticipantID]float64 {
	m := make(map[ParticipantID]float64, len(b))
	for _, bal := range b {
		m[bal.ID] = bal.Amount
	}
	return m
}

// Transfer is one settlement action: Debtor pays Amount to Creditor.
type Transfer struct {
	Debtor   ParticipantID
	Creditor ParticipantID
	Amount   float64
}

// Expense is an itemized cost paid by one participant.
type Expense struct {
	Amount       float64
	Payer        ParticipantID
	Participants []ParticipantID
}

// BalanceDetail is the per-member breakdown of a group split.
type BalanceDetail struct {
	Paid             float64
	Share            float64
	NetBalance       float64
	RemainingToParty float64
}

// MemberBalance pairs a member with its breakdown.
type MemberBalance struct {
	ID ParticipantID
	BalanceDetail
}

// GroupBalances keeps member order.
type GroupBalances []MemberBalance

// Net projects the group breakdown onto plain balances.
func (g GroupBalances) Net() Balances {
	out := make(Balances, 0, len(g))
	for _, m := range g {
		out = append(out, Balance{ID: m.ID, Amount: m.NetBalance})
	}
	return out
}

// PaymentsFromMap orders map input by ascending participant ID so that repeated
// calls with the same data produce the same transfers.
func PaymentsFromMap(m map[ParticipantID]float64) []Payment {
	ids := make([]ParticipantID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	payments := make([]Payment, 0, len(ids))
	for _, id := range ids {
		payments = append(payments, Payment{ID: id, Amount: m[id]})
	}
	return payments
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
