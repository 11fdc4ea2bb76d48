package settlement

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_Empty(t *testing.T) {
	transfers, err := Settle(nil)
	require.NoError(t, err)
	assert.NotNil(t, transfers)
	assert.Empty(t, transfers)
}

func TestSettle_AllZero(t *testing.T) {
	balances, err := FlatSplit(300, []Payment{{"A", 100}, {"B", 100}, {"C", 100}})
	require.NoError(t, err)

	transfers, err := Settle(balances)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestSettle_SingleCreditor(t *testing.T) {
	balances, err := FlatSplit(300, []Payment{{"A", 300}, {"B", 0}, {"C", 0}})
	require.NoError(t, err)

	transfers, err := Settle(balances)
	require.NoError(t, err)
	assert.Equal(t, []Transfer{
		{Debtor: "B", Creditor: "A", Amount: 100},
		{Debtor: "C", Creditor: "A", Amount: 100},
	}, transfers)
}

func TestSettle_LargestFirst(t *testing.T) {
	transfers, err := Settle(Balances{
		{"A", -10}, {"B", 40}, {"C", -50}, {"D", 20},
	})
	require.NoError(t, err)

	assert.Equal(t, []Transfer{
		{Debtor: "C", Creditor: "B", Amount: 40},
		{Debtor: "C", Creditor: "D", Amount: 10},
		{Debtor: "A", Creditor: "D", Amount: 10},
	}, transfers)
}

func TestSettle_TiesKeepInputOrder(t *testing.T) {
	transfers, err := Settle(Balances{
		{"Z", -25}, {"Y", 25}, {"M", -25}, {"K", 25},
	})
	require.NoError(t, err)

	assert.Equal(t, []Transfer{
		{Debtor: "Z", Creditor: "Y", Amount: 25},
		{Debtor: "M", Creditor: "K", Amount: 25},
	}, transfers)
}

func TestSettle_RoundingResidueStaysWithCreditor(t *testing.T) {
	balances, err := FlatSplit(100, []Payment{{"A", 100}, {"B", 0}, {"C", 0}})
	require.NoError(t, err)

	transfers, err := Settle(balances)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, Transfer{Debtor: "B", Creditor: "A", Amount: 33.33}, transfers[0])
	assert.Equal(t, Transfer{Debtor: "C", Creditor: "A", Amount: 33.33}, transfers[1])
}

func TestSettle_RejectsNaN(t *testing.T) {
	var zero float64
	_, err := Settle(Balances{{"A", zero / zero}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSettleWithParty_TwoMembers(t *testing.T) {
	details, err := GroupSplit(
		[]ParticipantID{"X", "Y"},
		[]Expense{{Amount: 100, Payer: "X", Participants: []ParticipantID{"X", "Y"}}},
	)
	require.NoError(t, err)

	transfers, err := SettleWithParty(details, PartyID)
	require.NoError(t, err)

	assert.Equal(t, []Transfer{
		{Debtor: "Y", Creditor: "X", Amount: 50},
		{Debtor: "Y", Creditor: PartyID, Amount: 50},
	}, transfers)

	var toParty []Transfer
	for _, tr := range transfers {
		if tr.Creditor == PartyID {
			toParty = append(toParty, tr)
		}
	}
	assert.Len(t, toParty, 1)
}

func TestSettleWithParty_PartialPayer(t *testing.T) {
	details, err := GroupSplit(
		[]ParticipantID{"A", "B", "C"},
		[]Expense{{Amount: 60, Payer: "A"}, {Amount: 30, Payer: "B"}},
	)
	require.NoError(t, err)

	transfers, err := SettleWithParty(details, PartyID)
	require.NoError(t, err)

	// share 30: A +30, B 0, C -30
	assert.Equal(t, []Transfer{
		{Debtor: "C", Creditor: "A", Amount: 30},
		{Debtor: "C", Creditor: PartyID, Amount: 30},
	}, transfers)
}

func TestSettleWithParty_Empty(t *testing.T) {
	transfers, err := SettleWithParty(nil, PartyID)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestSettleWithParty_InvalidParty(t *testing.T) {
	details, err := GroupSplit([]ParticipantID{"A", PartyID}, nil)
	require.NoError(t, err)

	_, err = SettleWithParty(details, PartyID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = SettleWithParty(details, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func randomGroup(r *rand.Rand) ([]ParticipantID, []Expense) {
	n := 2 + r.Intn(9)
	members := make([]ParticipantID, n)
	for i := range members {
		members[i] = ParticipantID(fmt.Sprintf("u%02d", i))
	}
	expenses := make([]Expense, r.Intn(12))
	for i := range expenses {
		expenses[i] = Expense{
			Amount: float64(r.Intn(100000)) / 100,
			Payer:  members[r.Intn(n)],
		}
	}
	return members, expenses
}

func randomPayments(r *rand.Rand) (float64, []Payment) {
	n := 1 + r.Intn(10)
	payments := make([]Payment, n)
	var total float64
	for i := range payments {
		amount := float64(r.Intn(50000)) / 100
		payments[i] = Payment{ID: ParticipantID(fmt.Sprintf("p%02d", i)), Amount: amount}
		total += amount
	}
	// the declared cost does not have to match what was paid
	if r.Intn(3) == 0 {
		total = float64(r.Intn(100000)) / 100
	}
	return total, payments
}

// checkTransfers asserts the bound on the number of transfers and that every
// participant pays or receives its balance within tol.
func checkTransfers(t *testing.T, balances Balances, transfers []Transfer, tol float64, run int) {
	t.Helper()

	var debtors, creditors int
	for _, b := range balances {
		switch {
		case b.Amount > 0:
			creditors++
		case b.Amount < 0:
			debtors++
		}
	}
	if debtors+creditors > 0 {
		assert.LessOrEqual(t, len(transfers), debtors+creditors-1, "bound, run %d", run)
	} else {
		assert.Empty(t, transfers)
	}

	paidOut := map[ParticipantID]float64{}
	received := map[ParticipantID]float64{}
	for _, tr := range transfers {
		assert.Positive(t, tr.Amount)
		assert.NotEqual(t, tr.Debtor, tr.Creditor)
		paidOut[tr.Debtor] += tr.Amount
		received[tr.Creditor] += tr.Amount
	}
	for _, b := range balances {
		switch {
		case b.Amount < 0:
			assert.InDelta(t, -b.Amount, paidOut[b.ID], tol, "debtor %s, run %d", b.ID, run)
			assert.Zero(t, received[b.ID], "debtor %s receives, run %d", b.ID, run)
		case b.Amount > 0:
			assert.InDelta(t, b.Amount, received[b.ID], tol, "creditor %s, run %d", b.ID, run)
			assert.Zero(t, paidOut[b.ID], "creditor %s pays, run %d", b.ID, run)
		default:
			assert.Zero(t, paidOut[b.ID]+received[b.ID], "settled %s, run %d", b.ID, run)
		}
	}
}

func TestSettle_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		members, expenses := randomGroup(r)
		details, err := GroupSplit(members, expenses)
		require.NoError(t, err)

		balances := details.Net()
		assert.InDelta(t, 0, balances.Sum(), 1e-9, "zero-sum, run %d", run)

		transfers, err := Settle(balances)
		require.NoError(t, err)

		again, err := Settle(balances)
		require.NoError(t, err)
		assert.Equal(t, transfers, again, "determinism, run %d", run)

		checkTransfers(t, balances, transfers, 1e-6, run)

		// the same group with one payerless expense is rejected outright
		payerless := append(append([]Expense{}, expenses...), Expense{Amount: float64(1+r.Intn(10000)) / 100})
		_, err = GroupSplit(members, payerless)
		assert.ErrorIs(t, err, ErrInvalidInput, "payerless, run %d", run)
	}
}

func TestSettle_FlatSplitProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		total, payments := randomPayments(r)
		balances, err := FlatSplit(total, payments)
		require.NoError(t, err)

		// balances add up to paid-total, give or take half a cent per participant
		n := float64(len(payments))
		var paid float64
		for _, p := range payments {
			paid += p.Amount
		}
		residue := 0.005*n + 1e-9
		assert.InDelta(t, paid-total, balances.Sum(), residue, "sum, run %d", run)
		for _, b := range balances {
			assert.Equal(t, Round2(b.Amount), b.Amount, "cents, run %d", run)
		}

		transfers, err := Settle(balances)
		require.NoError(t, err)

		again, err := Settle(balances)
		require.NoError(t, err)
		assert.Equal(t, transfers, again, "determinism, run %d", run)

		if math.Abs(paid-total) < 1e-9 {
			checkTransfers(t, balances, transfers, residue, run)
		}
	}
}
