package settlement

import (
	"fmt"
	"math"
	"sort"
)

type position struct {
	id        ParticipantID
	remaining float64
}

// Settle matches the largest debtor with the largest creditor until one side
// runs out. Participants with an exact zero balance take no part. Equal
// magnitudes keep their input order.
func Settle(balances Balances) ([]Transfer, error) {
	var creditors, debtors []position
	for _, b := range balances {
		if math.IsNaN(b.Amount) || math.IsInf(b.Amount, 0) {
			return nil, fmt.Errorf("balance of %q is %v: %w", b.ID, b.Amount, ErrInvalidInput)
		}
		switch {
		case b.Amount > 0:
			creditors = append(creditors, position{id: b.ID, remaining: b.Amount})
		case b.Amount < 0:
			debtors = append(debtors, position{id: b.ID, remaining: -b.Amount})
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].remaining > creditors[j].remaining })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].remaining > debtors[j].remaining })

	transfers := []Transfer{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := math.Min(debtors[i].remaining, creditors[j].remaining)
		transfers = append(transfers, Transfer{
			Debtor:   debtors[i].id,
			Creditor: creditors[j].id,
			Amount:   amount,
		})

		debtors[i].remaining -= amount
		creditors[j].remaining -= amount

		if debtors[i].remaining == 0 {
			i++
		}
		if creditors[j].remaining == 0 {
			j++
		}
	}
	return transfers, nil
}

// SettleWithParty runs Settle over the members' net balances and then adds one
// transfer to partyID for every member whose share was not covered by what
// they paid. A member can therefore appear both as a peer debtor and as a
// party debtor.
func SettleWithParty(details GroupBalances, partyID ParticipantID) ([]Transfer, error) {
	if partyID == "" {
		return nil, fmt.Errorf("empty party id: %w", ErrInvalidInput)
	}
	// Callers that use user IDs as participant IDs never hit this; they keep the
	// party account out of the member list themselves.
	for _, m := range details {
		if m.ID == partyID {
			return nil, fmt.Errorf("member %q collides with the party account: %w", m.ID, ErrInvalidInput)
		}
	}

	transfers, err := Settle(details.Net())
	if err != nil {
		return nil, err
	}

	for _, m := range details {
		if m.RemainingToParty > 0 {
			transfers = append(transfers, Transfer{
				Debtor:   m.ID,
				Creditor: partyID,
				Amount:   m.RemainingToParty,
			})
		}
	}
	return transfers, nil
}
