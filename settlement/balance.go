package settlement

import (
	"fmt"
	"math"
)

// FlatSplit divides totalCost evenly between everyone in payments and returns
// each participant's balance rounded to cents.
func FlatSplit(totalCost float64, payments []Payment) (Balances, error) {
	if len(payments) == 0 {
		return nil, fmt.Errorf("no participants: %w", ErrInvalidInput)
	}
	if totalCost < 0 || math.IsNaN(totalCost) || math.IsInf(totalCost, 0) {
		return nil, fmt.Errorf("total cost %v: %w", totalCost, ErrInvalidInput)
	}

	seen := make(map[ParticipantID]struct{}, len(payments))
	for _, p := range payments {
		if err := checkID(p.ID, seen); err != nil {
			return nil, err
		}
		if !validAmount(p.Amount) {
			return nil, fmt.Errorf("payment of %q is %v: %w", p.ID, p.Amount, ErrInvalidInput)
		}
	}

	fairShare := totalCost / float64(len(payments))

	balances := make(Balances, 0, len(payments))
	for _, p := range payments {
		balances = append(balances, Balance{ID: p.ID, Amount: Round2(p.Amount - fairShare)})
	}
	return balances, nil
}

// GroupSplit splits the sum of all expenses evenly across every member of the
// group. Per-expense participant lists are validated but do not change the
// share: everyone owes total/len(members). Net balances are not rounded.
func GroupSplit(members []ParticipantID, expenses []Expense) (GroupBalances, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("group has no members: %w", ErrInvalidInput)
	}

	index := make(map[ParticipantID]int, len(members))
	seen := make(map[ParticipantID]struct{}, len(members))
	for i, id := range members {
		if err := checkID(id, seen); err != nil {
			return nil, err
		}
		index[id] = i
	}

	paid := make([]float64, len(members))
	var totalCost float64
	for n, e := range expenses {
		if !validAmount(e.Amount) {
			return nil, fmt.Errorf("expense %d amount %v: %w", n, e.Amount, ErrInvalidInput)
		}
		for _, p := range e.Participants {
			if _, ok := index[p]; !ok {
				return nil, fmt.Errorf("expense %d participant %q is not a member: %w", n, p, ErrInvalidInput)
			}
		}

		if e.Payer == "" {
			return nil, fmt.Errorf("expense %d has no payer: %w", n, ErrInvalidInput)
		}
		i, ok := index[e.Payer]
		if !ok {
			return nil, fmt.Errorf("expense %d payer %q is not a member: %w", n, e.Payer, ErrInvalidInput)
		}
		totalCost += e.Amount
		paid[i] += e.Amount
	}

	share := totalCost / float64(len(members))

	out := make(GroupBalances, 0, len(members))
	for i, id := range members {
		out = append(out, MemberBalance{
			ID: id,
			BalanceDetail: BalanceDetail{
				Paid:             paid[i],
				Share:            share,
				NetBalance:       paid[i] - share,
				RemainingToParty: math.Max(0, share-paid[i]),
			},
		})
	}
	return out, nil
}

func checkID(id ParticipantID, seen map[ParticipantID]struct{}) error {
	if id == "" {
		return fmt.Errorf("empty participant id: %w", ErrInvalidInput)
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("participant %q listed twice: %w", id, ErrInvalidInput)
	}
	seen[id] = struct{}{}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
