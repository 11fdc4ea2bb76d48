package models

import "github.com/google/uuid"

// Repayment is one settlement line, by username.
type Repayment struct {
	Creditor string  `json:"creditor"`
	Debtor   string  `json:"debtor"`
	Amount   float64 `json:"amount"`
}

// ParticipantSummary is the per-member breakdown of a group split.
type ParticipantSummary struct {
	UserID           uuid.UUID `json:"user_id"`
	Username         string    `json:"username"`
	Paid             float64   `json:"paid"`
	Share            float64   `json:"share"`
	NetBalance       float64   `json:"net_balance"`
	RemainingToParty float64   `json:"remaining_to_party"`
}

// GroupSettlementReport is returned for the group balance endpoints.
type GroupSettlementReport struct {
	GroupID      uuid.UUID            `json:"group_id"`
	GroupName    string               `json:"group_name"`
	TotalSpent   float64              `json:"total_spent"`
	Settlements  []Repayment          `json:"settlements"`
	Participants []ParticipantSummary `json:"participants"`
}

// HasMember reports whether userID is one of the report's participants.
func (r *GroupSettlementReport) HasMember(userID uuid.UUID) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
