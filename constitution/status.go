package constitution

import (
	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/amount"
)

// Status is a point-in-time snapshot of the ledger for external observers.
type Status struct {
	TotalRevenue     amount.Amount `json:"total_revenue"`
	TotalRoyaltyPaid amount.Amount `json:"total_royalty_paid"`
	SelfSustaining   bool          `json:"self_sustaining"`
	Paused           bool          `json:"paused"`
	Creator          account.ID    `json:"creator"`
	RoyaltyBps       uint16        `json:"royalty_bps"`
}

// Status returns a copy of the observable fields. Later mutations of s do not
// affect the returned value.
func (s *State) Status() Status {
	return Status{
		TotalRevenue:     s.TotalRevenue,
		TotalRoyaltyPaid: s.TotalRoyaltyPaid,
		SelfSustaining:   s.SelfSustaining,
		Paused:           s.Paused,
		Creator:          s.Creator,
		RoyaltyBps:       s.RoyaltyBps,
	}
}
