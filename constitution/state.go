// Package constitution implements the revenue-distribution ledger of a single
// autonomous entity governed by one creator account.
//
// The ledger tracks cumulative revenue, pays a fixed royalty to the creator on
// every distribution and answers whether a spend is within the autonomously
// approved ceiling. State is a plain value: persistence, call serialization and
// payout settlement belong to the hosting runtime (see package host).
package constitution

import (
	"fmt"

	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/amount"
)

const (
	// DefaultRoyaltyBps is the royalty rate set at initialization (15%).
	DefaultRoyaltyBps uint16 = 1500

	// BpsDenominator is the number of basis points in 100%.
	BpsDenominator = 10000
)

// DefaultAutonomousLimit is the spending ceiling set at initialization:
// 10^24 smallest units.
var DefaultAutonomousLimit = amount.MustParse("1000000000000000000000000")

// State is the single persistent ledger record.
type State struct {
	Creator          account.ID    `json:"creator"`
	RoyaltyBps       uint16        `json:"royalty_bps"`
	AutonomousLimit  amount.Amount `json:"autonomous_limit"`
	SelfSustaining   bool          `json:"self_sustaining"`
	TotalRevenue     amount.Amount `json:"total_revenue"`
	TotalRoyaltyPaid amount.Amount `json:"total_royalty_paid"`
	Paused           bool          `json:"paused"`
}

// Payout is a request for the host to transfer Amount to To. The ledger
// records it as requested, not confirmed.
type Payout struct {
	To     account.ID
	Amount amount.Amount
}

// New returns the initial state for a ledger administered by creator.
func New(creator account.ID) *State {
	return &State{
		Creator:          creator,
		RoyaltyBps:       DefaultRoyaltyBps,
		AutonomousLimit:  DefaultAutonomousLimit,
		SelfSustaining:   false,
		TotalRevenue:     amount.Zero,
		TotalRoyaltyPaid: amount.Zero,
		Paused:           false,
	}
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	cp := *s
	return &cp
}

// Validate checks the structural invariants of a loaded record.
func (s *State) Validate() error {
	if s.Creator.IsZero() {
		return fmt.Errorf("%w: missing creator", ErrInvalidState)
	}
	if s.RoyaltyBps > BpsDenominator {
		return fmt.Errorf("%w: royalty %d bps exceeds %d", ErrInvalidState, s.RoyaltyBps, BpsDenominator)
	}
	if !s.TotalRoyaltyPaid.LessOrEqual(s.TotalRevenue) {
		return fmt.Errorf("%w: royalty paid %s exceeds revenue %s", ErrInvalidState, s.TotalRoyaltyPaid, s.TotalRevenue)
	}
	return nil
}

// Royalty returns the creator's share of amt: floor(amt * RoyaltyBps / 10000).
// The fractional remainder stays with the entity.
func (s *State) Royalty(amt amount.Amount) amount.Amount {
	return amt.MulDivFloor(uint64(s.RoyaltyBps), BpsDenominator)
}

// DistributeRevenue books amt as revenue, and returns the royalty payout the
// host must request for the creator.
//
// amt is taken on trust: it is not checked against any value actually
// transferred to the entity. Callers that need that guarantee must enforce it
// before invoking the ledger.
//
// Both running totals are computed before anything is committed, so an
// overflow leaves the state untouched and requests no payout. The counters are
// advanced whether or not the payout later settles.
func (s *State) DistributeRevenue(amt amount.Amount) (Payout, error) {
	if s.Paused {
		return Payout{}, ErrPaused
	}

	royalty := s.Royalty(amt)

	revenue, err := s.TotalRevenue.CheckedAdd(amt)
	if err != nil {
		return Payout{}, fmt.Errorf("%w: total revenue: %w", ErrArithmeticOverflow, err)
	}
	paid, err := s.TotalRoyaltyPaid.CheckedAdd(royalty)
	if err != nil {
		return Payout{}, fmt.Errorf("%w: total royalty paid: %w", ErrArithmeticOverflow, err)
	}

	s.TotalRevenue = revenue
	s.TotalRoyaltyPaid = paid
	return Payout{To: s.Creator, Amount: royalty}, nil
}

// CanSpend reports whether amt may be spent without creator sign-off. The
// limit itself is approved.
func (s *State) CanSpend(amt amount.Amount) bool {
	return !s.Paused && amt.LessOrEqual(s.AutonomousLimit)
}

// Pause stops revenue distribution and autonomous spending. Idempotent.
func (s *State) Pause(caller account.ID) error {
	if err := s.assertCreator(caller); err != nil {
		return err
	}
	s.Paused = true
	return nil
}

// Resume lifts a pause. Idempotent.
func (s *State) Resume(caller account.ID) error {
	if err := s.assertCreator(caller); err != nil {
		return err
	}
	s.Paused = false
	return nil
}

// SetAutonomousLimit replaces the spending ceiling. Any value is accepted,
// including zero and amount.Max.
func (s *State) SetAutonomousLimit(caller account.ID, limit amount.Amount) error {
	if err := s.assertCreator(caller); err != nil {
		return err
	}
	s.AutonomousLimit = limit
	return nil
}

// assertCreator compares the verified caller supplied by the host with the
// stored creator.
func (s *State) assertCreator(caller account.ID) error {
	if caller.IsZero() || caller != s.Creator {
		return fmt.Errorf("%w: caller %q", ErrNotAuthorized, caller)
	}
	return nil
}
