// Package payout settles royalty transfers requested by the ledger.
//
// The ledger books a royalty the moment revenue is distributed; settlement is
// asynchronous and its outcome never flows back into the ledger. A
// Dispatcher queues requests and hands them to a Sink one at a time.
package payout

import (
	"github.com/google/uuid"

	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/amount"
)

// Reasons attached to requests.
const (
	ReasonRoyalty = "royalty"
)

// Request asks for Amount to be transferred to To.
type Request struct {
	ID     string        `json:"id"`
	To     account.ID    `json:"to"`
	Amount amount.Amount `json:"amount"`
	Reason string        `json:"reason"`
}

// NewRequest returns a request with a fresh ID.
func NewRequest(to account.ID, amt amount.Amount, reason string) Request {
	return Request{
		ID:     "pay_" + uuid.NewString(),
		To:     to,
		Amount: amt,
		Reason: reason,
	}
}

// Result is the settlement outcome of one request.
type Result struct {
	Request Request
	TxID    string
	Skipped bool // zero amount, nothing to settle
	Err     error
}

// OK reports whether the request settled or needed no settlement.
func (r Result) OK() bool {
	return r.Err == nil
}
