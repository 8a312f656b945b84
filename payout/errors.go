package payout

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("payout: required parameter is nil")

	// ErrQueueFull indicates the dispatcher queue has no free slot.
	ErrQueueFull = errors.New("payout: queue full")

	// ErrClosed indicates the dispatcher no longer accepts requests.
	ErrClosed = errors.New("payout: dispatcher closed")

	// ErrUnpayable indicates the amount cannot be carried by a single output
	// (above the uint64 satoshi range or below the dust limit).
	ErrUnpayable = errors.New("payout: amount cannot be paid on-chain")

	// ErrInsufficientFunds indicates the treasury cannot cover amount plus fee.
	ErrInsufficientFunds = errors.New("payout: insufficient treasury funds")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("payout: signing failed")

	// ErrScriptBuild indicates a locking script could not be built.
	ErrScriptBuild = errors.New("payout: script build failed")
)
