package constitution

import "errors"

var (
	// ErrNotAuthorized indicates the caller is not the creator.
	ErrNotAuthorized = errors.New("constitution: only creator can call this method")

	// ErrPaused indicates revenue distribution was attempted while paused.
	ErrPaused = errors.New("constitution: contract is paused")

	// ErrArithmeticOverflow indicates a running total would exceed 128 bits.
	ErrArithmeticOverflow = errors.New("constitution: arithmetic overflow")

	// ErrAlreadyInitialized indicates the ledger instance already exists.
	ErrAlreadyInitialized = errors.New("constitution: already initialized")

	// ErrNotInitialized indicates an operation on a ledger that was never initialized.
	ErrNotInitialized = errors.New("constitution: not initialized")

	// ErrInvalidState indicates the persisted state record is malformed.
	ErrInvalidState = errors.New("constitution: invalid state record")
)
