package amount

import "errors"

var (
	// ErrInvalidAmount indicates the input is not a non-negative base-10 integer.
	ErrInvalidAmount = errors.New("amount: invalid amount")

	// ErrOverflow indicates the value does not fit in 128 unsigned bits.
	ErrOverflow = errors.New("amount: arithmetic overflow")
)
