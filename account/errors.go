package account

import "errors"

var (
	// ErrInvalidAccount indicates the account identifier is not a valid P2PKH address.
	ErrInvalidAccount = errors.New("account: invalid account identifier")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("account: required parameter is nil")
)
