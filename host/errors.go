package host

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("host: required parameter is nil")

	// ErrClosed indicates the runtime has been closed.
	ErrClosed = errors.New("host: runtime closed")
)
