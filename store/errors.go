package store

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")
)
