package keystore

import "errors"

var (
	// ErrDecryptionFailed indicates wrong password or corrupted key file.
	ErrDecryptionFailed = errors.New("keystore: decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates the key checksum did not verify after decryption.
	ErrChecksumMismatch = errors.New("keystore: key checksum mismatch")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("keystore: required parameter is nil")

	// ErrEmptyPassword indicates no password was supplied.
	ErrEmptyPassword = errors.New("keystore: password is required")
)
