// Package account defines the account identifiers used by the constitution
// ledger. An account is a Base58Check P2PKH address; the runtime that hosts the
// ledger is responsible for proving that a caller controls it.
package account

import (
	"encoding/json"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
)

// MaxLen bounds the encoded length of an identifier so it fits the one-byte
// length prefix of the persisted state record.
const MaxLen = 255

// ID is a validated account identifier. The zero value is the empty account
// and never equals a parsed one.
type ID string

// Parse validates s as a P2PKH address and returns it as an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAccount)
	}
	if len(s) > MaxLen {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidAccount, len(s))
	}
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidAccount, s, err)
	}
	return ID(addr.AddressString), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromPublicKey derives the P2PKH account of a public key.
func FromPublicKey(pub *ec.PublicKey, mainnet bool) (ID, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: public key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(pub, mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}
	return ID(addr.AddressString), nil
}

// String returns the address string.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether id is the empty account.
func (id ID) IsZero() bool {
	return id == ""
}

// PubKeyHash returns the 20-byte HASH160 the address commits to.
func (id ID) PubKeyHash() ([]byte, error) {
	addr, err := script.NewAddressFromString(string(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAccount, string(id), err)
	}
	return []byte(addr.PublicKeyHash), nil
}

// UnmarshalJSON validates the address while decoding.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}
	if s == "" {
		*id = ""
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
