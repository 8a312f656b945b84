// Package amount implements the unsigned 128-bit token quantity used by the
// constitution ledger for revenue totals, royalties and spending limits.
package amount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"lukechampine.com/uint128"
)

// Size is the length of the big-endian binary encoding of an Amount.
const Size = 16

// Amount is an unsigned 128-bit token quantity in the smallest unit.
type Amount struct {
	v uint128.Uint128
}

var (
	// Zero is the zero amount.
	Zero = Amount{}

	// Max is the largest representable amount (2^128 - 1).
	Max = Amount{v: uint128.Max}
)

// FromUint64 returns the amount equal to n.
func FromUint64(n uint64) Amount {
	return Amount{v: uint128.From64(n)}
}

// Parse parses a base-10 string of digits. Signs, whitespace and values
// above Max are rejected.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if i.BitLen() > 128 {
		return Zero, fmt.Errorf("%w: %s", ErrOverflow, s)
	}
	return Amount{v: uint128.FromBig(i)}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytesBE decodes a 16-byte big-endian amount.
func FromBytesBE(b []byte) (Amount, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAmount, Size, len(b))
	}
	return Amount{v: uint128.FromBytesBE(b)}, nil
}

// PutBytesBE writes the amount into b[:16] in big-endian order.
func (a Amount) PutBytesBE(b []byte) {
	a.v.PutBytesBE(b)
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.v.String()
}

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(b.v)
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool {
	return a.v.Equals(b.v)
}

// LessOrEqual reports whether a <= b.
func (a Amount) LessOrEqual(b Amount) bool {
	return a.v.Cmp(b.v) <= 0
}

// Uint64 returns the amount as a uint64 and whether it fits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Lo, a.v.Hi == 0
}

// Big returns the amount as a new big.Int.
func (a Amount) Big() *big.Int {
	return a.v.Big()
}

// CheckedAdd returns a + b, or ErrOverflow if the sum exceeds Max.
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	sum := a.v.AddWrap(b.v)
	if sum.Cmp(a.v) < 0 {
		return Zero, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return Amount{v: sum}, nil
}

// MulDivFloor returns floor(a * mul / div). The result is computed without a
// 128-bit intermediate product, so it is exact for every a as long as
// mul <= div. It panics if div is zero.
func (a Amount) MulDivFloor(mul, div uint64) Amount {
	if div == 0 {
		panic("amount: division by zero")
	}
	// a = q*div + r  =>  a*mul/div = q*mul + r*mul/div
	q, r := a.v.QuoRem64(div)
	hi := q.Mul64(mul)
	lo := new(big.Int).Mul(new(big.Int).SetUint64(r), new(big.Int).SetUint64(mul))
	lo.Quo(lo, new(big.Int).SetUint64(div))
	return Amount{v: hi.Add(uint128.FromBig(lo))}
}

// MarshalJSON encodes the amount as a decimal string, so values above 2^53
// survive JavaScript consumers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
		}
	} else {
		s = string(data)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
