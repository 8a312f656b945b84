package constitution

import (
	"encoding/binary"
	"fmt"

	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/amount"
)

// codecVersion is the first byte of every encoded state record.
const codecVersion = 1

// Fixed part of the record: version(1) + creator_len(1) + royalty_bps(2) +
// autonomous_limit(16) + self_sustaining(1) + total_revenue(16) +
// total_royalty_paid(16) + paused(1).
const stateFixedSize = 1 + 1 + 2 + amount.Size + 1 + amount.Size + amount.Size + 1

// MarshalBinary encodes the state record for host storage.
//
// Layout:
//
//	version(1) | creator_len(1) | creator | royalty_bps(2) |
//	autonomous_limit(16) | self_sustaining(1) | total_revenue(16) |
//	total_royalty_paid(16) | paused(1)
func (s *State) MarshalBinary() ([]byte, error) {
	if len(s.Creator) > account.MaxLen {
		return nil, fmt.Errorf("%w: creator is %d bytes", ErrInvalidState, len(s.Creator))
	}
	buf := make([]byte, stateFixedSize+len(s.Creator))
	offset := 0

	buf[offset] = codecVersion
	offset++

	buf[offset] = byte(len(s.Creator))
	offset++
	offset += copy(buf[offset:], s.Creator)

	binary.BigEndian.PutUint16(buf[offset:offset+2], s.RoyaltyBps)
	offset += 2

	s.AutonomousLimit.PutBytesBE(buf[offset : offset+amount.Size])
	offset += amount.Size

	buf[offset] = boolByte(s.SelfSustaining)
	offset++

	s.TotalRevenue.PutBytesBE(buf[offset : offset+amount.Size])
	offset += amount.Size

	s.TotalRoyaltyPaid.PutBytesBE(buf[offset : offset+amount.Size])
	offset += amount.Size

	buf[offset] = boolByte(s.Paused)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary and validates it.
func (s *State) UnmarshalBinary(data []byte) error {
	if len(data) < stateFixedSize {
		return fmt.Errorf("%w: too short (%d bytes)", ErrInvalidState, len(data))
	}
	if data[0] != codecVersion {
		return fmt.Errorf("%w: unknown version %d", ErrInvalidState, data[0])
	}
	creatorLen := int(data[1])
	if len(data) != stateFixedSize+creatorLen {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidState, stateFixedSize+creatorLen, len(data))
	}
	offset := 2

	var out State
	out.Creator = account.ID(data[offset : offset+creatorLen])
	offset += creatorLen

	out.RoyaltyBps = binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2

	var err error
	if out.AutonomousLimit, err = amount.FromBytesBE(data[offset : offset+amount.Size]); err != nil {
		return fmt.Errorf("%w: autonomous limit: %w", ErrInvalidState, err)
	}
	offset += amount.Size

	if out.SelfSustaining, err = parseBool(data[offset]); err != nil {
		return fmt.Errorf("%w: self sustaining: %w", ErrInvalidState, err)
	}
	offset++

	if out.TotalRevenue, err = amount.FromBytesBE(data[offset : offset+amount.Size]); err != nil {
		return fmt.Errorf("%w: total revenue: %w", ErrInvalidState, err)
	}
	offset += amount.Size

	if out.TotalRoyaltyPaid, err = amount.FromBytesBE(data[offset : offset+amount.Size]); err != nil {
		return fmt.Errorf("%w: total royalty paid: %w", ErrInvalidState, err)
	}
	offset += amount.Size

	if out.Paused, err = parseBool(data[offset]); err != nil {
		return fmt.Errorf("%w: paused: %w", ErrInvalidState, err)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*s = out
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func parseBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid bool byte 0x%02x", b)
}
