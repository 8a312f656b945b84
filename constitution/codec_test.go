package constitution

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/constitution-go/amount"
)

func TestStateBinaryLayout(t *testing.T) {
	s, creator, _ := newTestState(t)
	s.Paused = true

	data, err := s.MarshalBinary()
	require.NoError(t, err)
	// 1 + 1 + 34 + 2 + 16 + 1 + 16 + 16 + 1
	assert.Len(t, data, 88)
	assert.Equal(t, byte(codecVersion), data[0])
	assert.Equal(t, byte(len(creator)), data[1])
	assert.Equal(t, creatorAddr, string(data[2:2+len(creator)]))
	assert.Equal(t, []byte{0x05, 0xdc}, data[36:38]) // 1500
	assert.Equal(t, byte(1), data[len(data)-1])
}

func TestStateBinaryRoundTrip(t *testing.T) {
	s, creator, _ := newTestState(t)
	_, err := s.DistributeRevenue(amount.MustParse("123456789012345678901234567"))
	require.NoError(t, err)
	require.NoError(t, s.SetAutonomousLimit(creator, amount.Max))
	require.NoError(t, s.Pause(creator))

	data, err := s.MarshalBinary()
	require.NoError(t, err)

	var decoded State
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, *s, decoded)
}

func TestStateUnmarshalBinaryErrors(t *testing.T) {
	s, _, _ := newTestState(t)
	good, err := s.MarshalBinary()
	require.NoError(t, err)

	corrupt := func(f func([]byte) []byte) []byte {
		cp := append([]byte(nil), good...)
		return f(cp)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", good[:10]},
		{"truncated", good[:len(good)-1]},
		{"trailing byte", append(append([]byte(nil), good...), 0)},
		{"bad version", corrupt(func(b []byte) []byte { b[0] = 9; return b })},
		{"bad paused byte", corrupt(func(b []byte) []byte { b[len(b)-1] = 2; return b })},
		{"empty creator", func() []byte {
			empty := *s
			empty.Creator = ""
			data, err := empty.MarshalBinary()
			require.NoError(t, err)
			return data
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded State
			assert.ErrorIs(t, decoded.UnmarshalBinary(tt.data), ErrInvalidState)
		})
	}
}

func TestStatusJSON(t *testing.T) {
	s, _, _ := newTestState(t)
	_, err := s.DistributeRevenue(amount.FromUint64(10000))
	require.NoError(t, err)

	data, err := json.Marshal(s.Status())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total_revenue": "10000",
		"total_royalty_paid": "1500",
		"self_sustaining": false,
		"paused": false,
		"creator": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		"royalty_bps": 1500
	}`, string(data))
}

func TestStateJSONRoundTrip(t *testing.T) {
	s, _, _ := newTestState(t)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"autonomous_limit":"1000000000000000000000000"`)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *s, decoded)
}
