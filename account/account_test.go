package account

import (
	"encoding/json"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesisAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

func TestParse(t *testing.T) {
	id, err := Parse(genesisAddr)
	require.NoError(t, err)
	assert.Equal(t, genesisAddr, id.String())
	assert.False(t, id.IsZero())

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"garbage", "creator.near"},
		{"bad checksum", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			assert.ErrorIs(t, err, ErrInvalidAccount)
		})
	}
}

func TestFromPublicKey(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)

	for _, mainnet := range []bool{true, false} {
		id, err := FromPublicKey(priv.PubKey(), mainnet)
		require.NoError(t, err)

		parsed, err := Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)

		pkh, err := id.PubKeyHash()
		require.NoError(t, err)
		assert.Equal(t, priv.PubKey().Hash(), pkh)
	}

	_, err = FromPublicKey(nil, true)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestPubKeyHashInvalid(t *testing.T) {
	_, err := ID("not-an-address").PubKeyHash()
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(MustParse(genesisAddr))
	require.NoError(t, err)
	assert.Equal(t, `"`+genesisAddr+`"`, string(data))

	var id ID
	require.NoError(t, json.Unmarshal(data, &id))
	assert.Equal(t, genesisAddr, id.String())

	assert.ErrorIs(t, json.Unmarshal([]byte(`"alice"`), &id), ErrInvalidAccount)
}
