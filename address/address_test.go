package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference vectors published with EIP-55.
var eip55Vectors = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestHex_EIP55Vectors(t *testing.T) {
	for _, v := range eip55Vectors {
		t.Run(v, func(t *testing.T) {
			a, err := Parse(strings.ToLower(v))
			require.NoError(t, err)
			assert.Equal(t, v, a.Hex())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"prefixed lower", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil},
		{"bare upper", "5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", nil},
		{"bad checksum accepted", "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", nil},
		{"too short", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", ErrInvalidAddress},
		{"too long", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", ErrInvalidAddress},
		{"not hex", "0xzzaeb6053f3e94c9b9a09f33669435e7ef1beaed", ErrInvalidAddress},
		{"empty", "", ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseStrict(t *testing.T) {
	for _, v := range eip55Vectors {
		_, err := ParseStrict(v)
		assert.NoError(t, err, v)
	}

	_, err := ParseStrict("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.NoError(t, err, "all-lower is unchecksummed, not invalid")

	_, err = ParseStrict("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestAddress_TextRoundTrip(t *testing.T) {
	a := MustParse(eip55Vectors[0])

	text, err := a.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, eip55Vectors[0], string(text))

	var b Address
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)

	assert.Error(t, b.UnmarshalText([]byte("nope")))
}

func TestAddress_FromBytesAndZero(t *testing.T) {
	assert.True(t, Zero.IsZero())

	a := MustParse(eip55Vectors[1])
	assert.False(t, a.IsZero())

	b, err := FromBytes(a.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = FromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("0x1234") })
}
