package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xAB, 0xFF}
	s := EncodeHex(data)
	require.Equal(t, "0001abff", s)
	require.Equal(t, data, DecodeHex(s))
}

func TestHexDecodeDropsOddNibble(t *testing.T) {
	require.Equal(t, []byte{0xAB}, DecodeHex("ab1"))
}

func TestHexDecodeInvalidDigit(t *testing.T) {
	require.Nil(t, DecodeHex("zz"))
}
