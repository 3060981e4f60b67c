package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarintSingleByte(t *testing.T) {
	for _, v := range []uint64{0, 1, 42, 127} {
		enc := EncodeVarint(v)
		require.Len(t, enc, 1)
		got, n := DecodeVarint(enc)
		require.Equal(t, 1, n)
		require.Equal(t, v, got)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		128, 200, 1000, 16384, 1 << 20, 1 << 30,
		1<<36 - 1, 1 << 36, 1 << 40, 1 << 50, 1<<54 - 1,
	}
	for _, v := range values {
		enc := EncodeVarint(v)
		require.True(t, len(enc) >= 2 && len(enc) <= 1+escapeContinuations, "len=%d for %d", len(enc), v)
		got, n := DecodeVarint(enc)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got, "value %d round-tripped to %d via % x", v, got, enc)
	}
}

func TestVarintEscapeHeadIsAllOnes(t *testing.T) {
	enc := EncodeVarint(1 << 40)
	require.Len(t, enc, 1+escapeContinuations)
	require.Equal(t, byte(0xFF), enc[0])
	for _, b := range enc[1:] {
		require.Equal(t, byte(0x80), b&0x80)
	}
}

func TestVarintDecodeTruncated(t *testing.T) {
	for _, v := range []uint64{1 << 20, 1 << 40} {
		enc := EncodeVarint(v)
		got, n := DecodeVarint(enc[:len(enc)-1])
		require.Equal(t, 0, n)
		require.Equal(t, uint64(0), got)
	}
}

func TestVarintDecodeEmpty(t *testing.T) {
	got, n := DecodeVarint(nil)
	require.Equal(t, 0, n)
	require.Equal(t, uint64(0), got)
}
