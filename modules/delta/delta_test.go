package delta

import (
	"bytes"
	"testing"

	"github.com/cellarscm/engine/modules/record"
	"github.com/stretchr/testify/require"
)

func replay(t *testing.T, oldData []byte, instructions []record.Instruction) []byte {
	buf := append([]byte(nil), oldData...)
	for _, in := range instructions {
		in.Run(buf)
	}
	return buf
}

func TestGenerateRoundTripsSmallEdit(t *testing.T) {
	oldData := []byte("hello world, this is a test file")
	newData := []byte("hello there, this is a test file")

	instructions, pointerSize, err := Generate(oldData, newData)
	require.NoError(t, err)
	require.True(t, pointerSize >= 1)
	require.True(t, bytes.Equal(newData, replay(t, oldData, instructions)))
}

func TestGenerateNoDifference(t *testing.T) {
	data := []byte("unchanged content")
	instructions, _, err := Generate(data, data)
	require.NoError(t, err)
	require.Empty(t, instructions)
}

func TestGenerateBlankRun(t *testing.T) {
	oldData := bytes.Repeat([]byte{'x'}, 64)
	newData := append([]byte(nil), oldData...)
	for i := 10; i < 40; i++ {
		newData[i] = 0
	}
	instructions, _, err := Generate(oldData, newData)
	require.NoError(t, err)
	require.True(t, bytes.Equal(newData, replay(t, oldData, instructions)))

	var sawBlank bool
	for _, in := range instructions {
		if in.Op == record.OpBlank {
			sawBlank = true
		}
	}
	require.True(t, sawBlank)
}

func TestGenerateSetToRun(t *testing.T) {
	oldData := bytes.Repeat([]byte{'a'}, 64)
	newData := append([]byte(nil), oldData...)
	for i := 20; i < 50; i++ {
		newData[i] = 'z'
	}
	instructions, _, err := Generate(oldData, newData)
	require.NoError(t, err)
	require.True(t, bytes.Equal(newData, replay(t, oldData, instructions)))

	var sawSetTo bool
	for _, in := range instructions {
		if in.Op == record.OpSetTo {
			sawSetTo = true
		}
	}
	require.True(t, sawSetTo)
}

func TestGenerateScattered(t *testing.T) {
	oldData := make([]byte, 256)
	for i := range oldData {
		oldData[i] = byte(i)
	}
	newData := append([]byte(nil), oldData...)
	for _, i := range []int{3, 4, 5, 50, 51, 120, 200, 201, 202, 203} {
		newData[i] = byte(255 - i)
	}
	instructions, _, err := Generate(oldData, newData)
	require.NoError(t, err)
	require.True(t, bytes.Equal(newData, replay(t, oldData, instructions)))
}

func TestGenerateLengthMismatch(t *testing.T) {
	_, _, err := Generate([]byte("a"), []byte("ab"))
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestGenerateEmptyBuffers(t *testing.T) {
	instructions, _, err := Generate(nil, nil)
	require.NoError(t, err)
	require.Empty(t, instructions)
}
