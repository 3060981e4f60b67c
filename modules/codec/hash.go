package codec

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// DigestSize is the width of the raw SHA3-224 digest underlying every CID.
const DigestSize = 28

// Hasher wraps a SHA3-224 digest: write through it like any io.Writer, then
// take a fixed-size Sum.
type Hasher struct {
	hash.Hash
}

// NewHasher returns a Hasher ready to accept writes.
func NewHasher() Hasher {
	return Hasher{Hash: sha3.New224()}
}

// Sum224 returns the current digest as a fixed-size array without
// disturbing the underlying hash state.
func (h Hasher) Sum224() (digest [DigestSize]byte) {
	copy(digest[:], h.Hash.Sum(nil))
	return
}

// HashData returns the SHA3-224 digest of data in one call.
func HashData(data []byte) (digest [DigestSize]byte) {
	h := NewHasher()
	_, _ = h.Write(data)
	return h.Sum224()
}
