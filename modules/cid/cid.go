// Package cid implements the 29-byte content identifier every repo file
// record is addressed by: a leading collision-break byte followed by the
// SHA3-224 digest of the content the record names (a file commit's file
// bytes, or a folder commit's concatenated child CIDs).
package cid

import (
	"bytes"

	"github.com/cellarscm/engine/modules/codec"
)

// Size is the on-disk width of a CID: one collision-break byte plus a
// 28-byte SHA3-224 digest.
const Size = 1 + codec.DigestSize

// ID is a content identifier. The zero value is the all-zero CID used as
// the sentinel previous-commit reference for a repository's first commit.
type ID [Size]byte

// Zero is the sentinel CID meaning "no previous commit".
var Zero ID

// FromDigest builds a CID with collision byte 0 from a raw SHA3-224 digest.
func FromDigest(digest [codec.DigestSize]byte) ID {
	var id ID
	copy(id[1:], digest[:])
	return id
}

// FromBEBytes builds a CID from a byte slice, truncating or left-padding it
// to Size the way the record decoder handles an unexpectedly short or long
// previous-commit field.
func FromBEBytes(b []byte) ID {
	var id ID
	if len(b) >= Size {
		copy(id[:], b[len(b)-Size:])
		return id
	}
	copy(id[Size-len(b):], b)
	return id
}

// ToBEBytes returns the CID's Size-byte on-disk representation.
func (id ID) ToBEBytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// IsZero reports whether id is the sentinel "no previous commit" value.
func (id ID) IsZero() bool {
	return id == Zero
}

// CollisionByte returns the leading byte used to disambiguate commits that
// would otherwise share the same SHA3-224 digest.
func (id ID) CollisionByte() byte {
	return id[0]
}

// WithCollisionByte returns a copy of id with its collision byte replaced.
func (id ID) WithCollisionByte(b byte) ID {
	out := id
	out[0] = b
	return out
}

// EqualModCollision reports whether two CIDs carry the same digest,
// ignoring their collision bytes: the equality used when comparing a
// file's content hash against a historical CID, since two on-disk commit
// records can legitimately differ only in collision byte.
func (id ID) EqualModCollision(other ID) bool {
	return bytes.Equal(id[1:], other[1:])
}

// String renders the CID as lowercase hex, matching the filename it is
// stored under on disk.
func (id ID) String() string {
	return codec.EncodeHex(id[:])
}

// Parse decodes a hex string produced by String back into an ID.
func Parse(s string) ID {
	return FromBEBytes(codec.DecodeHex(s))
}
