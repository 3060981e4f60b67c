// Package codec implements the wire-level primitives the storage engine
// builds every record on: a UTF-8-shaped variable length integer, fixed-width
// big-endian integers, NUL-terminated strings, and the hex/hash helpers that
// sit on top of them.
package codec

import "math/bits"

// wrapShl and wrapShr shift a single byte with the shift amount taken
// modulo 8 instead of producing zero once the count reaches the bit width.
// The varint head generator relies on that wraparound at the 7-byte form's
// boundary.
func wrapShl(b byte, n uint) byte { return b << (n % 8) }
func wrapShr(b byte, n uint) byte { return b >> (n % 8) }

// leadingOnes counts the consecutive 1 bits starting from the most
// significant bit of b.
func leadingOnes(b byte) int { return bits.LeadingZeros8(^b) }

// escapeContinuations is how many continuation bytes follow an all-ones
// head byte. A head with every bit set has no room left for payload, so it
// is treated as a pure length marker the way a 9-byte head would be, with
// the value spread entirely across the continuation bytes: 9 of them carry
// 54 payload bits, enough for any length or timestamp a record can hold.
const escapeContinuations = 9

// decodeDivider returns the mask used to strip the header bits from the
// first byte of an n-byte varint head. The single-byte form (n == 0) and
// the all-ones escape (n == 8) are handled before the table, so n is in
// [1,7] here; n == 1 (a continuation byte in head position) only arises
// from malformed input and falls back to 1 so the modulo below is well
// defined.
func decodeDivider(n int) byte {
	switch n {
	case 2:
		return 0b1100_0000
	case 3:
		return 0b1110_0000
	case 4:
		return 0b1111_0000
	case 5:
		return 0b1111_1000
	case 6:
		return 0b1111_1100
	case 7:
		return 0b1111_1110
	default:
		return 1
	}
}

// headMask returns the header bit pattern written into the first byte of an
// n-byte varint during encoding. Unlike decodeDivider it defaults to 0; the
// default only matters for n outside [2,7], which EncodeVarint never
// produces.
func headMask(n int) byte {
	switch n {
	case 2:
		return 0b1100_0000
	case 3:
		return 0b1110_0000
	case 4:
		return 0b1111_0000
	case 5:
		return 0b1111_1000
	case 6:
		return 0b1111_1100
	case 7:
		return 0b1111_1110
	default:
		return 0
	}
}

// DecodeVarint reads a varint from the front of data and returns its value
// and the number of bytes it occupied. It returns (0, 0) if data is empty or
// the head byte claims more continuation bytes than data holds.
//
// A head byte with no leading 1 bit is a single byte carrying its value
// directly. A head byte with every bit set is the escape form: exactly
// escapeContinuations continuation bytes follow, six payload bits each.
// Otherwise the count of leading 1 bits is the number of bytes the varint
// occupies (2 through 7); the first byte contributes its low bits (per
// decodeDivider) and every continuation byte contributes six more.
func DecodeVarint(data []byte) (uint64, int) {
	if len(data) == 0 {
		return 0, 0
	}
	n := leadingOnes(data[0])
	if n == 0 {
		return uint64(data[0]), 1
	}
	if n == 8 {
		total := 1 + escapeContinuations
		if total > len(data) {
			return 0, 0
		}
		var value uint64
		for i := 1; i < total; i++ {
			value = value<<6 + uint64(data[i]%0x80)
		}
		return value, total
	}
	if n > len(data) {
		return 0, 0
	}
	divider := decodeDivider(n)
	value := uint64(data[0] % divider)
	for i := 1; i < n; i++ {
		value = value<<6 + uint64(data[i]%0x80)
	}
	return value, n
}

// EncodeVarint writes n as a varint: values under 128 take a single byte,
// larger values spread across 2 to 7 bytes with a head byte whose leading 1
// bits count the total length. Values past the 7-byte form's 36 payload
// bits use the all-ones escape head followed by escapeContinuations
// continuation bytes; values needing more than their 54 bits keep only
// their low 54, a range no field in the record format reaches.
func EncodeVarint(n uint64) []byte {
	if n < 128 {
		return []byte{byte(n)}
	}
	numBits := bits.Len64(n) - 1
	shedBits := 0
	if numBits > 6 {
		shedBits = numBits - 6
	}
	bytesInTar := shedBits/5 + 2
	if bytesInTar > 7 {
		out := make([]byte, 0, 1+escapeContinuations)
		out = append(out, 0xFF)
		for pos := escapeContinuations - 1; pos >= 0; pos-- {
			out = append(out, byte((n>>(6*pos))&0x3F)|0x80)
		}
		return out
	}
	var be [8]byte
	for i := 0; i < 8; i++ {
		be[7-i] = byte(n >> (8 * i))
	}
	out := make([]byte, 0, bytesInTar)
	out = append(out, generateHead(be, bytesInTar))
	for pos := bytesInTar - 2; pos >= 0; pos-- {
		out = append(out, generateAppendByte(be, pos))
	}
	return out
}

// generateHead builds the head byte of a numberOfBytes-long varint from the
// 8-byte big-endian representation of the value.
func generateHead(be [8]byte, numberOfBytes int) byte {
	mask := headMask(numberOfBytes)
	offset := (numberOfBytes - 1) * 6
	offsetByte := offset / 8
	lowerByte := wrapShr(be[7-offsetByte], uint(offset%8))
	upperByte := wrapShl(wrapShl(be[7-offsetByte-1], uint(8-(offset%8)-1)), 1)
	shift := uint(numberOfBytes + 1)
	value := wrapShl(lowerByte+upperByte, shift)
	value = wrapShr(value, shift)
	return value + mask
}

// generateAppendByte builds the continuation byte at position pos (0 is the
// byte nearest the head) of a varint from the value's big-endian bytes.
func generateAppendByte(be [8]byte, pos int) byte {
	offset := pos * 6
	offsetByte := offset / 8
	lowerByte := wrapShr(be[7-offsetByte], uint(offset%8))
	upperByte := wrapShl(wrapShl(be[7-offsetByte-1], uint(8-(offset%8)-1)), 1)
	return (upperByte+lowerByte)%0b0100_0000 + 0b1000_0000
}
