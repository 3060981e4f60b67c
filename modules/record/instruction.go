package record

import (
	"github.com/cellarscm/engine/modules/codec"
)

// Encode returns the instruction's wire bytes: a type byte, a
// pointerSize-byte big-endian offset, a varint length, then an op-specific
// tail. An instruction with Op OpNone encodes to nothing — it is dropped on
// re-encode, matching how a cleared instruction vanishes from a record.
func (in Instruction) Encode(pointerSize int) []byte {
	if in.Op == OpNone {
		return nil
	}
	out := make([]byte, 1, 1+pointerSize+4)
	out = append(out, codec.ResizeBE(in.Pointer, pointerSize)...)
	out = append(out, codec.EncodeVarint(in.NumBytes)...)
	var typ byte
	switch in.Op {
	case OpReplace:
		out = append(out, in.Replace...)
		typ = 0x01
	case OpBlank:
		typ = 0x02
	case OpSetTo:
		out = append(out, in.SetTo)
		typ = 0x03
	case OpCopy:
		out = append(out, codec.ResizeBE(in.CopyFrom, pointerSize)...)
		typ = 0x04
	}
	out[0] = typ
	return out
}

// DecodeInstruction reads one instruction from the front of data, returning
// it along with the number of bytes consumed. It returns ok=false if data
// doesn't even hold a recognized op byte; truncated tails degrade to zero
// values rather than failing.
func DecodeInstruction(data []byte, pointerSize int) (in Instruction, consumed int, ok bool) {
	if len(data) == 0 {
		return Instruction{}, 0, false
	}
	op := data[0]
	rest := codec.SafeSlice(data, 1)
	ptrBytes := codec.SafeCut(rest, pointerSize)
	pointer := codec.GetUint64BE(ptrBytes)
	rest = codec.SafeSlice(rest, pointerSize)
	length, n := codec.DecodeVarint(rest)
	rest = codec.SafeSlice(rest, n)
	consumed = 1 + pointerSize + n

	switch op {
	case 0x01:
		tail := codec.SafeCut(rest, int(length))
		consumed += len(tail)
		return Instruction{Pointer: pointer, NumBytes: length, Op: OpReplace, Replace: tail}, consumed, true
	case 0x02:
		return Instruction{Pointer: pointer, NumBytes: length, Op: OpBlank}, consumed, true
	case 0x03:
		var setTo byte
		if len(rest) > 0 {
			setTo = rest[0]
			consumed++
		}
		return Instruction{Pointer: pointer, NumBytes: length, Op: OpSetTo, SetTo: setTo}, consumed, true
	case 0x04:
		copyBytes := codec.SafeCut(rest, pointerSize)
		copyFrom := codec.GetUint64BE(copyBytes)
		consumed += len(copyBytes)
		return Instruction{Pointer: pointer, NumBytes: length, Op: OpCopy, CopyFrom: copyFrom}, consumed, true
	default:
		return Instruction{}, 0, false
	}
}

// Run applies the instruction to buf in place. An out-of-range Pointer (or
// CopyFrom, for OpCopy) makes it a no-op; a range that would overrun buf is
// silently clamped to what's left.
func (in Instruction) Run(buf []byte) {
	if in.Pointer >= uint64(len(buf)) {
		return
	}
	n := in.NumBytes
	if in.Pointer+n > uint64(len(buf)) {
		n = uint64(len(buf)) - in.Pointer
	}
	switch in.Op {
	case OpReplace:
		for i := uint64(0); i < n && i < uint64(len(in.Replace)); i++ {
			buf[in.Pointer+i] = in.Replace[i]
		}
	case OpBlank:
		for i := uint64(0); i < n; i++ {
			buf[in.Pointer+i] = 0
		}
	case OpSetTo:
		for i := uint64(0); i < n; i++ {
			buf[in.Pointer+i] = in.SetTo
		}
	case OpCopy:
		if in.CopyFrom >= uint64(len(buf)) {
			return
		}
		m := n
		if in.CopyFrom+m > uint64(len(buf)) {
			m = uint64(len(buf)) - in.CopyFrom
		}
		for i := uint64(0); i < m; i++ {
			buf[in.Pointer+i] = buf[in.CopyFrom+i]
		}
	}
}
