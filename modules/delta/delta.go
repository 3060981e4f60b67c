// Package delta implements the greedy, scan-based instruction generator
// that turns an old and a new version of a same-length byte buffer into the
// smallest practical sequence of Blank/SetTo/Replace edit instructions,
// verifying by replay that the result reproduces the new buffer exactly.
package delta

import (
	"errors"

	"github.com/cellarscm/engine/modules/codec"
	"github.com/cellarscm/engine/modules/record"
)

// ErrRoundTripFailed means the generated instructions, replayed over the
// old buffer, did not reproduce the new buffer. It signals a defect in the
// generator itself, not a property of the input — callers should treat it
// as fatal the way a corrupt-HEADER read is fatal.
var ErrRoundTripFailed = errors.New("delta: round-trip verification failed")

// ErrLengthMismatch is returned when the two buffers aren't the same
// length; callers are expected to resize (zero-pad or truncate) the old
// buffer to the new length themselves, since that resize is itself a
// Resize aspect the caller records on the commit.
var ErrLengthMismatch = errors.New("delta: old and new buffers must be the same length")

type diffEntry struct {
	offset int
	val    byte
}

// Generate produces the edit instructions that transform oldData into
// newData, plus the pointer size they were built against. oldData and
// newData must already be the same length.
func Generate(oldData, newData []byte) ([]record.Instruction, int, error) {
	if len(oldData) != len(newData) {
		return nil, 0, ErrLengthMismatch
	}

	pointerSize := record.PointerSizeForSize(uint64(len(newData)))
	insOverhead := 1 + pointerSize + 1 // type byte + pointer bytes + minimum length byte

	var diff []diffEntry
	for i := range newData {
		if newData[i] != oldData[i] {
			diff = append(diff, diffEntry{offset: i, val: newData[i]})
		}
	}

	verify := append([]byte(nil), oldData...)
	var instructions []record.Instruction

	index := 0
	for index < len(diff) {
		block := []byte{diff[index].val}
		singleType := true
		addIndex := 1

	scan:
		for index+addIndex < len(diff) {
			lastOffset := diff[index+addIndex-1].offset
			offset := diff[index+addIndex].offset
			val := diff[index+addIndex].val

			if offset > lastOffset+1 {
				// At least one unchanged byte separates this diff entry
				// from the block being built.
				if offset > lastOffset+insOverhead {
					// Gap too large to absorb; start a new instruction.
					break
				} else if singleType && block[0] != val && len(block) > insOverhead {
					break
				} else {
					// Absorb the unchanged bytes in between into the block.
					for addOffset := 1; lastOffset+addOffset <= offset; addOffset++ {
						v := newData[lastOffset+addOffset]
						if singleType && v != block[0] {
							if len(block)-addOffset+1 > insOverhead {
								// Close the block before the gap; the diff
								// entry at offset starts the next instruction.
								block = block[:len(block)-addOffset+1]
								break scan
							}
							singleType = false
							block = append(block, v)
						} else {
							block = append(block, v)
						}
					}
				}
			} else {
				// Contiguous with the previous diff entry.
				if singleType && block[0] != val {
					if len(block) > insOverhead {
						break
					}
					singleType = false
					block = append(block, val)
				} else {
					block = append(block, val)
				}
			}
			addIndex++
		}

		var ins record.Instruction
		pointer := uint64(diff[index].offset)
		numBytes := uint64(len(block))
		switch {
		case singleType && block[0] == 0x00:
			ins = record.Instruction{Pointer: pointer, NumBytes: numBytes, Op: record.OpBlank}
		case singleType:
			ins = record.Instruction{Pointer: pointer, NumBytes: numBytes, Op: record.OpSetTo, SetTo: block[0]}
		default:
			ins = record.Instruction{Pointer: pointer, NumBytes: numBytes, Op: record.OpReplace, Replace: append([]byte(nil), block...)}
		}

		ins.Run(verify)
		instructions = append(instructions, ins)
		index += addIndex
	}

	if codec.HashData(newData) != codec.HashData(verify) {
		return nil, 0, ErrRoundTripFailed
	}

	return instructions, pointerSize, nil
}
