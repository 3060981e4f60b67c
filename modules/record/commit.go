package record

import (
	"fmt"
	"math/bits"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
)

// Commit is a single repo file record in a commit chain: a previous-commit
// pointer plus whichever aspects apply to it. Exactly one of Delete,
// (NewFile or NewFolder+Folder), or a combination of Resize/Rename/Edit is
// meaningful at a time, per the type-mask rules Encode/Decode implement.
type Commit struct {
	PreviousCommit cid.ID
	Info           *CommitInfo

	Delete bool

	NewFile bool

	HasNewFolder  bool
	NewFolderName string

	HasFolder bool
	Children  []cid.ID

	HasResize bool
	Size      uint64

	HasRename bool
	RenameTo  string

	HasEdit      bool
	Instructions []Instruction

	editParsed      bool
	editPointerSize int
	rawEdit         []byte
}

// Encode returns Commit's on-disk bytes, building the type-mask byte by
// additive aspect bits exactly as the format requires: NewFile/NewFolder
// subsume the Resize/Rename/Edit and Folder bits they always carry, so
// those bits are only added when NewFile/NewFolder isn't already present.
func (c *Commit) Encode() []byte {
	out := []byte{Version, 0x00}
	out = append(out, c.PreviousCommit.ToBEBytes()...)

	if c.Info != nil {
		out[1] = TypeCommitInfo
		out = append(out, c.Info.Encode()...)
	}

	if c.Delete {
		out[1] += TypeDelete
		return out
	}

	if c.NewFile {
		out[1] += TypeNewFile
	} else if c.HasNewFolder {
		out[1] += TypeNewFolder
		out = append(out, codec.PutCString(c.NewFolderName)...)
	}

	if c.HasFolder {
		if !c.HasNewFolder {
			out[1] += TypeFolder
		}
		for _, child := range c.Children {
			out = append(out, child.ToBEBytes()...)
		}
		return out
	}

	if c.HasResize {
		if !c.NewFile {
			out[1] += TypeResize
		}
		out = append(out, codec.EncodeVarint(c.Size)...)
	}

	if c.HasRename {
		if !c.NewFile {
			out[1] += TypeRename
		}
		out = append(out, codec.PutCString(c.RenameTo)...)
	}

	if c.HasEdit {
		if !c.NewFile {
			out[1] += TypeEdit
		}
		if !c.editParsed {
			out = append(out, c.rawEdit...)
		} else {
			for _, in := range c.Instructions {
				out = append(out, in.Encode(c.editPointerSize)...)
			}
		}
	}

	return out
}

// Encode returns CommitInfo's on-disk bytes.
func (ci *CommitInfo) Encode() []byte {
	out := codec.PutUint32BE(ci.UserID)
	out = append(out, ci.DeviceID)
	out = append(out, codec.PutCString(ci.Text)...)
	out = append(out, codec.EncodeVarint(ci.Timestamp)...)
	return out
}

// PointerSizeForSize derives the byte width needed to address an offset
// into a buffer of the given size: floor(log2(size))/8 + 1. A 16-bit size
// needs 2 bytes, a 17-bit size needs 3.
func PointerSizeForSize(size uint64) int {
	if size == 0 {
		return 1
	}
	log2Floor := bits.Len64(size) - 1
	return log2Floor/8 + 1
}

// PointerSize returns the commit's own pointer size and true if it can be
// determined locally (from a Resize aspect, or an already-parsed Edit
// aspect). It returns false when the commit carries only an unparsed Edit
// and no Resize of its own — the caller must resolve the width by walking
// to the nearest ancestor that declares one, since this format inherits
// pointer size down a commit chain rather than repeating it everywhere.
func (c *Commit) PointerSize() (int, bool) {
	if c.HasResize {
		return PointerSizeForSize(c.Size), true
	}
	if c.HasEdit && c.editParsed {
		return c.editPointerSize, true
	}
	return 0, false
}

// NeedsPointerSize reports whether the commit holds raw, unparsed edit
// bytes awaiting ParseEdit.
func (c *Commit) NeedsPointerSize() bool {
	return c.HasEdit && !c.editParsed
}

// SetInstructions attaches an already-built instruction list to a freshly
// constructed (not decoded) commit, marking it parsed against pointerSize
// so Encode emits the instructions directly rather than looking for raw
// bytes. Used by the delta generator's caller when assembling a new
// commit record, as opposed to ParseEdit which resolves one decoded from
// disk.
func (c *Commit) SetInstructions(pointerSize int, instructions []Instruction) {
	c.HasEdit = true
	c.Instructions = instructions
	c.editPointerSize = pointerSize
	c.editParsed = true
	c.rawEdit = nil
}

// ParseEdit decodes the commit's raw Edit tail into Instructions using the
// given pointer size, resolved by the caller (typically by walking the
// commit chain to the nearest Resize or already-parsed Edit).
func (c *Commit) ParseEdit(pointerSize int) error {
	if !c.HasEdit {
		return fmt.Errorf("record: commit has no edit aspect to parse")
	}
	if c.editParsed {
		return nil
	}
	data := c.rawEdit
	var list []Instruction
	offset := 0
	for offset < len(data) {
		in, n, ok := DecodeInstruction(data[offset:], pointerSize)
		if !ok {
			break
		}
		list = append(list, in)
		offset += n
	}
	c.Instructions = list
	c.editPointerSize = pointerSize
	c.editParsed = true
	c.rawEdit = nil
	return nil
}
