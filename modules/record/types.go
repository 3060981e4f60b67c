// Package record implements the on-disk repo file formats: the repository
// Header, BranchHead pointers, and Commit records built from additive
// aspect bits (CommitInfo, Delete, NewFile, NewFolder, Folder, Resize,
// Rename, Edit). Encoding and decoding follow the exact type-mask dispatch
// rules of the format this engine is content-addressed storage for.
package record

import "fmt"

// Version is the only repo file format version this engine writes or
// accepts.
const Version byte = 0

// Type codes identify what a repo file on disk holds. Head and BranchHead
// are mutually exclusive with everything else; a Commit record's type byte
// is the sum of whichever aspect codes below apply to it.
const (
	TypeHead       byte = 0x00
	TypeBranchHead byte = 0x01
	TypeEdit       byte = 0x02
	TypeNewFile    byte = 0x03
	TypeRename     byte = 0x04
	TypeDelete     byte = 0x05
	TypeResize     byte = 0x08
	TypeNewFolder  byte = 0x0D
	TypeFolder     byte = 0x0F
	TypeCommitInfo byte = 0x10
)

// Operation identifies what an edit Instruction does to the bytes in its
// range.
type Operation byte

const (
	OpNone Operation = iota
	OpReplace
	OpBlank
	OpSetTo
	OpCopy
)

func (op Operation) String() string {
	switch op {
	case OpReplace:
		return "replace"
	case OpBlank:
		return "blank"
	case OpSetTo:
		return "set-to"
	case OpCopy:
		return "copy"
	default:
		return "none"
	}
}

// Instruction is one step of a commit's Edit aspect: starting at Pointer,
// touch NumBytes bytes of the buffer according to Op.
type Instruction struct {
	Pointer  uint64
	NumBytes uint64
	Op       Operation
	// Replace holds the NumBytes replacement bytes for OpReplace.
	Replace []byte
	// SetTo holds the fill byte for OpSetTo.
	SetTo byte
	// CopyFrom holds the source offset for OpCopy.
	CopyFrom uint64
}

// CommitInfo carries the authorship metadata a commit may optionally be
// stamped with.
type CommitInfo struct {
	UserID    uint32
	DeviceID  byte
	Text      string
	Timestamp uint64
}

// ErrTruncated is returned when a repo file is shorter than its version and
// type bytes. A payload that ends early after those two bytes is not
// reported: its missing fields decode as zero values.
var ErrTruncated = fmt.Errorf("record: truncated repo file")

// ErrUnknownType names a type byte that matches none of the recognized
// dispatch rules. Decode does not return it: every type byte other than
// Head and BranchHead decodes as a commit carrying whatever aspects its
// bits select.
var ErrUnknownType = fmt.Errorf("record: unrecognized type byte")
