package record

import (
	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
)

// Kind identifies which of the three repo file shapes a Decoded value holds.
type Kind int

const (
	KindHeader Kind = iota
	KindBranchHead
	KindCommit
)

// Decoded is the result of decoding a repo file's raw bytes: exactly one of
// Header, Branch, or Commit is populated depending on Kind. StoredHash is
// the SHA3-224 digest of the raw bytes themselves — the bookkeeping hash
// write-back compares against to detect whether the file changed on disk
// since it was last read, not the record's own content-addressed name.
type Decoded struct {
	Kind       Kind
	StoredHash [codec.DigestSize]byte
	Header     *Header
	Branch     *BranchHead
	Commit     *Commit
}

// Decode parses a repo file's raw bytes, dispatching on its type byte the
// way the format's additive aspect bits require: Head and BranchHead are
// exclusive terminal shapes, Delete and Folder(+NewFolder) are terminal
// commit shapes, and the remaining bits (Resize, Rename, Edit) combine
// freely on top of NewFile or a bare previous-commit pointer.
func Decode(data []byte) (*Decoded, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	storedHash := codec.HashData(data)
	typ := data[1]
	offset := 2

	if typ == TypeHead {
		name, n := codec.GetCString(codec.SafeSlice(data, offset))
		offset += n
		numBranches, n := codec.DecodeVarint(codec.SafeSlice(data, offset))
		offset += n
		branches := make([]string, 0, numBranches)
		for i := uint64(0); i < numBranches && offset < len(data); i++ {
			b, bn := codec.GetCString(codec.SafeSlice(data, offset))
			offset += bn
			if b != "" {
				branches = append(branches, b)
			}
		}
		return &Decoded{
			Kind:       KindHeader,
			StoredHash: storedHash,
			Header:     &Header{Name: name, Branches: branches},
		}, nil
	}

	prev := cid.FromBEBytes(codec.SafeCut(codec.SafeSlice(data, offset), cid.Size))
	offset += cid.Size

	if typ == TypeBranchHead {
		return &Decoded{
			Kind:       KindBranchHead,
			StoredHash: storedHash,
			Branch:     &BranchHead{PreviousCommit: prev},
		}, nil
	}

	c := &Commit{PreviousCommit: prev}

	if (typ%0x20)/0x10 == 1 {
		userID := codec.GetUint32BE(codec.SafeCut(codec.SafeSlice(data, offset), 4))
		offset += 4
		var deviceID byte
		if offset < len(data) {
			deviceID = data[offset]
		}
		offset++
		text, n := codec.GetCString(codec.SafeSlice(data, offset))
		offset += n
		timestamp, n := codec.DecodeVarint(codec.SafeSlice(data, offset))
		offset += n
		c.Info = &CommitInfo{UserID: userID, DeviceID: deviceID, Text: text, Timestamp: timestamp}
	}
	typ = typ % 0x10

	if typ == TypeNewFile {
		c.NewFile = true
		// NewFile always carries Resize, Rename, and Edit aspects; fall
		// through into parsing all three the way a record with those bits
		// set directly would.
		typ = TypeEdit + TypeRename + TypeResize
	}

	if typ == TypeDelete {
		c.Delete = true
		return &Decoded{Kind: KindCommit, StoredHash: storedHash, Commit: c}, nil
	}

	if typ == TypeNewFolder {
		name, n := codec.GetCString(codec.SafeSlice(data, offset))
		offset += n
		c.HasNewFolder = true
		c.NewFolderName = name
		// NewFolder always carries the Folder aspect listing its children.
		typ = TypeFolder
	}
	if typ == TypeFolder {
		var children []cid.ID
		for offset < len(data) {
			children = append(children, cid.FromBEBytes(codec.SafeCut(codec.SafeSlice(data, offset), cid.Size)))
			offset += cid.Size
		}
		c.HasFolder = true
		c.Children = children
		return &Decoded{Kind: KindCommit, StoredHash: storedHash, Commit: c}, nil
	}

	if typ/TypeResize == 1 {
		size, n := codec.DecodeVarint(codec.SafeSlice(data, offset))
		offset += n
		c.HasResize = true
		c.Size = size
	}
	typ = typ % TypeResize

	if typ/TypeRename == 1 {
		text, n := codec.GetCString(codec.SafeSlice(data, offset))
		offset += n
		c.HasRename = true
		c.RenameTo = text
	}
	typ = typ % TypeRename

	if typ/TypeEdit == 1 {
		c.HasEdit = true
		c.rawEdit = codec.SafeSlice(data, offset)
	}

	return &Decoded{Kind: KindCommit, StoredHash: storedHash, Commit: c}, nil
}
