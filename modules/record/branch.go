package record

import (
	"github.com/cellarscm/engine/modules/cid"
)

// BranchHead is a branch ref file: nothing but a pointer at the commit the
// branch currently names.
type BranchHead struct {
	PreviousCommit cid.ID
}

// Encode returns BranchHead's on-disk bytes.
func (b *BranchHead) Encode() []byte {
	out := []byte{Version, TypeBranchHead}
	return append(out, b.PreviousCommit.ToBEBytes()...)
}
