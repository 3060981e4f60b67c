package record

import (
	"github.com/cellarscm/engine/modules/codec"
)

// Header is the repository-wide HEADER file: the repository's display name
// and the list of branch names it currently tracks.
type Header struct {
	Name     string
	Branches []string
}

// Encode returns Header's on-disk bytes.
func (h *Header) Encode() []byte {
	out := []byte{Version, TypeHead}
	out = append(out, codec.PutCString(h.Name)...)
	out = append(out, codec.EncodeVarint(uint64(len(h.Branches)))...)
	for _, b := range h.Branches {
		out = append(out, codec.PutCString(b)...)
	}
	return out
}
