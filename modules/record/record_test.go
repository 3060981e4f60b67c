package record

import (
	"testing"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{Name: "my-repo", Branches: []string{"main", "dev"}}
	decoded, err := Decode(h.Encode())
	require.NoError(t, err)
	require.Equal(t, KindHeader, decoded.Kind)
	require.Equal(t, h, decoded.Header)
}

func TestHeaderNoBranches(t *testing.T) {
	h := &Header{Name: "empty"}
	decoded, err := Decode(h.Encode())
	require.NoError(t, err)
	require.Equal(t, "empty", decoded.Header.Name)
	require.Empty(t, decoded.Header.Branches)
}

func TestBranchHeadRoundTrip(t *testing.T) {
	prev := cid.FromDigest(codec.HashData([]byte("commit-a")))
	b := &BranchHead{PreviousCommit: prev}
	decoded, err := Decode(b.Encode())
	require.NoError(t, err)
	require.Equal(t, KindBranchHead, decoded.Kind)
	require.Equal(t, prev, decoded.Branch.PreviousCommit)
}

func TestCommitDeleteRoundTrip(t *testing.T) {
	prev := cid.FromDigest(codec.HashData([]byte("to-delete")))
	c := &Commit{PreviousCommit: prev, Delete: true}
	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	require.True(t, decoded.Commit.Delete)
	require.Equal(t, prev, decoded.Commit.PreviousCommit)
}

func TestCommitNewFileWithResizeRenameEdit(t *testing.T) {
	c := &Commit{
		NewFile:   true,
		HasResize: true,
		Size:      10,
		HasRename: true,
		RenameTo:  "notes.txt",
		HasEdit:   true,
	}
	c.Instructions = []Instruction{
		{Pointer: 0, NumBytes: 3, Op: OpReplace, Replace: []byte("abc")},
	}
	c.editPointerSize = PointerSizeForSize(c.Size)
	c.editParsed = true

	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	got := decoded.Commit
	require.True(t, got.NewFile)
	require.True(t, got.HasResize)
	require.Equal(t, uint64(10), got.Size)
	require.True(t, got.HasRename)
	require.Equal(t, "notes.txt", got.RenameTo)
	require.True(t, got.HasEdit)
	require.True(t, got.NeedsPointerSize())

	pointerSize, _ := got.PointerSize()
	require.NoError(t, got.ParseEdit(pointerSize))
	require.Equal(t, c.Instructions, got.Instructions)
}

func TestCommitNewFolderRoundTrip(t *testing.T) {
	children := []cid.ID{cid.FromDigest(codec.HashData([]byte("a"))), cid.FromDigest(codec.HashData([]byte("b")))}
	c := &Commit{
		HasNewFolder:  true,
		NewFolderName: "assets",
		HasFolder:     true,
		Children:      children,
	}
	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	got := decoded.Commit
	require.True(t, got.HasNewFolder)
	require.Equal(t, "assets", got.NewFolderName)
	require.Equal(t, children, got.Children)
}

func TestCommitFolderWithoutNewFolder(t *testing.T) {
	prev := cid.FromDigest(codec.HashData([]byte("folder-history")))
	children := []cid.ID{cid.FromDigest(codec.HashData([]byte("c")))}
	c := &Commit{PreviousCommit: prev, HasFolder: true, Children: children}
	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	require.False(t, decoded.Commit.HasNewFolder)
	require.Equal(t, children, decoded.Commit.Children)
}

func TestCommitResizeRenameEditWithoutNewFile(t *testing.T) {
	c := &Commit{
		HasResize: true,
		Size:      4,
		HasRename: true,
		RenameTo:  "b.txt",
		HasEdit:   true,
	}
	c.Instructions = []Instruction{{Pointer: 1, NumBytes: 1, Op: OpBlank}}
	c.editPointerSize = 1
	c.editParsed = true

	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	got := decoded.Commit
	require.False(t, got.NewFile)
	require.True(t, got.HasResize)
	require.True(t, got.HasRename)
	require.True(t, got.HasEdit)
	pointerSize, ok := got.PointerSize()
	require.True(t, ok)
	require.NoError(t, got.ParseEdit(pointerSize))
	require.Equal(t, c.Instructions, got.Instructions)
}

func TestCommitInfoMixesWithDelete(t *testing.T) {
	c := &Commit{
		Info:   &CommitInfo{UserID: 7, DeviceID: 2, Text: "retire file", Timestamp: 1000},
		Delete: true,
	}
	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	got := decoded.Commit
	require.True(t, got.Delete)
	require.NotNil(t, got.Info)
	require.Equal(t, *c.Info, *got.Info)
}

func TestPointerSizeUnknownWithoutLocalResize(t *testing.T) {
	c := &Commit{HasEdit: true, rawEdit: []byte{0x02, 0x00, 0x01}}
	_, ok := c.PointerSize()
	require.False(t, ok)
	require.True(t, c.NeedsPointerSize())
}

func TestPointerSizeForSize(t *testing.T) {
	require.Equal(t, 1, PointerSizeForSize(255))
	require.Equal(t, 2, PointerSizeForSize(256))
	require.Equal(t, 2, PointerSizeForSize(65535))
	require.Equal(t, 3, PointerSizeForSize(65536))
}
