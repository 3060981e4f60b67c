package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/record"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := Create(filepath.Join(t.TempDir(), "repo"), "scenario-repo")
	require.NoError(t, err)
	return r
}

// An initial commit of a single file carries the full NewFile aspect
// set and checks back out byte-identical.
func TestScenarioInitialFileCommit(t *testing.T) {
	r := newTestRepo(t)
	work := t.TempDir()
	src := filepath.Join(work, "a.bin")
	require.NoError(t, os.WriteFile(src, bytesOf(0x41, 16), 0o644))

	cid1, err := r.CreateCommit(cid.Zero, src, false)
	require.NoError(t, err)
	require.False(t, cid1.IsZero())

	c, err := r.GetCommit(cid1)
	require.NoError(t, err)
	require.True(t, c.NewFile)
	require.True(t, c.HasResize)
	require.EqualValues(t, 16, c.Size)
	require.True(t, c.HasRename)
	require.Equal(t, "a.bin", c.RenameTo)
	require.True(t, c.HasEdit)
	require.Len(t, c.Instructions, 1)
	require.Equal(t, record.OpSetTo, c.Instructions[0].Op)
	require.Equal(t, byte(0x41), c.Instructions[0].SetTo)

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, r.BuildCommit(cid1, out))
	got, err := os.ReadFile(filepath.Join(out, "a.bin"))
	require.NoError(t, err)
	require.Equal(t, bytesOf(0x41, 16), got)
}

// Appending to a committed file produces a Resize plus an edit covering
// only the appended tail.
func TestScenarioAppend(t *testing.T) {
	r := newTestRepo(t)
	work := t.TempDir()
	src := filepath.Join(work, "a.bin")
	require.NoError(t, os.WriteFile(src, bytesOf(0x41, 16), 0o644))
	cid1, err := r.CreateCommit(cid.Zero, src, false)
	require.NoError(t, err)

	appended := append(bytesOf(0x41, 16), bytesOf(0x42, 4)...)
	require.NoError(t, os.WriteFile(src, appended, 0o644))
	cid2, err := r.CreateCommit(cid1, src, false)
	require.NoError(t, err)
	require.NotEqual(t, cid1, cid2)

	c, err := r.GetCommit(cid2)
	require.NoError(t, err)
	require.True(t, c.HasResize)
	require.EqualValues(t, 20, c.Size)

	_, data, err := r.reconstructFile(cid2)
	require.NoError(t, err)
	require.Equal(t, appended, data)
}

// A rename with unchanged content still produces a new commit, with an
// empty instruction list.
func TestScenarioRename(t *testing.T) {
	r := newTestRepo(t)
	work := t.TempDir()
	srcA := filepath.Join(work, "a.bin")
	content := append(bytesOf(0x41, 16), bytesOf(0x42, 4)...)
	require.NoError(t, os.WriteFile(srcA, content, 0o644))
	cid1, err := r.CreateCommit(cid.Zero, srcA, false)
	require.NoError(t, err)
	cid2, err := r.CreateCommit(cid1, srcA, false)
	require.NoError(t, err)
	require.Equal(t, cid1, cid2, "unchanged content is a no-op")

	srcB := filepath.Join(work, "b.bin")
	require.NoError(t, os.Rename(srcA, srcB))
	cid3, err := r.CreateCommit(cid2, srcB, false)
	require.NoError(t, err)
	require.NotEqual(t, cid2, cid3)

	c, err := r.GetCommit(cid3)
	require.NoError(t, err)
	require.True(t, c.HasRename)
	require.Equal(t, "b.bin", c.RenameTo)
	require.Empty(t, c.Instructions)

	out := t.TempDir()
	require.NoError(t, r.BuildCommit(cid3, out))
	got, err := os.ReadFile(filepath.Join(out, "b.bin"))
	require.NoError(t, err)
	require.Equal(t, content, got)
}

// Removing the working file turns the next commit into a Delete record.
func TestScenarioDelete(t *testing.T) {
	r := newTestRepo(t)
	work := t.TempDir()
	src := filepath.Join(work, "b.bin")
	require.NoError(t, os.WriteFile(src, bytesOf(0x41, 4), 0o644))
	cid1, err := r.CreateCommit(cid.Zero, src, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(src))
	cid2, err := r.CreateCommit(cid1, src, false)
	require.NoError(t, err)

	c, err := r.GetCommit(cid2)
	require.NoError(t, err)
	require.True(t, c.Delete)

	// Building a Delete commit is a no-op: nothing materializes, and a
	// parent folder skips a Delete child rather than resurrecting the
	// file (exercised in TestCreateFolderCommitDeletesVanishedChild).
	out := t.TempDir()
	require.NoError(t, r.BuildCommit(cid2, out))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// Swapping two files' contents inside a folder: name-match takes
// precedence over the content-hash coincidence, so each child advances
// along its own name chain.
func TestScenarioFolderReorder(t *testing.T) {
	r := newTestRepo(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), bytesOf(0x01, 4), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "y"), bytesOf(0x02, 4), 0o644))

	root1, err := r.CreateCommit(cid.Zero, dir, true)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), bytesOf(0x02, 4), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "y"), bytesOf(0x01, 4), 0o644))

	root2, err := r.CreateCommit(root1, dir, true)
	require.NoError(t, err)
	require.NotEqual(t, root1, root2)

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, r.BuildCommit(root2, out))
	gotX, err := os.ReadFile(filepath.Join(out, "x"))
	require.NoError(t, err)
	require.Equal(t, bytesOf(0x02, 4), gotX)
	gotY, err := os.ReadFile(filepath.Join(out, "y"))
	require.NoError(t, err)
	require.Equal(t, bytesOf(0x01, 4), gotY)
}

// The collision-break byte disambiguates two records with a colliding
// digest.
func TestScenarioCollisionBreak(t *testing.T) {
	r := newTestRepo(t)
	var digest [28]byte
	digest[0] = 0xAB

	first := cid.FromDigest(digest)
	require.NoError(t, r.writeCommit(first, &record.Commit{Delete: true, PreviousCommit: cid.Zero}))

	second, err := r.freeCID(digest)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.True(t, first.EqualModCollision(second))
	require.Equal(t, byte(0x01), second.CollisionByte())
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
