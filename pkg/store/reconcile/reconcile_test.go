package reconcile

import (
	"testing"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
	"github.com/stretchr/testify/require"
)

func idFor(b byte) cid.ID {
	var digest [codec.DigestSize]byte
	digest[0] = b
	return cid.FromDigest(digest)
}

func TestMatchByNameExactPairs(t *testing.T) {
	olds := []OldSub{
		{ID: idFor(1), Name: "x"},
		{ID: idFor(2), Name: "y"},
	}
	news := []NewEntry{{Name: "y"}, {Name: "x"}, {Name: "z"}}

	matched, unmatched := MatchByName(news, olds)
	require.Equal(t, olds[1], matched[0])
	require.Equal(t, olds[0], matched[1])
	require.NotContains(t, matched, 2)
	require.Empty(t, unmatched)
}

func TestPickFileMatchExactHash(t *testing.T) {
	data := []byte("hello world")
	hash := codec.HashData(data)
	olds := []OldSub{
		{ID: cid.FromDigest(hash), Name: "old-name"},
		{ID: idFor(9), Name: "unrelated"},
	}
	pool := NewRemainingPool([]int{0, 1})

	loadOld := func(o OldSub) ([]byte, error) {
		if o.Name == "old-name" {
			return data, nil
		}
		return []byte("something else entirely"), nil
	}

	match, ok, err := PickFileMatch(data, olds, pool, loadOld)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "old-name", match.Name)
	require.False(t, pool.Contains(0))
}

func TestPickFileMatchClosestWithinThreshold(t *testing.T) {
	newData := []byte("aaaaaaaaaa") // 10 bytes
	olds := []OldSub{
		{ID: idFor(1), Name: "close"},
		{ID: idFor(2), Name: "far"},
	}
	pool := NewRemainingPool([]int{0, 1})

	loadOld := func(o OldSub) ([]byte, error) {
		switch o.Name {
		case "close":
			return []byte("aaaaaaaaab"), nil // 1 byte different
		default:
			return []byte("bbbbbbbbbb"), nil // all different
		}
	}

	match, ok, err := PickFileMatch(newData, olds, pool, loadOld)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "close", match.Name)
}

func TestPickFileMatchNoneWithinThreshold(t *testing.T) {
	newData := []byte("aaaaaaaaaa")
	olds := []OldSub{{ID: idFor(1), Name: "far"}}
	pool := NewRemainingPool([]int{0})

	loadOld := func(o OldSub) ([]byte, error) {
		return []byte("bbbbbbbbbb"), nil
	}

	_, ok, err := PickFileMatch(newData, olds, pool, loadOld)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPickFolderMatchHighestScore(t *testing.T) {
	news := []NewEntry{
		{Name: "a.txt", IsFolder: false, Hash: codec.HashData([]byte("content-a"))},
		{Name: "b.txt", IsFolder: false, Hash: codec.HashData([]byte("content-b"))},
	}
	olds := []OldSub{
		{ID: idFor(1), Name: "folder-a", IsFolder: true},
		{ID: idFor(2), Name: "folder-b", IsFolder: true},
	}
	pool := NewRemainingPool([]int{0, 1})

	oldContents := func(o OldSub) ([]OldSub, error) {
		switch o.Name {
		case "folder-a":
			return []OldSub{
				{ID: idFor(10), Name: "a.txt"},
				{ID: idFor(11), Name: "b.txt"},
			}, nil
		default:
			return []OldSub{{ID: idFor(12), Name: "unrelated.txt"}}, nil
		}
	}

	match, ok, err := PickFolderMatch(news, olds, pool, oldContents)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "folder-a", match.Name)
}

func TestScoreFolderSameHashDifferentName(t *testing.T) {
	hashA := codec.HashData([]byte("a"))
	news := []NewEntry{{Name: "renamed.txt", Hash: hashA}}
	oldContent := []OldSub{
		{ID: cid.FromDigest(hashA), Name: "other-name.txt"},
	}
	require.Equal(t, 1, scoreFolder(news, oldContent))
}
