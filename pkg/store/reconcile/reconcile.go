// Package reconcile implements folder-child matching for commit creation:
// given a new directory's entries left unmatched by exact name, pick the
// best old-folder child to use as each one's predecessor, or decide to
// start it fresh.
package reconcile

import (
	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/trees/binaryheap"
)

// maxDifferencePercent is the ceiling on how different an old file may be
// from a new one and still be accepted as its predecessor. The comparison
// stays in integer arithmetic: differing-byte count times 100 against
// size times this percentage.
const maxDifferencePercent = 25

// OldSub names one child of an old folder commit: its CID, the name it was
// last known by (from the nearest NewFile/NewFolder/Rename in its chain),
// and whether it is itself a folder.
type OldSub struct {
	ID       cid.ID
	Name     string
	IsFolder bool
}

// NewEntry names one entry of the new working-tree directory being
// committed. Hash is only meaningful when IsFolder is false.
type NewEntry struct {
	Name     string
	IsFolder bool
	Hash     [codec.DigestSize]byte
}

// MatchByName pairs new entries to old entries sharing the same Name,
// regardless of kind; name matches always win over content matches. It
// returns the match for every new index that found one, and the indices
// into olds left unmatched afterward.
func MatchByName(news []NewEntry, olds []OldSub) (matched map[int]OldSub, unmatchedOld []int) {
	matched = make(map[int]OldSub, len(news))
	consumed := make([]bool, len(olds))
	for ni, n := range news {
		for oi, o := range olds {
			if consumed[oi] {
				continue
			}
			if o.Name == n.Name {
				matched[ni] = o
				consumed[oi] = true
				break
			}
		}
	}
	for oi, used := range consumed {
		if !used {
			unmatchedOld = append(unmatchedOld, oi)
		}
	}
	return matched, unmatchedOld
}

// NewRemainingPool seeds the pool of old-entry indices still available to
// match against; picks remove themselves from it as they're made.
func NewRemainingPool(unmatchedOld []int) *hashset.Set {
	vals := make([]interface{}, len(unmatchedOld))
	for i, v := range unmatchedOld {
		vals[i] = v
	}
	return hashset.New(vals...)
}

type fileCandidate struct {
	idx      int
	errCount int
}

// PickFileMatch chooses a predecessor for an unmatched new file entry. It
// first looks for an exact content-hash match among remaining old file
// entries, then falls back to the closest old file within
// maxDifferencePercent, breaking ties toward the lowest old index so the
// choice is deterministic regardless of map or directory iteration order.
// loadOld reconstructs an old entry's bytes.
func PickFileMatch(newData []byte, olds []OldSub, remaining *hashset.Set, loadOld func(OldSub) ([]byte, error)) (OldSub, bool, error) {
	newID := cid.FromDigest(codec.HashData(newData))

	for idx := 0; idx < len(olds); idx++ {
		if !remaining.Contains(idx) || olds[idx].IsFolder {
			continue
		}
		if olds[idx].ID.EqualModCollision(newID) {
			remaining.Remove(idx)
			return olds[idx], true, nil
		}
	}

	heap := binaryheap.NewWith(func(a, b interface{}) int {
		ca, cb := a.(fileCandidate), b.(fileCandidate)
		if ca.errCount != cb.errCount {
			return ca.errCount - cb.errCount
		}
		return ca.idx - cb.idx
	})

	maxError := len(newData) * maxDifferencePercent
	for idx := 0; idx < len(olds); idx++ {
		if !remaining.Contains(idx) || olds[idx].IsFolder {
			continue
		}
		old, err := loadOld(olds[idx])
		if err != nil {
			return OldSub{}, false, err
		}
		sizeDelta := len(old) - len(newData)
		if sizeDelta < 0 {
			sizeDelta = -sizeDelta
		}
		padded := make([]byte, len(newData))
		copy(padded, old)
		diff := 0
		for i := range newData {
			if padded[i] != newData[i] {
				diff++
			}
		}
		errCount := (diff + sizeDelta) * 100
		if errCount <= maxError {
			heap.Push(fileCandidate{idx: idx, errCount: errCount})
		}
	}

	top, ok := heap.Pop()
	if !ok {
		return OldSub{}, false, nil
	}
	c := top.(fileCandidate)
	remaining.Remove(c.idx)
	return olds[c.idx], true, nil
}

type folderCandidate struct {
	idx  int
	rate int
}

// PickFolderMatch chooses a predecessor for an unmatched new folder entry
// by scoring every remaining old folder against the new folder's
// immediate contents and picking the highest score (ties toward the
// lowest old index). oldContents fetches an old folder's own child list
// (names, kind, and file hashes).
func PickFolderMatch(news []NewEntry, olds []OldSub, remaining *hashset.Set, oldContents func(OldSub) ([]OldSub, error)) (OldSub, bool, error) {
	heap := binaryheap.NewWith(func(a, b interface{}) int {
		ca, cb := a.(folderCandidate), b.(folderCandidate)
		if ca.rate != cb.rate {
			return cb.rate - ca.rate
		}
		return ca.idx - cb.idx
	})

	for idx := 0; idx < len(olds); idx++ {
		if !remaining.Contains(idx) || !olds[idx].IsFolder {
			continue
		}
		content, err := oldContents(olds[idx])
		if err != nil {
			return OldSub{}, false, err
		}
		heap.Push(folderCandidate{idx: idx, rate: scoreFolder(news, content)})
	}

	top, ok := heap.Pop()
	if !ok {
		return OldSub{}, false, nil
	}
	c := top.(folderCandidate)
	remaining.Remove(c.idx)
	return olds[c.idx], true, nil
}

// scoreFolder scores one old folder's children against the new folder's
// immediate contents: +2 per shared name of matching kind, +1 more when
// file hashes also match, +1 for a same-hash match under a different
// name, -1 when a previously scored pairing for this old folder is
// superseded by a better one for the same new entry.
func scoreFolder(news []NewEntry, oldContent []OldSub) int {
	sub := append([]OldSub(nil), oldContent...)
	rate := 0
	for _, item := range news {
		found := -1
		for i, subItem := range sub {
			if subItem.Name == item.Name {
				if subItem.IsFolder && item.IsFolder {
					rate += 2
					found = i
				} else if !subItem.IsFolder && !item.IsFolder {
					if found >= 0 {
						rate--
					}
					found = i
					rate += 2
					if subItem.ID.EqualModCollision(cid.FromDigest(item.Hash)) {
						rate++
					}
				}
				break
			} else if !subItem.IsFolder && !item.IsFolder && subItem.ID.EqualModCollision(cid.FromDigest(item.Hash)) {
				rate++
				found = i
			}
		}
		if found >= 0 {
			sub = append(sub[:found], sub[found+1:]...)
		}
	}
	return rate
}
