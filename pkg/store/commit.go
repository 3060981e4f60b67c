package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
	"github.com/cellarscm/engine/modules/delta"
	"github.com/cellarscm/engine/modules/record"
	"github.com/cellarscm/engine/pkg/store/reconcile"
	"golang.org/x/sync/errgroup"
)

// CreateCommit is the storage repo's single entry point for committing a
// working-tree path: a Delete if location vanished, a file commit if it's
// a regular file, a folder commit otherwise. isRoot marks the top of a
// committed tree, whose NewFolder aspect (if any) carries an empty name
// rather than the directory's own basename.
//
// The whole call holds opMu: the repository is single-writer, and this is
// the one writer-exclusive operation that touches the commit-record tree.
func (r *Repository) CreateCommit(prev cid.ID, location string, isRoot bool) (cid.ID, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.createCommit(prev, location, isRoot)
}

func (r *Repository) createCommit(prev cid.ID, location string, isRoot bool) (cid.ID, error) {
	info, err := os.Stat(location)
	switch {
	case os.IsNotExist(err):
		if prev.IsZero() {
			return cid.Zero, nil
		}
		return r.createDeleteCommit(prev)
	case err != nil:
		return cid.Zero, err
	case info.IsDir():
		return r.createFolderCommit(prev, location, isRoot)
	default:
		return r.createFileCommit(prev, location)
	}
}

// freeCID increments digest's collision byte until it names no existing
// commit: any occupied slot is skipped regardless of its content.
func (r *Repository) freeCID(digest [codec.DigestSize]byte) (cid.ID, error) {
	candidate := cid.FromDigest(digest)
	var b byte
	for {
		if _, err := r.GetCommit(candidate); IsNotFound(err) {
			return candidate, nil
		} else if err != nil {
			return cid.Zero, err
		}
		b++
		candidate = candidate.WithCollisionByte(b)
	}
}

// freeDeleteCID reuses prev's own CID for a Delete commit, incrementing
// its collision byte only while the slot it names is occupied by a
// non-Delete record; an occupied Delete slot is reused outright.
func (r *Repository) freeDeleteCID(prev cid.ID) (cid.ID, error) {
	candidate := prev
	var b byte
	for {
		existing, err := r.GetCommit(candidate)
		if IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return cid.Zero, err
		}
		if existing.Delete {
			return candidate, nil
		}
		b++
		candidate = candidate.WithCollisionByte(b)
	}
}

// allocAndWrite claims a free CID for digest and persists c under it as
// one step. Child commits fan out concurrently inside a folder commit, so
// the probe-for-a-free-slot and the write that occupies it have to be
// atomic with respect to each other or two children with equal digests
// could claim the same filename.
func (r *Repository) allocAndWrite(digest [codec.DigestSize]byte, c *record.Commit) (cid.ID, error) {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()
	id, err := r.freeCID(digest)
	if err != nil {
		return cid.Zero, err
	}
	if err := r.writeCommit(id, c); err != nil {
		return cid.Zero, err
	}
	return id, nil
}

func (r *Repository) writeCommit(id cid.ID, c *record.Commit) error {
	path := filepath.Join(r.root, id.String())
	encoded := c.Encode()
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return err
	}
	r.cacheCommit(id, c)
	return nil
}

func (r *Repository) createDeleteCommit(prev cid.ID) (cid.ID, error) {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()
	id, err := r.freeDeleteCID(prev)
	if err != nil {
		return cid.Zero, err
	}
	if existing, err := r.GetCommit(id); err == nil && existing.Delete {
		return id, nil
	}
	c := &record.Commit{PreviousCommit: prev, Delete: true}
	if err := r.writeCommit(id, c); err != nil {
		return cid.Zero, err
	}
	return id, nil
}

// reconstructFile replays id's commit chain back to its NewFile origin,
// returning the filename resolved from the newest Rename and the rebuilt
// bytes, without writing anything to disk.
func (r *Repository) reconstructFile(id cid.ID) (name string, data []byte, err error) {
	if id.IsZero() {
		return "", nil, nil
	}
	if hit, ok := r.treeCache.Get(id.String()); ok {
		return hit.name, append([]byte(nil), hit.data...), nil
	}
	chain := r.GetCommitChain(id)

	var stack []*record.Commit
	var maxSize, curSize uint64
	haveCur := false
	for _, cur := range chain {
		c, gerr := r.GetCommit(cur)
		if gerr != nil {
			return "", nil, gerr
		}
		if c.HasResize {
			if c.Size > maxSize {
				maxSize = c.Size
			}
			if !haveCur {
				curSize = c.Size
				haveCur = true
			}
		}
		if name == "" && c.HasRename {
			name = c.RenameTo
		}
		stack = append(stack, c)
		if c.NewFile {
			break
		}
	}

	buf := make([]byte, maxSize)
	pointerSize := 0
	for i := len(stack) - 1; i >= 0; i-- {
		c := stack[i]
		if c.HasResize {
			pointerSize = record.PointerSizeForSize(c.Size)
		}
		if c.HasEdit {
			instrs, perr := r.resolvedEdit(c, pointerSize)
			if perr != nil {
				return "", nil, perr
			}
			for _, in := range instrs {
				in.Run(buf)
			}
		}
	}
	if curSize > uint64(len(buf)) {
		curSize = uint64(len(buf))
	}
	data = buf[:curSize]
	r.treeCache.Set(id.String(), reconstruction{name: name, data: append([]byte(nil), data...)}, int64(len(data))+1)
	return name, data, nil
}

func (r *Repository) createFileCommit(prev cid.ID, location string) (cid.ID, error) {
	newData, err := os.ReadFile(location)
	if err != nil {
		return cid.Zero, err
	}
	newDigest := codec.HashData(newData)
	newID := cid.FromDigest(newDigest)

	if !prev.IsZero() {
		prevCommit, err := r.GetCommit(prev)
		if err != nil {
			return cid.Zero, err
		}
		if prevCommit.Delete {
			return r.createFileCommit(cid.Zero, location)
		}
	}

	baseName := filepath.Base(location)
	var oldName string
	var oldData []byte
	if !prev.IsZero() {
		oldName, oldData, err = r.reconstructFile(prev)
		if err != nil {
			return cid.Zero, err
		}
		// A true no-op needs both content and name unchanged: a rename
		// with identical content still gets a new, rename-only commit.
		if newID.EqualModCollision(prev) && oldName == baseName {
			return prev, nil
		}
	}

	isNewFile := prev.IsZero()
	newLen := uint64(len(newData))
	resized := isNewFile || uint64(len(oldData)) != newLen
	renameNeeded := isNewFile || oldName != baseName

	oldPadded := make([]byte, newLen)
	copy(oldPadded, oldData)

	instructions, pointerSize, err := delta.Generate(oldPadded, newData)
	if err != nil {
		return cid.Zero, fmt.Errorf("%w: %v", ErrInternalConsistency, err)
	}

	c := &record.Commit{
		PreviousCommit: prev,
		NewFile:        isNewFile,
		HasResize:      resized,
		Size:           newLen,
		HasRename:      renameNeeded,
		RenameTo:       baseName,
	}
	c.SetInstructions(pointerSize, instructions)

	return r.allocAndWrite(newDigest, c)
}

// getOldSubInfo resolves a folder commit's listed children into reconcile
// candidates: each child's current name (from the nearest
// NewFolder/Rename in its own chain) and kind, skipping any child whose
// chain head is a Delete — it's gone, not a candidate.
func (r *Repository) getOldSubInfo(folderID cid.ID) ([]reconcile.OldSub, error) {
	folder, err := r.GetCommit(folderID)
	if err != nil {
		return nil, err
	}
	if !folder.HasFolder {
		return nil, nil
	}
	out := make([]reconcile.OldSub, 0, len(folder.Children))
	for _, childID := range folder.Children {
		chain := r.GetCommitChain(childID)
		if len(chain) == 0 {
			return nil, fmt.Errorf("store: folder child %s has no resolvable history", childID)
		}
		head, err := r.GetCommit(chain[0])
		if err != nil {
			return nil, err
		}
		if head.Delete {
			continue
		}
		var name string
		var isFolder bool
		found := false
		for _, id := range chain {
			c, err := r.GetCommit(id)
			if err != nil {
				return nil, err
			}
			if c.HasNewFolder {
				name, isFolder, found = c.NewFolderName, true, true
				break
			}
			if c.HasRename {
				name, isFolder, found = c.RenameTo, false, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("store: folder child %s has no name in its history", childID)
		}
		out = append(out, reconcile.OldSub{ID: childID, Name: name, IsFolder: isFolder})
	}
	return out, nil
}

type dirEntry struct {
	name string
	path string
	dir  bool
}

func readDirSorted(location string) ([]dirEntry, error) {
	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, err
	}
	out := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dirEntry{name: e.Name(), path: filepath.Join(location, e.Name()), dir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// newEntriesFor turns directory entries into the reconciler's view of
// them: names, kinds, and content hashes for files.
func newEntriesFor(entries []dirEntry) ([]reconcile.NewEntry, error) {
	out := make([]reconcile.NewEntry, len(entries))
	for i, e := range entries {
		ne := reconcile.NewEntry{Name: e.name, IsFolder: e.dir}
		if !e.dir {
			data, err := os.ReadFile(e.path)
			if err != nil {
				return nil, err
			}
			ne.Hash = codec.HashData(data)
		}
		out[i] = ne
	}
	return out, nil
}

// listNewEntries is newEntriesFor over a directory's immediate contents,
// the shape PickFolderMatch scores an old folder against.
func listNewEntries(location string) ([]reconcile.NewEntry, error) {
	entries, err := readDirSorted(location)
	if err != nil {
		return nil, err
	}
	return newEntriesFor(entries)
}

func (r *Repository) createFolderCommit(prev cid.ID, location string, isRoot bool) (cid.ID, error) {
	entries, err := readDirSorted(location)
	if err != nil {
		return cid.Zero, err
	}

	childPrev := make([]cid.ID, len(entries))

	if !prev.IsZero() {
		prevCommit, err := r.GetCommit(prev)
		if err != nil {
			return cid.Zero, err
		}
		if prevCommit.Delete {
			return r.createFolderCommit(cid.Zero, location, isRoot)
		}

		olds, err := r.getOldSubInfo(prev)
		if err != nil {
			return cid.Zero, err
		}

		news, err := newEntriesFor(entries)
		if err != nil {
			return cid.Zero, err
		}

		matched, unmatchedOldIdx := reconcile.MatchByName(news, olds)
		pool := reconcile.NewRemainingPool(unmatchedOldIdx)

		for i, e := range entries {
			if old, ok := matched[i]; ok {
				childPrev[i] = old.ID
				continue
			}
			if e.dir {
				// The score compares the new subfolder's own immediate
				// contents against each candidate old folder's child list,
				// not the parent listing it sits in.
				subNews, err := listNewEntries(e.path)
				if err != nil {
					return cid.Zero, err
				}
				old, ok, err := reconcile.PickFolderMatch(subNews, olds, pool, func(o reconcile.OldSub) ([]reconcile.OldSub, error) {
					return r.getOldSubInfo(o.ID)
				})
				if err != nil {
					return cid.Zero, err
				}
				if ok {
					childPrev[i] = old.ID
				}
				continue
			}
			data, err := os.ReadFile(e.path)
			if err != nil {
				return cid.Zero, err
			}
			old, ok, err := reconcile.PickFileMatch(data, olds, pool, func(o reconcile.OldSub) ([]byte, error) {
				_, bytes, err := r.reconstructFile(o.ID)
				return bytes, err
			})
			if err != nil {
				return cid.Zero, err
			}
			if ok {
				childPrev[i] = old.ID
			}
		}

		// Anything left in pool vanished from the new tree: Delete it and
		// carry those CIDs along so they stay reachable (invariant 5).
		for idx, old := range olds {
			if !pool.Contains(idx) {
				continue
			}
			delID, err := r.createDeleteCommit(old.ID)
			if err != nil {
				return cid.Zero, err
			}
			childPrev = append(childPrev, delID)
		}
	}

	children, err := r.commitChildren(entries, childPrev[:len(entries)])
	if err != nil {
		return cid.Zero, err
	}
	children = append(children, childPrev[len(entries):]...)

	if !prev.IsZero() {
		prevCommit, _ := r.GetCommit(prev)
		if prevCommit != nil && prevCommit.HasFolder && sameChildren(prevCommit.Children, children) {
			return prev, nil
		}
	}

	digestInput := make([]byte, 0, len(children)*cid.Size)
	for _, c := range children {
		digestInput = append(digestInput, c.ToBEBytes()...)
	}
	digest := codec.HashData(digestInput)

	name := ""
	if !isRoot {
		name = filepath.Base(location)
	}
	c := &record.Commit{
		PreviousCommit: prev,
		HasNewFolder:   true,
		NewFolderName:  name,
		HasFolder:      true,
		Children:       children,
	}
	if !prev.IsZero() {
		c.HasNewFolder = false
	}

	return r.allocAndWrite(digest, c)
}

func sameChildren(a, b []cid.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// commitChildren commits every directory entry against its chosen
// predecessor concurrently. Results land in a slice indexed by
// directory-listing position, so the parent's child-CID order is
// independent of completion order.
func (r *Repository) commitChildren(entries []dirEntry, childPrev []cid.ID) ([]cid.ID, error) {
	out := make([]cid.ID, len(entries))
	g := new(errgroup.Group)
	for i := range entries {
		i := i
		g.Go(func() error {
			id, err := r.createCommit(childPrev[i], entries[i].path, false)
			if err != nil {
				return err
			}
			out[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
