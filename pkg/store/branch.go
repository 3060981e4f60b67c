package store

import (
	"os"
	"path/filepath"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/record"
	"github.com/sirupsen/logrus"
)

// BranchInfo names one branch and the CID its head currently points at.
type BranchInfo struct {
	Name string
	Tip  cid.ID
}

// ListBranches returns every branch in HEADER order with its current tip.
func (r *Repository) ListBranches() []BranchInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BranchInfo, 0, len(r.header.Branches))
	for _, name := range r.header.Branches {
		b, ok := r.branches[name]
		if !ok {
			continue
		}
		out = append(out, BranchInfo{Name: name, Tip: b.head.PreviousCommit})
	}
	return out
}

// Branches returns the full list of branch names HEADER carries, including
// any whose record failed to load.
func (r *Repository) Branches() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.header.Branches))
	copy(out, r.header.Branches)
	return out
}

// Branch returns the tip CID of the named branch.
func (r *Repository) Branch(name string) (cid.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.branches[name]
	if !ok {
		return cid.Zero, false
	}
	return b.head.PreviousCommit, true
}

// refreshHeaderLocked rereads HEADER from disk under the write lock the
// caller already holds, updating r.header and its stored hash if it
// changed. Every branch-table mutation refreshes before it checks or
// writes anything.
func (r *Repository) refreshHeaderLocked() error {
	data, changed, err := reread(r.root, headerFilename, &r.headerStoredHash)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	decoded, err := record.Decode(data)
	if err != nil {
		return err
	}
	if decoded.Kind != record.KindHeader {
		return ErrCorruptHeader
	}
	r.header = decoded.Header
	return nil
}

// refreshBranchLocked rereads one branch file from disk under the write
// lock the caller already holds, leaving it absent from r.branches if it
// can't be read (a branch newly deleted out from under us).
func (r *Repository) refreshBranchLocked(name string) {
	b, ok := r.branches[name]
	if !ok {
		b = &branchState{head: &record.BranchHead{}}
		r.branches[name] = b
	}
	data, changed, err := reread(r.root, name, &b.storedHash)
	if err != nil {
		delete(r.branches, name)
		return
	}
	if !changed {
		return
	}
	decoded, derr := record.Decode(data)
	if derr != nil || decoded.Kind != record.KindBranchHead {
		return
	}
	b.head = decoded.Branch
}

// PushCommitOntoBranch advances branchName to point at commit's CID,
// creating the branch if it doesn't exist. It reports false if the branch
// exists but its current tip has moved since commit was built (its
// previous_commit no longer matches the branch's tip). Refresh, check, and
// write all happen while holding the write lock, so the tip cannot move
// between the check and the advance.
func (r *Repository) PushCommitOntoBranch(newTip cid.ID, branchName string) (bool, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.refreshHeaderLocked(); err != nil {
		return false, err
	}
	for _, name := range r.header.Branches {
		r.refreshBranchLocked(name)
	}

	commit, err := r.getCommitLocked(newTip)
	if err != nil {
		return false, err
	}

	b, exists := r.branches[branchName]
	if !exists {
		r.header.Branches = append(r.header.Branches, branchName)
		if _, _, err := writeBack(r.root, headerFilename, &r.headerStoredHash, r.header); err != nil {
			return false, err
		}
		b = &branchState{head: &record.BranchHead{PreviousCommit: newTip}}
		r.branches[branchName] = b
		if _, _, err := writeBack(r.root, branchName, &b.storedHash, b.head); err != nil {
			return false, err
		}
		return true, nil
	}

	if b.head.PreviousCommit != commit.PreviousCommit {
		r.log.WithFields(logrus.Fields{"branch": branchName, "tip": b.head.PreviousCommit}).Warn("store: branch tip moved, refusing advance")
		return false, nil
	}
	b.head = &record.BranchHead{PreviousCommit: newTip}
	status, _, err := writeBack(r.root, branchName, &b.storedHash, b.head)
	if err != nil {
		return false, err
	}
	return status != WriteBackConflict, nil
}

// DeleteBranch removes branchName from HEADER. The branch-head record
// itself is left on disk — the store never deletes record files outright —
// only the HEADER listing changes.
func (r *Repository) DeleteBranch(branchName string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.refreshHeaderLocked(); err != nil {
		return err
	}
	for _, name := range r.header.Branches {
		r.refreshBranchLocked(name)
	}
	out := r.header.Branches[:0:0]
	for _, name := range r.header.Branches {
		if name != branchName {
			out = append(out, name)
		}
	}
	r.header.Branches = out
	delete(r.branches, branchName)
	_, _, err := writeBack(r.root, headerFilename, &r.headerStoredHash, r.header)
	return err
}

// getCommitLocked is GetCommit's body for callers that already hold r.mu
// for writing.
func (r *Repository) getCommitLocked(id cid.ID) (*record.Commit, error) {
	if c, ok := r.commits[id]; ok {
		return c, nil
	}
	data, err := os.ReadFile(filepath.Join(r.root, id.String()))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	decoded, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	if decoded.Kind != record.KindCommit {
		return nil, ErrCorruptHeader
	}
	r.commits[id] = decoded.Commit
	return decoded.Commit, nil
}
