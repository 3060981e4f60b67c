package store

import (
	"os"
	"path/filepath"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/record"
	"github.com/sirupsen/logrus"
)

// GetCommit returns the decoded commit record for id, reading it from disk
// and caching it on first access. It returns ErrNotFound if no such record
// exists on disk.
func (r *Repository) GetCommit(id cid.ID) (*record.Commit, error) {
	r.mu.RLock()
	if c, ok := r.commits[id]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

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

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.commits[id]; ok {
		// Lost the race against a concurrent reader; keep the one
		// already cached so in-place edit-parsing mutation stays
		// consistent for every caller holding a pointer to it.
		return c, nil
	}
	r.commits[id] = decoded.Commit
	return decoded.Commit, nil
}

func (r *Repository) cacheCommit(id cid.ID, c *record.Commit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits[id] = c
}

// GetCommitChain walks previous_commit pointers starting at id, returning
// the chain newest-first. It stops at the zero CID or at the first missing
// predecessor: a dangling reference degrades to "end of chain" rather than
// failing the whole walk.
func (r *Repository) GetCommitChain(id cid.ID) []cid.ID {
	var chain []cid.ID
	seen := make(map[cid.ID]bool)
	cur := id
	for !cur.IsZero() {
		if seen[cur] {
			r.log.WithField("cid", cur).Warn("store: commit chain cycle detected, stopping walk")
			break
		}
		seen[cur] = true
		c, err := r.GetCommit(cur)
		if err != nil {
			break
		}
		chain = append(chain, cur)
		cur = c.PreviousCommit
	}
	r.log.WithFields(logrus.Fields{"tip": id, "length": len(chain)}).Debug("store: walked commit chain")
	return chain
}

// resolvedEdit returns a commit's edit instructions, parsing them in place
// against pointerSize if they haven't been parsed yet. Parsing mutates the
// shared cached record, and chain replays can run from the concurrent
// child commits a folder commit fans out, so the parse happens under the
// state lock. Idempotent.
func (r *Repository) resolvedEdit(c *record.Commit, pointerSize int) ([]record.Instruction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.NeedsPointerSize() {
		if err := c.ParseEdit(pointerSize); err != nil {
			return nil, err
		}
	}
	return c.Instructions, nil
}
