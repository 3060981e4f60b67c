package store

import (
	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
	"github.com/cellarscm/engine/modules/record"
)

// GetCommitInfo returns id's authorship metadata with an absolute
// Unix-seconds Timestamp. On disk every commit but the very first one in
// its chain stores Timestamp as a delta from the commit immediately
// before it; this walks id's chain back to its root, summing deltas, to
// recover the absolute value.
func (r *Repository) GetCommitInfo(id cid.ID) (*record.CommitInfo, error) {
	c, err := r.GetCommit(id)
	if err != nil {
		return nil, err
	}
	if c.Info == nil {
		return nil, nil
	}

	chain := r.GetCommitChain(id)
	var total uint64
	for i := len(chain) - 1; i >= 0; i-- {
		cur, err := r.GetCommit(chain[i])
		if err != nil {
			return nil, err
		}
		if cur.Info != nil {
			total += cur.Info.Timestamp
		}
	}

	out := *c.Info
	out.Timestamp = total
	return &out, nil
}

// SetCommitInfo stamps id's commit record with info, storing Timestamp as
// a delta from the absolute time of id's immediate predecessor so
// GetCommitInfo can recover it again. Unlike every other mutation in this
// package, this rewrites the record under its existing CID rather than a
// freshly computed one: a commit's CID digest is the hash of the content
// it identifies (file bytes, or concatenated child CIDs), never of the
// record's own encoded bytes, so attaching or replacing authorship
// metadata does not change what CID the record is entitled to. This
// sidesteps the dangling-reference problem a content hash tied to the
// encoded record would otherwise create every time CommitInfo changed.
// It reports false if another writer changed the record on disk since it
// was last read.
func (r *Repository) SetCommitInfo(id cid.ID, info record.CommitInfo) (bool, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	c, err := r.GetCommit(id)
	if err != nil {
		return false, err
	}

	var predecessorAbs uint64
	if !c.PreviousCommit.IsZero() {
		predInfo, err := r.GetCommitInfo(c.PreviousCommit)
		if err != nil {
			return false, err
		}
		if predInfo != nil {
			predecessorAbs = predInfo.Timestamp
		}
	}

	stamped := info
	if info.Timestamp >= predecessorAbs {
		stamped.Timestamp = info.Timestamp - predecessorAbs
	} else {
		stamped.Timestamp = 0
	}

	updated := *c
	updated.Info = &stamped

	storedHash := codec.HashData(c.Encode())
	status, _, err := writeBack(r.root, id.String(), &storedHash, &updated)
	if err != nil {
		return false, err
	}
	if status == WriteBackConflict {
		return false, nil
	}
	r.cacheCommit(id, &updated)
	return true, nil
}
