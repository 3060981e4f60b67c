package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a commit CID is referenced but absent both
// from the in-memory cache and from disk.
var ErrNotFound = errors.New("store: not found")

// ErrCorruptHeader means the repository's HEADER record is missing or its
// decoded type mask isn't the Head shape. This is fatal for the
// repository: Open panics with an error wrapping it rather than returning
// it. The branch mutations return it when a HEADER reread decodes as
// another kind, and GetCommit returns it when a commit filename holds a
// record that isn't a commit.
var ErrCorruptHeader = errors.New("store: HEADER record missing or corrupt")

// ErrInternalConsistency marks a violated invariant that indicates a bug in
// the engine itself (a delta round-trip failure), not a property of caller
// input.
var ErrInternalConsistency = errors.New("store: internal consistency violated")

// ErrConflict is returned by write-back when another writer changed a repo
// file on disk between this writer's read and its write.
type ErrConflict struct {
	Path string
	New  []byte
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("store: %s changed on disk since last read", e.Path)
}

// IsConflict reports whether err is an *ErrConflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var c *ErrConflict
	return errors.As(err, &c)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
