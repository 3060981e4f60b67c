// Package store implements the storage repo itself: a directory of
// content-addressed repo file records, commit creation and checkout,
// branch advancement, and the bookkeeping needed to keep the on-disk
// HEADER/branch/commit files consistent under a single writer per
// repository.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/modules/codec"
	"github.com/cellarscm/engine/modules/record"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"
)

// headerFilename is the one repo file with a fixed, non-content-addressed
// name.
const headerFilename = "HEADER"

// reconstruction is one replayed file chain: the name resolved from the
// newest Rename and the rebuilt bytes. Cached per CID — a commit's content
// never changes once its CID is assigned — so repeated checkouts and
// reconciler probes of the same commit skip the chain replay.
type reconstruction struct {
	name string
	data []byte
}

// treeCacheMaxBytes bounds the reconstruction cache's total content size.
const treeCacheMaxBytes = 64 << 20

// branchState tracks one branch head record together with the hash
// write-back needs to detect concurrent on-disk changes.
type branchState struct {
	head       *record.BranchHead
	storedHash [codec.DigestSize]byte
}

// Repository is one open repository directory: its HEADER, its branches,
// and a cache of decoded commit records.
//
// opMu is the writer-exclusive lock held for the full duration of one
// mutating operation (CreateCommit, PushCommitOntoBranch, DeleteBranch,
// SetCommitInfo): it serializes external callers against each other.
// mu is the fine-grained lock guarding the header, branch, and
// commit-cache state itself. On the commit-creation and checkout paths it
// is held only for a short read or write of that state and never across a
// blocking I/O call, so code already holding opMu can still call read
// helpers (GetCommit, ListBranches, ...) — including the errgroup-parallel
// child commits createFolderCommit fans out — without deadlocking on
// itself. The two branch-table mutations are the exception: they hold mu
// across their whole refresh-check-write sequence, disk I/O included, so
// no reader can observe a half-refreshed branch table; those paths only
// ever touch state through the *Locked helpers and never re-enter mu.
type Repository struct {
	root string

	opMu sync.Mutex
	mu   sync.RWMutex
	// allocMu makes claiming a free CID and writing the record under it
	// atomic against the concurrent child commits one folder commit fans
	// out.
	allocMu sync.Mutex

	header           *record.Header
	headerStoredHash [codec.DigestSize]byte

	branches map[string]*branchState

	commits   map[cid.ID]*record.Commit
	treeCache *ristretto.Cache[string, reconstruction]

	log *logrus.Entry
}

// Option configures a Repository at Open/Create time.
type Option func(*Repository)

// WithLogger overrides the logrus entry the repository logs chain walks,
// conflicts, and recovered corruption through. The default is
// logrus.StandardLogger()'s entry.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

func newRepository(root string, opts ...Option) (*Repository, error) {
	r := &Repository{
		root:     root,
		branches: make(map[string]*branchState),
		commits:  make(map[cid.ID]*record.Commit),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(r)
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, reconstruction]{
		NumCounters: 10000,
		MaxCost:     treeCacheMaxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("store: allocate reconstruction cache: %w", err)
	}
	r.treeCache = cache
	return r, nil
}

// Create makes a brand-new, empty repository at path: path must not exist
// or must be an empty directory. A fresh HEADER with no branches is
// written and name is recorded as the repository's display name.
func Create(path, name string, opts ...Option) (*Repository, error) {
	entries, err := os.ReadDir(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("store: create repo dir: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("store: inspect repo dir: %w", err)
	case len(entries) > 0:
		return nil, fmt.Errorf("store: %s is not empty", path)
	}

	r, err := newRepository(path, opts...)
	if err != nil {
		return nil, err
	}
	r.header = &record.Header{Name: name}
	encoded := r.header.Encode()
	if err := os.WriteFile(filepath.Join(path, headerFilename), encoded, 0o644); err != nil {
		return nil, fmt.Errorf("store: write HEADER: %w", err)
	}
	r.headerStoredHash = codec.HashData(encoded)
	return r, nil
}

// Open loads an existing repository: its HEADER and every branch it lists.
// A missing or malformed HEADER is fatal for the repository; Open panics
// so a corrupt filesystem can't masquerade as an empty repo.
func Open(path string, opts ...Option) (*Repository, error) {
	r, err := newRepository(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.loadHeader(); err != nil {
		panic(fmt.Errorf("%w: %s: %v", ErrCorruptHeader, path, err))
	}
	for _, name := range r.header.Branches {
		if err := r.loadBranch(name); err != nil {
			r.log.WithError(err).WithField("branch", name).Warn("store: branch listed in HEADER is unreadable")
		}
	}
	return r, nil
}

// Drop removes a repository's entire directory tree. This is the one place
// the engine deletes files outright rather than recording a Delete commit.
func Drop(path string) error {
	return os.RemoveAll(path)
}

func (r *Repository) loadHeader() error {
	path := filepath.Join(r.root, headerFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoded, err := record.Decode(data)
	if err != nil {
		return err
	}
	if decoded.Kind != record.KindHeader {
		return fmt.Errorf("HEADER has type mask for kind %d, want header", decoded.Kind)
	}
	r.header = decoded.Header
	r.headerStoredHash = decoded.StoredHash
	return nil
}

func (r *Repository) loadBranch(name string) error {
	path := filepath.Join(r.root, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoded, err := record.Decode(data)
	if err != nil {
		return err
	}
	if decoded.Kind != record.KindBranchHead {
		return fmt.Errorf("branch file %q has wrong record kind", name)
	}
	r.branches[name] = &branchState{head: decoded.Branch, storedHash: decoded.StoredHash}
	return nil
}

// Root returns the repository's directory path.
func (r *Repository) Root() string { return r.root }

// Name returns the repository's display name.
func (r *Repository) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.header.Name
}

// LooseCommits lists every commit CID currently stored on disk, by
// scanning the repository directory for hex filenames of CID width. A
// read-only diagnostic accessor.
func (r *Repository) LooseCommits() ([]cid.ID, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, err
	}
	var out []cid.ID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) != cid.Size*2 {
			continue
		}
		raw := codec.DecodeHex(name)
		if len(raw) != cid.Size {
			continue
		}
		out = append(out, cid.FromBEBytes(raw))
	}
	return out, nil
}
