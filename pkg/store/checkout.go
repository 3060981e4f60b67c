package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cellarscm/engine/modules/cid"
)

// BuildCommit materializes id's content under dest: dest is the parent
// directory, and the file or folder appears inside it under the name its
// own history records (the nearest Rename or NewFolder walking backward).
// A root folder commit carries an empty name and builds into dest itself.
// Building a Delete commit is a no-op.
func (r *Repository) BuildCommit(id cid.ID, dest string) error {
	if id.IsZero() {
		return fmt.Errorf("store: cannot build the zero commit")
	}
	c, err := r.GetCommit(id)
	if err != nil {
		return err
	}
	if c.Delete {
		return nil
	}
	if c.HasFolder {
		return r.buildFolder(id, dest)
	}
	return r.buildFile(id, dest)
}

func (r *Repository) buildFile(id cid.ID, parentDir string) error {
	name, data, err := r.reconstructFile(id)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("store: %s has no name in its history", id)
	}
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(parentDir, name), data, 0o644)
}

func (r *Repository) buildFolder(id cid.ID, parentDir string) error {
	c, err := r.GetCommit(id)
	if err != nil {
		return err
	}

	// The directory's name comes from the nearest NewFolder walking
	// backward; a root folder was committed with an empty name and lands
	// in parentDir directly.
	name := ""
	for _, cur := range r.GetCommitChain(id) {
		cc, err := r.GetCommit(cur)
		if err != nil {
			return err
		}
		if cc.HasNewFolder {
			name = cc.NewFolderName
			break
		}
	}
	dir := filepath.Join(parentDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, child := range c.Children {
		childCommit, err := r.GetCommit(child)
		if err != nil {
			return err
		}
		if childCommit.Delete {
			continue
		}
		if childCommit.HasFolder {
			if err := r.buildFolder(child, dir); err != nil {
				return err
			}
			continue
		}
		if err := r.buildFile(child, dir); err != nil {
			return err
		}
	}
	return nil
}
